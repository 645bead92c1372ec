package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
)

// TempStorage provides in-memory storage for extraction jobs.
// Uploads are processed in RAM only and zeroed after use.
// Jobs are removed once they are older than the TTL.
type TempStorage struct {
	mu   sync.RWMutex
	jobs map[string]*domain.ExtractionJob
	ttl  time.Duration
	now  func() time.Time
}

// NewTempStorage creates a new in-memory temp storage with the given TTL.
// Call Run to start expiring jobs.
func NewTempStorage(ttl time.Duration) *TempStorage {
	return &TempStorage{
		jobs: make(map[string]*domain.ExtractionJob),
		ttl:  ttl,
		now:  time.Now,
	}
}

// GenerateJobID creates a random job ID
func GenerateJobID() string {
	return uuid.NewString()
}

// StoreJob stores an extraction job
func (s *TempStorage) StoreJob(job *domain.ExtractionJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = job
}

// GetJob returns a snapshot of the job with the given ID.
func (s *TempStorage) GetJob(jobID string) (domain.ExtractionJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ExtractionJob{}, false
	}
	snapshot := *job
	snapshot.Results = append([]domain.ExtractionResult(nil), job.Results...)
	return snapshot, true
}

// UpdateJob updates an existing extraction job
func (s *TempStorage) UpdateJob(jobID string, update func(*domain.ExtractionJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		update(job)
	}
}

// DeleteJob removes a job from storage
func (s *TempStorage) DeleteJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

// Len returns the number of stored jobs.
func (s *TempStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// ZeroBytes overwrites a byte slice with zeros so uploaded documents do not
// linger in memory.
func ZeroBytes(b []byte) {
	clear(b)
}

// Run removes expired jobs every half TTL until ctx is cancelled.
func (s *TempStorage) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *TempStorage) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}
