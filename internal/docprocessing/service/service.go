package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/internal/docprocessing/metrics"
	"github.com/docscan/docscan-backend/internal/docprocessing/processor"
	"github.com/docscan/docscan-backend/internal/docprocessing/storage"
	"github.com/docscan/docscan-backend/internal/mrz"
	apperrors "github.com/docscan/docscan-backend/pkg/errors"
	"github.com/docscan/docscan-backend/pkg/logger"
)

// AuditWriter persists processing audit entries.
type AuditWriter interface {
	Create(ctx context.Context, entry *domain.ProcessingAuditEntry) error
}

// EventPublisher announces extraction outcomes.
type EventPublisher interface {
	ExtractionCompleted(ctx context.Context, jobID, userID string, result *domain.ExtractionResult) error
	ExtractionFailed(ctx context.Context, jobID, userID string, docType domain.DocumentType, reason string) error
	MRZDecoded(ctx context.Context, jobID, sourceID string, result *domain.ExtractionResult) error
}

// Deps are the collaborators of a Service. Audit, Events and Metrics are
// optional.
type Deps struct {
	Decoder  *mrz.Decoder
	MRZ      *processor.MRZProcessor
	Registry *processor.Registry
	Storage  *storage.TempStorage
	Audit    AuditWriter
	Events   EventPublisher
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
}

// Service orchestrates document processing. It dispatches uploads to
// processors, decodes MRZ lines and cleans up input buffers afterwards.
type Service struct {
	decoder  *mrz.Decoder
	mrz      *processor.MRZProcessor
	registry *processor.Registry
	storage  *storage.TempStorage
	audit    AuditWriter
	events   EventPublisher
	metrics  *metrics.Metrics
	log      *logger.Logger

	jobs sync.WaitGroup
}

// NewService creates a new document processing service
func NewService(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		decoder:  deps.Decoder,
		mrz:      deps.MRZ,
		registry: deps.Registry,
		storage:  deps.Storage,
		audit:    deps.Audit,
		events:   deps.Events,
		metrics:  deps.Metrics,
		log:      log.WithComponent("docprocessing"),
	}
}

// DecodeLines decodes two (TD3) or three (TD1) raw MRZ lines synchronously.
func (s *Service) DecodeLines(ctx context.Context, lines []string) (*domain.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.mrz.DecodeLines(lines, domain.DocumentTypeMRZText)
	if err != nil {
		s.metrics.IncrementProcessorFailure(s.mrz.Name())
		if errors.Is(err, processor.ErrUnsupportedLayout) {
			return nil, apperrors.UnprocessableCause(err)
		}
		return nil, err
	}
	s.metrics.ObserveProcessing(s.mrz.Name(), start)
	return result, nil
}

// ResolveCountry maps a country code to its display name. Unknown codes
// resolve to themselves.
func (s *Service) ResolveCountry(code string) mrz.Country {
	return s.decoder.ResolveCountry(code)
}

// StartExtraction creates a new extraction job and processes the document asynchronously.
// Returns the job immediately so the caller can poll for results.
// The document bytes are zeroed as soon as processing ends.
func (s *Service) StartExtraction(ctx context.Context, data []byte, docType domain.DocumentType, consentTimestamp time.Time, userID string) (domain.ExtractionJob, error) {
	if !docType.Valid() {
		storage.ZeroBytes(data)
		return domain.ExtractionJob{}, apperrors.BadRequest(fmt.Sprintf("unsupported document type: %s", docType))
	}
	if len(data) == 0 {
		return domain.ExtractionJob{}, apperrors.BadRequest("document is empty")
	}

	jobID := storage.GenerateJobID()

	// Create job in processing state
	s.storage.StoreJob(&domain.ExtractionJob{
		JobID:     jobID,
		Status:    domain.StatusProcessing,
		CreatedAt: time.Now(),
	})

	// Find all processors that can handle this document type (supports fallback)
	processors := s.registry.FindProcessors(docType)
	if len(processors) == 0 {
		storage.ZeroBytes(data)
		s.fail(ctx, jobID, userID, docType, fmt.Sprintf("no processor available for document type: %s", docType))
		job, _ := s.storage.GetJob(jobID)
		return job, nil
	}

	job, _ := s.storage.GetJob(jobID)

	// The request context ends with the response; keep its values only.
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		s.processAsync(context.WithoutCancel(ctx), jobID, data, docType, processors, consentTimestamp, userID)
	}()

	return job, nil
}

// Wait blocks until all running extraction jobs have finished.
func (s *Service) Wait() {
	s.jobs.Wait()
}

// GetJob retrieves an extraction job by ID
func (s *Service) GetJob(jobID string) (domain.ExtractionJob, error) {
	job, ok := s.storage.GetJob(jobID)
	if !ok {
		return domain.ExtractionJob{}, apperrors.NotFound("extraction job")
	}
	return job, nil
}

// processAsync tries processors in order; if one fails, the next one gets the document.
func (s *Service) processAsync(ctx context.Context, jobID string, data []byte, docType domain.DocumentType, processors []processor.Processor, consentTimestamp time.Time, userID string) {
	log := s.log.WithJobID(jobID)

	var (
		result   *domain.ExtractionResult
		lastErr  error
		procName string
	)
	for _, proc := range processors {
		log.Info().
			Str("processor", proc.Name()).
			Str("doc_type", string(docType)).
			Msg("trying document extraction")

		start := time.Now()
		result, lastErr = proc.Process(ctx, data, docType)
		if lastErr == nil {
			s.metrics.ObserveProcessing(proc.Name(), start)
			procName = proc.Name()
			break
		}
		s.metrics.IncrementProcessorFailure(proc.Name())
		log.Warn().Err(lastErr).
			Str("processor", proc.Name()).
			Msg("processor failed, trying next")
	}

	// Zero the document immediately after processing
	storage.ZeroBytes(data)
	imageDeletedAt := time.Now()

	if lastErr != nil {
		log.Error().Err(lastErr).Msg("all processors failed")
		s.fail(ctx, jobID, userID, docType, lastErr.Error())
		return
	}

	s.storage.UpdateJob(jobID, func(j *domain.ExtractionJob) {
		j.Status = domain.StatusCompleted
		j.Results = []domain.ExtractionResult{*result}
	})

	s.writeAuditLog(ctx, jobID, docType, procName, consentTimestamp, userID, result, imageDeletedAt)

	if s.events != nil {
		if err := s.events.MRZDecoded(ctx, jobID, "", result); err != nil {
			log.Error().Err(err).Msg("failed to publish mrz decoded event")
		}
		if err := s.events.ExtractionCompleted(ctx, jobID, userID, result); err != nil {
			log.Error().Err(err).Msg("failed to publish extraction completed event")
		}
	}

	log.Info().
		Str("processor", procName).
		Int("fields_extracted", len(result.Fields)).
		Int("warnings", len(result.Warnings)).
		Int64("duration_ms", result.ProcessingTimeMs).
		Msg("document extraction completed")
}

func (s *Service) fail(ctx context.Context, jobID, userID string, docType domain.DocumentType, reason string) {
	s.storage.UpdateJob(jobID, func(j *domain.ExtractionJob) {
		j.Status = domain.StatusFailed
		j.Error = reason
	})
	if s.events == nil {
		return
	}
	if err := s.events.ExtractionFailed(ctx, jobID, userID, docType, reason); err != nil {
		s.log.WithJobID(jobID).Error().Err(err).Msg("failed to publish extraction failed event")
	}
}

// writeAuditLog records which fields were produced. Values are never stored.
func (s *Service) writeAuditLog(ctx context.Context, jobID string, docType domain.DocumentType, procName string, consentTimestamp time.Time, userID string, result *domain.ExtractionResult, imageDeletedAt time.Time) {
	if s.audit == nil {
		return
	}

	entry := &domain.ProcessingAuditEntry{
		JobID:                jobID,
		DocumentType:         string(docType),
		Processor:            procName,
		ConsentTimestamp:     consentTimestamp,
		ConsentGivenBy:       userID,
		FieldsExtracted:      result.FieldKeys(),
		ProcessingDurationMs: result.ProcessingTimeMs,
		ImageDeletedAt:       imageDeletedAt,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.log.WithJobID(jobID).Error().Err(err).Msg("failed to write document processing audit log")
	}
}
