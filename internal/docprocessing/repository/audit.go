package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/pkg/database"
)

// Schema creates the audit table. Extracted values are never stored, only
// the keys of the fields that were produced.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS document_processing_audit (
		id UUID PRIMARY KEY,
		job_id TEXT NOT NULL,
		document_type VARCHAR(32) NOT NULL,
		processor VARCHAR(32) NOT NULL,
		consent_timestamp TIMESTAMPTZ NOT NULL,
		consent_given_by TEXT NOT NULL DEFAULT '',
		fields_extracted TEXT[] NOT NULL DEFAULT '{}',
		processing_duration_ms BIGINT NOT NULL CHECK (processing_duration_ms >= 0),
		image_deleted_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_document_processing_audit_job_id
		ON document_processing_audit(job_id)`,
}

// auditRow is the scan target; postgres arrays need pq.StringArray.
type auditRow struct {
	ID                   string         `db:"id"`
	JobID                string         `db:"job_id"`
	DocumentType         string         `db:"document_type"`
	Processor            string         `db:"processor"`
	ConsentTimestamp     time.Time      `db:"consent_timestamp"`
	ConsentGivenBy       string         `db:"consent_given_by"`
	FieldsExtracted      pq.StringArray `db:"fields_extracted"`
	ProcessingDurationMs int64          `db:"processing_duration_ms"`
	ImageDeletedAt       time.Time      `db:"image_deleted_at"`
	CreatedAt            time.Time      `db:"created_at"`
}

func (r auditRow) entry() domain.ProcessingAuditEntry {
	return domain.ProcessingAuditEntry{
		ID:                   r.ID,
		JobID:                r.JobID,
		DocumentType:         r.DocumentType,
		Processor:            r.Processor,
		ConsentTimestamp:     r.ConsentTimestamp,
		ConsentGivenBy:       r.ConsentGivenBy,
		FieldsExtracted:      []string(r.FieldsExtracted),
		ProcessingDurationMs: r.ProcessingDurationMs,
		ImageDeletedAt:       r.ImageDeletedAt,
		CreatedAt:            r.CreatedAt,
	}
}

// AuditRepository handles document processing audit persistence
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	if err := r.db.Migrate(ctx, Schema...); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Create inserts an audit entry. ID and CreatedAt are filled in when empty.
func (r *AuditRepository) Create(ctx context.Context, entry *domain.ProcessingAuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.FieldsExtracted == nil {
		entry.FieldsExtracted = []string{}
	}

	query := `
		INSERT INTO document_processing_audit
			(id, job_id, document_type, processor, consent_timestamp, consent_given_by,
			 fields_extracted, processing_duration_ms, image_deleted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.JobID,
		entry.DocumentType,
		entry.Processor,
		entry.ConsentTimestamp,
		entry.ConsentGivenBy,
		pq.Array(entry.FieldsExtracted),
		entry.ProcessingDurationMs,
		entry.ImageDeletedAt,
		entry.CreatedAt,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByJob returns the audit entries of a job, oldest first.
func (r *AuditRepository) ListByJob(ctx context.Context, jobID string) ([]domain.ProcessingAuditEntry, error) {
	query := `
		SELECT id, job_id, document_type, processor, consent_timestamp, consent_given_by,
		       fields_extracted, processing_duration_ms, image_deleted_at, created_at
		FROM document_processing_audit
		WHERE job_id = $1
		ORDER BY created_at
	`

	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, jobID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]domain.ProcessingAuditEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.entry()
	}
	return entries, nil
}
