package domain

import (
	"time"

	"github.com/docscan/docscan-backend/internal/mrz"
)

// DocumentType represents the type of document being processed
type DocumentType string

const (
	DocumentTypePassport DocumentType = "passport" // TD3, 2x44
	DocumentTypeIDCard   DocumentType = "id_card"  // TD1, 3x30
	DocumentTypeMRZText  DocumentType = "mrz_text" // plain text containing a zone of either layout
)

// DocumentTypes lists every accepted document type.
var DocumentTypes = []DocumentType{DocumentTypePassport, DocumentTypeIDCard, DocumentTypeMRZText}

// Valid reports whether d is a known document type.
func (d DocumentType) Valid() bool {
	for _, t := range DocumentTypes {
		if d == t {
			return true
		}
	}
	return false
}

// ExtractionStatus represents the processing state of an extraction job
type ExtractionStatus string

const (
	StatusProcessing ExtractionStatus = "processing"
	StatusCompleted  ExtractionStatus = "completed"
	StatusFailed     ExtractionStatus = "failed"
)

// Field keys produced from a decoded record.
const (
	FieldDocumentType   = "document_type"
	FieldIssuingCountry = "issuing_country"
	FieldDocumentNumber = "document_number"
	FieldNationality    = "nationality"
	FieldDateOfBirth    = "date_of_birth"
	FieldDateOfExpiry   = "date_of_expiry"
	FieldSex            = "sex"
	FieldSurname        = "surname"
	FieldGivenNames     = "given_names"
	FieldPersonalNumber = "personal_number"
)

// ExtractionField represents a single extracted field with confidence
type ExtractionField struct {
	Key        string       `json:"key"`
	Value      string       `json:"value"`
	Confidence float64      `json:"confidence"`
	Source     DocumentType `json:"source"`
}

// ExtractionResult represents the result from processing a single document
type ExtractionResult struct {
	DocumentType     DocumentType      `json:"document_type"`
	Processor        string            `json:"processor"`
	Fields           []ExtractionField `json:"fields"`
	Record           *mrz.Record       `json:"record,omitempty"`
	Warnings         []string          `json:"warnings,omitempty"`
	DateErrorFields  []string          `json:"date_error_fields,omitempty"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
}

// FieldKeys returns the keys of all extracted fields, in order.
func (r *ExtractionResult) FieldKeys() []string {
	keys := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		keys[i] = f.Key
	}
	return keys
}

// ExtractionJob represents a complete extraction job
type ExtractionJob struct {
	JobID     string             `json:"job_id"`
	Status    ExtractionStatus   `json:"status"`
	Results   []ExtractionResult `json:"results,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// ProcessingAuditEntry records that a document was processed. Only field
// keys are stored, never extracted values.
type ProcessingAuditEntry struct {
	ID                   string    `db:"id"`
	JobID                string    `db:"job_id"`
	DocumentType         string    `db:"document_type"`
	Processor            string    `db:"processor"`
	ConsentTimestamp     time.Time `db:"consent_timestamp"`
	ConsentGivenBy       string    `db:"consent_given_by"`
	FieldsExtracted      []string  `db:"fields_extracted"`
	ProcessingDurationMs int64     `db:"processing_duration_ms"`
	ImageDeletedAt       time.Time `db:"image_deleted_at"`
	CreatedAt            time.Time `db:"created_at"`
}
