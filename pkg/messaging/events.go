package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Document extraction lifecycle
	EventExtractionCompleted = "document.extraction.completed"
	EventExtractionFailed    = "document.extraction.failed"
	EventMRZDecoded          = "document.mrz.decoded"

	// Emitted by the upstream OCR stage once it has found MRZ lines
	EventMRZLocated = "ocr.mrz.located"
)

// Exchange names
const (
	ExchangeDocumentEvents = "document.events"
	ExchangeOCREvents      = "ocr.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Payloads carry field names and codes only. Decoded personal data never
// leaves the service through the bus.

// ExtractionCompletedEvent is published when an extraction job succeeds
type ExtractionCompletedEvent struct {
	JobID        string   `json:"job_id"`
	DocumentType string   `json:"document_type"`
	Processor    string   `json:"processor"`
	FieldKeys    []string `json:"field_keys"`
	WarningCount int      `json:"warning_count"`
	UserID       string   `json:"user_id,omitempty"`
}

// ExtractionFailedEvent is published when every processor failed
type ExtractionFailedEvent struct {
	JobID        string `json:"job_id"`
	DocumentType string `json:"document_type"`
	Reason       string `json:"reason"`
	UserID       string `json:"user_id,omitempty"`
}

// MRZDecodedEvent is published for each decoded zone
type MRZDecodedEvent struct {
	JobID            string   `json:"job_id,omitempty"`
	SourceID         string   `json:"source_id,omitempty"`
	Format           string   `json:"format"`
	DocumentType     string   `json:"document_type"`
	IssuingCountry   string   `json:"issuing_country"`
	DateErrorFields  []string `json:"date_error_fields,omitempty"`
	CheckDigitsValid *bool    `json:"check_digits_valid,omitempty"`
}

// MRZLocatedEvent carries raw zone lines found by an external OCR stage
type MRZLocatedEvent struct {
	SourceID string   `json:"source_id"`
	Lines    []string `json:"lines"`
}
