package events

import (
	"context"
	"fmt"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/pkg/messaging"
)

// Publisher publishes a typed event. *messaging.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// ExtractionEventPublisher publishes document extraction events. Payloads
// carry field keys and codes only, never decoded personal data.
type ExtractionEventPublisher struct {
	publisher Publisher
}

// NewExtractionEventPublisher creates a new extraction event publisher
func NewExtractionEventPublisher(p Publisher) *ExtractionEventPublisher {
	return &ExtractionEventPublisher{publisher: p}
}

// ExtractionCompleted announces a finished extraction job.
func (p *ExtractionEventPublisher) ExtractionCompleted(ctx context.Context, jobID, userID string, result *domain.ExtractionResult) error {
	return p.publish(ctx, messaging.EventExtractionCompleted, messaging.ExtractionCompletedEvent{
		JobID:        jobID,
		DocumentType: string(result.DocumentType),
		Processor:    result.Processor,
		FieldKeys:    result.FieldKeys(),
		WarningCount: len(result.Warnings),
		UserID:       userID,
	})
}

// ExtractionFailed announces a job where every processor failed.
func (p *ExtractionEventPublisher) ExtractionFailed(ctx context.Context, jobID, userID string, docType domain.DocumentType, reason string) error {
	return p.publish(ctx, messaging.EventExtractionFailed, messaging.ExtractionFailedEvent{
		JobID:        jobID,
		DocumentType: string(docType),
		Reason:       reason,
		UserID:       userID,
	})
}

// MRZDecoded announces a decoded zone. jobID or sourceID may be empty.
func (p *ExtractionEventPublisher) MRZDecoded(ctx context.Context, jobID, sourceID string, result *domain.ExtractionResult) error {
	if result.Record == nil {
		return nil
	}
	rec := result.Record

	event := messaging.MRZDecodedEvent{
		JobID:           jobID,
		SourceID:        sourceID,
		Format:          string(rec.Format),
		DocumentType:    rec.DocumentType,
		IssuingCountry:  rec.IssuingCountry.Code,
		DateErrorFields: result.DateErrorFields,
	}
	if rec.CheckDigits != nil {
		valid := rec.CheckDigits.Valid()
		event.CheckDigitsValid = &valid
	}
	return p.publish(ctx, messaging.EventMRZDecoded, event)
}

func (p *ExtractionEventPublisher) publish(ctx context.Context, eventType string, data any) error {
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
