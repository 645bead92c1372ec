package events

import (
	"context"
	"errors"

	"github.com/docscan/docscan-backend/internal/docprocessing/domain"
	"github.com/docscan/docscan-backend/internal/docprocessing/processor"
	"github.com/docscan/docscan-backend/pkg/logger"
	"github.com/docscan/docscan-backend/pkg/messaging"
)

// MRZLinesQueue receives zone lines found by the upstream OCR stage.
const MRZLinesQueue = "docscan-service.mrz-lines"

// LinesDecoder decodes raw zone lines
type LinesDecoder interface {
	DecodeLines(ctx context.Context, lines []string) (*domain.ExtractionResult, error)
}

// MRZLinesHandler decodes located zones (testable without RabbitMQ)
type MRZLinesHandler struct {
	decoder LinesDecoder
	events  *ExtractionEventPublisher
	logger  *logger.Logger
}

// NewMRZLinesHandler creates a new handler for ocr.mrz.located events
func NewMRZLinesHandler(decoder LinesDecoder, events *ExtractionEventPublisher, log *logger.Logger) *MRZLinesHandler {
	return &MRZLinesHandler{
		decoder: decoder,
		events:  events,
		logger:  log.WithComponent("mrz-lines"),
	}
}

// HandleMRZLocated decodes the lines of an ocr.mrz.located event and
// announces the result. Payloads that can never decode are dropped; publish
// failures are returned so the message is redelivered.
func (h *MRZLinesHandler) HandleMRZLocated(ctx context.Context, event *messaging.Event) error {
	var payload messaging.MRZLocatedEvent
	if err := event.UnmarshalData(&payload); err != nil {
		h.logger.Warn().Err(err).Str("event_id", event.ID).Msg("malformed mrz located event, dropping")
		return nil
	}

	result, err := h.decoder.DecodeLines(ctx, payload.Lines)
	if errors.Is(err, processor.ErrUnsupportedLayout) {
		masked := make([]string, len(payload.Lines))
		for i, line := range payload.Lines {
			masked[i] = logger.MaskLine(line)
		}
		h.logger.Warn().
			Err(err).
			Str("source_id", payload.SourceID).
			Strs("lines", masked).
			Msg("located lines are not an MRZ, dropping")
		return nil
	}
	if err != nil {
		return err
	}

	h.logger.Debug().
		Str("source_id", payload.SourceID).
		Str("format", string(result.Record.Format)).
		Int("warnings", len(result.Warnings)).
		Msg("decoded located zone")

	return h.events.MRZDecoded(ctx, "", payload.SourceID, result)
}

// MRZLinesConsumer consumes zone lines from the OCR exchange
type MRZLinesConsumer struct {
	consumer *messaging.Consumer
	handler  *MRZLinesHandler
}

// NewMRZLinesConsumer declares the queue, binds it to ocr.mrz.* events and
// registers the handler.
func NewMRZLinesConsumer(rmq *messaging.RabbitMQ, handler *MRZLinesHandler, log *logger.Logger) (*MRZLinesConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, MRZLinesQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeOCREvents, "ocr.mrz.#"); err != nil {
		return nil, err
	}

	consumer.RegisterHandler(messaging.EventMRZLocated, handler.HandleMRZLocated)

	return &MRZLinesConsumer{consumer: consumer, handler: handler}, nil
}

// Start starts consuming messages
func (c *MRZLinesConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}
