package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/docscan/docscan-backend/pkg/logger"
)

const (
	publishAttempts   = 3
	publishRetryDelay = 200 * time.Millisecond
)

type publishFunc func(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error

// Publisher publishes events to one exchange, routed by event type. A closed
// channel triggers a reconnect before the next attempt.
type Publisher struct {
	exchange  string
	source    string
	publish   publishFunc
	reconnect func(ctx context.Context) error
	logger    *logger.Logger
}

// NewPublisher declares exchange and returns a publisher for it.
func NewPublisher(rmq *RabbitMQ, exchange, source string, log *logger.Logger) (*Publisher, error) {
	if err := rmq.DeclareExchange(exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	publish := func(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
		return rmq.Channel().PublishWithContext(ctx, exchange, routingKey, false, false, msg)
	}
	return newPublisher(exchange, source, publish, rmq.Reconnect, log), nil
}

func newPublisher(exchange, source string, publish publishFunc, reconnect func(context.Context) error, log *logger.Logger) *Publisher {
	return &Publisher{
		exchange:  exchange,
		source:    source,
		publish:   publish,
		reconnect: reconnect,
		logger:    log.WithComponent("publisher"),
	}
}

// Publish wraps data in an Event and publishes it with eventType as the
// routing key. Without a correlation ID in ctx the event starts a new chain
// keyed by its own ID.
func (p *Publisher) Publish(ctx context.Context, eventType string, data any) error {
	event, err := NewEvent(eventType, p.source, CorrelationID(ctx), data)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	if event.CorrelationID == "" {
		event.CorrelationID = event.ID
	}

	msg, err := publishing(event)
	if err != nil {
		return err
	}

	err = retry.Do(
		func() error {
			err := p.publish(ctx, p.exchange, eventType, msg)
			if err == nil {
				return nil
			}
			if !errors.Is(err, amqp.ErrClosed) {
				return retry.Unrecoverable(err)
			}
			if rerr := p.reconnect(ctx); rerr != nil {
				return retry.Unrecoverable(fmt.Errorf("%w (reconnect: %v)", err, rerr))
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(publishAttempts),
		retry.Delay(publishRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn().Err(err).Uint("attempt", n+1).Str("event_type", eventType).Msg("publish failed, channel reopened")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.WithCorrelationID(event.CorrelationID).Debug().
		Str("event_type", eventType).
		Str("event_id", event.ID).
		Msg("event published")

	return nil
}

func publishing(event *Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.ID,
		CorrelationId: event.CorrelationID,
		Type:          event.Type,
		AppId:         event.Source,
		Timestamp:     event.Timestamp,
		Body:          body,
	}, nil
}

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationID retrieves the correlation ID from context
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}
