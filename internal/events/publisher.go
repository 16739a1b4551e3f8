package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/observability"
)

// Message header names.
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)

// Config holds the Kafka settings of the publisher and listener.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic for run events.
	Topic string
	// GroupID is the consumer group of a Listener.
	GroupID string
	// BatchTimeout bounds how long the writer waits to fill a batch.
	BatchTimeout time.Duration
	// WriteTimeout bounds a single write.
	WriteTimeout time.Duration
}

// MessageWriter is the subset of *kafka.Writer used by the Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes run events to Kafka.
type Publisher struct {
	writer  MessageWriter
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a publisher backed by a kafka.Writer. metrics may be nil.
func NewPublisher(cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Logger:       observability.NewPrintfLogger(logger, "kafka_writer", zerolog.DebugLevel),
		ErrorLogger:  observability.NewPrintfLogger(logger, "kafka_writer", zerolog.ErrorLevel),
	}
	return NewPublisherWithWriter(writer, logger, metrics)
}

// NewPublisherWithWriter creates a publisher on top of an existing writer.
func NewPublisherWithWriter(writer MessageWriter, logger zerolog.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		writer:  writer,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
		metrics: metrics,
	}
}

// Publish writes event synchronously.
func (p *Publisher) Publish(ctx context.Context, event *domain.Event) error {
	value, err := Encode(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.EventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
			{Key: HeaderEventID, Value: []byte(event.EventID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", event.EventType, err)
	}

	if p.metrics != nil {
		p.metrics.RecordEventPublished(event.EventType)
	}
	p.logger.Debug().
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Str("run_id", event.AggregateID).
		Msg("event published")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
