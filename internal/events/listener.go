package events

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/observability"
)

// MessageReader is the subset of *kafka.Reader used by the Listener.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Handler processes one decoded event. A handler error is logged and the
// listener moves on to the next message.
type Handler func(ctx context.Context, event *domain.Event) error

// Listener consumes run events from Kafka.
type Listener struct {
	reader  MessageReader
	handler Handler
	logger  zerolog.Logger
}

// NewListener creates a listener reading cfg.Topic as consumer group cfg.GroupID.
func NewListener(cfg Config, handler Handler, logger zerolog.Logger) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     3 * time.Second,
		Logger:      observability.NewPrintfLogger(logger, "kafka_reader", zerolog.DebugLevel),
		ErrorLogger: observability.NewPrintfLogger(logger, "kafka_reader", zerolog.ErrorLevel),
	})
	return NewListenerWithReader(reader, handler, logger)
}

// NewListenerWithReader creates a listener on top of an existing reader.
func NewListenerWithReader(reader MessageReader, handler Handler, logger zerolog.Logger) *Listener {
	return &Listener{
		reader:  reader,
		handler: handler,
		logger:  logger.With().Str("component", "event_listener").Logger(),
	}
}

// Run reads messages until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting event listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("event listener stopped via context cancellation")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				l.logger.Info().Msg("event reader closed")
				return nil
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		l.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received event")

		event, err := Decode(msg.Value)
		if err != nil {
			l.logger.Error().Err(err).
				Str("raw_value", string(msg.Value)).
				Msg("failed to decode event")
			continue
		}

		if err := l.handler(ctx, event); err != nil {
			l.logger.Error().Err(err).
				Str("event_id", event.EventID).
				Str("event_type", event.EventType).
				Msg("failed to handle event")
		}
	}
}

// Close closes the Kafka reader.
func (l *Listener) Close() error {
	l.logger.Info().Msg("closing event listener")
	return l.reader.Close()
}
