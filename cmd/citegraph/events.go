package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/events"
)

const defaultWatchGroup = "citegraph-watch"

func newEventsCmd(root *rootOptions) *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print run events from the configured Kafka topic",
		Long: `Events consumes the run event topic and prints one JSON line per event
until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(root, "events")
			if err != nil {
				return err
			}
			if len(a.cfg.Kafka.Brokers) == 0 || a.cfg.Kafka.Topic == "" {
				return fmt.Errorf("kafka brokers and topic are required")
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			listener := events.NewListener(events.Config{
				Brokers: a.cfg.Kafka.Brokers,
				Topic:   a.cfg.Kafka.Topic,
				GroupID: group,
			}, printEvent(cmd.OutOrStdout()), a.logger)
			defer func() {
				if err := listener.Close(); err != nil {
					a.logger.Warn().Err(err).Msg("failed to close event listener")
				}
			}()

			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&group, "group", defaultWatchGroup, "Kafka consumer group")
	return cmd
}

type printedEvent struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	RunID     string            `json:"run_id"`
	CreatedAt string            `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
}

// printEvent writes each event as one JSON line.
func printEvent(w io.Writer) events.Handler {
	enc := json.NewEncoder(w)
	return func(_ context.Context, e *domain.Event) error {
		out := printedEvent{
			EventID:   e.EventID,
			EventType: e.EventType,
			RunID:     e.AggregateID,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
			Metadata:  e.Metadata,
		}
		if json.Valid(e.Payload) {
			out.Payload = e.Payload
		}
		return enc.Encode(out)
	}
}
