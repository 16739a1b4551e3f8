package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/helixir/citegraph/internal/domain"
)

// envelope is the JSON wire form of a domain.Event.
type envelope struct {
	EventID       string            `json:"event_id"`
	EventVersion  int               `json:"event_version"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	EventType     string            `json:"event_type"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Encode serializes an event for the wire.
func Encode(event *domain.Event) ([]byte, error) {
	payload := json.RawMessage(event.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return json.Marshal(envelope{
		EventID:       event.EventID,
		EventVersion:  event.EventVersion,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		EventType:     event.EventType,
		Payload:       payload,
		Metadata:      event.Metadata,
		CreatedAt:     event.CreatedAt,
	})
}

// Decode parses an event produced by Encode.
func Decode(data []byte) (*domain.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if env.EventType == "" {
		return nil, domain.NewValidationError("event_type", "is required")
	}
	return &domain.Event{
		EventID:       env.EventID,
		EventVersion:  env.EventVersion,
		AggregateID:   env.AggregateID,
		AggregateType: env.AggregateType,
		EventType:     env.EventType,
		Payload:       []byte(env.Payload),
		Metadata:      env.Metadata,
		CreatedAt:     env.CreatedAt,
	}, nil
}
