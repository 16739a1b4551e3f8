package events

import (
	"fmt"

	"github.com/helixir/citegraph/internal/domain"
)

// Metadata keys added by the Emitter.
const (
	MetadataSource        = "source"
	MetadataCorrelationID = "correlation_id"
)

// defaultServiceName is the event source when none is configured.
const defaultServiceName = "citegraph"

// EmitterConfig configures the Emitter with service context.
type EmitterConfig struct {
	// ServiceName identifies the source service.
	ServiceName string
}

// EmitParams contains the parameters for emitting an event.
type EmitParams struct {
	// RunID is the pipeline run id (aggregate id).
	RunID string
	// EventType is the type of event (e.g., "run.started").
	EventType string
	// Payload is the event payload that will be JSON-serialized.
	Payload any
	// CorrelationID for request tracing (optional).
	CorrelationID string
}

// Emitter builds run events enriched with service metadata.
type Emitter struct {
	config EmitterConfig
}

// NewEmitter creates a new Emitter with the given service configuration.
func NewEmitter(config EmitterConfig) *Emitter {
	if config.ServiceName == "" {
		config.ServiceName = defaultServiceName
	}
	return &Emitter{config: config}
}

// Emit creates an event from the given parameters.
func (e *Emitter) Emit(params EmitParams) (*domain.Event, error) {
	if params.RunID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	if params.EventType == "" {
		return nil, fmt.Errorf("event_type is required")
	}

	event, err := domain.NewEvent(params.EventType, params.RunID, params.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	metadata := map[string]string{MetadataSource: e.config.ServiceName}
	if params.CorrelationID != "" {
		metadata[MetadataCorrelationID] = params.CorrelationID
	}
	return event.WithMetadata(metadata), nil
}
