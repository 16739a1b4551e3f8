package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for run lifecycle events.
const (
	EventTypeRunStarted      = "run.started"
	EventTypeExportCompleted = "export.completed"
	EventTypeRunFailed       = "run.failed"
)

// AggregateTypeRun is the aggregate type of every pipeline run event.
const AggregateTypeRun = "run"

// Event is a pipeline lifecycle event published to the message broker.
type Event struct {
	EventID       string
	EventVersion  int
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	Metadata      map[string]string
	CreatedAt     time.Time
}

// NewEvent creates a new run event with the given parameters.
// The payload is JSON-serialized automatically.
func NewEvent(eventType, runID string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventVersion:  1,
		AggregateID:   runID,
		AggregateType: AggregateTypeRun,
		EventType:     eventType,
		Payload:       payloadBytes,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// WithMetadata sets the metadata on the event.
func (e *Event) WithMetadata(metadata map[string]string) *Event {
	e.Metadata = metadata
	return e
}

// RunStartedPayload is the payload for run.started events.
type RunStartedPayload struct {
	RunID     string `json:"run_id"`
	InputPath string `json:"input_path"`
	PaperIDs  int    `json:"paper_ids"`
	OutputDir string `json:"output_dir"`
}

// ExportCompletedPayload is the payload for export.completed events.
type ExportCompletedPayload struct {
	RunID              string        `json:"run_id"`
	PapersRequested    int           `json:"papers_requested"`
	PapersFetched      int           `json:"papers_fetched"`
	PapersNotFound     int           `json:"papers_not_found"`
	PaperChunksFailed  int           `json:"paper_chunks_failed"`
	AuthorsRequested   int           `json:"authors_requested"`
	AuthorsFetched     int           `json:"authors_fetched"`
	AuthorsNotFound    int           `json:"authors_not_found"`
	AuthorChunksFailed int           `json:"author_chunks_failed"`
	Venues             int           `json:"venues"`
	KeywordRows        int           `json:"keyword_rows"`
	KeywordsPropagated int           `json:"keywords_propagated"`
	Duration           time.Duration `json:"duration_ns"`
}

// RunFailedPayload is the payload for run.failed events.
type RunFailedPayload struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
	Phase string `json:"phase"`
}
