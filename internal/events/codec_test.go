package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citegraph/internal/domain"
)

func TestEncodeDecode(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.Event{
		EventID:       "evt-1",
		EventVersion:  1,
		AggregateID:   "run-1",
		AggregateType: domain.AggregateTypeRun,
		EventType:     domain.EventTypeExportCompleted,
		Payload:       []byte(`{"run_id":"run-1","papers_fetched":3}`),
		Metadata:      map[string]string{"source": "citegraph"},
		CreatedAt:     created,
	}

	data, err := Encode(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"event_id": "evt-1",
		"event_version": 1,
		"aggregate_id": "run-1",
		"aggregate_type": "run",
		"event_type": "export.completed",
		"payload": {"run_id": "run-1", "papers_fetched": 3},
		"metadata": {"source": "citegraph"},
		"created_at": "2024-05-01T12:00:00Z"
	}`, string(data))

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, event.EventType, decoded.EventType)
	assert.Equal(t, event.Metadata, decoded.Metadata)
	assert.True(t, created.Equal(decoded.CreatedAt))
	assert.JSONEq(t, string(event.Payload), string(decoded.Payload))
}

func TestEncode_EmptyPayload(t *testing.T) {
	data, err := Encode(&domain.Event{EventType: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"payload":null`)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"event_id":"e"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
