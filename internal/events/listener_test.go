package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citegraph/internal/domain"
)

// scriptedReader returns queued messages and errors in order, then blocks
// until the context is cancelled.
type scriptedReader struct {
	mu     sync.Mutex
	steps  []readStep
	closed bool
}

type readStep struct {
	msg kafka.Message
	err error
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.steps) > 0 {
		step := r.steps[0]
		r.steps = r.steps[1:]
		r.mu.Unlock()
		return step.msg, step.err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func encoded(t *testing.T, event *domain.Event) kafka.Message {
	t.Helper()
	value, err := Encode(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestListener_Run(t *testing.T) {
	good := testEvent(t)
	failing := &domain.Event{EventID: "evt-fail", EventType: domain.EventTypeRunFailed}

	reader := &scriptedReader{steps: []readStep{
		{err: errors.New("transient broker error")},
		{msg: kafka.Message{Value: []byte("garbage")}},
		{msg: encoded(t, failing)},
		{msg: encoded(t, good)},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	var handled []string
	handler := func(_ context.Context, e *domain.Event) error {
		handled = append(handled, e.EventID)
		if e.EventID == "evt-fail" {
			return errors.New("handler failed")
		}
		if e.EventID == good.EventID {
			cancel()
		}
		return nil
	}

	listener := NewListenerWithReader(reader, handler, zerolog.Nop())
	err := listener.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"evt-fail", good.EventID}, handled)
}

func TestListener_StopsWhenReaderCloses(t *testing.T) {
	reader := &scriptedReader{steps: []readStep{{err: io.EOF}}}
	listener := NewListenerWithReader(reader, func(context.Context, *domain.Event) error { return nil }, zerolog.Nop())

	assert.NoError(t, listener.Run(context.Background()))
	require.NoError(t, listener.Close())
	assert.True(t, reader.closed)
}
