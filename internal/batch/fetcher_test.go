package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/observability"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range n {
		ids[i] = fmt.Sprintf("id-%04d", i)
	}
	return ids
}

// echo returns every id as a record, except ids prefixed "missing-".
func echo(_ context.Context, ids []string) ([]string, []string, error) {
	var records, notFound []string
	for _, id := range ids {
		if strings.HasPrefix(id, "missing-") {
			notFound = append(notFound, id)
			continue
		}
		records = append(records, id)
	}
	return records, notFound, nil
}

func TestFetchAll_ChunkCount(t *testing.T) {
	var calls atomic.Int32
	var sizes sync.Map
	fetch := func(ctx context.Context, ids []string) ([]string, []string, error) {
		n := calls.Add(1)
		sizes.Store(n, len(ids))
		return echo(ctx, ids)
	}

	f := New("papers", fetch, Options{Concurrency: 3, ChunkSize: 500}, zerolog.Nop(), nil)
	ids := makeIDs(1234)
	result := f.FetchAll(context.Background(), ids)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, result.Chunks)
	assert.Equal(t, 1234, result.Requested)
	assert.Equal(t, ids, result.Records)
	assert.Empty(t, result.Failures)

	var total int
	sizes.Range(func(_, v any) bool {
		total += v.(int)
		return true
	})
	assert.Equal(t, 1234, total)
}

func TestFetchAll_BoundedConcurrency(t *testing.T) {
	const concurrency = 4
	var inFlight, peak, calls atomic.Int32

	fetch := func(ctx context.Context, ids []string) ([]string, []string, error) {
		calls.Add(1)
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return echo(ctx, ids)
	}

	f := New("papers", fetch, Options{Concurrency: concurrency, ChunkSize: 1}, zerolog.Nop(), nil)
	result := f.FetchAll(context.Background(), makeIDs(40))

	assert.Equal(t, int32(40), calls.Load())
	assert.LessOrEqual(t, peak.Load(), int32(concurrency))
	assert.Greater(t, peak.Load(), int32(0))
	assert.Len(t, result.Records, 40)
}

func TestFetchAll_FaultIsolation(t *testing.T) {
	ids := []string{"a1", "a2", "b1", "missing-b2", "c1", "missing-c2"}
	fetch := func(ctx context.Context, chunk []string) ([]string, []string, error) {
		if chunk[0] == "b1" {
			return nil, nil, errors.New("upstream exploded")
		}
		return echo(ctx, chunk)
	}

	f := New("papers", fetch, Options{Concurrency: 3, ChunkSize: 2, WantNotFound: true}, zerolog.Nop(), nil)
	result := f.FetchAll(context.Background(), ids)

	assert.Equal(t, []string{"a1", "a2", "c1"}, result.Records)
	assert.Equal(t, []string{"missing-c2"}, result.NotFound)
	require.Len(t, result.Failures, 1)

	failure := result.Failures[0]
	assert.Equal(t, 1, failure.Index)
	assert.Equal(t, []string{"b1", "missing-b2"}, failure.IDs)
	assert.Equal(t, 1, failure.Attempts)
	assert.True(t, errors.Is(failure.Err, domain.ErrChunkFailed))
	assert.Contains(t, failure.Err.Error(), "upstream exploded")

	var chunkErr *domain.ChunkError
	require.True(t, errors.As(failure.Err, &chunkErr))
	assert.Equal(t, "papers", chunkErr.Fetcher)
	assert.Equal(t, 2, chunkErr.Size)

	assert.Equal(t, []string{"b1", "missing-b2"}, result.FailedIDs())
}

func TestFetchAll_LogsDroppedChunk(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.ErrorLevel)

	ids := makeIDs(95)
	fetch := func(ctx context.Context, chunk []string) ([]string, []string, error) {
		if chunk[0] == "id-0010" {
			return nil, nil, errors.New("upstream exploded")
		}
		return echo(ctx, chunk)
	}

	f := New("papers", fetch, Options{Concurrency: 3, ChunkSize: 10}, logger, nil)
	result := f.FetchAll(context.Background(), ids)

	assert.Len(t, result.Records, 85)
	assert.Empty(t, result.NotFound)
	require.Len(t, result.Failures, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "papers", entry["fetcher"])
	assert.Equal(t, float64(1), entry["chunk"])
	assert.Equal(t, float64(10), entry["chunk_size"])
	assert.Equal(t, float64(1), entry["attempts"])
	assert.Equal(t, "chunk fetch failed, dropping chunk", entry["message"])
}

func TestFetchAll_DeterministicOrder(t *testing.T) {
	ids := makeIDs(10)
	fetch := func(ctx context.Context, chunk []string) ([]string, []string, error) {
		// Later chunks finish first.
		var idx int
		_, _ = fmt.Sscanf(chunk[0], "id-%d", &idx)
		time.Sleep(time.Duration(10-idx) * time.Millisecond)
		return echo(ctx, chunk)
	}

	f := New("papers", fetch, Options{Concurrency: 10, ChunkSize: 1}, zerolog.Nop(), nil)
	result := f.FetchAll(context.Background(), ids)

	assert.Equal(t, ids, result.Records)
}

func TestFetchAll_NotFoundOnlyWhenWanted(t *testing.T) {
	ids := []string{"a", "missing-b"}

	f := New("authors", echo, Options{ChunkSize: 10}, zerolog.Nop(), nil)
	result := f.FetchAll(context.Background(), ids)
	assert.Equal(t, []string{"a"}, result.Records)
	assert.Empty(t, result.NotFound)

	f = New("authors", echo, Options{ChunkSize: 10, WantNotFound: true}, zerolog.Nop(), nil)
	result = f.FetchAll(context.Background(), ids)
	assert.Equal(t, []string{"missing-b"}, result.NotFound)
}

func TestFetchAll_EmptyInput(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, ids []string) ([]string, []string, error) {
		calls.Add(1)
		return echo(ctx, ids)
	}

	f := New("papers", fetch, Options{}, zerolog.Nop(), nil)
	result := f.FetchAll(context.Background(), nil)

	assert.Equal(t, int32(0), calls.Load())
	assert.Empty(t, result.Records)
	assert.Empty(t, result.NotFound)
	assert.Empty(t, result.Failures)
	assert.Equal(t, 0, result.Chunks)
}

func TestFetchAll_DeduplicatesInput(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, ids []string) ([]string, []string, error) {
		calls.Add(1)
		return echo(ctx, ids)
	}

	f := New("papers", fetch, Options{ChunkSize: 2}, zerolog.Nop(), nil)
	result := f.FetchAll(context.Background(), []string{"a", "b", "a", "", "c", "b"})

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, []string{"a", "b", "c"}, result.Records)
}

func TestFetchAll_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	fetch := func(_ context.Context, _ []string) ([]string, []string, error) {
		calls.Add(1)
		return nil, nil, errors.New("boom")
	}

	f := New("papers", fetch, Options{}, zerolog.Nop(), nil)
	result := f.FetchAll(context.Background(), []string{"a"})

	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 1, result.Failures[0].Attempts)
}

func TestFetchAll_RetrySucceeds(t *testing.T) {
	m := observability.NewMetrics("test_batch_retry_succeeds")
	var calls atomic.Int32
	fetch := func(ctx context.Context, ids []string) ([]string, []string, error) {
		if calls.Add(1) == 1 {
			return nil, nil, errors.New("transient")
		}
		return echo(ctx, ids)
	}

	f := New("papers", fetch, Options{Retries: 2, RetryDelay: time.Millisecond}, zerolog.Nop(), m)
	result := f.FetchAll(context.Background(), []string{"a", "b"})

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"a", "b"}, result.Records)
	assert.Empty(t, result.Failures)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChunkRetries.WithLabelValues("papers")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChunksTotal.WithLabelValues("papers", observability.OutcomeSuccess)))
}

func TestFetchAll_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	fetch := func(_ context.Context, _ []string) ([]string, []string, error) {
		calls.Add(1)
		return nil, nil, errors.New("still down")
	}

	f := New("papers", fetch, Options{Retries: 2, RetryDelay: time.Millisecond}, zerolog.Nop(), nil)
	result := f.FetchAll(context.Background(), []string{"a"})

	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 3, result.Failures[0].Attempts)
}

func TestFetchAll_ContextCancelledDuringRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(_ context.Context, _ []string) ([]string, []string, error) {
		cancel()
		return nil, nil, errors.New("boom")
	}

	f := New("papers", fetch, Options{Retries: 5, RetryDelay: time.Hour}, zerolog.Nop(), nil)
	result := f.FetchAll(ctx, []string{"a"})

	require.Len(t, result.Failures, 1)
	assert.Equal(t, 1, result.Failures[0].Attempts)
}

func TestFetchAll_Metrics(t *testing.T) {
	m := observability.NewMetrics("test_batch_metrics")
	fetch := func(ctx context.Context, ids []string) ([]string, []string, error) {
		if ids[0] == "c" {
			return nil, nil, errors.New("boom")
		}
		return echo(ctx, ids)
	}

	f := New("authors", fetch, Options{ChunkSize: 2, WantNotFound: true}, zerolog.Nop(), m)
	f.FetchAll(context.Background(), []string{"a", "missing-b", "c"})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChunksTotal.WithLabelValues("authors", observability.OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChunksTotal.WithLabelValues("authors", observability.OutcomeFailure)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ItemsFetched.WithLabelValues("authors")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ItemsNotFound.WithLabelValues("authors")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ChunksInFlight.WithLabelValues("authors")))
}

func TestNew_Defaults(t *testing.T) {
	f := New("papers", echo, Options{Retries: -1}, zerolog.Nop(), nil)
	assert.Equal(t, "papers", f.Name())
	assert.Equal(t, DefaultConcurrency, f.Options().Concurrency)
	assert.Equal(t, DefaultChunkSize, f.Options().ChunkSize)
	assert.Equal(t, 0, f.Options().Retries)
}
