// Package batch retrieves large id sets from a remote source in fixed-size
// chunks using a bounded pool of workers.
//
// A chunk that fails is logged, counted and reported in Result.Failures; its
// ids are simply absent from the records. FetchAll never returns an error.
package batch

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/observability"
)

const (
	// DefaultConcurrency is the number of chunk fetches allowed in flight.
	DefaultConcurrency = 10
	// DefaultChunkSize is the number of ids sent per request.
	DefaultChunkSize = 500
)

// FetchFunc retrieves one chunk of ids. It returns the records found and,
// optionally, the ids the source reported as unknown.
type FetchFunc[T any] func(ctx context.Context, ids []string) (records []T, notFound []string, err error)

// Options configures a Fetcher.
type Options struct {
	// Concurrency bounds the number of chunk fetches in flight.
	Concurrency int
	// ChunkSize is the maximum number of ids per chunk.
	ChunkSize int
	// WantNotFound keeps the ids the source reported as unknown.
	WantNotFound bool
	// Retries is the number of extra attempts for a failing chunk. Zero
	// drops a chunk after its first failure.
	Retries int
	// RetryDelay is the pause between attempts of the same chunk.
	RetryDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	return o
}

// ChunkOutcome is the result of fetching a single chunk.
type ChunkOutcome[T any] struct {
	Index    int
	IDs      []string
	Records  []T
	NotFound []string
	Err      error
	Attempts int
	Duration time.Duration
}

// ChunkFailure describes a chunk that was dropped.
type ChunkFailure struct {
	Index    int
	IDs      []string
	Err      error
	Attempts int
}

// Result aggregates all chunk outcomes in chunk order.
type Result[T any] struct {
	Records   []T
	NotFound  []string
	Failures  []ChunkFailure
	Requested int
	Chunks    int
}

// FailedIDs returns the ids of every dropped chunk in chunk order.
func (r *Result[T]) FailedIDs() []string {
	var ids []string
	for _, f := range r.Failures {
		ids = append(ids, f.IDs...)
	}
	return ids
}

// Fetcher runs a FetchFunc over chunks of an id set.
type Fetcher[T any] struct {
	name    string
	fetch   FetchFunc[T]
	opts    Options
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// New creates a Fetcher. name labels log lines and metrics; metrics may be nil.
func New[T any](name string, fetch FetchFunc[T], opts Options, logger zerolog.Logger, metrics *observability.Metrics) *Fetcher[T] {
	return &Fetcher[T]{
		name:    name,
		fetch:   fetch,
		opts:    opts.withDefaults(),
		logger:  observability.WithFetcherContext(logger, name),
		metrics: metrics,
	}
}

// Name returns the fetcher label.
func (f *Fetcher[T]) Name() string {
	return f.name
}

// Options returns the effective options.
func (f *Fetcher[T]) Options() Options {
	return f.opts
}

// FetchAll de-duplicates ids, splits them into chunks and fetches every chunk
// with at most Concurrency requests in flight. It returns once all chunks
// have finished.
func (f *Fetcher[T]) FetchAll(ctx context.Context, ids []string) *Result[T] {
	ids = Dedupe(ids)
	chunks := Chunk(ids, f.opts.ChunkSize)
	result := &Result[T]{Requested: len(ids), Chunks: len(chunks)}
	if len(chunks) == 0 {
		return result
	}

	ctx = observability.WithFetcher(ctx, f.name)
	start := time.Now()

	jobs := make(chan int, len(chunks))
	for i := range chunks {
		jobs <- i
	}
	close(jobs)

	// Each worker writes only the slots of the chunks it took.
	outcomes := make([]ChunkOutcome[T], len(chunks))
	var g errgroup.Group
	for range min(f.opts.Concurrency, len(chunks)) {
		g.Go(func() error {
			for idx := range jobs {
				outcomes[idx] = f.fetchChunk(ctx, idx, chunks[idx])
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			logger := observability.WithChunkContext(f.logger, outcome.Index, len(outcome.IDs))
			logger.Error().
				Err(outcome.Err).
				Int("attempts", outcome.Attempts).
				Msg("chunk fetch failed, dropping chunk")
			result.Failures = append(result.Failures, ChunkFailure{
				Index:    outcome.Index,
				IDs:      outcome.IDs,
				Err:      outcome.Err,
				Attempts: outcome.Attempts,
			})
			continue
		}
		result.Records = append(result.Records, outcome.Records...)
		if f.opts.WantNotFound {
			result.NotFound = append(result.NotFound, outcome.NotFound...)
		}
	}

	f.logger.Info().
		Int("ids", result.Requested).
		Int("chunks", result.Chunks).
		Int("records", len(result.Records)).
		Int("not_found", len(result.NotFound)).
		Int("failed_chunks", len(result.Failures)).
		Dur("duration", time.Since(start)).
		Msg("batch fetch completed")

	return result
}

func (f *Fetcher[T]) fetchChunk(ctx context.Context, index int, ids []string) ChunkOutcome[T] {
	outcome := ChunkOutcome[T]{Index: index, IDs: ids}
	logger := observability.WithChunkContext(f.logger, index, len(ids))

	if f.metrics != nil {
		f.metrics.ChunkStarted(f.name)
	}
	start := time.Now()

	var err error
	for {
		outcome.Attempts++
		var records []T
		var notFound []string
		records, notFound, err = f.fetch(ctx, ids)
		if err == nil {
			outcome.Records = records
			outcome.NotFound = notFound
			break
		}
		if outcome.Attempts > f.opts.Retries || ctx.Err() != nil {
			break
		}

		logger.Warn().Err(err).Int("attempt", outcome.Attempts).Msg("chunk fetch failed, retrying")
		if f.metrics != nil {
			f.metrics.RecordChunkRetry(f.name)
		}
		if waitErr := sleep(ctx, f.opts.RetryDelay); waitErr != nil {
			err = waitErr
			break
		}
	}
	if err != nil {
		outcome.Err = &domain.ChunkError{
			Fetcher:  f.name,
			Index:    index,
			Size:     len(ids),
			Attempts: outcome.Attempts,
			Cause:    err,
		}
	}

	outcome.Duration = time.Since(start)
	if f.metrics != nil {
		if outcome.Err != nil {
			f.metrics.RecordChunkFailed(f.name, outcome.Duration.Seconds())
		} else {
			f.metrics.RecordChunkSucceeded(f.name, len(outcome.Records), len(outcome.NotFound), outcome.Duration.Seconds())
		}
	}
	logger.Debug().
		Int("records", len(outcome.Records)).
		Int("attempts", outcome.Attempts).
		Dur("duration", outcome.Duration).
		Msg("chunk fetched")

	return outcome
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
