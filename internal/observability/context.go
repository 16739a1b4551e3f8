package observability

import (
	"context"

	"github.com/rs/zerolog"
)

// Context keys for observability data.
type contextKey string

const (
	runIDKey   contextKey = "run_id"
	fetcherKey contextKey = "fetcher"
)

// WithRunID adds a pipeline run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext retrieves the run ID from context.
// Returns empty string if not present.
func RunIDFromContext(ctx context.Context) string {
	if v := ctx.Value(runIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithFetcher adds the name of the batch fetcher issuing requests to the context.
func WithFetcher(ctx context.Context, fetcher string) context.Context {
	return context.WithValue(ctx, fetcherKey, fetcher)
}

// FetcherFromContext retrieves the fetcher name from context.
// Returns empty string if not present.
func FetcherFromContext(ctx context.Context) string {
	if v := ctx.Value(fetcherKey); v != nil {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}

// LoggerFromContext enriches logger with the run and fetcher found in ctx.
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if runID := RunIDFromContext(ctx); runID != "" {
		logger = WithRunContext(logger, runID)
	}
	if fetcher := FetcherFromContext(ctx); fetcher != "" {
		logger = WithFetcherContext(logger, fetcher)
	}
	return logger
}
