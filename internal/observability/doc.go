// Package observability provides logging and metrics support for the
// citation graph pipeline.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for runs, chunk fetches, the source API and exports
//   - Context helpers for propagating the run id
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stderr",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger = observability.WithRunContext(logger, runID)
//	logger.Info().Int("papers", n).Msg("fetch complete")
//
// # Metrics
//
//	metrics := observability.NewMetrics("citegraph")
//	metrics.RecordChunkSucceeded("papers", 498, 2, 3.1)
//
// # Standard Fields
//
//   - run_id: pipeline run identifier
//   - fetcher: batch fetcher name (papers, authors)
//   - chunk, chunk_size: chunk index and id count
//   - paper_id: paper identifier
//   - keyword, publication_type: search parameters while gathering
//   - component: emitting subsystem
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
