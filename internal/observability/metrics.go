package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chunk outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics contains all Prometheus metrics for the citation graph pipeline.
// Metrics are organized by stage: runs, batch fetching, the bibliographic
// source, keyword propagation and export. All collectors are registered via
// promauto with the default Prometheus registry.
type Metrics struct {
	// RunsStarted counts pipeline runs initiated.
	RunsStarted prometheus.Counter

	// RunsCompleted counts pipeline runs that wrote an export.
	RunsCompleted prometheus.Counter

	// RunsFailed counts pipeline runs that ended in a fatal error.
	RunsFailed prometheus.Counter

	// RunDuration observes the end-to-end duration of runs in seconds.
	RunDuration prometheus.Histogram

	// ChunksTotal counts finished chunk fetches, labeled by fetcher and outcome.
	ChunksTotal *prometheus.CounterVec

	// ChunkRetries counts chunk retry attempts, labeled by fetcher.
	ChunkRetries *prometheus.CounterVec

	// ChunkDuration observes chunk fetch duration in seconds, labeled by fetcher.
	ChunkDuration *prometheus.HistogramVec

	// ChunksInFlight is the number of chunk fetches currently running, labeled by fetcher.
	ChunksInFlight *prometheus.GaugeVec

	// ItemsFetched counts records returned by successful chunks, labeled by fetcher.
	ItemsFetched *prometheus.CounterVec

	// ItemsNotFound counts ids the source could not resolve, labeled by fetcher.
	ItemsNotFound *prometheus.CounterVec

	// SourceRequestsTotal counts HTTP requests to the bibliographic API, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// KeywordsPropagated counts keywords added to cited papers by propagation.
	KeywordsPropagated prometheus.Counter

	// PropagationEdges counts citation edges seen by propagation, labeled by resolution.
	PropagationEdges *prometheus.CounterVec

	// RowsExported counts exported rows, labeled by table and sink.
	RowsExported *prometheus.CounterVec

	// EventsPublished counts run events published, labeled by event type.
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Runs
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Total number of pipeline runs started",
		}),
		RunsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Total number of pipeline runs completed successfully",
		}),
		RunsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_failed_total",
			Help:      "Total number of pipeline runs that failed",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),

		// Batch fetching
		ChunksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_chunks_total",
			Help:      "Total number of chunk fetches by fetcher and outcome",
		}, []string{"fetcher", "outcome"}),
		ChunkRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_chunk_retries_total",
			Help:      "Total number of chunk retry attempts by fetcher",
		}, []string{"fetcher"}),
		ChunkDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_chunk_duration_seconds",
			Help:      "Duration of chunk fetches in seconds by fetcher",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"fetcher"}),
		ChunksInFlight: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_chunks_in_flight",
			Help:      "Number of chunk fetches currently running by fetcher",
		}, []string{"fetcher"}),
		ItemsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_items_total",
			Help:      "Total number of records fetched by fetcher",
		}, []string{"fetcher"}),
		ItemsNotFound: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_items_not_found_total",
			Help:      "Total number of ids the source could not resolve by fetcher",
		}, []string{"fetcher"}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to the bibliographic source",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to the bibliographic source",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to the bibliographic source in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source", "endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from the bibliographic source",
		}, []string{"source"}),

		// Propagation
		KeywordsPropagated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keywords_propagated_total",
			Help:      "Total number of keywords inherited along citation edges",
		}),
		PropagationEdges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagation_edges_total",
			Help:      "Total number of citation edges visited by resolution",
		}, []string{"resolution"}),

		// Export
		RowsExported: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_exported_total",
			Help:      "Total number of exported rows by table and sink",
		}, []string{"table", "sink"}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of run events published by type",
		}, []string{"event_type"}),
	}
}

// RecordRunStarted records that a run has started.
func (m *Metrics) RecordRunStarted() {
	m.RunsStarted.Inc()
}

// RecordRunCompleted records that a run has completed.
func (m *Metrics) RecordRunCompleted(durationSeconds float64) {
	m.RunsCompleted.Inc()
	m.RunDuration.Observe(durationSeconds)
}

// RecordRunFailed records that a run has failed.
func (m *Metrics) RecordRunFailed(durationSeconds float64) {
	m.RunsFailed.Inc()
	m.RunDuration.Observe(durationSeconds)
}

// ChunkStarted marks a chunk fetch as in flight.
func (m *Metrics) ChunkStarted(fetcher string) {
	m.ChunksInFlight.WithLabelValues(fetcher).Inc()
}

// RecordChunkSucceeded records a successful chunk and the records it produced.
func (m *Metrics) RecordChunkSucceeded(fetcher string, fetched, notFound int, durationSeconds float64) {
	m.ChunksInFlight.WithLabelValues(fetcher).Dec()
	m.ChunksTotal.WithLabelValues(fetcher, OutcomeSuccess).Inc()
	m.ChunkDuration.WithLabelValues(fetcher).Observe(durationSeconds)
	m.ItemsFetched.WithLabelValues(fetcher).Add(float64(fetched))
	m.ItemsNotFound.WithLabelValues(fetcher).Add(float64(notFound))
}

// RecordChunkFailed records a chunk that was dropped.
func (m *Metrics) RecordChunkFailed(fetcher string, durationSeconds float64) {
	m.ChunksInFlight.WithLabelValues(fetcher).Dec()
	m.ChunksTotal.WithLabelValues(fetcher, OutcomeFailure).Inc()
	m.ChunkDuration.WithLabelValues(fetcher).Observe(durationSeconds)
}

// RecordChunkRetry records one chunk retry attempt.
func (m *Metrics) RecordChunkRetry(fetcher string) {
	m.ChunkRetries.WithLabelValues(fetcher).Inc()
}

// RecordSourceRequest records a request to the bibliographic source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to the bibliographic source.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordPropagation records the outcome of one propagation pass.
func (m *Metrics) RecordPropagation(resolved, dangling, added int) {
	m.PropagationEdges.WithLabelValues("resolved").Add(float64(resolved))
	m.PropagationEdges.WithLabelValues("dangling").Add(float64(dangling))
	m.KeywordsPropagated.Add(float64(added))
}

// RecordRowsExported records rows written to a sink.
func (m *Metrics) RecordRowsExported(table, sink string, rows int) {
	m.RowsExported.WithLabelValues(table, sink).Add(float64(rows))
}

// RecordEventPublished records a published run event.
func (m *Metrics) RecordEventPublished(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}
