package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_citegraph_new")

	assert.NotNil(t, m.RunsStarted)
	assert.NotNil(t, m.RunsCompleted)
	assert.NotNil(t, m.RunsFailed)
	assert.NotNil(t, m.RunDuration)
	assert.NotNil(t, m.ChunksTotal)
	assert.NotNil(t, m.ChunkRetries)
	assert.NotNil(t, m.ChunkDuration)
	assert.NotNil(t, m.ChunksInFlight)
	assert.NotNil(t, m.ItemsFetched)
	assert.NotNil(t, m.ItemsNotFound)
	assert.NotNil(t, m.SourceRequestsTotal)
	assert.NotNil(t, m.SourceRateLimited)
	assert.NotNil(t, m.KeywordsPropagated)
	assert.NotNil(t, m.RowsExported)
	assert.NotNil(t, m.EventsPublished)
}

func TestRecordRunCompleted(t *testing.T) {
	m := NewMetrics("test_run_completed")

	m.RecordRunStarted()
	m.RecordRunCompleted(5.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RunsStarted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RunsCompleted))

	histCount, err := getHistogramSampleCount(m.RunDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordRunFailed(t *testing.T) {
	m := NewMetrics("test_run_failed")

	m.RecordRunFailed(3.0)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RunsFailed))
}

func TestRecordChunkOutcomes(t *testing.T) {
	m := NewMetrics("test_chunk_outcomes")

	m.ChunkStarted("papers")
	m.ChunkStarted("papers")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ChunksInFlight.WithLabelValues("papers")))

	m.RecordChunkSucceeded("papers", 498, 2, 1.5)
	m.RecordChunkFailed("papers", 0.3)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.ChunksInFlight.WithLabelValues("papers")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChunksTotal.WithLabelValues("papers", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChunksTotal.WithLabelValues("papers", OutcomeFailure)))
	assert.Equal(t, float64(498), testutil.ToFloat64(m.ItemsFetched.WithLabelValues("papers")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ItemsNotFound.WithLabelValues("papers")))
}

func TestRecordChunkRetry(t *testing.T) {
	m := NewMetrics("test_chunk_retry")

	m.RecordChunkRetry("authors")
	m.RecordChunkRetry("authors")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ChunkRetries.WithLabelValues("authors")))
}

func TestRecordSourceRequest(t *testing.T) {
	m := NewMetrics("test_source_request")

	m.RecordSourceRequest("semantic_scholar", "paper_batch", 0.5)
	m.RecordSourceRequestFailed("semantic_scholar", "paper_batch", "server_error")
	m.RecordSourceRateLimited("semantic_scholar")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequestsTotal.WithLabelValues("semantic_scholar", "paper_batch")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRequestsFailed.WithLabelValues("semantic_scholar", "paper_batch", "server_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRateLimited.WithLabelValues("semantic_scholar")))
}

func TestRecordPropagation(t *testing.T) {
	m := NewMetrics("test_propagation")

	m.RecordPropagation(10, 4, 7)
	assert.Equal(t, float64(10), testutil.ToFloat64(m.PropagationEdges.WithLabelValues("resolved")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.PropagationEdges.WithLabelValues("dangling")))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.KeywordsPropagated))
}

func TestRecordRowsExported(t *testing.T) {
	m := NewMetrics("test_rows_exported")

	m.RecordRowsExported("papers", "csv", 12)
	m.RecordRowsExported("papers", "postgres", 12)
	m.RecordEventPublished("export.completed")

	assert.Equal(t, float64(12), testutil.ToFloat64(m.RowsExported.WithLabelValues("papers", "csv")))
	assert.Equal(t, float64(12), testutil.ToFloat64(m.RowsExported.WithLabelValues("papers", "postgres")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("export.completed")))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
