// Package pipeline orchestrates one enrichment run: load the curated
// citation graph, fetch paper metadata in batches, reconcile references,
// classify and propagate keywords, build the export tables, fetch the
// authors they mention and hand the result to every configured sink.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/citegraph/internal/batch"
	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/events"
	"github.com/helixir/citegraph/internal/export"
	"github.com/helixir/citegraph/internal/keywords"
	"github.com/helixir/citegraph/internal/observability"
	"github.com/helixir/citegraph/internal/papersources"
	"github.com/helixir/citegraph/internal/refstore"
	"github.com/helixir/citegraph/internal/reconcile"
)

// Run phases reported in run.failed events.
const (
	PhaseFetchPapers  = "fetch_papers"
	PhaseFetchAuthors = "fetch_authors"
	PhaseExport       = "export"
	PhasePublish      = "publish"
)

// failedEventTimeout bounds the run.failed publish after the run context is gone.
const failedEventTimeout = 5 * time.Second

// Source is the bibliographic API used by the pipeline.
type Source interface {
	papersources.PaperBatchFetcher
	papersources.AuthorBatchFetcher
}

// Sink receives the finished export tables.
type Sink interface {
	Name() string
	Write(ctx context.Context, tables *export.Tables) error
}

// EventPublisher announces run lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// Options configures a Pipeline.
type Options struct {
	Papers       batch.Options
	PaperFields  []string
	Authors      batch.Options
	AuthorFields []string
	Vocabulary   []string

	// InputPath and OutputDir are reported in run events only.
	InputPath string
	OutputDir string
}

// Pipeline runs the enrichment stages in order. Only the batch fetches run
// concurrently; every other stage works on the fetched results after the
// fetch has completed.
type Pipeline struct {
	source     Source
	sinks      []Sink
	publisher  EventPublisher
	emitter    *events.Emitter
	classifier *keywords.Classifier
	opts       Options
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// New creates a pipeline. metrics may be nil.
func New(source Source, sinks []Sink, opts Options, logger zerolog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:     source,
		sinks:      sinks,
		emitter:    events.NewEmitter(events.EmitterConfig{}),
		classifier: keywords.NewClassifier(opts.Vocabulary),
		opts:       opts,
		logger:     logger.With().Str("component", "pipeline").Logger(),
		metrics:    metrics,
	}
}

// WithPublisher sets the publisher used for run lifecycle events.
func (p *Pipeline) WithPublisher(publisher EventPublisher) *Pipeline {
	p.publisher = publisher
	return p
}

// Result is the outcome of a successful run.
type Result struct {
	Summary        Summary
	Tables         *export.Tables
	PaperFailures  []batch.ChunkFailure
	AuthorFailures []batch.ChunkFailure
	NotFound       []string
}

// Run executes one enrichment run over every paper id in store.
//
// Failed fetch chunks never fail the run; they are reported in the result.
// A cancelled context, a sink error or a publish error does.
func (p *Pipeline) Run(ctx context.Context, store *refstore.Store) (*Result, error) {
	runID := uuid.New().String()
	ctx = observability.WithRunID(ctx, runID)
	logger := observability.WithRunContext(p.logger, runID)
	start := time.Now()

	if p.metrics != nil {
		p.metrics.RecordRunStarted()
	}
	ids := store.IDs()
	logger.Info().Int("paper_ids", len(ids)).Str("input", p.opts.InputPath).Msg("run started")

	if err := p.publish(ctx, domain.EventTypeRunStarted, runID, domain.RunStartedPayload{
		RunID:     runID,
		InputPath: p.opts.InputPath,
		PaperIDs:  len(ids),
		OutputDir: p.opts.OutputDir,
	}); err != nil {
		return nil, p.fail(ctx, logger, runID, PhasePublish, start, err)
	}

	paperFetcher := batch.New[domain.PaperRecord]("papers", func(ctx context.Context, chunk []string) ([]domain.PaperRecord, []string, error) {
		return p.source.FetchPapers(ctx, chunk, p.opts.PaperFields)
	}, p.opts.Papers, logger, p.metrics)
	papers := paperFetcher.FetchAll(ctx, ids)
	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, logger, runID, PhaseFetchPapers, start, err)
	}

	reconciled := reconcile.ReconcileAll(papers.Records, store)
	enriched := p.classifier.ClassifyAll(reconciled, store)
	propagated, stats := keywords.PropagateOneHop(enriched)
	if p.metrics != nil {
		p.metrics.RecordPropagation(stats.EdgesResolved, stats.EdgesDangling, stats.KeywordsAdded)
	}
	logger.Debug().
		Int("edges_resolved", stats.EdgesResolved).
		Int("edges_dangling", stats.EdgesDangling).
		Int("keywords_added", stats.KeywordsAdded).
		Msg("keywords propagated")

	tables := export.Build(propagated)

	authorFetcher := batch.New[domain.AuthorRecord]("authors", func(ctx context.Context, chunk []string) ([]domain.AuthorRecord, []string, error) {
		return p.source.FetchAuthors(ctx, chunk, p.opts.AuthorFields)
	}, p.opts.Authors, logger, p.metrics)
	authors := authorFetcher.FetchAll(ctx, tables.AuthorIDs())
	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, logger, runID, PhaseFetchAuthors, start, err)
	}
	tables.SetAuthors(authors.Records)

	for _, sink := range p.sinks {
		if err := sink.Write(ctx, tables); err != nil {
			return nil, p.fail(ctx, logger, runID, PhaseExport, start, fmt.Errorf("writing %s export: %w", sink.Name(), err))
		}
		if p.metrics != nil {
			for table, rows := range tables.RowCounts() {
				p.metrics.RecordRowsExported(table, sink.Name(), rows)
			}
		}
		logger.Info().Str("sink", sink.Name()).Msg("export written")
	}

	summary := Summary{
		RunID:              runID,
		PapersRequested:    papers.Requested,
		PapersFetched:      len(papers.Records),
		PapersNotFound:     len(papers.NotFound),
		PaperChunksFailed:  len(papers.Failures),
		AuthorsRequested:   authors.Requested,
		AuthorsFetched:     len(authors.Records),
		AuthorsNotFound:    len(authors.NotFound),
		AuthorChunksFailed: len(authors.Failures),
		Venues:             len(tables.Venues),
		KeywordRows:        len(tables.PaperKeywords),
		Propagation:        stats,
		Duration:           time.Since(start),
	}

	if err := p.publish(ctx, domain.EventTypeExportCompleted, runID, summary.Payload()); err != nil {
		return nil, p.fail(ctx, logger, runID, PhasePublish, start, err)
	}

	if p.metrics != nil {
		p.metrics.RecordRunCompleted(summary.Duration.Seconds())
	}
	summary.Log(logger.Info())

	return &Result{
		Summary:        summary,
		Tables:         tables,
		PaperFailures:  papers.Failures,
		AuthorFailures: authors.Failures,
		NotFound:       papers.NotFound,
	}, nil
}

func (p *Pipeline) publish(ctx context.Context, eventType, runID string, payload any) error {
	if p.publisher == nil {
		return nil
	}
	event, err := p.emitter.Emit(events.EmitParams{
		RunID:     runID,
		EventType: eventType,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("building %s event: %w", eventType, err)
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("publishing %s event: %w", eventType, err)
	}
	return nil
}

// fail records a failed run and returns err. The run.failed event is sent
// best effort on a context that outlives a cancelled run.
func (p *Pipeline) fail(ctx context.Context, logger zerolog.Logger, runID, phase string, start time.Time, err error) error {
	if p.metrics != nil {
		p.metrics.RecordRunFailed(time.Since(start).Seconds())
	}
	logger.Error().Err(err).Str("phase", phase).Msg("run failed")

	if p.publisher != nil && phase != PhasePublish {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failedEventTimeout)
		defer cancel()
		if pubErr := p.publish(pubCtx, domain.EventTypeRunFailed, runID, domain.RunFailedPayload{
			RunID: runID,
			Error: err.Error(),
			Phase: phase,
		}); pubErr != nil {
			logger.Warn().Err(pubErr).Msg("failed to publish run.failed event")
		}
	}
	return err
}
