package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/helixir/citegraph/internal/database"
	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/export"
	"github.com/helixir/citegraph/internal/observability"
)

// SinkName identifies the PostgreSQL sink in logs and metrics.
const SinkName = "postgres"

// DefaultBatchSize is the number of statements sent per round trip.
const DefaultBatchSize = 1000

// ExportLockKey is the advisory lock held while an export is written.
const ExportLockKey int64 = 0x63697465677261 // "citegra"

const (
	upsertPaperSQL = `
		INSERT INTO papers (
			paper_id, title, abstract, doi, url, citation_count, venue, venue_type,
			year, keywords, pages, reference_ids, author_ids, run_id, exported_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (paper_id) DO UPDATE SET
			title = EXCLUDED.title,
			abstract = EXCLUDED.abstract,
			doi = EXCLUDED.doi,
			url = EXCLUDED.url,
			citation_count = EXCLUDED.citation_count,
			venue = EXCLUDED.venue,
			venue_type = EXCLUDED.venue_type,
			year = EXCLUDED.year,
			keywords = EXCLUDED.keywords,
			pages = EXCLUDED.pages,
			reference_ids = EXCLUDED.reference_ids,
			author_ids = EXCLUDED.author_ids,
			run_id = EXCLUDED.run_id,
			exported_at = EXCLUDED.exported_at`

	upsertAuthorSQL = `
		INSERT INTO authors (author_id, name, affiliations, run_id, exported_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (author_id) DO UPDATE SET
			name = EXCLUDED.name,
			affiliations = EXCLUDED.affiliations,
			run_id = EXCLUDED.run_id,
			exported_at = EXCLUDED.exported_at`

	upsertVenueSQL = `
		INSERT INTO venues (venue_type, name, volume, pages, run_id, exported_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (venue_type, name, volume, pages) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			exported_at = EXCLUDED.exported_at`

	deletePaperKeywordsSQL = `DELETE FROM paper_keywords WHERE paper_id = ANY($1)`

	insertPaperKeywordSQL = `
		INSERT INTO paper_keywords (paper_id, keyword)
		VALUES ($1, $2)
		ON CONFLICT (paper_id, keyword) DO NOTHING`
)

// PgExportRepository is a pipeline sink backed by PostgreSQL.
type PgExportRepository struct {
	pool      Pool
	logger    zerolog.Logger
	batchSize int
	now       func() time.Time
}

// NewPgExportRepository creates a repository writing through pool.
func NewPgExportRepository(pool Pool, logger zerolog.Logger) *PgExportRepository {
	return &PgExportRepository{
		pool:      pool,
		logger:    logger.With().Str("component", "pg_export").Logger(),
		batchSize: DefaultBatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithBatchSize overrides the number of statements per round trip.
func (r *PgExportRepository) WithBatchSize(n int) *PgExportRepository {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// Name implements the pipeline sink contract.
func (r *PgExportRepository) Name() string {
	return SinkName
}

// Write stores the four tables in a single transaction.
func (r *PgExportRepository) Write(ctx context.Context, t *export.Tables) error {
	if t == nil {
		return domain.NewValidationError("tables", "export tables are required")
	}

	runID := observability.RunIDFromContext(ctx)
	now := r.now()

	err := database.RunInTx(ctx, r.pool, pgx.TxOptions{}, r.logger, func(tx pgx.Tx) error {
		if err := database.AcquireAdvisoryLockTx(ctx, tx, ExportLockKey); err != nil {
			return fmt.Errorf("acquire export lock: %w", err)
		}
		if err := r.writePapers(ctx, tx, t.Papers, runID, now); err != nil {
			return err
		}
		if err := r.writeAuthors(ctx, tx, t.Authors, runID, now); err != nil {
			return err
		}
		if err := r.writeVenues(ctx, tx, t.Venues, runID, now); err != nil {
			return err
		}
		return r.writeKeywords(ctx, tx, t.Papers, t.PaperKeywords)
	})
	if err != nil {
		return fmt.Errorf("write export to postgres: %w", err)
	}

	r.logger.Info().
		Str("run_id", runID).
		Int("papers", len(t.Papers)).
		Int("authors", len(t.Authors)).
		Int("venues", len(t.Venues)).
		Int("paper_keywords", len(t.PaperKeywords)).
		Msg("export written to postgres")
	return nil
}

func (r *PgExportRepository) writePapers(ctx context.Context, tx batchSender, rows []export.PaperRow, runID string, now time.Time) error {
	return r.execBatched(ctx, tx, export.TablePapers, len(rows), func(b *pgx.Batch, i int) {
		p := rows[i]
		b.Queue(upsertPaperSQL,
			p.PaperID,
			p.Title,
			p.Abstract,
			p.DOI,
			p.URL,
			p.CitationCount,
			p.Venue,
			string(p.VenueType),
			p.Year,
			nonNil(p.Keywords),
			p.Pages,
			nonNil(p.References),
			nonNil(p.AuthorIDs),
			runID,
			now,
		)
	})
}

func (r *PgExportRepository) writeAuthors(ctx context.Context, tx batchSender, rows []export.AuthorRow, runID string, now time.Time) error {
	return r.execBatched(ctx, tx, export.TableAuthors, len(rows), func(b *pgx.Batch, i int) {
		a := rows[i]
		b.Queue(upsertAuthorSQL, a.AuthorID, a.Name, nonNil(a.Affiliations), runID, now)
	})
}

func (r *PgExportRepository) writeVenues(ctx context.Context, tx batchSender, rows []export.VenueRow, runID string, now time.Time) error {
	return r.execBatched(ctx, tx, export.TableVenues, len(rows), func(b *pgx.Batch, i int) {
		v := rows[i]
		b.Queue(upsertVenueSQL, string(v.VenueType), v.Name, v.Volume, v.Pages, runID, now)
	})
}

func (r *PgExportRepository) writeKeywords(ctx context.Context, tx pgx.Tx, papers []export.PaperRow, rows []export.KeywordRow) error {
	if len(papers) > 0 {
		ids := make([]string, len(papers))
		for i, p := range papers {
			ids[i] = p.PaperID
		}
		if _, err := tx.Exec(ctx, deletePaperKeywordsSQL, ids); err != nil {
			return fmt.Errorf("clear paper keywords: %w", err)
		}
	}
	return r.execBatched(ctx, tx, export.TablePaperKeywords, len(rows), func(b *pgx.Batch, i int) {
		b.Queue(insertPaperKeywordSQL, rows[i].PaperID, rows[i].Keyword)
	})
}

// execBatched queues n statements through queue and sends them in batches
// of r.batchSize.
func (r *PgExportRepository) execBatched(ctx context.Context, tx batchSender, table string, n int, queue func(b *pgx.Batch, i int)) error {
	for start := 0; start < n; start += r.batchSize {
		end := min(start+r.batchSize, n)
		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			queue(batch, i)
		}
		if err := sendBatch(ctx, tx, batch); err != nil {
			return fmt.Errorf("write %s rows %d-%d: %w", table, start, end-1, err)
		}
		r.logger.Debug().
			Str("table", table).
			Int("rows", end-start).
			Msg("batch written")
	}
	return nil
}

func sendBatch(ctx context.Context, tx batchSender, batch *pgx.Batch) error {
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}
	return br.Close()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
