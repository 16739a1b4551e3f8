// Package gather builds a reference file from scratch by searching the
// bibliographic API for seed papers and listing their references.
//
// Stage one searches every keyword for every publication type and records
// each hit's references. Stage two, when enabled, lists the references of
// every paper cited in stage one. Calls are sequential with a random pause
// between them to stay well below the API's rate limit.
package gather

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/observability"
	"github.com/helixir/citegraph/internal/papersources"
	"github.com/helixir/citegraph/internal/refstore"
)

// DefaultPublicationTypes are searched when Options.PublicationTypes is empty.
var DefaultPublicationTypes = []string{
	domain.PublicationTypeJournalArticle,
	domain.PublicationTypeConference,
}

// Options configures a gather run.
type Options struct {
	Keywords         []string
	PublicationTypes []string
	// Limit is the number of search hits per keyword and publication type.
	Limit int
	// Expand enables stage two.
	Expand bool
	// MinJitter and MaxJitter bound the random pause between calls.
	MinJitter time.Duration
	MaxJitter time.Duration
	// Retries is the number of extra attempts for a failing call.
	Retries int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
}

// Gatherer runs the two gather stages against a Searcher.
type Gatherer struct {
	searcher papersources.Searcher
	opts     Options
	logger   zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a Gatherer.
func New(searcher papersources.Searcher, opts Options, logger zerolog.Logger) *Gatherer {
	if len(opts.PublicationTypes) == 0 {
		opts.PublicationTypes = DefaultPublicationTypes
	}
	if opts.MaxJitter < opts.MinJitter {
		opts.MaxJitter = opts.MinJitter
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Gatherer{
		searcher: searcher,
		opts:     opts,
		logger:   logger.With().Str("component", "gather").Logger(),
		sleep:    sleepContext,
	}
}

// Run gathers rows with a silent logger.
func Run(ctx context.Context, searcher papersources.Searcher, opts Options) ([]refstore.Row, error) {
	return New(searcher, opts, zerolog.Nop()).Run(ctx)
}

// Run executes both stages and returns the combined rows: stage one rows
// that have at least one reference, followed by all stage two rows.
//
// A search that keeps failing aborts the run. A reference listing that keeps
// failing is logged and yields an empty reference list.
func (g *Gatherer) Run(ctx context.Context) ([]refstore.Row, error) {
	seeds, err := g.seedRows(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]refstore.Row, 0, len(seeds))
	for _, row := range seeds {
		if len(row.References) > 0 {
			rows = append(rows, row)
		}
	}

	if g.opts.Expand {
		expanded, err := g.expandRows(ctx, seeds)
		if err != nil {
			return nil, err
		}
		rows = append(rows, expanded...)
	}

	g.logger.Info().
		Int("seed_rows", len(seeds)).
		Int("rows", len(rows)).
		Msg("gather completed")
	return rows, nil
}

func (g *Gatherer) seedRows(ctx context.Context) ([]refstore.Row, error) {
	var rows []refstore.Row
	for _, kw := range g.opts.Keywords {
		for _, pubType := range g.opts.PublicationTypes {
			logger := observability.WithSearchContext(g.logger, kw, pubType)

			var ids []string
			err := g.retry(ctx, func() error {
				var err error
				ids, err = g.searcher.SearchPaperIDs(ctx, kw, pubType, g.opts.Limit)
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("searching %q (%s): %w", kw, pubType, err)
			}
			logger.Info().Int("hits", len(ids)).Msg("search completed")

			for _, id := range ids {
				if id == "" {
					continue
				}
				refs, err := g.references(ctx, id)
				if err != nil {
					return nil, err
				}
				rows = append(rows, refstore.Row{
					PaperID:    id,
					References: refs,
					Keyword:    kw,
					VenueType:  pubType,
				})
				if err := g.pause(ctx); err != nil {
					return nil, err
				}
			}
		}
	}
	return rows, nil
}

func (g *Gatherer) expandRows(ctx context.Context, seeds []refstore.Row) ([]refstore.Row, error) {
	seen := make(map[string]struct{})
	var targets []string
	for _, row := range seeds {
		for _, ref := range row.References {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			targets = append(targets, ref)
		}
	}
	g.logger.Info().Int("references", len(targets)).Msg("expanding references")

	rows := make([]refstore.Row, 0, len(targets))
	for _, id := range targets {
		refs, err := g.references(ctx, id)
		if err != nil {
			return nil, err
		}
		rows = append(rows, refstore.Row{PaperID: id, References: refs})
		if err := g.pause(ctx); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// references lists the references of id. Only cancellation is returned as
// an error; any other failure yields an empty list.
func (g *Gatherer) references(ctx context.Context, id string) ([]string, error) {
	var refs []string
	err := g.retry(ctx, func() error {
		var err error
		refs, err = g.searcher.References(ctx, id)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger := observability.WithPaperContext(g.logger, id)
		logger.Warn().Err(err).Msg("failed to list references")
		return nil, nil
	}
	return refs, nil
}

// retry runs fn until it succeeds, the retries are used up, the error is a
// not-found error or ctx is done.
func (g *Gatherer) retry(ctx context.Context, fn func() error) error {
	delay := g.opts.Backoff
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= g.opts.Retries || errors.Is(err, domain.ErrNotFound) || ctx.Err() != nil {
			return err
		}
		g.logger.Debug().Err(err).Int("attempt", attempt+1).Dur("backoff", delay).Msg("retrying call")
		if err := g.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

func (g *Gatherer) pause(ctx context.Context) error {
	d := g.opts.MinJitter
	if spread := g.opts.MaxJitter - g.opts.MinJitter; spread > 0 {
		d += rand.N(spread + 1)
	}
	return g.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
