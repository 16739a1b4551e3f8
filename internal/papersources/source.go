// Package papersources provides the transport layer and the narrow client
// interfaces for bibliographic APIs.
//
// The pipeline talks to the remote API only through the interfaces below, so
// batch fetching, gathering and tests can substitute fakes:
//
//	client := semanticscholar.NewClient(cfg, nil)
//	papers, notFound, err := client.FetchPapers(ctx, ids, fields)
package papersources

import (
	"context"

	"github.com/helixir/citegraph/internal/domain"
)

// PaperBatchFetcher resolves a batch of paper ids in a single call.
// Records come back in input order; ids the source cannot resolve are
// returned in notFound instead.
type PaperBatchFetcher interface {
	FetchPapers(ctx context.Context, ids, fields []string) (papers []domain.PaperRecord, notFound []string, err error)
}

// AuthorBatchFetcher resolves a batch of author ids in a single call.
type AuthorBatchFetcher interface {
	FetchAuthors(ctx context.Context, ids, fields []string) (authors []domain.AuthorRecord, notFound []string, err error)
}

// Searcher finds papers by keyword and lists a paper's references.
type Searcher interface {
	// SearchPaperIDs returns up to limit paper ids matching query, restricted
	// to publicationType when it is non-empty.
	SearchPaperIDs(ctx context.Context, query, publicationType string, limit int) ([]string, error)

	// References returns the ids of the papers cited by paperID.
	References(ctx context.Context, paperID string) ([]string, error)
}

// Source is the full client surface of a bibliographic API.
type Source interface {
	PaperBatchFetcher
	AuthorBatchFetcher
	Searcher

	// SourceType returns the type identifier for this source.
	SourceType() domain.SourceType

	// Name returns a human-readable name used in logs and metrics.
	Name() string
}
