package pipeline

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/keywords"
)

// Summary reports what a run fetched and exported.
type Summary struct {
	RunID string

	PapersRequested   int
	PapersFetched     int
	PapersNotFound    int
	PaperChunksFailed int

	AuthorsRequested   int
	AuthorsFetched     int
	AuthorsNotFound    int
	AuthorChunksFailed int

	Venues      int
	KeywordRows int
	Propagation keywords.Stats
	Duration    time.Duration
}

// Payload converts the summary into an export.completed event payload.
func (s Summary) Payload() domain.ExportCompletedPayload {
	return domain.ExportCompletedPayload{
		RunID:              s.RunID,
		PapersRequested:    s.PapersRequested,
		PapersFetched:      s.PapersFetched,
		PapersNotFound:     s.PapersNotFound,
		PaperChunksFailed:  s.PaperChunksFailed,
		AuthorsRequested:   s.AuthorsRequested,
		AuthorsFetched:     s.AuthorsFetched,
		AuthorsNotFound:    s.AuthorsNotFound,
		AuthorChunksFailed: s.AuthorChunksFailed,
		Venues:             s.Venues,
		KeywordRows:        s.KeywordRows,
		KeywordsPropagated: s.Propagation.KeywordsAdded,
		Duration:           s.Duration,
	}
}

// Log writes the summary fields to e and sends it.
func (s Summary) Log(e *zerolog.Event) {
	e.Int("papers_requested", s.PapersRequested).
		Int("papers_fetched", s.PapersFetched).
		Int("papers_not_found", s.PapersNotFound).
		Int("paper_chunks_failed", s.PaperChunksFailed).
		Int("authors_requested", s.AuthorsRequested).
		Int("authors_fetched", s.AuthorsFetched).
		Int("authors_not_found", s.AuthorsNotFound).
		Int("author_chunks_failed", s.AuthorChunksFailed).
		Int("venues", s.Venues).
		Int("keyword_rows", s.KeywordRows).
		Int("keywords_propagated", s.Propagation.KeywordsAdded).
		Dur("duration", s.Duration).
		Msg("run completed")
}
