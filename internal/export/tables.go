// Package export turns enriched papers and fetched authors into the four
// relational tables consumed by the graph loader: papers, authors, venues and
// paper_keywords.
package export

import (
	"strings"

	"github.com/helixir/citegraph/internal/domain"
	"github.com/helixir/citegraph/internal/venue"
)

// Table names, also used as CSV file stems and database table names.
const (
	TablePapers        = "papers"
	TableAuthors       = "authors"
	TableVenues        = "venues"
	TablePaperKeywords = "paper_keywords"
)

// ListSeparator joins multi-valued cells.
const ListSeparator = "; "

// PaperRow is one row of the papers table.
type PaperRow struct {
	PaperID       string
	Title         string
	Abstract      string
	DOI           string
	URL           string
	CitationCount *int
	Venue         string
	VenueType     domain.VenueType
	Year          *int
	Keywords      []string
	Pages         string
	References    []string
	AuthorIDs     []string
}

// AuthorRow is one row of the authors table.
type AuthorRow struct {
	AuthorID     string
	Name         string
	Affiliations []string
}

// VenueRow is one row of the venues table.
type VenueRow = domain.VenueRecord

// KeywordRow associates a paper with one of its keywords.
type KeywordRow struct {
	PaperID string
	Keyword string
}

// Tables holds a complete export.
type Tables struct {
	Papers        []PaperRow
	Authors       []AuthorRow
	Venues        []VenueRow
	PaperKeywords []KeywordRow

	authorIDs []string
}

// Build derives the papers, venues and paper_keywords tables from the final
// enriched papers. The authors table is filled later with SetAuthors, once
// the ids returned by AuthorIDs have been fetched.
func Build(papers []domain.EnrichedPaper) *Tables {
	t := &Tables{
		Papers: make([]PaperRow, 0, len(papers)),
	}
	venues := venue.NewSet()
	seenAuthors := make(map[string]struct{})

	for _, ep := range papers {
		p := ep.Paper
		v := venue.Classify(p)
		venues.Add(v)

		var pages string
		if p.Journal != nil {
			pages = p.Journal.Pages
		}
		keywords := ep.Keywords.Sorted()

		t.Papers = append(t.Papers, PaperRow{
			PaperID:       p.ID,
			Title:         p.Title,
			Abstract:      p.Abstract,
			DOI:           p.DOI(),
			URL:           p.URL,
			CitationCount: p.CitationCount,
			Venue:         venue.CleanName(p.Venue),
			VenueType:     v.VenueType,
			Year:          p.Year,
			Keywords:      keywords,
			Pages:         pages,
			References:    append([]string(nil), p.References...),
			AuthorIDs:     append([]string(nil), p.AuthorIDs...),
		})

		for _, kw := range keywords {
			t.PaperKeywords = append(t.PaperKeywords, KeywordRow{PaperID: p.ID, Keyword: kw})
		}

		for _, id := range p.AuthorIDs {
			if id == "" {
				continue
			}
			if _, ok := seenAuthors[id]; ok {
				continue
			}
			seenAuthors[id] = struct{}{}
			t.authorIDs = append(t.authorIDs, id)
		}
	}

	t.Venues = venues.Venues()
	return t
}

// AuthorIDs returns the distinct author ids referenced by the papers table
// in first-seen order.
func (t *Tables) AuthorIDs() []string {
	return append([]string(nil), t.authorIDs...)
}

// SetAuthors fills the authors table.
func (t *Tables) SetAuthors(authors []domain.AuthorRecord) {
	t.Authors = AuthorRows(authors)
}

// AuthorRows converts fetched authors into rows, preserving order.
func AuthorRows(authors []domain.AuthorRecord) []AuthorRow {
	rows := make([]AuthorRow, 0, len(authors))
	for _, a := range authors {
		rows = append(rows, AuthorRow{
			AuthorID:     a.ID,
			Name:         a.Name,
			Affiliations: append([]string(nil), a.Affiliations...),
		})
	}
	return rows
}

// RowCounts returns the number of rows per table.
func (t *Tables) RowCounts() map[string]int {
	return map[string]int{
		TablePapers:        len(t.Papers),
		TableAuthors:       len(t.Authors),
		TableVenues:        len(t.Venues),
		TablePaperKeywords: len(t.PaperKeywords),
	}
}

func joinList(values []string) string {
	return strings.Join(values, ListSeparator)
}
