package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citegraph/internal/domain"
)

func TestWritePapers(t *testing.T) {
	rows := []PaperRow{
		{
			PaperID:       "P1",
			Title:         "Big Data, Lakes",
			DOI:           "10.1/p1",
			CitationCount: intPtr(3),
			Venue:         "BigData",
			VenueType:     domain.VenueTypeConference,
			Year:          intPtr(2019),
			Keywords:      []string{"a", "b"},
			References:    []string{"P2", "P3"},
			AuthorIDs:     []string{"x"},
		},
		{PaperID: "P2", VenueType: domain.VenueTypeUnknown},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePapers(&buf, rows))

	want := "paperId,title,abstract,doi,url,citationCount,venue,venueType,year,fieldsOfStudy,pages,references,authors\n" +
		"P1,\"Big Data, Lakes\",,10.1/p1,,3,BigData,Conference,2019,a; b,,P2; P3,x\n" +
		"P2,,,,,,,Unknown,,,,,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteAuthors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAuthors(&buf, []AuthorRow{{AuthorID: "a1", Name: "Ada", Affiliations: []string{"UPC", "ULB"}}}))
	assert.Equal(t, "authorId,name,affiliations\na1,Ada,UPC; ULB\n", buf.String())
}

func TestWriteVenues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVenues(&buf, []VenueRow{{VenueType: domain.VenueTypeJournal, Name: "VLDB J", Volume: "12", Pages: "1-9"}}))
	assert.Equal(t, "venueType,name,volume,pages\nJournal,VLDB J,12,1-9\n", buf.String())
}

func TestWritePaperKeywords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePaperKeywords(&buf, []KeywordRow{{PaperID: "P1", Keyword: "ethics"}}))
	assert.Equal(t, "paperId,keyword\nP1,ethics\n", buf.String())
}

func TestCSVWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := NewCSVWriter(dir)
	assert.Equal(t, "csv", w.Name())
	assert.Equal(t, dir, w.Dir())

	tables := Build(samplePapers())
	tables.SetAuthors([]domain.AuthorRecord{{ID: "a1", Name: "Ada"}})
	require.NoError(t, w.Write(context.Background(), tables))

	for _, name := range []string{"papers.csv", "authors.csv", "venues.csv", "paper_keywords.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "authors.csv"))
	require.NoError(t, err)
	assert.Equal(t, "authorId,name,affiliations\na1,Ada,\n", string(data))
}

func TestCSVWriter_EmptyTablesWriteHeaders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewCSVWriter(dir).Write(context.Background(), Build(nil)))

	data, err := os.ReadFile(filepath.Join(dir, "paper_keywords.csv"))
	require.NoError(t, err)
	assert.Equal(t, "paperId,keyword\n", string(data))
}

func TestCSVWriter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewCSVWriter(t.TempDir()).Write(ctx, Build(nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVWriter_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	err := NewCSVWriter(filepath.Join(file, "out")).Write(context.Background(), Build(nil))
	assert.Error(t, err)
}
