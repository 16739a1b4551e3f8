package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Column headers of the CSV export.
var (
	PaperColumns        = []string{"paperId", "title", "abstract", "doi", "url", "citationCount", "venue", "venueType", "year", "fieldsOfStudy", "pages", "references", "authors"}
	AuthorColumns       = []string{"authorId", "name", "affiliations"}
	VenueColumns        = []string{"venueType", "name", "volume", "pages"}
	PaperKeywordColumns = []string{"paperId", "keyword"}
)

// WritePapers writes the papers table as CSV.
func WritePapers(w io.Writer, rows []PaperRow) error {
	return writeCSV(w, PaperColumns, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.PaperID,
			r.Title,
			r.Abstract,
			r.DOI,
			r.URL,
			formatInt(r.CitationCount),
			r.Venue,
			string(r.VenueType),
			formatInt(r.Year),
			joinList(r.Keywords),
			r.Pages,
			joinList(r.References),
			joinList(r.AuthorIDs),
		}
	})
}

// WriteAuthors writes the authors table as CSV.
func WriteAuthors(w io.Writer, rows []AuthorRow) error {
	return writeCSV(w, AuthorColumns, len(rows), func(i int) []string {
		r := rows[i]
		return []string{r.AuthorID, r.Name, joinList(r.Affiliations)}
	})
}

// WriteVenues writes the venues table as CSV.
func WriteVenues(w io.Writer, rows []VenueRow) error {
	return writeCSV(w, VenueColumns, len(rows), func(i int) []string {
		r := rows[i]
		return []string{string(r.VenueType), r.Name, r.Volume, r.Pages}
	})
}

// WritePaperKeywords writes the paper_keywords table as CSV.
func WritePaperKeywords(w io.Writer, rows []KeywordRow) error {
	return writeCSV(w, PaperKeywordColumns, len(rows), func(i int) []string {
		return []string{rows[i].PaperID, rows[i].Keyword}
	})
}

func writeCSV(w io.Writer, header []string, n int, row func(int) []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for i := range n {
		if err := writer.Write(row(i)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// CSVWriter writes the four tables as CSV files into a directory.
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates a writer targeting dir. The directory is created on
// first write.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// Name identifies the sink in logs and metrics.
func (w *CSVWriter) Name() string {
	return "csv"
}

// Dir returns the output directory.
func (w *CSVWriter) Dir() string {
	return w.dir
}

// Write writes papers.csv, authors.csv, venues.csv and paper_keywords.csv.
// Empty tables produce header-only files.
func (w *CSVWriter) Write(ctx context.Context, t *Tables) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	files := []struct {
		table string
		write func(io.Writer) error
	}{
		{TablePapers, func(out io.Writer) error { return WritePapers(out, t.Papers) }},
		{TableAuthors, func(out io.Writer) error { return WriteAuthors(out, t.Authors) }},
		{TableVenues, func(out io.Writer) error { return WriteVenues(out, t.Venues) }},
		{TablePaperKeywords, func(out io.Writer) error { return WritePaperKeywords(out, t.PaperKeywords) }},
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeFile(f.table, f.write); err != nil {
			return err
		}
	}
	return nil
}

func (w *CSVWriter) writeFile(table string, write func(io.Writer) error) error {
	path := filepath.Join(w.dir, table+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
