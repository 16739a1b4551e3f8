package refstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is one line of a reference CSV as produced by the gather stage.
type Row struct {
	PaperID    string
	References []string
	Keyword    string
	VenueType  string
}

// WriteCSV writes rows in the format read by Load with DefaultColumns,
// plus a venueType column.
func WriteCSV(w io.Writer, rows []Row) error {
	cols := DefaultColumns()
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{cols.ID, cols.References, cols.Keyword, "venueType"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.PaperID, strings.Join(row.References, ReferenceSeparator), row.Keyword, row.VenueType}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %s: %w", row.PaperID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
