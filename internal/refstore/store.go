// Package refstore holds the locally curated citation graph: for every known
// paper id, the reference list and the legacy keyword tag read from a CSV
// file. The store is read-only once loaded and safe for concurrent reads.
package refstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/helixir/citegraph/internal/domain"
)

// ReferenceSeparator separates entries of a reference list cell.
const ReferenceSeparator = ";"

// Columns names the CSV columns read by Load.
type Columns struct {
	ID         string
	References string
	Keyword    string
}

// DefaultColumns returns the column names written by WriteCSV.
func DefaultColumns() Columns {
	return Columns{
		ID:         "paperId",
		References: "references",
		Keyword:    "keyword",
	}
}

// Entry is the curated data known for one paper.
type Entry struct {
	References    []string
	LegacyKeyword string
}

// Store maps paper ids to their curated entries and remembers the order in
// which ids were first seen.
type Store struct {
	ids     []string
	entries map[string]Entry
}

// New builds a store from already parsed rows. Rows with an empty id are
// skipped. A repeated id keeps its first position; the later row's data wins.
func New(rows []Row) *Store {
	s := &Store{entries: make(map[string]Entry, len(rows))}
	for _, row := range rows {
		s.put(strings.TrimSpace(row.PaperID), Entry{
			References:    cleanReferences(row.References),
			LegacyKeyword: strings.TrimSpace(row.Keyword),
		})
	}
	return s
}

func (s *Store) put(id string, e Entry) {
	if id == "" {
		return
	}
	if _, seen := s.entries[id]; !seen {
		s.ids = append(s.ids, id)
	}
	s.entries[id] = e
}

// Load reads a reference CSV with a header row.
//
// Rows whose id cell is empty are skipped, as are malformed rows (for
// example a wrong number of fields). The reference column holds a
// ';'-delimited list; entries are trimmed and empty entries dropped. Missing
// reference or keyword columns yield empty values. Only an I/O failure or a
// header without the id column is an error.
func Load(r io.Reader, cols Columns) (*Store, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.NewValidationError("header", "reference file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	idIdx, refIdx, kwIdx := -1, -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case cols.ID:
			idIdx = i
		case cols.References:
			refIdx = i
		case cols.Keyword:
			kwIdx = i
		}
	}
	if idIdx < 0 {
		return nil, domain.NewValidationError("header", fmt.Sprintf("missing id column %q", cols.ID))
	}

	s := &Store{entries: make(map[string]Entry)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading references: %w", err)
		}

		var refs []string
		if refIdx >= 0 {
			refs = SplitReferences(record[refIdx])
		}
		var kw string
		if kwIdx >= 0 {
			kw = strings.TrimSpace(record[kwIdx])
		}
		s.put(strings.TrimSpace(record[idIdx]), Entry{References: refs, LegacyKeyword: kw})
	}
	return s, nil
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, cols Columns) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening reference file: %w", err)
	}
	defer f.Close()

	s, err := Load(f, cols)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}

// SplitReferences parses a ';'-delimited reference cell.
func SplitReferences(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	return cleanReferences(strings.Split(cell, ReferenceSeparator))
}

func cleanReferences(refs []string) []string {
	var out []string
	for _, ref := range refs {
		if ref = strings.TrimSpace(ref); ref != "" {
			out = append(out, ref)
		}
	}
	return out
}

// IDs returns the known paper ids in first-seen order.
func (s *Store) IDs() []string {
	return slices.Clone(s.ids)
}

// References returns a copy of the curated reference list of id.
// Unknown ids have no references.
func (s *Store) References(id string) []string {
	return slices.Clone(s.entries[id].References)
}

// LegacyKeyword returns the legacy keyword tag of id, or "".
func (s *Store) LegacyKeyword(id string) string {
	return s.entries[id].LegacyKeyword
}

// Has reports whether id is in the store.
func (s *Store) Has(id string) bool {
	_, ok := s.entries[id]
	return ok
}

// Len returns the number of distinct ids.
func (s *Store) Len() int {
	return len(s.ids)
}
