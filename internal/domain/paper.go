package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Journal holds structured journal metadata reported for a paper.
type Journal struct {
	Name   string
	Volume string
	Pages  string
}

// PaperRecord is a paper as fetched from the bibliographic API and, after
// reconciliation, carrying the locally curated reference list.
//
// Scalar metadata is nullable at the source: empty strings stand in for
// missing text fields and nil pointers for missing numbers.
type PaperRecord struct {
	ID               string
	Title            string
	Abstract         string
	Year             *int
	Venue            string
	URL              string
	CitationCount    *int
	ExternalIDs      map[string]any
	PublicationTypes []string
	FieldsOfStudy    []string
	Journal          *Journal
	AuthorIDs        []string
	References       []string
}

// Clone returns a deep copy of the record. The copy shares no slices, maps
// or pointers with the receiver.
func (p PaperRecord) Clone() PaperRecord {
	out := p
	if p.Year != nil {
		y := *p.Year
		out.Year = &y
	}
	if p.CitationCount != nil {
		c := *p.CitationCount
		out.CitationCount = &c
	}
	if p.ExternalIDs != nil {
		out.ExternalIDs = maps.Clone(p.ExternalIDs)
	}
	if p.Journal != nil {
		j := *p.Journal
		out.Journal = &j
	}
	out.PublicationTypes = slices.Clone(p.PublicationTypes)
	out.FieldsOfStudy = slices.Clone(p.FieldsOfStudy)
	out.AuthorIDs = slices.Clone(p.AuthorIDs)
	out.References = slices.Clone(p.References)
	return out
}

// DOI returns the paper's DOI from its external identifiers, or "" if none.
// The canonical "DOI" key wins over a lower-case "doi" key.
func (p PaperRecord) DOI() string {
	for _, key := range []string{"DOI", "doi"} {
		v, ok := p.ExternalIDs[key]
		if !ok || v == nil {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = val
		default:
			s = fmt.Sprint(val)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// HasPublicationType reports whether the paper carries the given publication type tag.
func (p PaperRecord) HasPublicationType(tag string) bool {
	return slices.Contains(p.PublicationTypes, tag)
}

// EnrichedPaper wraps a reconciled paper record together with the keyword
// set derived for it. Keywords are only ever grown, never replaced.
type EnrichedPaper struct {
	Paper    PaperRecord
	Keywords KeywordSet
}

// ID returns the identifier of the wrapped paper.
func (e EnrichedPaper) ID() string {
	return e.Paper.ID
}
