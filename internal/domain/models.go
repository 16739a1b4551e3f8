// Package domain provides domain models and business logic for the citation graph pipeline.
package domain

// SourceType represents the source API that provided record data.
type SourceType string

const (
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
)

// VenueType classifies where a paper was published or presented.
// These values are written verbatim into the venueType export column.
type VenueType string

const (
	VenueTypeUnknown    VenueType = "Unknown"
	VenueTypeJournal    VenueType = "Journal"
	VenueTypeConference VenueType = "Conference"
)

// Publication type tags reported by the bibliographic API that drive venue inference.
const (
	PublicationTypeJournalArticle = "JournalArticle"
	PublicationTypeConference     = "Conference"
)

// AuthorRecord is an author as returned by the bibliographic API.
// Author records are fetched once and written once; they are never mutated.
type AuthorRecord struct {
	ID            string
	Name          string
	Affiliations  []string
	Homepage      string
	PaperCount    *int
	CitationCount *int
	HIndex        *int
}

// VenueRecord is a derived venue row. Two venue records denote the same
// entity iff all four fields are equal after normalization.
type VenueRecord struct {
	VenueType VenueType
	Name      string
	Volume    string
	Pages     string
}
