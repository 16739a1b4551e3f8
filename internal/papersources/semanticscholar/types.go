// Package semanticscholar provides a client for the Semantic Scholar Graph API.
//
// The client covers the four endpoints the pipeline needs: batch paper
// lookup, batch author lookup, keyword search and reference listing.
//
// API Documentation: https://api.semanticscholar.org/api-docs/graph
package semanticscholar

// batchRequest is the body of the paper and author batch endpoints.
type batchRequest struct {
	IDs []string `json:"ids"`
}

// PaperResult represents a single paper in a batch or search response.
// Every scalar is nullable in the API, hence the pointers.
type PaperResult struct {
	PaperID          string         `json:"paperId"`
	Title            *string        `json:"title"`
	Abstract         *string        `json:"abstract"`
	Year             *int           `json:"year"`
	Venue            *string        `json:"venue"`
	URL              *string        `json:"url"`
	CitationCount    *int           `json:"citationCount"`
	ExternalIDs      map[string]any `json:"externalIds"`
	PublicationTypes []string       `json:"publicationTypes"`
	FieldsOfStudy    []string       `json:"fieldsOfStudy"`
	Journal          *Journal       `json:"journal"`
	Authors          []AuthorRef    `json:"authors"`
}

// Journal contains journal-specific information.
type Journal struct {
	Name   string `json:"name,omitempty"`
	Volume string `json:"volume,omitempty"`
	Pages  string `json:"pages,omitempty"`
}

// AuthorRef is the abbreviated author embedded in a paper.
type AuthorRef struct {
	AuthorID *string `json:"authorId"`
	Name     string  `json:"name"`
}

// AuthorResult represents a single author in a batch response.
type AuthorResult struct {
	AuthorID      string   `json:"authorId"`
	Name          *string  `json:"name"`
	Affiliations  []string `json:"affiliations"`
	Homepage      *string  `json:"homepage"`
	PaperCount    *int     `json:"paperCount"`
	CitationCount *int     `json:"citationCount"`
	HIndex        *int     `json:"hIndex"`
}

// SearchResponse represents the response from the paper search endpoint.
type SearchResponse struct {
	// Total is the total number of papers matching the query.
	Total int `json:"total"`

	// Offset is the current offset in the result set.
	Offset int `json:"offset"`

	// Next is the offset for the next page; absent on the last page.
	Next *int `json:"next"`

	// Data contains the papers returned by the search.
	Data []PaperResult `json:"data"`
}

// ReferencesResponse represents one page of the paper references endpoint.
type ReferencesResponse struct {
	Offset int              `json:"offset"`
	Next   *int             `json:"next"`
	Data   []ReferenceEntry `json:"data"`
}

// ReferenceEntry wraps one cited paper. CitedPaper.PaperID is null for
// references Semantic Scholar could not match to a paper.
type ReferenceEntry struct {
	CitedPaper struct {
		PaperID *string `json:"paperId"`
	} `json:"citedPaper"`
}

// ErrorResponse represents an error response from the Semantic Scholar API.
type ErrorResponse struct {
	// Error is the error message from the API.
	Error string `json:"error,omitempty"`

	// Message is an alternative error message field.
	Message string `json:"message,omitempty"`
}
