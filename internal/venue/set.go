package venue

import (
	"strings"

	"github.com/helixir/citegraph/internal/domain"
)

// Key returns the identity of a venue: the full record with a cleaned name
// and trimmed volume and pages. Two venues are the same entity iff their
// keys are equal.
func Key(v domain.VenueRecord) domain.VenueRecord {
	return domain.VenueRecord{
		VenueType: v.VenueType,
		Name:      CleanName(v.Name),
		Volume:    strings.TrimSpace(v.Volume),
		Pages:     strings.TrimSpace(v.Pages),
	}
}

// Set collects distinct venues in first-seen order.
type Set struct {
	seen   map[domain.VenueRecord]struct{}
	venues []domain.VenueRecord
}

// NewSet creates an empty venue set.
func NewSet() *Set {
	return &Set{seen: make(map[domain.VenueRecord]struct{})}
}

// Add inserts the normalized form of v. Venues whose cleaned name is empty
// are skipped. It reports whether the set grew.
func (s *Set) Add(v domain.VenueRecord) bool {
	key := Key(v)
	if key.Name == "" {
		return false
	}
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.venues = append(s.venues, key)
	return true
}

// Venues returns the distinct normalized venues in insertion order.
func (s *Set) Venues() []domain.VenueRecord {
	return append([]domain.VenueRecord(nil), s.venues...)
}

// Len returns the number of distinct venues.
func (s *Set) Len() int {
	return len(s.venues)
}
