// Package venue infers where a paper was published and builds the
// de-duplicated venue list of an export.
package venue

import (
	"strings"

	"github.com/helixir/citegraph/internal/domain"
)

// conferenceWords mark a venue reported as a journal that is really a conference.
var conferenceWords = []string{"conference", "workshop", "proceedings", "symposium"}

// Classify derives the venue of a paper.
//
// JournalArticle wins over Conference among the publication type tags. A
// journal whose raw venue name reads like a conference is reclassified as a
// conference. Journals take name, volume and pages from the structured
// journal metadata when present; all other venues use the raw venue string.
func Classify(paper domain.PaperRecord) domain.VenueRecord {
	v := domain.VenueRecord{
		VenueType: domain.VenueTypeUnknown,
		Name:      paper.Venue,
	}

	switch {
	case paper.HasPublicationType(domain.PublicationTypeJournalArticle):
		v.VenueType = domain.VenueTypeJournal
	case paper.HasPublicationType(domain.PublicationTypeConference):
		v.VenueType = domain.VenueTypeConference
	}

	if v.VenueType == domain.VenueTypeJournal && looksLikeConference(paper.Venue) {
		v.VenueType = domain.VenueTypeConference
	}

	if v.VenueType == domain.VenueTypeJournal && paper.Journal != nil {
		if paper.Journal.Name != "" {
			v.Name = paper.Journal.Name
		}
		v.Volume = paper.Journal.Volume
		v.Pages = paper.Journal.Pages
	}
	return v
}

func looksLikeConference(name string) bool {
	name = strings.ToLower(name)
	for _, w := range conferenceWords {
		if strings.Contains(name, w) {
			return true
		}
	}
	return false
}
