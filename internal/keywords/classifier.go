package keywords

import (
	"strings"

	"github.com/helixir/citegraph/internal/domain"
)

// Classifier assigns keywords to papers.
type Classifier struct {
	terms   []string
	lowered []string
}

// NewClassifier creates a classifier matching titles against vocabulary.
// Terms keep their canonical casing in the output; blank terms are ignored.
func NewClassifier(vocabulary []string) *Classifier {
	c := &Classifier{}
	for _, term := range vocabulary {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		c.terms = append(c.terms, term)
		c.lowered = append(c.lowered, strings.ToLower(term))
	}
	return c
}

// Vocabulary returns the title-matching terms.
func (c *Classifier) Vocabulary() []string {
	return append([]string(nil), c.terms...)
}

// Classify returns the initial keyword set of paper: the legacy keyword if
// any, every non-blank field of study, and every vocabulary term contained
// case-insensitively in the title.
func (c *Classifier) Classify(paper domain.PaperRecord, legacyKeyword string) domain.KeywordSet {
	set := domain.NewKeywordSet()
	set.Add(strings.TrimSpace(legacyKeyword))
	for _, field := range paper.FieldsOfStudy {
		set.Add(strings.TrimSpace(field))
	}

	title := strings.ToLower(paper.Title)
	if title == "" {
		return set
	}
	for i, term := range c.lowered {
		if strings.Contains(title, term) {
			set.Add(c.terms[i])
		}
	}
	return set
}

// LegacyKeywords looks up the legacy keyword of a paper id.
type LegacyKeywords interface {
	LegacyKeyword(paperID string) string
}

// ClassifyAll wraps every paper with its classified keyword set, preserving order.
func (c *Classifier) ClassifyAll(papers []domain.PaperRecord, legacy LegacyKeywords) []domain.EnrichedPaper {
	out := make([]domain.EnrichedPaper, 0, len(papers))
	for _, p := range papers {
		out = append(out, domain.EnrichedPaper{
			Paper:    p,
			Keywords: c.Classify(p, legacy.LegacyKeyword(p.ID)),
		})
	}
	return out
}
