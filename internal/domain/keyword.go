package domain

import (
	"regexp"
	"slices"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters (spaces, tabs, newlines).
var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeKeyword normalizes a keyword string by:
// - Converting to lowercase
// - Trimming leading/trailing whitespace
// - Collapsing multiple whitespace characters into a single space
func NormalizeKeyword(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// KeywordSet is an unordered set of free-text keywords.
// The zero value is not usable; create sets with NewKeywordSet.
type KeywordSet map[string]struct{}

// NewKeywordSet creates a set holding the given keywords. Empty strings are ignored.
func NewKeywordSet(keywords ...string) KeywordSet {
	s := make(KeywordSet, len(keywords))
	for _, kw := range keywords {
		s.Add(kw)
	}
	return s
}

// Add inserts kw into the set. Empty keywords are ignored.
// It reports whether the set grew.
func (s KeywordSet) Add(kw string) bool {
	if kw == "" {
		return false
	}
	if _, ok := s[kw]; ok {
		return false
	}
	s[kw] = struct{}{}
	return true
}

// AddAll unions other into s and returns the number of keywords added.
func (s KeywordSet) AddAll(other KeywordSet) int {
	added := 0
	for kw := range other {
		if s.Add(kw) {
			added++
		}
	}
	return added
}

// Has reports whether kw is in the set.
func (s KeywordSet) Has(kw string) bool {
	_, ok := s[kw]
	return ok
}

// Len returns the number of keywords in the set.
func (s KeywordSet) Len() int {
	return len(s)
}

// Clone returns an independent copy of the set. Cloning a nil set yields an empty set.
func (s KeywordSet) Clone() KeywordSet {
	out := make(KeywordSet, len(s))
	for kw := range s {
		out[kw] = struct{}{}
	}
	return out
}

// Sorted returns the keywords in lexicographic order.
func (s KeywordSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for kw := range s {
		out = append(out, kw)
	}
	slices.Sort(out)
	return out
}

// Equal reports whether both sets hold exactly the same keywords.
func (s KeywordSet) Equal(other KeywordSet) bool {
	if len(s) != len(other) {
		return false
	}
	for kw := range s {
		if !other.Has(kw) {
			return false
		}
	}
	return true
}
