package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citegraph/internal/domain"
)

func paper(id string, refs []string, kws ...string) domain.EnrichedPaper {
	return domain.EnrichedPaper{
		Paper:    domain.PaperRecord{ID: id, References: refs},
		Keywords: domain.NewKeywordSet(kws...),
	}
}

func keywordsByID(papers []domain.EnrichedPaper) map[string][]string {
	out := make(map[string][]string, len(papers))
	for _, p := range papers {
		out[p.ID()] = p.Keywords.Sorted()
	}
	return out
}

// A cites B, B cites C. A's keyword reaches B but not C.
func TestPropagateOneHop_Chain(t *testing.T) {
	papers := []domain.EnrichedPaper{
		paper("A", []string{"B"}, "x"),
		paper("B", []string{"C"}, "y"),
		paper("C", nil, "z"),
	}

	got, stats := PropagateOneHop(papers)

	assert.Equal(t, map[string][]string{
		"A": {"x"},
		"B": {"x", "y"},
		"C": {"y", "z"},
	}, keywordsByID(got))
	assert.Equal(t, Stats{EdgesResolved: 2, EdgesDangling: 0, KeywordsAdded: 2}, stats)
}

// Order of the working set must not let keywords travel two hops.
func TestPropagateOneHop_OrderIndependent(t *testing.T) {
	papers := []domain.EnrichedPaper{
		paper("C", nil, "z"),
		paper("B", []string{"C"}, "y"),
		paper("A", []string{"B"}, "x"),
	}

	got, _ := PropagateOneHop(papers)

	assert.Equal(t, []string{"y", "z"}, keywordsByID(got)["C"])
}

func TestPropagateOneHop_DanglingReferences(t *testing.T) {
	papers := []domain.EnrichedPaper{
		paper("A", []string{"B", "outside", "also-outside"}, "x"),
		paper("B", nil),
	}

	got, stats := PropagateOneHop(papers)

	assert.Equal(t, []string{"x"}, keywordsByID(got)["B"])
	assert.Equal(t, 1, stats.EdgesResolved)
	assert.Equal(t, 2, stats.EdgesDangling)
	assert.Equal(t, 1, stats.KeywordsAdded)
}

func TestPropagateOneHop_Cycle(t *testing.T) {
	papers := []domain.EnrichedPaper{
		paper("A", []string{"B"}, "a"),
		paper("B", []string{"A"}, "b"),
		paper("S", []string{"S"}, "s"),
	}

	got, stats := PropagateOneHop(papers)

	assert.Equal(t, map[string][]string{
		"A": {"a", "b"},
		"B": {"a", "b"},
		"S": {"s"},
	}, keywordsByID(got))
	assert.Equal(t, 2, stats.KeywordsAdded)
}

func TestPropagateOneHop_DoesNotMutateInput(t *testing.T) {
	papers := []domain.EnrichedPaper{
		paper("A", []string{"B"}, "x"),
		paper("B", nil, "y"),
	}

	_, _ = PropagateOneHop(papers)

	assert.Equal(t, []string{"x"}, papers[0].Keywords.Sorted())
	assert.Equal(t, []string{"y"}, papers[1].Keywords.Sorted())
}

// Re-applying the same snapshot yields the same sets.
func TestApplyOneHop_IdempotentForFixedSnapshot(t *testing.T) {
	papers := []domain.EnrichedPaper{
		paper("A", []string{"B", "C"}, "x"),
		paper("B", []string{"C"}, "y"),
		paper("C", []string{"A"}, "z"),
	}
	snap := Snapshot(papers)

	once, _ := ApplyOneHop(papers, snap)
	twice, stats := ApplyOneHop(once, snap)

	assert.Equal(t, keywordsByID(once), keywordsByID(twice))
	assert.Equal(t, 0, stats.KeywordsAdded)
}

// Every cited paper ends up with a superset of its citer's original keywords.
func TestPropagateOneHop_SupersetInvariant(t *testing.T) {
	papers := []domain.EnrichedPaper{
		paper("p1", []string{"p2", "p3"}, "ml", "ethics"),
		paper("p2", []string{"p3", "p4"}, "big data"),
		paper("p3", nil),
		paper("p4", []string{"p1"}, "indexing"),
	}
	snap := Snapshot(papers)

	got, _ := PropagateOneHop(papers)
	byID := make(map[string]domain.KeywordSet, len(got))
	for _, p := range got {
		byID[p.ID()] = p.Keywords
	}

	for i, citer := range papers {
		for _, ref := range citer.Paper.References {
			for kw := range snap[i] {
				assert.True(t, byID[ref].Has(kw), "%s should inherit %q from %s", ref, kw, citer.ID())
			}
		}
	}
}

func TestSnapshot_IsIndependent(t *testing.T) {
	papers := []domain.EnrichedPaper{paper("A", nil, "x")}
	snap := Snapshot(papers)
	require.Len(t, snap, 1)

	papers[0].Keywords.Add("y")
	assert.False(t, snap[0].Has("y"))
}

func TestPropagateOneHop_Empty(t *testing.T) {
	got, stats := PropagateOneHop(nil)
	assert.Empty(t, got)
	assert.Equal(t, Stats{}, stats)
}

func TestApplyOneHop_ShortSnapshotUsesCurrentKeywords(t *testing.T) {
	papers := []domain.EnrichedPaper{
		paper("A", []string{"B"}, "a"),
		paper("B", []string{"C"}, "b"),
		paper("C", nil, "c"),
	}
	snap := Snapshot(papers[:1])

	got, stats := ApplyOneHop(papers, snap)

	byID := keywordsByID(got)
	assert.Equal(t, []string{"a", "b"}, byID["B"])
	assert.Equal(t, []string{"b", "c"}, byID["C"])
	assert.Equal(t, 2, stats.EdgesResolved)
	assert.Equal(t, 2, stats.KeywordsAdded)
}
