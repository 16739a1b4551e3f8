package keywords

import (
	"github.com/helixir/citegraph/internal/domain"
)

// Stats summarizes one propagation pass.
type Stats struct {
	// EdgesResolved counts references pointing at a paper of the working set.
	EdgesResolved int
	// EdgesDangling counts references to papers outside the working set.
	EdgesDangling int
	// KeywordsAdded counts keywords that were new to their target paper.
	KeywordsAdded int
}

// Snapshot copies the keyword set of every paper, indexed like papers.
func Snapshot(papers []domain.EnrichedPaper) []domain.KeywordSet {
	snap := make([]domain.KeywordSet, len(papers))
	for i, p := range papers {
		snap[i] = p.Keywords.Clone()
	}
	return snap
}

// ApplyOneHop unions snapshot[i] into every paper that papers[i] cites.
//
// Reads come only from snapshot and writes go to per-paper incoming buffers
// that are merged after the pass, so keywords travel exactly one edge no
// matter the iteration order. The returned papers carry new keyword sets;
// papers and snapshot are left untouched. References to ids outside papers
// are counted as dangling and otherwise ignored. A paper with no snapshot
// entry contributes its own current keywords.
func ApplyOneHop(papers []domain.EnrichedPaper, snapshot []domain.KeywordSet) ([]domain.EnrichedPaper, Stats) {
	var stats Stats

	index := make(map[string]int, len(papers))
	for i, p := range papers {
		if _, dup := index[p.ID()]; !dup {
			index[p.ID()] = i
		}
	}

	incoming := make([]domain.KeywordSet, len(papers))
	for i, p := range papers {
		source := p.Keywords
		if i < len(snapshot) {
			source = snapshot[i]
		}
		for _, ref := range p.Paper.References {
			j, ok := index[ref]
			if !ok {
				stats.EdgesDangling++
				continue
			}
			stats.EdgesResolved++
			if incoming[j] == nil {
				incoming[j] = domain.NewKeywordSet()
			}
			incoming[j].AddAll(source)
		}
	}

	out := make([]domain.EnrichedPaper, len(papers))
	for i, p := range papers {
		merged := p.Keywords.Clone()
		stats.KeywordsAdded += merged.AddAll(incoming[i])
		out[i] = domain.EnrichedPaper{Paper: p.Paper, Keywords: merged}
	}
	return out, stats
}

// PropagateOneHop snapshots papers and applies a single propagation pass.
func PropagateOneHop(papers []domain.EnrichedPaper) ([]domain.EnrichedPaper, Stats) {
	return ApplyOneHop(papers, Snapshot(papers))
}
