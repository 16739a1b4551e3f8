// Package reconcile replaces the reference lists reported by the remote API
// with the locally curated citation edges.
package reconcile

import (
	"github.com/helixir/citegraph/internal/domain"
)

// ReferenceSource supplies the curated reference list of a paper.
type ReferenceSource interface {
	References(paperID string) []string
}

// Reconcile returns a deep copy of paper whose References are a fresh copy of
// the source's list for paper.ID. Papers unknown to the source end up with an
// empty reference list; whatever the API reported is discarded.
func Reconcile(paper domain.PaperRecord, source ReferenceSource) domain.PaperRecord {
	out := paper.Clone()
	out.References = append([]string{}, source.References(paper.ID)...)
	return out
}

// ReconcileAll reconciles papers in order. A repeated paper id keeps its
// first record.
func ReconcileAll(papers []domain.PaperRecord, source ReferenceSource) []domain.PaperRecord {
	seen := make(map[string]struct{}, len(papers))
	out := make([]domain.PaperRecord, 0, len(papers))
	for _, p := range papers {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, Reconcile(p, source))
	}
	return out
}
