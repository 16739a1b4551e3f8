// Package keywords derives a keyword set for every fetched paper and
// propagates those sets one hop along the citation graph.
//
// A paper's keywords come from three places: the legacy tag of the reference
// file, the fields of study reported by the API, and controlled-vocabulary
// terms found in the title. Propagation then copies each citing paper's
// keywords into every paper it cites, exactly once, reading from a snapshot
// taken before any set is grown.
package keywords
