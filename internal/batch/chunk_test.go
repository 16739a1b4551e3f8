package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		size      int
		wantSizes []int
	}{
		{"empty", 0, 3, nil},
		{"exact", 6, 3, []int{3, 3}},
		{"remainder", 7, 3, []int{3, 3, 1}},
		{"smaller than chunk", 2, 500, []int{2}},
		{"chunk of one", 3, 1, []int{1, 1, 1}},
		{"non-positive size", 4, 0, []int{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := makeIDs(tt.n)
			chunks := Chunk(ids, tt.size)

			var sizes []int
			var flat []string
			for _, c := range chunks {
				sizes = append(sizes, len(c))
				flat = append(flat, c...)
			}
			assert.Equal(t, tt.wantSizes, sizes)
			if tt.n > 0 {
				assert.Equal(t, ids, flat)
			}
		})
	}
}

func TestChunk_CeilCount(t *testing.T) {
	for n := 1; n <= 50; n++ {
		for k := 1; k <= 12; k++ {
			require.Len(t, Chunk(makeIDs(n), k), (n+k-1)/k, "n=%d k=%d", n, k)
		}
	}
}

func TestChunk_AppendDoesNotClobberNeighbour(t *testing.T) {
	chunks := Chunk([]string{"a", "b", "c", "d"}, 2)
	_ = append(chunks[0], "x")
	assert.Equal(t, []string{"c", "d"}, chunks[1])
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Dedupe([]string{"a", "b", "a", "", "c", "b"}))
	assert.Empty(t, Dedupe(nil))
}
