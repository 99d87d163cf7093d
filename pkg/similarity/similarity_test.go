package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical vectors", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1.0},
		{name: "negated vectors", a: []float32{1, 2, 3}, b: []float32{-1, -2, -3}, want: -1.0},
		{name: "orthogonal vectors", a: []float32{1, 0}, b: []float32{0, 1}, want: 0.0},
		{name: "empty a", a: nil, b: []float32{1, 2}, want: 0.0},
		{name: "empty b", a: []float32{1, 2}, b: nil, want: 0.0},
		{name: "length mismatch", a: []float32{1, 2}, b: []float32{1, 2, 3}, want: 0.0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRank(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{1, 0},        // score 1.0
		{0.9, 0.1},    // high
		{0, 1},        // score 0.0
		nil,           // no embedding
		{-1, 0},       // score -1.0
		{0.5, 0.5, 1}, // dimension mismatch, scores 0
	}

	matches := Rank(query, candidates, 10, 0.3)
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].Index)
	assert.Equal(t, 1, matches[1].Index)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	t.Run("topK truncation", func(t *testing.T) {
		matches := Rank(query, candidates, 1, -2)
		require.Len(t, matches, 1)
		assert.Equal(t, 0, matches[0].Index)
	})

	t.Run("empty query", func(t *testing.T) {
		assert.Nil(t, Rank(nil, candidates, 5, 0))
	})

	t.Run("stable tie order", func(t *testing.T) {
		ties := [][]float32{{2, 0}, {3, 0}, {1, 0}}
		first := Rank(query, ties, 3, 0)
		second := Rank(query, ties, 3, 0)
		require.Equal(t, first, second)
		// All score 1.0; insertion order preserved.
		assert.Equal(t, []int{0, 1, 2}, []int{first[0].Index, first[1].Index, first[2].Index})
	})

	t.Run("min similarity excludes", func(t *testing.T) {
		for _, m := range Rank(query, candidates, 10, 0.95) {
			assert.GreaterOrEqual(t, m.Score, 0.95)
		}
	})
}

func TestAverage(t *testing.T) {
	got := Average([][]float32{{1, 2}, {3, 4}})
	require.Equal(t, []float32{2, 3}, got)

	assert.Nil(t, Average(nil))
	assert.Nil(t, Average([][]float32{{1, 2}, {1, 2, 3}}))
}

func TestNormalize(t *testing.T) {
	got := Normalize([]float32{3, 4})
	require.Len(t, got, 2)
	assert.InDelta(t, 0.6, float64(got[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(got[1]), 1e-6)

	var norm float64
	for _, x := range got {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)

	zero := []float32{0, 0, 0}
	assert.Equal(t, zero, Normalize(zero))
}
