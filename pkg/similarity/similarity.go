// Package similarity provides pure vector comparison utilities used for
// semantic ranking of facts and entities. All functions are stateless and
// safe for concurrent use.
package similarity

import "math"

// Match pairs a candidate index with its similarity score against a query.
type Match struct {
	Index int
	Score float64
}

// Cosine returns the cosine similarity of two vectors in [-1, 1].
// Returns 0 if either vector is empty, the lengths differ, or either norm is
// zero. It never panics on malformed input; bad vectors simply score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores every candidate against the query and returns the top matches
// in descending score order. Candidates with no embedding (nil or mismatched
// dimension) score 0 via Cosine and are excluded by any positive minScore.
// Ties keep insertion order, so identical input always yields identical
// output. Returns nil if the query is empty or topK <= 0.
func Rank(query []float32, candidates [][]float32, topK int, minScore float64) []Match {
	if len(query) == 0 || topK <= 0 {
		return nil
	}

	matches := make([]Match, 0, len(candidates))
	for i, c := range candidates {
		if len(c) == 0 {
			continue
		}
		score := Cosine(query, c)
		if score < minScore {
			continue
		}
		matches = append(matches, Match{Index: i, Score: score})
	}

	// Insertion sort keeps equal scores in insertion order.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Score > matches[j-1].Score; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Average returns the element-wise mean of the given vectors. Returns nil if
// the input is empty or the vectors disagree on dimensionality.
func Average(vectors [][]float32) []float32 {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil
	}

	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil
		}
		for i, x := range v {
			sums[i] += float64(x)
		}
	}

	out := make([]float32, dim)
	n := float64(len(vectors))
	for i, s := range sums {
		out[i] = float32(s / n)
	}
	return out
}

// Normalize returns a unit-length copy of v. A zero vector is returned
// unchanged rather than producing NaNs.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}

	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
