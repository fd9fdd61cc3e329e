package match

import "math"

// CosineSimilarity returns the cosine similarity of two vectors in [-1, 1].
// Returns ErrDimensionMismatch if the vectors have different lengths.
// A zero vector has no direction, so its similarity to anything is 0.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// clampSimilarity maps a raw cosine similarity onto [0, 1].
// Negative similarities carry no useful ranking signal for issue text.
func clampSimilarity(sim float32) float32 {
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
