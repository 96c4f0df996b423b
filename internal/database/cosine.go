package database

import (
	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity computes dot(a, b) / (|a| * |b|) in float64.
// Returns ErrDegenerateSignature if either vector is empty or has zero norm,
// and ErrDimensionMismatch if the lengths differ. The result is clamped to [-1, 1].
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	if len(a) == 0 {
		return 0, ErrDegenerateSignature
	}

	a64, b64 := toFloat64(a), toFloat64(b)
	normA := floats.Norm(a64, 2)
	normB := floats.Norm(b64, 2)
	if normA == 0 || normB == 0 {
		return 0, ErrDegenerateSignature
	}

	similarity := floats.Dot(a64, b64) / (normA * normB)
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return similarity, nil
}

// CosineDistance returns 1 - similarity, between 0 (identical) and 2 (opposite).
// Invalid input yields the maximum distance 2.
func CosineDistance(a, b []float32) float64 {
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return 2.0
	}
	return 1 - sim
}

// IsDegenerate reports whether v is empty or has zero norm.
func IsDegenerate(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
