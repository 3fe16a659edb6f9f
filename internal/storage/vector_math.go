package storage

import (
	"fmt"
	"math"
)

// EuclideanDistance assumes len(a) == len(b). Checking lengths is the
// caller's responsibility.
func EuclideanDistance(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

// Add returns a new vector holding a + b.
func Add(a, b []float32) ([]float32, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("add %d and %d elements: %w", len(a), len(b), ErrIncompatible)
	}
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out, nil
}

// Subtract returns a new vector holding a - b.
func Subtract(a, b []float32) ([]float32, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("subtract %d and %d elements: %w", len(a), len(b), ErrIncompatible)
	}
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out, nil
}

// Scale returns a new vector with every element of v multiplied by scalar.
// Non-finite scalars follow IEEE 754.
func Scale(v []float32, scalar float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * scalar
	}
	return out
}

// CosineSimilarity returns dot(a, b) / (|a| * |b|). It fails with
// ErrIncompatible on mismatched lengths and ErrUndefined when either
// magnitude is zero, which includes empty vectors.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine similarity of %d and %d elements: %w", len(a), len(b), ErrIncompatible)
	}
	var dot, na2, nb2 float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, fmt.Errorf("cosine similarity with zero-magnitude vector: %w", ErrUndefined)
	}
	sim := dot / (math.Sqrt(na2) * math.Sqrt(nb2))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, fmt.Errorf("cosine similarity is not finite: %w", ErrUndefined)
	}
	return float32(sim), nil
}
