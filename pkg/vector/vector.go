// Package vector implements the deterministic bag-of-hashes embedding and
// the vector math used by retrieval and personalization.
package vector

import "math"

// Dim is the embedding dimensionality.
const Dim = 64

// Norm returns the L2 norm of v.
func Norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize returns v scaled to unit L2 norm. The zero vector is returned
// unchanged.
func Normalize(v []float64) []float64 {
	norm := Norm(v)
	out := make([]float64, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// Dot returns the dot product of a and b. For unit vectors this equals the
// cosine similarity.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Scale returns v multiplied by s.
func Scale(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * s
	}
	return out
}
