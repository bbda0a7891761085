package vector

import (
	"fmt"
	"math"
)

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
// Products are accumulated in float64. Vectors of different length yield 0.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-norm copy of x. The input is left untouched.
func Normalize(x []float32) ([]float32, error) {
	out := make([]float32, len(x))
	copy(out, x)
	if err := NormalizeInPlace(out); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeInPlace scales x to unit L2 norm.
func NormalizeInPlace(x []float32) error {
	norm := L2Norm(x)
	if math.IsNaN(norm) || math.IsInf(norm, 0) {
		return ErrNonFinite
	}
	if norm == 0 {
		return fmt.Errorf("%w (length %d)", ErrZeroVector, len(x))
	}
	inv := 1 / norm
	for i := range x {
		x[i] = float32(float64(x[i]) * inv)
	}
	return nil
}
