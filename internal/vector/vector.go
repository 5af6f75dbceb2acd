// Package vector provides the fixed-dimension unit-vector math used for
// face embedding comparison.
package vector

import (
	"errors"
	"math"
)

var (
	// ErrDimensionMismatch is returned when a vector does not have the expected dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNotNormalizable is returned for zero or non-finite vectors.
	ErrNotNormalizable = errors.New("vector cannot be normalized")
)

// NormTolerance is the allowed deviation from unit length for stored vectors.
const NormTolerance = 1e-6

// Validate checks that v has the expected dimension and contains only finite values.
func Validate(v []float32, dim int) error {
	if len(v) != dim {
		return ErrDimensionMismatch
	}
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrNotNormalizable
		}
	}
	return nil
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. The division is deterministic,
// so proportional inputs map to the same stored value.
func Normalize(v []float32) ([]float32, error) {
	norm := Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, ErrNotNormalizable
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// IsUnit reports whether v has L2 norm 1 within NormTolerance.
func IsUnit(v []float32) bool {
	return math.Abs(Norm(v)-1) <= NormTolerance
}

// Dot returns the dot product of a and b. Both must have the same length.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Similarity computes the remapped cosine similarity between two unit
// vectors: (dot + 1) / 2, clamped to [0, 1]. Identical vectors score 1,
// opposite vectors 0, orthogonal vectors 0.5. Consumers rely on this exact
// mapping for threshold semantics.
//
// Vectors of differing dimension score 0 and are excluded from ranking.
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	s := (Dot(a, b) + 1) / 2
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
