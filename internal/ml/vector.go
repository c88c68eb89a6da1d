package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrDimensionMismatch is returned when two vectors of different lengths are compared
var ErrDimensionMismatch = errors.New("vectors must have the same dimensions")

// Distance returns the Euclidean distance between a and b
func Distance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}

	return floats.Distance(a, b, 2), nil
}

// Normalize divides every element by the sum of all elements.
// A zero-sum vector is returned unchanged.
func Normalize(v []float64) []float64 {
	sum := floats.Sum(v)
	if sum == 0 {
		return v
	}

	normalized := make([]float64, len(v))
	copy(normalized, v)
	floats.Scale(1/sum, normalized)

	return normalized
}
