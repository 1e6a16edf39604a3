package vector

import (
	"fmt"
	"math"

	"github.com/viant/vec/search"
)

// UnitTolerance is the accepted deviation of a unit vector's norm from 1.
const UnitTolerance = 1e-3

// Dot returns the inner product of a and b accumulated in float64. Callers
// guarantee equal lengths.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return search.Float32s(v).Magnitude()
}

// IsUnit reports whether v is L2-normalized within UnitTolerance.
func IsUnit(v []float32) bool {
	m := float64(Magnitude(v))
	return math.Abs(m-1) <= UnitTolerance
}

// IsFinite reports whether every component of v is neither NaN nor infinite.
func IsFinite(v []float32) bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return false
		}
	}
	return true
}

// Normalize returns a unit-length copy of v. A zero or non-finite vector
// cannot be normalized and yields an error.
func Normalize(v []float32) ([]float32, error) {
	m := float64(Magnitude(v))
	if m == 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return nil, fmt.Errorf("vector: cannot normalize vector with magnitude %v", m)
	}
	out := make([]float32, len(v))
	scale := 1 / m
	for i, x := range v {
		out[i] = float32(float64(x) * scale)
	}
	return out, nil
}
