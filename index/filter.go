package index

import (
	"math"

	"github.com/pkg/errors"
)

// FilterMinScore drops results scoring below min, preserving order. min must
// lie in [-1, 1].
func FilterMinScore(results []Result, min float64) ([]Result, error) {
	if math.IsNaN(min) || min < -1 || min > 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, "min score %v outside [-1, 1]", min)
	}
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Score >= min {
			out = append(out, r)
		}
	}
	return out, nil
}
