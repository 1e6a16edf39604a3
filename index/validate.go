package index

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/viant/imgsim/vector"
)

// SuspiciousDimension is the dimension under which a non-empty store is
// flagged as suspicious.
const SuspiciousDimension = 10

// Report is the structured outcome of validating a store.
type Report struct {
	Rows                int    `json:"rows"`
	Labels              int    `json:"labels"`
	Dimension           int    `json:"dimension"`
	Consistent          bool   `json:"consistent"`
	SuspiciousDimension bool   `json:"suspicious_dimension"`
	NonUnitRows         int    `json:"non_unit_rows"`
	NonFiniteRows       int    `json:"non_finite_rows,omitempty"`
	Provider            string `json:"provider,omitempty"`
	BuildID             string `json:"build_id,omitempty"`
	Problem             string `json:"problem,omitempty"`
}

// Err returns ErrCorruptIndex when the report is inconsistent.
func (r Report) Err() error {
	if r.Consistent {
		return nil
	}
	return errors.Wrap(ErrCorruptIndex, r.Problem)
}

// Warnings lists non-fatal findings.
func (r Report) Warnings() []string {
	var out []string
	if r.SuspiciousDimension {
		out = append(out, fmt.Sprintf("dimension %d is suspiciously small", r.Dimension))
	}
	if r.NonUnitRows > 0 {
		out = append(out, fmt.Sprintf("%d rows are not unit-normalized", r.NonUnitRows))
	}
	return out
}

// Validate inspects a store without modifying it.
func Validate(s *Store) Report {
	if s == nil {
		return Report{Problem: "nil store"}
	}
	r := Report{
		Labels:    len(s.labels),
		Dimension: s.dim,
		Provider:  s.meta.Provider,
		BuildID:   s.meta.BuildID,
	}
	switch {
	case s.dim == 0 && len(s.matrix) > 0:
		r.Problem = fmt.Sprintf("%d values with zero dimension", len(s.matrix))
		return r
	case s.dim > 0 && len(s.matrix)%s.dim != 0:
		r.Rows = len(s.matrix) / s.dim
		r.Problem = fmt.Sprintf("matrix of %d values is not a multiple of dimension %d", len(s.matrix), s.dim)
		return r
	case s.dim > 0:
		r.Rows = len(s.matrix) / s.dim
	}
	r.Consistent = r.Rows == r.Labels
	if !r.Consistent {
		r.Problem = fmt.Sprintf("row count %d != label count %d", r.Rows, r.Labels)
		return r
	}
	r.SuspiciousDimension = r.Rows > 0 && r.Dimension < SuspiciousDimension
	for i := 0; i < r.Rows; i++ {
		row := s.matrix[i*s.dim : (i+1)*s.dim]
		if !vector.IsFinite(row) {
			r.NonFiniteRows++
			continue
		}
		if !vector.IsUnit(row) {
			r.NonUnitRows++
		}
	}
	if r.NonFiniteRows > 0 {
		r.Consistent = false
		r.Problem = fmt.Sprintf("%d rows hold non-finite values", r.NonFiniteRows)
	}
	return r
}
