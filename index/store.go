package index

import (
	"time"

	"github.com/pkg/errors"
)

// Meta describes where a store came from.
type Meta struct {
	BuildID   string
	Provider  string
	CreatedAt time.Time
}

// Store is an immutable N×D matrix of unit vectors paired by position with
// N labels. Stores are safe for concurrent reads; nothing mutates a store
// after construction.
type Store struct {
	dim    int
	matrix []float32
	labels []string
	meta   Meta
}

// NewStore constructs a store from a row-major matrix and its labels. It
// takes ownership of both slices. The matrix must hold exactly
// len(labels)*dim values.
func NewStore(dim int, matrix []float32, labels []string, meta Meta) (*Store, error) {
	if dim < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative dimension %d", dim)
	}
	if len(labels) > 0 && dim == 0 {
		return nil, errors.Wrapf(ErrCorruptIndex, "%d labels with zero dimension", len(labels))
	}
	if len(matrix) != len(labels)*dim {
		return nil, errors.Wrapf(ErrCorruptIndex, "matrix holds %d values, want %d rows × %d dims", len(matrix), len(labels), dim)
	}
	return &Store{dim: dim, matrix: matrix, labels: labels, meta: meta}, nil
}

// FromRows builds a store from per-row vectors, copying them into a dense
// matrix. All rows must share one dimension.
func FromRows(labels []string, rows [][]float32, meta Meta) (*Store, error) {
	if len(labels) != len(rows) {
		return nil, errors.Wrapf(ErrCorruptIndex, "%d labels for %d rows", len(labels), len(rows))
	}
	if len(rows) == 0 {
		return NewStore(0, nil, nil, meta)
	}
	dim := len(rows[0])
	matrix := make([]float32, 0, len(rows)*dim)
	for i, row := range rows {
		if len(row) != dim {
			return nil, errors.Wrapf(ErrCorruptIndex, "row %d has dimension %d, want %d", i, len(row), dim)
		}
		matrix = append(matrix, row...)
	}
	return NewStore(dim, matrix, append([]string(nil), labels...), meta)
}

// Len returns the number of rows.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Dim returns the vector dimension, zero for an empty store.
func (s *Store) Dim() int {
	if s == nil {
		return 0
	}
	return s.dim
}

// Meta returns the store metadata.
func (s *Store) Meta() Meta { return s.meta }

// Label returns the label of row i.
func (s *Store) Label(i int) string { return s.labels[i] }

// Labels returns a copy of all labels in row order.
func (s *Store) Labels() []string { return append([]string(nil), s.labels...) }

// Row returns a read-only view of row i. Callers must not modify it.
func (s *Store) Row(i int) []float32 {
	return s.matrix[i*s.dim : (i+1)*s.dim : (i+1)*s.dim]
}

// Matrix returns a read-only view of the dense matrix. Callers must not
// modify it.
func (s *Store) Matrix() []float32 { return s.matrix }
