package bruteforce

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"

	"github.com/viant/imgsim/index"
	"github.com/viant/imgsim/vector"
)

// Scorer is an exact, O(N·D) top-K scorer. The zero value is ready to use
// and safe for concurrent use.
type Scorer struct{}

// New returns an exact scorer.
func New() *Scorer { return &Scorer{} }

// Search returns the min(k, N) highest-scoring rows ordered by score
// descending, ties broken by ascending position. NaN scores rank last.
func (s *Scorer) Search(store *index.Store, query []float32, k int) ([]index.Result, error) {
	if k <= 0 {
		return nil, errors.Wrapf(index.ErrInvalidArgument, "k must be positive, got %d", k)
	}
	n := store.Len()
	if n == 0 {
		return []index.Result{}, nil
	}
	if len(query) != store.Dim() {
		return nil, errors.Wrapf(index.ErrDimensionMismatch, "query dim %d != index dim %d", len(query), store.Dim())
	}
	if !vector.IsFinite(query) {
		return nil, errors.Wrap(index.ErrInvalidArgument, "query holds non-finite values")
	}
	if k > n {
		k = n
	}
	h := make(candidates, 0, k)
	for i := 0; i < n; i++ {
		c := newCandidate(i, vector.Dot(store.Row(i), query))
		if len(h) < k {
			heap.Push(&h, c)
		} else if c.beats(h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}
	out := make([]index.Result, len(h))
	for i := len(out) - 1; i >= 0; i-- {
		c := heap.Pop(&h).(candidate)
		out[i] = index.Result{Label: store.Label(c.pos), Score: c.score, Position: c.pos}
	}
	return out, nil
}

var _ index.Scorer = (*Scorer)(nil)

type candidate struct {
	pos   int
	score float64
	rank  float64
}

func newCandidate(pos int, score float64) candidate {
	rank := score
	if math.IsNaN(rank) {
		rank = math.Inf(-1)
	}
	return candidate{pos: pos, score: score, rank: rank}
}

// beats reports whether c ranks strictly ahead of o.
func (c candidate) beats(o candidate) bool {
	if c.rank != o.rank {
		return c.rank > o.rank
	}
	return c.pos < o.pos
}

// candidates is a min-heap keyed by rank: the root is the weakest kept row.
type candidates []candidate

func (h candidates) Len() int           { return len(h) }
func (h candidates) Less(i, j int) bool { return h[j].beats(h[i]) }
func (h candidates) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidates) Push(x interface{}) { *h = append(*h, x.(candidate)) }

func (h *candidates) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
