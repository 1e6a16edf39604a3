package index

// Scorer answers top-K similarity queries against a Store.
//
// Implementations must return at most k results ordered by non-increasing
// score with ties broken by ascending position, fail with ErrInvalidArgument
// when k <= 0, return an empty result for an empty store, and fail with
// ErrDimensionMismatch before scoring when the query dimension differs from
// the store's.
type Scorer interface {
	Search(store *Store, query []float32, k int) ([]Result, error)
}

// Result is a single ranked match.
type Result struct {
	Label    string  `json:"filename"`
	Score    float64 `json:"score"`
	Position int     `json:"-"`
}
