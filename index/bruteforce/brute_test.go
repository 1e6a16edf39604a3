package bruteforce

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/imgsim/index"
)

func mustStore(t *testing.T, labels []string, rows [][]float32) *index.Store {
	t.Helper()
	s, err := index.FromRows(labels, rows, index.Meta{})
	require.NoError(t, err)
	return s
}

func TestSearch_TopK(t *testing.T) {
	store := mustStore(t, []string{"a", "b", "c"}, [][]float32{{1, 0}, {0, 1}, {0.7, 0.7}})

	got, err := New().Search(store, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Label)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.Equal(t, "c", got[1].Label)
	assert.InDelta(t, 0.7, got[1].Score, 1e-6)
	assert.Equal(t, 2, got[1].Position)
}

func TestSearch_KLargerThanStore(t *testing.T) {
	store := mustStore(t, []string{"a", "b", "c"}, [][]float32{{1, 0}, {0, 1}, {0.7, 0.7}})

	got, err := New().Search(store, []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
	assert.Equal(t, []string{"b", "c", "a"}, []string{got[0].Label, got[1].Label, got[2].Label})
}

func TestSearch_TiesByPosition(t *testing.T) {
	rows := [][]float32{{0, 1}, {1, 0}, {0, 1}, {1, 0}, {1, 0}}
	store := mustStore(t, []string{"p0", "p1", "p2", "p3", "p4"}, rows)

	for run := 0; run < 5; run++ {
		got, err := New().Search(store, []float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].Position)
		assert.Equal(t, 3, got[1].Position)
	}

	all, err := New().Search(store, []float32{1, 0}, 5)
	require.NoError(t, err)
	positions := make([]int, len(all))
	for i, r := range all {
		positions[i] = r.Position
	}
	assert.Equal(t, []int{1, 3, 4, 0, 2}, positions)
}

func TestSearch_EmptyStore(t *testing.T) {
	store := mustStore(t, nil, nil)

	got, err := New().Search(store, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearch_Errors(t *testing.T) {
	store := mustStore(t, []string{"a"}, [][]float32{{1, 0}})

	_, err := New().Search(store, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)

	_, err = New().Search(store, []float32{1, 0}, 0)
	assert.ErrorIs(t, err, index.ErrInvalidArgument)

	_, err = New().Search(store, []float32{1, 0}, -2)
	assert.ErrorIs(t, err, index.ErrInvalidArgument)
}

func TestSearch_NonFiniteQuery(t *testing.T) {
	store := mustStore(t, []string{"a"}, [][]float32{{1, 0}})

	for _, q := range [][]float32{
		{float32(math.NaN()), 0},
		{float32(math.Inf(1)), 0},
		{0, float32(math.Inf(-1))},
	} {
		_, err := New().Search(store, q, 1)
		assert.ErrorIs(t, err, index.ErrInvalidArgument)
	}
}

func TestSearch_NaNRanksLast(t *testing.T) {
	nan := float32(math.NaN())
	store := mustStore(t, []string{"n", "low", "high"}, [][]float32{{nan, 0}, {-1, 0}, {1, 0}})

	got, err := New().Search(store, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"high", "low", "n"}, []string{got[0].Label, got[1].Label, got[2].Label})
	assert.True(t, math.IsNaN(got[2].Score))

	top, err := New().Search(store, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, "high", top[0].Label)
	assert.Equal(t, "low", top[1].Label)
}
