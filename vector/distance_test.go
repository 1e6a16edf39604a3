package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	assert.InDelta(t, 0.7, Dot([]float32{0.7, 0.7}, []float32{1, 0}), 1e-6)
	assert.Equal(t, 0.0, Dot(nil, nil))
}

func TestNormalize(t *testing.T) {
	n, err := Normalize([]float32{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, n[0], 1e-6)
	assert.InDelta(t, 0.8, n[1], 1e-6)
	assert.True(t, IsUnit(n))
	assert.False(t, IsUnit([]float32{3, 4}))

	_, err = Normalize([]float32{0, 0})
	assert.Error(t, err)
	_, err = Normalize([]float32{float32(math.Inf(1)), 0})
	assert.Error(t, err)
}

func TestMagnitude(t *testing.T) {
	assert.InDelta(t, 5, Magnitude([]float32{3, 4}), 1e-6)
	assert.Equal(t, float32(0), Magnitude(nil))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite([]float32{0.6, -0.8}))
	assert.True(t, IsFinite(nil))
	assert.False(t, IsFinite([]float32{1, float32(math.NaN())}))
	assert.False(t, IsFinite([]float32{float32(math.Inf(-1))}))
}
