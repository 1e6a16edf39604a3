package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendEmbedding_RoundTrip(t *testing.T) {
	orig := []float32{0.0, 1.5, -2.25, 3.75}
	buf := AppendEmbedding(nil, orig)
	require.Len(t, buf, 16)

	decoded := make([]float32, len(orig))
	require.NoError(t, DecodeInto(decoded, buf))
	assert.Equal(t, orig, decoded)
}

func TestAppendEmbedding_LittleEndian(t *testing.T) {
	buf := AppendEmbedding([]byte{0xff}, []float32{1})
	assert.Equal(t, []byte{0xff, 0x00, 0x00, 0x80, 0x3f}, buf)
	assert.Empty(t, AppendEmbedding(nil, nil))
}

func TestDecodeInto_Rows(t *testing.T) {
	buf := AppendEmbedding(nil, []float32{1, 2})
	buf = AppendEmbedding(buf, []float32{3, float32(math.Inf(-1))})

	dst := make([]float32, 4)
	require.NoError(t, DecodeInto(dst, buf))
	assert.Equal(t, []float32{1, 2, 3, float32(math.Inf(-1))}, dst)

	assert.Error(t, DecodeInto(make([]float32, 3), buf))
	assert.Error(t, DecodeInto(make([]float32, 1), []byte{1, 2, 3}))
}
