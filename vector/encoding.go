package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// AppendEmbedding appends vec to dst as little-endian IEEE 754 float32
// values without a length prefix and returns the extended buffer.
func AppendEmbedding(dst []byte, vec []float32) []byte {
	var b [4]byte
	for _, v := range vec {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		dst = append(dst, b[:]...)
	}
	return dst
}

// DecodeInto decodes b into dst, which must hold exactly len(b)/4 values.
func DecodeInto(dst []float32, b []byte) error {
	if len(b) != len(dst)*4 {
		return fmt.Errorf("vector: decode size mismatch: %d bytes for %d values", len(b), len(dst))
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return nil
}
