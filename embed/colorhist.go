package embed

import (
	"context"
	"math"
)

const (
	// ColorHistID identifies the colour histogram provider.
	ColorHistID = "colorhist-v1"
	// ColorHistDim is the dimension of colour histogram vectors.
	ColorHistDim = binsPerChannel * binsPerChannel * binsPerChannel

	binsPerChannel = 4
)

// ColorHist embeds an image as a 4×4×4 RGB histogram of its opaque pixels.
// Bin counts are square-rooted before normalization. It needs no model and
// is deterministic.
type ColorHist struct{}

// NewColorHist returns the colour histogram provider.
func NewColorHist() *ColorHist { return &ColorHist{} }

// ID implements Provider.
func (c *ColorHist) ID() string { return ColorHistID }

// Embed implements Provider.
func (c *ColorHist) Embed(ctx context.Context, data []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	img = shrink(img)
	var bins [ColorHistDim]float64
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			bins[bin(r)*binsPerChannel*binsPerChannel+bin(g)*binsPerChannel+bin(bl)]++
		}
	}
	raw := make([]float32, ColorHistDim)
	for i, n := range bins {
		raw[i] = float32(math.Sqrt(n))
	}
	return unit(raw)
}

// bin maps a 16-bit channel value to one of binsPerChannel buckets.
func bin(c uint32) int {
	return int(c>>8) * binsPerChannel / 256
}

var _ Provider = (*ColorHist)(nil)
