// Package embed turns raw image bytes into unit-length feature vectors.
package embed

import (
	"context"
	"errors"
	"os"

	pkgerrors "github.com/pkg/errors"

	"github.com/viant/imgsim/vector"
)

// ErrEmbedding reports that a provider could not produce a vector for an
// input. Callers building an index treat it as a per-item skip.
var ErrEmbedding = errors.New("embed: embedding failed")

// Provider maps image bytes to a fixed-dimension unit vector.
type Provider interface {
	// ID identifies the model; vectors from different IDs are not comparable.
	ID() string
	// Embed returns the vector for an encoded image.
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

// Func adapts a function to the Provider interface.
type Func struct {
	Name string
	Fn   func(ctx context.Context, image []byte) ([]float32, error)
}

// ID implements Provider.
func (f Func) ID() string { return f.Name }

// Embed implements Provider.
func (f Func) Embed(ctx context.Context, image []byte) ([]float32, error) {
	return f.Fn(ctx, image)
}

// File reads path and embeds its contents with p.
func File(ctx context.Context, p Provider, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrEmbedding, "read %s: %v", path, err)
	}
	return p.Embed(ctx, data)
}

// unit normalizes raw model output, rejecting empty, zero and non-finite
// vectors.
func unit(raw []float32) ([]float32, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.Wrap(ErrEmbedding, "empty vector")
	}
	v, err := vector.Normalize(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(ErrEmbedding, err.Error())
	}
	return v, nil
}
