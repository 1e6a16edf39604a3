// Package vector holds the float32 helpers shared by the index, the builder
// and the embedding providers: dot products, magnitudes, L2 normalization and
// the little-endian float32 encoding used by the on-disk vector matrix.
package vector
