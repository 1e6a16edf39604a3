// Package index defines the embedding index: an immutable store of unit
// vectors paired by position with labels, its validation report, its
// two-artifact on-disk layout, and the Scorer contract used to answer top-K
// queries against it.
package index
