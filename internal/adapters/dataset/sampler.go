// Package dataset loads training trips from CSV and prepares them for
// fitting: seeded row sampling, data-quality filtering and splitting.
package dataset

import (
	"math/rand"
)

// Sampler decides which CSV lines to keep. Line 0 is never skipped and the
// same seed always yields the same sample for the same input order.
type Sampler struct {
	fraction float64
	rng      *rand.Rand
}

// NewSampler creates a sampler keeping roughly fraction of the lines.
// A fraction >= 1 keeps every line.
func NewSampler(fraction float64, seed int64) *Sampler {
	return &Sampler{
		fraction: fraction,
		rng:      rand.New(rand.NewSource(seed)), //nolint:gosec // reproducible sampling
	}
}

// Keep reports whether line index should be kept. It must be called once
// per line in order; each call after line 0 consumes one random draw.
func (s *Sampler) Keep(index int) bool {
	if index == 0 {
		return true
	}
	if s.fraction >= 1 {
		return true
	}
	return s.rng.Float64() <= s.fraction
}
