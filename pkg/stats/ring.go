// Package stats provides windowed statistics used to denoise position streams:
// a fixed-capacity ring of samples and a mean/standard-deviation outlier filter.
// Nothing here knows about pixels or video; every axis is an independent Ring.
package stats

// Ring is a fixed-capacity FIFO of float64 samples.
// When full, pushing a new sample evicts the oldest one.
type Ring struct {
	data []float64
	pos  int
	full bool
}

// NewRing creates a Ring with the given capacity (minimum 1).
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{data: make([]float64, capacity)}
}

// Push adds a value, evicting the oldest when at capacity.
func (r *Ring) Push(v float64) {
	r.data[r.pos] = v
	r.pos++
	if r.pos >= len(r.data) {
		r.pos = 0
		r.full = true
	}
}

// Len returns the number of stored samples.
func (r *Ring) Len() int {
	if r.full {
		return len(r.data)
	}
	return r.pos
}

// Cap returns the capacity.
func (r *Ring) Cap() int {
	return len(r.data)
}

// Reset drops all samples.
func (r *Ring) Reset() {
	r.pos = 0
	r.full = false
}

// Slice returns the samples oldest first.
func (r *Ring) Slice() []float64 {
	out := make([]float64, r.Len())
	if r.full {
		n := copy(out, r.data[r.pos:])
		copy(out[n:], r.data[:r.pos])
	} else {
		copy(out, r.data[:r.pos])
	}
	return out
}
