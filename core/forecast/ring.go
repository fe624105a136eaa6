package forecast

import (
	"math"
	"sync"
)

// Ring keeps the last n values received for a forecast stream.
type Ring struct {
	mu     sync.Mutex
	values []float64
	next   int
	count  int
}

// NewRing creates a ring holding n values.
func NewRing(n int) *Ring {
	if n <= 0 {
		n = 1
	}
	return &Ring{values: make([]float64, n)}
}

// Push appends a value, dropping the oldest when the ring is full.
func (r *Ring) Push(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[r.next] = v
	r.next = (r.next + 1) % len(r.values)
	if r.count < len(r.values) {
		r.count++
	}
}

// Len returns the number of values received so far, capped at the capacity.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Values returns the values oldest first. Missing positions are NaN so that
// Fill can complete a partially received window.
func (r *Ring) Values() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.values)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	start := (r.next - r.count + n) % n
	for i := 0; i < r.count; i++ {
		out[i] = r.values[(start+i)%n]
	}
	return out
}
