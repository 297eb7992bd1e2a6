// Package ringstat backs the Pool's rolling-window Stats: throughput over
// the last second and average task duration over the last 100 completions
// (spec §4.1, §9 — the rolling-window throughput definition is the one
// this spec requires).
package ringstat

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// ring is a growable ring buffer over an ordered element type, kept
// sorted by construction: callers only ever Push monotonically
// increasing values (timestamps) and RemoveBefore a cutoff, so no
// mid-buffer insert/search capability beyond that is needed.
type ring[E constraints.Ordered] struct {
	s    []E
	r, w uint
}

func newRing[E constraints.Ordered](initialCap int) *ring[E] {
	cap := 1
	for cap < initialCap {
		cap <<= 1
	}
	return &ring[E]{s: make([]E, cap)}
}

func (x *ring[E]) mask(v uint) uint { return v & (uint(len(x.s)) - 1) }

func (x *ring[E]) Len() int { return int(x.w - x.r) }

func (x *ring[E]) Get(i int) E {
	if i < 0 || i >= x.Len() {
		panic("ringstat: index out of range")
	}
	return x.s[x.mask(x.r+uint(i))]
}

// Search returns the index of the first element >= value, assuming the
// buffer is sorted ascending (true for monotonically increasing pushes).
func (x *ring[E]) Search(value E) int {
	return sort.Search(x.Len(), func(i int) bool {
		return x.Get(i) >= value
	})
}

// RemoveBefore discards the first `index` elements (the oldest ones).
func (x *ring[E]) RemoveBefore(index int) {
	if index < 0 || index > x.Len() {
		panic("ringstat: remove before: index out of range")
	}
	x.r += uint(index)
}

// Push appends value at the tail, growing the backing array if full.
func (x *ring[E]) Push(value E) {
	if oldLen := x.Len(); oldLen == len(x.s) {
		grown := make([]E, uint(len(x.s))<<1)
		for i := 0; i < oldLen; i++ {
			grown[i] = x.Get(i)
		}
		x.s = grown
		x.r, x.w = 0, uint(oldLen)
	}
	x.s[x.mask(x.w)] = value
	x.w++
}
