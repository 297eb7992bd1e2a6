package memprobe

import (
	"math"
	"sync/atomic"
)

// Fake is a test double whose used-percent can be set at will, to drive
// the memory-floor and max_memory_percent scenarios (spec §8 S5)
// deterministically.
type Fake struct {
	usedPercentBits atomic.Uint64
}

// NewFake creates a Fake reporting the given used-percent.
func NewFake(usedPercent float64) *Fake {
	f := &Fake{}
	f.Set(usedPercent)
	return f
}

func (f *Fake) Set(usedPercent float64) {
	f.usedPercentBits.Store(math.Float64bits(usedPercent))
}

func (f *Fake) UsedPercent() (float64, error) {
	return math.Float64frombits(f.usedPercentBits.Load()), nil
}
