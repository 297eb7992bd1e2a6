package ringstat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingPushAndGrow(t *testing.T) {
	r := newRing[int](2)
	for i := 0; i < 10; i++ {
		r.Push(i)
	}
	require.Equal(t, 10, r.Len())
	for i := 0; i < 10; i++ {
		assert.Equal(t, i, r.Get(i))
	}
}

func TestRingSearchAndRemoveBefore(t *testing.T) {
	r := newRing[int](4)
	for _, v := range []int{10, 20, 30, 40, 50} {
		r.Push(v)
	}
	idx := r.Search(30)
	assert.Equal(t, 2, idx)
	r.RemoveBefore(idx)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 30, r.Get(0))
}

func TestThroughputRollingWindow(t *testing.T) {
	start := time.Unix(0, 0)
	th := NewThroughput(time.Second)

	th.Record(start)
	th.Record(start.Add(200 * time.Millisecond))
	th.Record(start.Add(900 * time.Millisecond))

	assert.Equal(t, 3, th.Rate(start.Add(900*time.Millisecond)))

	// advance past the 1s window for the first two records
	assert.Equal(t, 1, th.Rate(start.Add(1500*time.Millisecond)))
}

func TestDurationWindowAverage(t *testing.T) {
	dw := NewDurationWindow(3)
	assert.Equal(t, time.Duration(0), dw.Average())

	dw.Record(10 * time.Millisecond)
	dw.Record(20 * time.Millisecond)
	assert.Equal(t, 15*time.Millisecond, dw.Average())

	dw.Record(30 * time.Millisecond)
	dw.Record(60 * time.Millisecond) // evicts the 10ms sample
	assert.Equal(t, (20+30+60)*time.Millisecond/3, dw.Average())
}
