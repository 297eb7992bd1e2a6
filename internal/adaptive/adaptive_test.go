package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wendelmax/tasklets-go/internal/memprobe"
)

func TestEffectiveMaxFloors(t *testing.T) {
	assert.Equal(t, 1, EffectiveMax(2, 8, 0))
	assert.Equal(t, 5, EffectiveMax(10, 8, 0)) // floor(0.7*8) = 5
	assert.Equal(t, 8, EffectiveMax(50, 8, 0))
}

func TestEffectiveMaxCappedByMaxMemoryPercent(t *testing.T) {
	// 90% used >= max_memory_percent(80) blocks entirely.
	assert.Equal(t, 0, EffectiveMax(10 /* free% */, 8, 80))
}

func TestMemoryBlockedDisabledByZero(t *testing.T) {
	p := memprobe.NewFake(99)
	assert.False(t, MemoryBlocked(p, 0))
}

func TestMemoryBlockedTriggersAtThreshold(t *testing.T) {
	p := memprobe.NewFake(85)
	assert.True(t, MemoryBlocked(p, 80))
	assert.False(t, MemoryBlocked(p, 90))
}

func TestShouldProactivelySpawn(t *testing.T) {
	assert.True(t, ShouldProactivelySpawn(true, 4, 2, 8))
	assert.False(t, ShouldProactivelySpawn(false, 10, 2, 8))
	assert.False(t, ShouldProactivelySpawn(true, 3, 2, 8))
	assert.False(t, ShouldProactivelySpawn(true, 10, 8, 8))
}

func TestAdjustIdleTimeoutForBatch(t *testing.T) {
	assert.Equal(t, 7500, AdjustIdleTimeoutForBatch(5000, 51))
	assert.Equal(t, 4000, AdjustIdleTimeoutForBatch(5000, 4))
	assert.Equal(t, 5000, AdjustIdleTimeoutForBatch(5000, 20))
	assert.Equal(t, 30000, AdjustIdleTimeoutForBatch(25000, 100))
	assert.Equal(t, 2000, AdjustIdleTimeoutForBatch(2200, 1))
}
