// Package adaptive implements the AdaptiveController: the periodic
// computation of an effective-max worker bound from memory pressure, and
// the proactive-spawn / idle-timeout-adjustment heuristics that drive
// scale-up under backlog (spec §4.6).
package adaptive

import (
	"math"

	"github.com/wendelmax/tasklets-go/internal/memprobe"
)

// EffectiveMax applies the memory-pressure safety floors from spec §4.4
// and §4.6 on top of the configured maxWorkers, further capped by
// maxMemoryPercent (0 disables the user cap).
func EffectiveMax(freePercent float64, maxWorkers int, maxMemoryPercent int) int {
	var bound int
	switch {
	case freePercent < 5:
		bound = 1
	case freePercent < 15:
		bound = int(math.Floor(0.7 * float64(maxWorkers)))
	default:
		bound = maxWorkers
	}
	if bound < 1 {
		bound = 1
	}
	if bound > maxWorkers {
		bound = maxWorkers
	}
	if maxMemoryPercent > 0 {
		usedPercent := 100 - freePercent
		if usedPercent >= float64(maxMemoryPercent) {
			// Memory block: no new spawns at all, independent of the
			// floor-derived bound.
			bound = 0
		}
	}
	return bound
}

// MemoryBlocked reports whether new worker creation must be skipped
// because usage has reached the user's max_memory_percent cap (spec
// §4.4). maxMemoryPercent == 0 disables the user limit. A probe read
// error is treated as non-blocking — the dispatcher falls back to its
// capacity check alone rather than wedging submission on a transient
// probe failure.
func MemoryBlocked(probe memprobe.Probe, maxMemoryPercent int) bool {
	if maxMemoryPercent <= 0 {
		return false
	}
	used, err := probe.UsedPercent()
	if err != nil {
		return false
	}
	return used >= float64(maxMemoryPercent)
}

// ShouldProactivelySpawn reports whether the controller should attempt
// one proactive spawn this tick (spec §4.6 point 3).
func ShouldProactivelySpawn(adaptiveEnabled bool, queueLength, liveWorkers, effectiveMax int) bool {
	return adaptiveEnabled && queueLength > 3 && liveWorkers < effectiveMax
}

const (
	minIdleTimeoutMs = 2000
	maxIdleTimeoutMs = 30000
)

// AdjustIdleTimeoutForBatch applies the batch-size heuristic from spec
// §4.6 point 4: a large batch relaxes the idle timeout (fewer thrash
// respawns), a small batch tightens it (faster reclamation). Applied
// once per batch submission call, never per maintenance tick.
func AdjustIdleTimeoutForBatch(currentMs int, batchSize int) int {
	switch {
	case batchSize > 50:
		adjusted := int(math.Round(float64(currentMs) * 1.5))
		if adjusted > maxIdleTimeoutMs {
			adjusted = maxIdleTimeoutMs
		}
		return adjusted
	case batchSize < 5:
		adjusted := int(math.Round(float64(currentMs) * 0.8))
		if adjusted < minIdleTimeoutMs {
			adjusted = minIdleTimeoutMs
		}
		return adjusted
	default:
		return currentMs
	}
}
