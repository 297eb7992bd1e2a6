// Package memprobe reports system memory pressure as a percentage, the
// input the AdaptiveController samples every maintenance tick (spec §4.6).
package memprobe

import (
	"github.com/shirou/gopsutil/v3/mem"
)

// Probe reports memory pressure.
type Probe interface {
	// UsedPercent returns the fraction (0-100) of system memory in use.
	UsedPercent() (float64, error)
}

// System is the production Probe, backed by gopsutil's cross-platform
// /proc/meminfo (Linux), Mach host stats (Darwin), and GlobalMemoryStatusEx
// (Windows) readers.
type System struct{}

func (System) UsedPercent() (float64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return v.UsedPercent, nil
}

// FreePercent is a convenience derived from UsedPercent, since the
// AdaptiveController's safety-floor thresholds (spec §4.4/§4.6) are
// expressed in terms of free memory.
func FreePercent(p Probe) (float64, error) {
	used, err := p.UsedPercent()
	if err != nil {
		return 0, err
	}
	return 100 - used, nil
}
