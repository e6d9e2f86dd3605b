package registry

import (
	"github.com/shirou/gopsutil/v3/mem"
)

// Statistics summarizes the registry for health reporting.
type Statistics struct {
	Total           int     `json:"total"`
	Active          int     `json:"active"`
	Fallback        int     `json:"fallback"`
	MemoryUsedMB    float64 `json:"memoryUsedMb,omitempty"`
	MemoryUsedPct   float64 `json:"memoryUsedPct,omitempty"`
	MemoryAvailable bool    `json:"memoryAvailable"`
}

// GetStatistics returns instance counts plus system memory usage where
// available.
func (r *Registry) GetStatistics() Statistics {
	r.mu.RLock()
	stats := Statistics{Total: len(r.instances)}
	for _, rec := range r.instances {
		if rec.IsFallback {
			stats.Fallback++
		} else {
			stats.Active++
		}
	}
	r.mu.RUnlock()

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryUsedMB = float64(vm.Used) / 1024 / 1024
		stats.MemoryUsedPct = vm.UsedPercent
		stats.MemoryAvailable = true
	}
	return stats
}
