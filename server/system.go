package server

import (
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/teranos/ldx/errors"
)

// System is host memory usage reported on /health.
type System struct {
	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	MemoryPercent float64 `json:"memory_percent"`
}

const gib = 1024 * 1024 * 1024

func systemStats() (*System, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get memory stats")
	}
	if v.Total == 0 {
		return nil, errors.New("host reports zero total memory")
	}
	used := float64(v.Total-v.Available) / gib
	total := float64(v.Total) / gib
	return &System{
		MemoryUsedGB:  used,
		MemoryTotalGB: total,
		MemoryPercent: used / total * 100,
	}, nil
}
