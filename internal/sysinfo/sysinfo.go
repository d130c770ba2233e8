// Package sysinfo reports host resources for status endpoints and for
// choosing sensible defaults on constrained machines.
package sysinfo

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Report is a point-in-time view of host resources.
type Report struct {
	Platform          string  `json:"platform"`
	CPUCount          int     `json:"cpu_count"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryTotalMB     uint64  `json:"memory_total_mb"`
	MemoryAvailableMB uint64  `json:"memory_available_mb"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	DiskTotalGB       float64 `json:"disk_total_gb"`
	DiskFreeGB        float64 `json:"disk_free_gb"`
	DiskUsedPercent   float64 `json:"disk_used_percent"`
}

// Collect gathers a Report. storagePath selects the filesystem whose disk
// figures are reported; individual probe failures leave fields zeroed rather
// than failing the whole report.
func Collect(storagePath string) Report {
	var r Report

	if info, err := host.Info(); err == nil {
		r.Platform = info.OS + " " + info.PlatformVersion
	}
	if n, err := cpu.Counts(true); err == nil {
		r.CPUCount = n
	}
	if pct, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(pct) > 0 {
		r.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.MemoryTotalMB = vm.Total / (1 << 20)
		r.MemoryAvailableMB = vm.Available / (1 << 20)
		r.MemoryUsedPercent = vm.UsedPercent
	}
	if storagePath != "" {
		if du, err := disk.Usage(storagePath); err == nil {
			r.DiskTotalGB = float64(du.Total) / (1 << 30)
			r.DiskFreeGB = float64(du.Free) / (1 << 30)
			r.DiskUsedPercent = du.UsedPercent
		}
	}
	return r
}
