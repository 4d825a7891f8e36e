// Package diagnostics collects the host and dependency information
// surfaced by the doctor command.
package diagnostics

import (
	"runtime"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// GPUDevice describes one detected GPU (best-effort).
type GPUDevice struct {
	Vendor string `json:"vendor,omitempty"`
	Name   string `json:"name"`
}

// SystemSnapshot holds a point-in-time view of host resources.
type SystemSnapshot struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`

	CPUModel   string  `json:"cpu_model"`
	CPUCores   int     `json:"cpu_cores"`
	CPUPercent float64 `json:"cpu_percent"`

	MemTotalMB float64 `json:"mem_total_mb"`
	MemUsedMB  float64 `json:"mem_used_mb"`
	MemPercent float64 `json:"mem_percent"`

	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskPercent float64 `json:"disk_percent"`

	LoadAvg1  float64 `json:"load_avg_1"`
	LoadAvg5  float64 `json:"load_avg_5"`
	LoadAvg15 float64 `json:"load_avg_15"`

	GPUs []GPUDevice `json:"gpus,omitempty"`
}

// CollectSystem gathers a host snapshot. Every probe is best-effort;
// fields stay zero when a source is unavailable.
func CollectSystem() SystemSnapshot {
	snap := SystemSnapshot{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		snap.CPUModel = infos[0].ModelName
	}
	snap.CPUCores = runtime.NumCPU()
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemTotalMB = float64(vm.Total) / 1024 / 1024
		snap.MemUsedMB = float64(vm.Used) / 1024 / 1024
		snap.MemPercent = vm.UsedPercent
	}

	if usage, err := disk.Usage("/"); err == nil {
		snap.DiskTotalGB = float64(usage.Total) / 1024 / 1024 / 1024
		snap.DiskUsedGB = float64(usage.Used) / 1024 / 1024 / 1024
		snap.DiskPercent = usage.UsedPercent
	}

	if avg, err := load.Avg(); err == nil {
		snap.LoadAvg1 = avg.Load1
		snap.LoadAvg5 = avg.Load5
		snap.LoadAvg15 = avg.Load15
	}

	if gpu, err := ghw.GPU(); err == nil {
		for _, card := range gpu.GraphicsCards {
			device := GPUDevice{Name: "unknown"}
			if card.DeviceInfo != nil {
				if card.DeviceInfo.Product != nil {
					device.Name = card.DeviceInfo.Product.Name
				}
				if card.DeviceInfo.Vendor != nil {
					device.Vendor = card.DeviceInfo.Vendor.Name
				}
			}
			snap.GPUs = append(snap.GPUs, device)
		}
	}

	return snap
}
