package gpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/procscope/procscope/model"
)

// nvmlProvider reads per-process GPU usage through NVML.
type nvmlProvider struct {
	devices []nvml.Device
}

// NewNVML initializes NVML and returns a provider over all detected
// devices. Callers fall back to Unavailable() on error; the error is meant
// to be logged once, not per tick.
func NewNVML() (Provider, error) {
	if ret := nvml.Init(); !errors.Is(ret, nvml.SUCCESS) {
		return nil, fmt.Errorf("initialize NVML: %s", nvml.ErrorString(ret))
	}
	count, ret := nvml.DeviceGetCount()
	if !errors.Is(ret, nvml.SUCCESS) || count == 0 {
		nvml.Shutdown()
		return nil, fmt.Errorf("no NVIDIA devices found")
	}
	p := &nvmlProvider{devices: make([]nvml.Device, 0, count)}
	for i := 0; i < count; i++ {
		dev, ret := nvml.DeviceGetHandleByIndex(i)
		if errors.Is(ret, nvml.SUCCESS) {
			p.devices = append(p.devices, dev)
		}
	}
	return p, nil
}

func (p *nvmlProvider) Name() string { return "nvml" }

// QueryAll merges the compute and graphics process lists of every device.
// Utilization is the process's device-memory share, matching what the
// driver attributes per process; a pid on several devices keeps its first
// entry with memory summed.
func (p *nvmlProvider) QueryAll(ctx context.Context) (map[int]model.GPUMetrics, error) {
	out := make(map[int]model.GPUMetrics)
	for _, dev := range p.devices {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		mem, ret := dev.GetMemoryInfo()
		if !errors.Is(ret, nvml.SUCCESS) || mem.Total == 0 {
			continue
		}
		procs, ret := dev.GetComputeRunningProcesses()
		if errors.Is(ret, nvml.SUCCESS) {
			mergeProcs(out, procs, mem.Total)
		}
		procs, ret = dev.GetGraphicsRunningProcesses()
		if errors.Is(ret, nvml.SUCCESS) {
			mergeProcs(out, procs, mem.Total)
		}
	}
	return out, nil
}

func mergeProcs(out map[int]model.GPUMetrics, procs []nvml.ProcessInfo, totalMem uint64) {
	for _, pr := range procs {
		pid := int(pr.Pid)
		m := out[pid]
		m.MemoryBytes += pr.UsedGpuMemory
		m.UtilPercent = float64(m.MemoryBytes) / float64(totalMem) * 100
		out[pid] = m
	}
}

func (p *nvmlProvider) Close() error {
	if ret := nvml.Shutdown(); !errors.Is(ret, nvml.SUCCESS) {
		return fmt.Errorf("shutdown NVML: %s", nvml.ErrorString(ret))
	}
	return nil
}
