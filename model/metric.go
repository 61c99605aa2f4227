package model

// Metric identifies one of the tracked per-entity series. The set is closed:
// graph and column code switches on it rather than looking fields up by name.
type Metric int

const (
	MetricCPU Metric = iota
	MetricMemory
	MetricDiskRead
	MetricDiskWrite
	MetricNetIn
	MetricNetOut
	MetricGPU
	MetricGPUMemory
	numMetrics
)

// AllMetrics returns every metric kind in display order.
func AllMetrics() []Metric {
	out := make([]Metric, 0, numMetrics)
	for m := Metric(0); m < numMetrics; m++ {
		out = append(out, m)
	}
	return out
}

func (m Metric) String() string {
	switch m {
	case MetricCPU:
		return "cpu"
	case MetricMemory:
		return "memory"
	case MetricDiskRead:
		return "disk_read"
	case MetricDiskWrite:
		return "disk_write"
	case MetricNetIn:
		return "net_in"
	case MetricNetOut:
		return "net_out"
	case MetricGPU:
		return "gpu"
	case MetricGPUMemory:
		return "gpu_memory"
	}
	return "unknown"
}

// Label returns the human-readable graph title.
func (m Metric) Label() string {
	switch m {
	case MetricCPU:
		return "CPU %"
	case MetricMemory:
		return "Memory"
	case MetricDiskRead:
		return "Disk Read/s"
	case MetricDiskWrite:
		return "Disk Write/s"
	case MetricNetIn:
		return "Net In/s"
	case MetricNetOut:
		return "Net Out/s"
	case MetricGPU:
		return "GPU %"
	case MetricGPUMemory:
		return "GPU Memory"
	}
	return "?"
}

// IsPercent reports whether the metric is plotted on a percentage axis.
func (m Metric) IsPercent() bool {
	return m == MetricCPU || m == MetricGPU
}

// IsBytes reports whether the metric's values are byte quantities
// (absolute or per second).
func (m Metric) IsBytes() bool {
	switch m {
	case MetricMemory, MetricDiskRead, MetricDiskWrite, MetricNetIn, MetricNetOut, MetricGPUMemory:
		return true
	}
	return false
}

// GPUMetrics is the per-process result of a GPU provider query.
type GPUMetrics struct {
	MemoryBytes uint64
	UtilPercent float64
}

// DerivedMetrics holds the rates computed for one entity in one tick.
// GPU fields are nil when no provider result exists for the entity, which
// renders as "N/A" rather than zero.
type DerivedMetrics struct {
	CPUPercent     float64 // percent of one core; thread groups may exceed 100
	MemoryBytes    uint64
	DiskReadBps    float64
	DiskWriteBps   float64
	NetInBps       float64
	NetOutBps      float64
	GPUPercent     *float64
	GPUMemoryBytes *uint64
}

// Value returns the metric's numeric value and whether it is applicable.
// GPU metrics report ok=false when the provider was unavailable.
func (d DerivedMetrics) Value(m Metric) (float64, bool) {
	switch m {
	case MetricCPU:
		return d.CPUPercent, true
	case MetricMemory:
		return float64(d.MemoryBytes), true
	case MetricDiskRead:
		return d.DiskReadBps, true
	case MetricDiskWrite:
		return d.DiskWriteBps, true
	case MetricNetIn:
		return d.NetInBps, true
	case MetricNetOut:
		return d.NetOutBps, true
	case MetricGPU:
		if d.GPUPercent == nil {
			return 0, false
		}
		return *d.GPUPercent, true
	case MetricGPUMemory:
		if d.GPUMemoryBytes == nil {
			return 0, false
		}
		return float64(*d.GPUMemoryBytes), true
	}
	return 0, false
}
