package engine

import (
	"time"

	"github.com/procscope/procscope/model"
	"github.com/procscope/procscope/util"
)

// ComputeRates derives per-entity rate metrics from two aggregate samples of
// the same entity and the wall time between them.
//
// CPU% convention: percent of a single core, so a thread group saturating
// four cores reports 400. Consumers that want a whole-machine share divide
// by Snapshot.System.NumCPUs.
//
// Every rate clamps at zero on counter decrease (wrap, pid reuse) and a
// non-positive elapsed reports zero rates rather than dividing by zero.
func ComputeRates(prev, curr model.RawSample, elapsed time.Duration, ticksPerSec uint64) model.DerivedMetrics {
	d := model.DerivedMetrics{MemoryBytes: curr.RSS}
	if elapsed <= 0 {
		return d
	}
	if ticksPerSec == 0 {
		ticksPerSec = 100
	}

	tickDelta := util.Delta(prev.CPUTicks, curr.CPUTicks)
	cpuSeconds := float64(tickDelta) / float64(ticksPerSec)
	d.CPUPercent = cpuSeconds / elapsed.Seconds() * 100

	d.DiskReadBps = util.Rate(prev.ReadBytes, curr.ReadBytes, elapsed)
	d.DiskWriteBps = util.Rate(prev.WriteBytes, curr.WriteBytes, elapsed)
	d.NetInBps = util.Rate(prev.NetRxBytes, curr.NetRxBytes, elapsed)
	d.NetOutBps = util.Rate(prev.NetTxBytes, curr.NetTxBytes, elapsed)
	return d
}

// SystemCPUPercent computes the whole-machine busy percentage between two
// system stat reads, on a 0-100 scale regardless of core count.
func SystemCPUPercent(prev, curr model.SystemStats) float64 {
	dtotal := util.Delta(prev.TotalCPUTicks, curr.TotalCPUTicks)
	if dtotal == 0 {
		return 0
	}
	dbusy := util.Delta(prev.BusyCPUTicks, curr.BusyCPUTicks)
	pct := float64(dbusy) / float64(dtotal) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
