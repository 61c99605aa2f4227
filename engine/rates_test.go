package engine

import (
	"testing"
	"time"

	"github.com/procscope/procscope/model"
	"github.com/stretchr/testify/assert"
)

func TestComputeRatesCPUPercent(t *testing.T) {
	// 50 ticks over 1s at 100 ticks/s is half a core.
	prev := model.RawSample{PID: 1, CPUTicks: 100}
	curr := model.RawSample{PID: 1, CPUTicks: 150}

	d := ComputeRates(prev, curr, time.Second, 100)
	assert.InDelta(t, 50.0, d.CPUPercent, 0.001)
}

func TestComputeRatesByteRates(t *testing.T) {
	prev := model.RawSample{PID: 1, ReadBytes: 1000, WriteBytes: 0, NetRxBytes: 500, NetTxBytes: 100}
	curr := model.RawSample{PID: 1, ReadBytes: 3000, WriteBytes: 4000, NetRxBytes: 1500, NetTxBytes: 100, RSS: 42}

	d := ComputeRates(prev, curr, 2*time.Second, 100)
	assert.InDelta(t, 1000.0, d.DiskReadBps, 0.001)
	assert.InDelta(t, 2000.0, d.DiskWriteBps, 0.001)
	assert.InDelta(t, 500.0, d.NetInBps, 0.001)
	assert.Zero(t, d.NetOutBps)
	assert.Equal(t, uint64(42), d.MemoryBytes)
}

func TestComputeRatesClampNonNegative(t *testing.T) {
	// Decreasing counters (wrap or pid reuse) must clamp to zero, never go
	// negative.
	prev := model.RawSample{PID: 1, CPUTicks: 900, ReadBytes: 9000, WriteBytes: 9000, NetRxBytes: 9000, NetTxBytes: 9000}
	curr := model.RawSample{PID: 1, CPUTicks: 100, ReadBytes: 100, WriteBytes: 100, NetRxBytes: 100, NetTxBytes: 100}

	d := ComputeRates(prev, curr, time.Second, 100)
	for _, metric := range model.AllMetrics() {
		v, ok := d.Value(metric)
		if !ok {
			continue
		}
		assert.GreaterOrEqual(t, v, 0.0, "metric %s", metric)
	}
}

func TestComputeRatesZeroElapsed(t *testing.T) {
	prev := model.RawSample{PID: 1, CPUTicks: 100}
	curr := model.RawSample{PID: 1, CPUTicks: 200, RSS: 7}

	for _, elapsed := range []time.Duration{0, -time.Second} {
		d := ComputeRates(prev, curr, elapsed, 100)
		assert.Zero(t, d.CPUPercent)
		assert.Zero(t, d.DiskReadBps)
		assert.Equal(t, uint64(7), d.MemoryBytes, "absolute fields still reported")
	}
}

func TestComputeRatesMultiCoreGroup(t *testing.T) {
	// A thread group using 3 cores flat reports 300% of one core.
	prev := model.RawSample{PID: 1, CPUTicks: 0}
	curr := model.RawSample{PID: 1, CPUTicks: 600}

	d := ComputeRates(prev, curr, 2*time.Second, 100)
	assert.InDelta(t, 300.0, d.CPUPercent, 0.001)
}

func TestSystemCPUPercent(t *testing.T) {
	tests := []struct {
		name string
		prev model.SystemStats
		curr model.SystemStats
		want float64
	}{
		{"half busy", model.SystemStats{TotalCPUTicks: 1000, BusyCPUTicks: 100}, model.SystemStats{TotalCPUTicks: 1200, BusyCPUTicks: 200}, 50},
		{"idle", model.SystemStats{TotalCPUTicks: 1000, BusyCPUTicks: 100}, model.SystemStats{TotalCPUTicks: 1200, BusyCPUTicks: 100}, 0},
		{"no progress", model.SystemStats{TotalCPUTicks: 1000, BusyCPUTicks: 100}, model.SystemStats{TotalCPUTicks: 1000, BusyCPUTicks: 100}, 0},
		{"wrap clamps", model.SystemStats{TotalCPUTicks: 2000, BusyCPUTicks: 500}, model.SystemStats{TotalCPUTicks: 1000, BusyCPUTicks: 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SystemCPUPercent(tt.prev, tt.curr), 0.001)
		})
	}
}
