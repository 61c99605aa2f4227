package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procscope/procscope/engine"
	"github.com/procscope/procscope/model"
)

func TestResample(t *testing.T) {
	data := []float64{0, 10, 20, 30, 40, 50, 60, 70}

	down := resample(data, 4)
	require.Len(t, down, 4)
	assert.Equal(t, 5.0, down[0], "bucket average")
	assert.Equal(t, 65.0, down[3])

	short := resample([]float64{1, 2}, 10)
	assert.Len(t, short, 2, "sparse history stays left-aligned")

	assert.Empty(t, resample(nil, 10))
}

func TestAreaChartRenders(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pts := make([]engine.Point, 30)
	vals := make([]float64, 30)
	for i := range pts {
		pts[i] = engine.Point{T: t0.Add(time.Duration(i) * 2 * time.Second), V: float64(i * 3)}
		vals[i] = pts[i].V
	}
	ax := engine.NiceScale(vals, true, false)

	out := areaChart(pts, ax, "CPU %", 60, 8, ratioColor)
	assert.Contains(t, out, "CPU %")
	assert.Contains(t, out, "100%", "axis labeled with the nice maximum")
	assert.Contains(t, out, "12:00:00", "window start on the x axis")
	assert.Contains(t, out, "█")
}

func TestSortEntities(t *testing.T) {
	g := 55.0
	entities := []model.Entity{
		{ID: 1, Metrics: model.DerivedMetrics{CPUPercent: 10}},
		{ID: 2, Metrics: model.DerivedMetrics{CPUPercent: 90, GPUPercent: &g}},
		{ID: 3, Metrics: model.DerivedMetrics{CPUPercent: 50}},
	}

	byCPU := sortEntities(entities, model.MetricCPU)
	assert.Equal(t, []int{2, 3, 1}, []int{byCPU[0].ID, byCPU[1].ID, byCPU[2].ID})

	byGPU := sortEntities(entities, model.MetricGPU)
	assert.Equal(t, 2, byGPU[0].ID, "only applicable entity leads")

	assert.Len(t, entities, 3, "input order untouched")
	assert.Equal(t, 1, entities[0].ID)
}

func TestTableRowNA(t *testing.T) {
	e := model.Entity{
		ID:          42,
		Leader:      model.RawSample{Comm: "worker", State: model.StateRunning},
		ThreadCount: 4,
		Metrics:     model.DerivedMetrics{CPUPercent: 12.5, MemoryBytes: 1 << 20},
	}
	row := tableRow(e, false)
	assert.Contains(t, row, "worker")
	assert.Contains(t, row, "-", "GPU columns show N/A, never zero")
	assert.NotContains(t, row, "0.0 B")
}

func TestNextRetentionCycles(t *testing.T) {
	first := engine.RetentionPresets[0]
	last := engine.RetentionPresets[len(engine.RetentionPresets)-1]
	assert.Equal(t, engine.RetentionPresets[1], nextRetention(first))
	assert.Equal(t, first, nextRetention(last), "wraps to the shortest preset")
	assert.Equal(t, first, nextRetention(42*time.Second), "unknown values reset")
}

func TestFormatWindow(t *testing.T) {
	assert.Equal(t, "2m", formatWindow(2*time.Minute))
	assert.Equal(t, "90s", formatWindow(90*time.Second))
}

func TestStateCode(t *testing.T) {
	assert.Equal(t, "R", stateCode(model.StateRunning))
	assert.Equal(t, "Z", stateCode(model.StateZombie))
	assert.Equal(t, "?", stateCode(model.StateOther))
}

func TestHeaderMarksDegraded(t *testing.T) {
	m := Model{snap: &model.Snapshot{
		Timestamp: time.Now().Add(-6 * time.Second),
		Degraded:  true,
		System:    model.SystemStats{NumCPUs: 2},
	}}
	h := m.headerLine()
	assert.Contains(t, h, "STALE")
}

func TestResampleAverageKeepsRange(t *testing.T) {
	data := make([]float64, 1000)
	for i := range data {
		data[i] = 50
	}
	out := resample(data, 40)
	require.Len(t, out, 40)
	for _, v := range out {
		assert.Equal(t, 50.0, v)
	}
}
