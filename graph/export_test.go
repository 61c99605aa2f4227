package graph

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procscope/procscope/engine"
	"github.com/procscope/procscope/model"
)

func points(n int) []engine.Point {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pts := make([]engine.Point, n)
	for i := range pts {
		pts[i] = engine.Point{T: t0.Add(time.Duration(i) * 2 * time.Second), V: float64(i)}
	}
	return pts
}

func TestExportRendersAllSeries(t *testing.T) {
	series := []MetricSeries{
		{Metric: model.MetricCPU, Points: points(10)},
		{Metric: model.MetricDiskRead, Points: points(10)},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "pid 1234", series))

	html := buf.String()
	assert.Contains(t, html, model.MetricCPU.Label())
	assert.Contains(t, html, model.MetricDiskRead.Label())
	assert.Contains(t, html, "12:00:02")
}

func TestExportSkipsEmptySeries(t *testing.T) {
	series := []MetricSeries{
		{Metric: model.MetricCPU, Points: points(3)},
		{Metric: model.MetricGPU}, // never recorded
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "x", series))
	assert.NotContains(t, buf.String(), model.MetricGPU.Label())
}

func TestExportNothingToPlot(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Export(&buf, "x", nil))
	assert.Zero(t, buf.Len())
}
