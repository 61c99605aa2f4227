// Package graph renders recorded metric history as a standalone HTML page.
package graph

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/procscope/procscope/engine"
	"github.com/procscope/procscope/model"
)

// MetricSeries is one metric's recorded points for a single entity.
type MetricSeries struct {
	Metric model.Metric
	Points []engine.Point
}

// CollectEntity pulls every applicable metric series for an entity from the
// monitor. Metrics with no recorded points (GPU on a machine without one)
// are omitted.
func CollectEntity(m *engine.Monitor, entityID int, window time.Duration) []MetricSeries {
	var out []MetricSeries
	for _, metric := range model.AllMetrics() {
		pts := m.History(entityID, metric, window)
		if len(pts) == 0 {
			continue
		}
		out = append(out, MetricSeries{Metric: metric, Points: pts})
	}
	return out
}

// Export writes one line chart per series to w as a self-contained HTML
// page. Fails when there is nothing to plot.
func Export(w io.Writer, title string, series []MetricSeries) error {
	page := components.NewPage()
	page.PageTitle = title

	added := 0
	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		page.AddCharts(lineChart(s))
		added++
	}
	if added == 0 {
		return fmt.Errorf("no recorded points to export")
	}
	return page.Render(w)
}

// ExportFile renders the page to a file.
func ExportFile(path, title string, series []MetricSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Export(f, title, series); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func lineChart(s MetricSeries) *charts.Line {
	line := charts.NewLine()

	vals := make([]float64, len(s.Points))
	xLabels := make([]string, len(s.Points))
	data := make([]opts.LineData, len(s.Points))
	for i, p := range s.Points {
		vals[i] = p.V
		xLabels[i] = p.T.Format("15:04:05")
		data[i] = opts.LineData{Value: p.V}
	}

	ax := engine.NiceScale(vals, s.Metric.IsPercent(), s.Metric.IsBytes())
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    s.Metric.Label(),
			Subtitle: fmt.Sprintf("peak scale %s", ax.FormatTick(ax.Max)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)

	line.SetXAxis(xLabels).AddSeries("", data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.2)}),
	)
	return line
}
