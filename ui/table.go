package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/procscope/procscope/model"
)

func stateCode(s model.ProcState) string {
	switch s {
	case model.StateRunning:
		return "R"
	case model.StateSleeping:
		return "S"
	case model.StateDiskSleep:
		return "D"
	case model.StateZombie:
		return "Z"
	case model.StateStopped:
		return "T"
	}
	return "?"
}

// sortEntities returns a copy sorted descending by the given metric. Entities
// where the metric is not applicable sink to the bottom; entity id breaks
// ties so the order is stable across ticks.
func sortEntities(entities []model.Entity, by model.Metric) []model.Entity {
	out := make([]model.Entity, len(entities))
	copy(out, entities)
	sort.SliceStable(out, func(i, j int) bool {
		vi, oki := out[i].Metrics.Value(by)
		vj, okj := out[j].Metrics.Value(by)
		if oki != okj {
			return oki
		}
		if vi != vj {
			return vi > vj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func fmtBytes(v uint64) string {
	return humanize.IBytes(v)
}

func fmtRate(v float64) string {
	if v < 1 {
		return "0"
	}
	return humanize.IBytes(uint64(v)) + "/s"
}

func fmtGPU(m model.DerivedMetrics) (pct, mem string) {
	v, ok := m.Value(model.MetricGPU)
	if !ok {
		return "-", "-"
	}
	pct = fmt.Sprintf("%.1f", v)
	if m.GPUMemoryBytes != nil {
		mem = fmtBytes(*m.GPUMemoryBytes)
	} else {
		mem = "-"
	}
	return pct, mem
}

const tableColumns = "%7s %-20s %2s %4s %7s %9s %11s %11s %11s %11s %6s %9s"

func tableHeader(by model.Metric) string {
	cols := []struct {
		name   string
		metric model.Metric
	}{
		{"CPU%", model.MetricCPU},
		{"MEM", model.MetricMemory},
		{"DSK R", model.MetricDiskRead},
		{"DSK W", model.MetricDiskWrite},
		{"NET RX", model.MetricNetIn},
		{"NET TX", model.MetricNetOut},
		{"GPU%", model.MetricGPU},
		{"GMEM", model.MetricGPUMemory},
	}
	names := make([]any, 0, len(cols)+4)
	names = append(names, "PID", "NAME", "S", "THR")
	for _, c := range cols {
		name := c.name
		if c.metric == by {
			name = "▼" + name
		}
		names = append(names, name)
	}
	return headerStyle.Render(fmt.Sprintf(tableColumns, names...))
}

func tableRow(e model.Entity, selected bool) string {
	name := e.Leader.Comm
	if e.Approximate {
		name = "~" + name
	}
	if len(name) > 20 {
		name = name[:20]
	}

	gpuPct, gpuMem := fmtGPU(e.Metrics)
	row := fmt.Sprintf(tableColumns,
		fmt.Sprintf("%d", e.ID),
		name,
		stateCode(e.Leader.State),
		fmt.Sprintf("%d", e.ThreadCount),
		fmt.Sprintf("%.1f", e.Metrics.CPUPercent),
		fmtBytes(e.Metrics.MemoryBytes),
		fmtRate(e.Metrics.DiskReadBps),
		fmtRate(e.Metrics.DiskWriteBps),
		fmtRate(e.Metrics.NetInBps),
		fmtRate(e.Metrics.NetOutBps),
		gpuPct,
		gpuMem,
	)

	if selected {
		return selectedStyle.Render(row)
	}
	switch e.Leader.State {
	case model.StateDiskSleep, model.StateZombie:
		return stateStyle(stateCode(e.Leader.State)).Render(row)
	}
	return loadColor(e.Metrics.CPUPercent).Render(row)
}

// renderTable renders the sorted process table, keeping the selected entity
// visible by scrolling the viewport around it.
func renderTable(entities []model.Entity, selectedID int, by model.Metric, height int) string {
	var sb strings.Builder
	sb.WriteString(tableHeader(by))
	sb.WriteString("\n")

	rows := height - 1
	if rows < 1 {
		rows = 1
	}

	selIdx := 0
	for i, e := range entities {
		if e.ID == selectedID {
			selIdx = i
			break
		}
	}
	start := 0
	if selIdx >= rows {
		start = selIdx - rows + 1
	}
	end := start + rows
	if end > len(entities) {
		end = len(entities)
	}

	for i := start; i < end; i++ {
		sb.WriteString(tableRow(entities[i], entities[i].ID == selectedID))
		sb.WriteString("\n")
	}
	return sb.String()
}
