// Package ui is the interactive terminal front end. It renders published
// snapshots only; all sampling stays in the engine goroutine.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/procscope/procscope/engine"
	"github.com/procscope/procscope/graph"
	"github.com/procscope/procscope/model"
)

type viewMode int

const (
	modeTable viewMode = iota
	modeChart
)

// snapMsg signals that the monitor published a new snapshot.
type snapMsg struct{}

// exportMsg is sent after a chart export completes.
type exportMsg struct {
	path string
	err  error
}

// Model is the bubbletea model.
type Model struct {
	mon    *engine.Monitor
	sub    <-chan struct{}
	width  int
	height int

	snap   *model.Snapshot
	sorted []model.Entity

	mode       viewMode
	selectedID int
	metric     model.Metric
	sortBy     model.Metric
	paused     bool

	status   string
	statusAt time.Time
}

// NewModel creates the TUI model. The monitor must already be running.
func NewModel(mon *engine.Monitor) Model {
	return Model{
		mon:    mon,
		sub:    mon.Subscribe(),
		metric: model.MetricCPU,
		sortBy: model.MetricCPU,
	}
}

func (m Model) Init() tea.Cmd {
	return waitSnapshot(m.sub)
}

func waitSnapshot(sub <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-sub
		return snapMsg{}
	}
}

func exportChart(mon *engine.Monitor, id int) tea.Cmd {
	return func() tea.Msg {
		path := fmt.Sprintf("procscope-%d-%s.html", id, time.Now().Format("20060102-150405"))
		series := graph.CollectEntity(mon, id, mon.Retention())
		if err := graph.ExportFile(path, fmt.Sprintf("pid %d", id), series); err != nil {
			return exportMsg{err: err}
		}
		return exportMsg{path: path}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case snapMsg:
		if !m.paused {
			m.refresh()
		}
		return m, waitSnapshot(m.sub)

	case exportMsg:
		if msg.err != nil {
			m.setStatus("export failed: " + msg.err.Error())
		} else {
			m.setStatus("saved " + msg.path)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) refresh() {
	m.snap = m.mon.Latest()
	if m.snap == nil {
		return
	}
	m.sorted = sortEntities(m.snap.Entities, m.sortBy)
	if m.snap.Entity(m.selectedID) == nil && len(m.sorted) > 0 {
		m.selectedID = m.sorted[0].ID
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusAt = time.Now()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		m.moveSelection(1)
	case "k", "up":
		m.moveSelection(-1)

	case "enter", "tab":
		if m.mode == modeTable {
			m.mode = modeChart
		} else {
			m.mode = modeTable
		}
	case "esc":
		m.mode = modeTable

	case "m":
		m.metric = nextMetric(m.metric)
	case "s":
		m.sortBy = nextMetric(m.sortBy)
		if m.snap != nil {
			m.sorted = sortEntities(m.snap.Entities, m.sortBy)
		}

	case "r":
		next := nextRetention(m.mon.Retention())
		if err := m.mon.SetRetention(next); err == nil {
			m.setStatus("history window " + formatWindow(next))
		}

	case "a":
		m.paused = !m.paused
		if m.paused {
			m.setStatus("paused")
		} else {
			m.setStatus("live")
			m.refresh()
		}

	case "e":
		if m.selectedID != 0 {
			return m, exportChart(m.mon, m.selectedID)
		}
	}
	return m, nil
}

func (m *Model) moveSelection(delta int) {
	if len(m.sorted) == 0 {
		return
	}
	idx := 0
	for i, e := range m.sorted {
		if e.ID == m.selectedID {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.sorted) {
		idx = len(m.sorted) - 1
	}
	m.selectedID = m.sorted[idx].ID
}

func nextMetric(cur model.Metric) model.Metric {
	all := model.AllMetrics()
	for i, mt := range all {
		if mt == cur {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

func nextRetention(cur time.Duration) time.Duration {
	presets := engine.RetentionPresets
	for i, p := range presets {
		if p == cur {
			return presets[(i+1)%len(presets)]
		}
	}
	return presets[0]
}

func (m Model) View() string {
	if m.snap == nil {
		return dimStyle.Render("waiting for first sample...")
	}

	var sb strings.Builder
	sb.WriteString(m.headerLine())
	sb.WriteString("\n")

	body := m.height - 3
	if body < 5 {
		body = 5
	}

	if m.mode == modeChart {
		sb.WriteString(m.chartView(body))
	} else {
		sb.WriteString(renderTable(m.sorted, m.selectedID, m.sortBy, body))
	}

	sb.WriteString("\n")
	sb.WriteString(m.footerLine())
	return sb.String()
}

func (m Model) headerLine() string {
	sys := m.snap.System
	parts := []string{
		titleStyle.Render("procscope"),
		m.snap.Timestamp.Format("15:04:05"),
		loadColor(sys.CPUPercent).Render(fmt.Sprintf("cpu %.0f%%", sys.CPUPercent)),
		fmt.Sprintf("%d cores", sys.NumCPUs),
		fmt.Sprintf("mem %s", fmtBytes(sys.TotalMemBytes)),
		fmt.Sprintf("%d procs", len(m.snap.Entities)),
	}
	if m.paused {
		parts = append(parts, warnStyle.Render("PAUSED"))
	}
	if m.snap.Degraded {
		age := m.snap.Age(time.Now()).Round(time.Second)
		parts = append(parts, critStyle.Render(fmt.Sprintf("STALE %s", age)))
	}
	return strings.Join(parts, dimStyle.Render("  |  "))
}

func (m Model) chartView(height int) string {
	e := m.snap.Entity(m.selectedID)
	if e == nil {
		return dimStyle.Render("process gone")
	}

	pts := m.mon.History(m.selectedID, m.metric, m.mon.Retention())
	vals := make([]float64, len(pts))
	for i, p := range pts {
		vals[i] = p.V
	}
	ax := engine.NiceScale(vals, m.metric.IsPercent(), m.metric.IsBytes())

	label := fmt.Sprintf("%s  %s (pid %d)", m.metric.Label(), e.Leader.Comm, e.ID)
	return areaChart(pts, ax, label, m.width, height-4, ratioColor)
}

func (m Model) footerLine() string {
	if m.status != "" && time.Since(m.statusAt) < 4*time.Second {
		return okStyle.Render(m.status)
	}
	help := "j/k select  enter chart  m metric  s sort  r window  a pause  e export  q quit"
	if m.mode == modeChart {
		help = fmt.Sprintf("metric %s  window %s  |  %s",
			m.metric, formatWindow(m.mon.Retention()), help)
	}
	return helpStyle.Render(help)
}
