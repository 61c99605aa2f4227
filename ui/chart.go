package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/procscope/procscope/engine"
)

// areaChart renders one metric series as a filled area chart with sub-cell
// resolution using fractional block characters.
//
//	CPU %                                            now: 42.0%
//	100%│
//	 75%│          ████
//	 50%│        ████████       ██
//	 25%│    ████████████████████████
//	  0%│████████████████████████████████████████
//	    └────────────────────────────────────────
//	    16:30:00                        16:35:00
func areaChart(pts []engine.Point, ax engine.Axis, label string, width, height int,
	colorFn func(ratio float64) lipgloss.Style) string {

	if height < len(ax.Ticks) {
		height = len(ax.Ticks)
	}

	labels := make([]string, len(ax.Ticks))
	axisW := 0
	for i, t := range ax.Ticks {
		labels[i] = ax.FormatTick(t)
		if len(labels[i]) > axisW {
			axisW = len(labels[i])
		}
	}

	chartW := width - axisW - 1
	if chartW < 10 {
		chartW = 10
	}

	vals := make([]float64, len(pts))
	for i, p := range pts {
		vals[i] = p.V
	}
	resampled := resample(vals, chartW)

	subBlocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(label))
	if len(pts) > 0 {
		now := ax.FormatTick(pts[len(pts)-1].V)
		sb.WriteString(dimStyle.Render("  now: " + now))
	}
	sb.WriteString("\n")

	// One tick label per band boundary, top row first.
	for row := height - 1; row >= 0; row-- {
		tickIdx := (row + 1) * (len(ax.Ticks) - 1) / height
		if (row+1)*(len(ax.Ticks)-1)%height == 0 {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("%*s", axisW, labels[tickIdx])))
		} else {
			sb.WriteString(strings.Repeat(" ", axisW))
		}
		sb.WriteString(dimStyle.Render("│"))

		for _, val := range resampled {
			normalized := val / ax.Max * float64(height)
			cellBottom := float64(row)
			cellTop := float64(row + 1)

			var ch rune
			switch {
			case normalized >= cellTop:
				ch = '█'
			case normalized <= cellBottom:
				ch = ' '
			default:
				idx := int((normalized - cellBottom) * 8)
				if idx >= len(subBlocks) {
					idx = len(subBlocks) - 1
				}
				ch = subBlocks[idx]
			}

			if ch == ' ' {
				sb.WriteRune(' ')
			} else {
				sb.WriteString(colorFn(val / ax.Max).Render(string(ch)))
			}
		}
		sb.WriteString("\n")
	}

	pad := strings.Repeat(" ", axisW)
	sb.WriteString(dimStyle.Render(pad + "└" + strings.Repeat("─", len(resampled))))
	sb.WriteString("\n")

	if len(pts) > 1 {
		left := pts[0].T.Format("15:04:05")
		right := pts[len(pts)-1].T.Format("15:04:05")
		gap := len(resampled) - len(left) - len(right) + 1
		if gap < 1 {
			gap = 1
		}
		sb.WriteString(dimStyle.Render(pad + left + strings.Repeat(" ", gap) + right))
	}

	return sb.String()
}

// resample averages source buckets down to targetWidth columns. Shorter
// series are returned as-is so sparse history renders left-aligned.
func resample(data []float64, targetWidth int) []float64 {
	if len(data) <= targetWidth {
		return data
	}
	result := make([]float64, targetWidth)
	for i := 0; i < targetWidth; i++ {
		srcStart := i * len(data) / targetWidth
		srcEnd := (i + 1) * len(data) / targetWidth
		if srcEnd > len(data) {
			srcEnd = len(data)
		}
		if srcStart >= srcEnd {
			srcStart = srcEnd - 1
		}
		var sum float64
		for j := srcStart; j < srcEnd; j++ {
			sum += data[j]
		}
		result[i] = sum / float64(srcEnd-srcStart)
	}
	return result
}

// ratioColor colors chart cells by how close they sit to the axis maximum.
func ratioColor(ratio float64) lipgloss.Style {
	switch {
	case ratio >= 0.8:
		return critStyle
	case ratio >= 0.5:
		return warnStyle
	}
	return okStyle
}

// formatWindow formats a retention window as "Xm" or "Xs".
func formatWindow(d time.Duration) string {
	s := int(d.Seconds())
	if s >= 60 && s%60 == 0 {
		return fmt.Sprintf("%dm", s/60)
	}
	return fmt.Sprintf("%ds", s)
}
