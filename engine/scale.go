package engine

import (
	"fmt"
	"math"
)

// Axis holds the y-axis parameters chosen for one graph. The computation is
// pure: identical inputs always produce identical axes.
type Axis struct {
	Max     float64
	Ticks   []float64 // ascending, Ticks[0] == 0, Ticks[len-1] == Max
	Unit    string    // "%", "B", "KB", "MB", "GB", "TB", or ""
	UnitDiv float64   // divide a value by this before printing with Unit
}

const axisDivisions = 4

// NiceScale picks a readable axis for the given values. Percent axes use
// fixed 25/50/100 steps (extended in 50s when a thread group exceeds 100);
// value axes use the smallest {1,2,5}x10^k not below the observed maximum.
// An empty or all-zero input still yields a positive maximum so a flat
// series renders against a defined axis.
func NiceScale(values []float64, percent, bytes bool) Axis {
	var max float64
	for _, v := range values {
		if v > max {
			max = v
		}
	}

	var ax Axis
	if percent {
		ax.Max = nicePercentMax(max)
		ax.Unit = "%"
		ax.UnitDiv = 1
	} else {
		ax.Max = NiceMax(max)
		if bytes {
			ax.Unit, ax.UnitDiv = byteUnit(ax.Max)
		} else {
			ax.UnitDiv = 1
		}
	}

	ax.Ticks = make([]float64, 0, axisDivisions+1)
	for i := 0; i <= axisDivisions; i++ {
		ax.Ticks = append(ax.Ticks, ax.Max*float64(i)/axisDivisions)
	}
	return ax
}

// NiceMax returns the smallest value of the form {1,2,5}x10^k that is >= max,
// or 1 when max is not positive.
func NiceMax(max float64) float64 {
	if max <= 0 {
		return 1
	}
	magnitude := math.Pow(10, math.Floor(math.Log10(max)))
	normalized := max / magnitude
	switch {
	case normalized <= 1:
		return magnitude
	case normalized <= 2:
		return 2 * magnitude
	case normalized <= 5:
		return 5 * magnitude
	}
	return 10 * magnitude
}

func nicePercentMax(max float64) float64 {
	switch {
	case max <= 25:
		return 25
	case max <= 50:
		return 50
	case max <= 100:
		return 100
	}
	return math.Ceil(max/50) * 50
}

// byteUnit picks the unit whose displayed magnitude lands in [1, 1024).
func byteUnit(max float64) (string, float64) {
	units := []struct {
		name string
		div  float64
	}{
		{"TB", 1 << 40},
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
	}
	for _, u := range units {
		if max >= u.div {
			return u.name, u.div
		}
	}
	return "B", 1
}

// FormatTick renders one axis tick value in the axis unit.
func (a Axis) FormatTick(v float64) string {
	if a.Unit == "%" {
		return fmt.Sprintf("%.0f%%", v)
	}
	scaled := v
	if a.UnitDiv > 0 {
		scaled = v / a.UnitDiv
	}
	if a.Unit == "" || a.Unit == "B" {
		return fmt.Sprintf("%.0f%s", scaled, a.Unit)
	}
	return fmt.Sprintf("%.1f%s", scaled, a.Unit)
}
