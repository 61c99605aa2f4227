package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/procscope/procscope/engine"
	"github.com/procscope/procscope/model"
)

// ── ANSI color/style codes ──────────────────────────────────────────────────

const (
	R = "\033[0m" // reset
	B = "\033[1m" // bold
	D = "\033[2m" // dim

	FCyn = "\033[36m"

	FBRed = "\033[91m"
	FBGrn = "\033[92m"
	FBYel = "\033[93m"
	FBWht = "\033[97m"

	BBlu = "\033[44m"
)

const (
	tCPUWarn = 50.0
	tCPUCrit = 80.0
	watchTop = 20
)

// ── Styling helpers ─────────────────────────────────────────────────────────

func cpct(v float64, warn, crit float64) string {
	switch {
	case v >= crit:
		return fmt.Sprintf("%s%s%6.1f%%%s", B, FBRed, v, R)
	case v >= warn:
		return fmt.Sprintf("%s%6.1f%%%s", FBYel, v, R)
	default:
		return fmt.Sprintf("%s%6.1f%%%s", FBGrn, v, R)
	}
}

func fb(b uint64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1fG", float64(b)/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1fM", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1fK", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%dB", b)
	}
}

func frate(v float64) string {
	if v < 1 {
		return fmt.Sprintf("%s0%s", D, R)
	}
	return fb(uint64(v)) + "/s"
}

func trunc(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n < 3 {
		return s[:n]
	}
	return s[:n-2] + ".."
}

func hr() string {
	return fmt.Sprintf("%s%s%s", D, strings.Repeat("-", 100), R)
}

func stateMark(s model.ProcState) string {
	switch s {
	case model.StateRunning:
		return FBGrn + "R" + R
	case model.StateDiskSleep:
		return B + FBRed + "D" + R
	case model.StateZombie:
		return FBRed + "Z" + R
	case model.StateStopped:
		return FBYel + "T" + R
	}
	return D + "S" + R
}

// ── Main watch loop ─────────────────────────────────────────────────────────

func runWatch(ctx context.Context, mon *engine.Monitor, count int) error {
	ticker := time.NewTicker(mon.Interval())
	defer ticker.Stop()

	iteration := 0
	mon.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n%sStopped.%s\n", D, R)
			return nil
		case <-ticker.C:
			iteration++
			mon.Tick(ctx)
			snap := mon.Latest()
			if snap == nil {
				continue
			}

			fmt.Print("\033[2J\033[H")
			printWatchFrame(snap, iteration, count, mon.Interval())

			if count > 0 && iteration >= count {
				return nil
			}
		}
	}
}

func printWatchFrame(snap *model.Snapshot, iteration, count int, interval time.Duration) {
	ts := snap.Timestamp.Format("15:04:05")
	iter := fmt.Sprintf("#%d", iteration)
	if count > 0 {
		iter = fmt.Sprintf("#%d/%d", iteration, count)
	}
	fmt.Printf(" %s%s procscope v%s %s  %s  %s%s%s  %s\n",
		B, BBlu+FBWht, Version, R,
		B+ts+R,
		D, interval, R,
		D+iter+R)
	if snap.Degraded {
		fmt.Printf(" %s%sSTALE%s %ssampling failed, showing last good data: %s%s\n",
			B, FBRed, R, D, snap.Err, R)
	}

	sys := snap.System
	fmt.Printf(" %sCPU%s %s  %s%d cores%s   %sMEM%s %s%s%s   %s%d procs%s\n",
		B+FCyn, R, cpct(sys.CPUPercent, tCPUWarn, tCPUCrit),
		D, sys.NumCPUs, R,
		B+FCyn, R, FBWht, fb(sys.TotalMemBytes), R,
		D, len(snap.Entities), R)
	fmt.Println(hr())

	fmt.Printf(" %s%-7s %-20s %s %4s %7s %9s %10s %10s %10s %10s %6s%s\n",
		D, "PID", "COMMAND", "S", "THR", "CPU%", "MEM", "DSK R", "DSK W", "NET RX", "NET TX", "GPU%", R)

	sorted := topByCPU(snap.Entities, watchTop)
	for _, e := range sorted {
		name := e.Leader.Comm
		if e.Approximate {
			name = "~" + name
		}
		gpuStr := D + "     -" + R
		if v, ok := e.Metrics.Value(model.MetricGPU); ok {
			gpuStr = fmt.Sprintf("%6.1f", v)
		}
		fmt.Printf(" %-7d %s%-20s%s %s %4d %s %s%9s%s %10s %10s %10s %10s %s\n",
			e.ID,
			FBWht, trunc(name, 20), R,
			stateMark(e.Leader.State),
			e.ThreadCount,
			cpct(e.Metrics.CPUPercent, tCPUWarn, tCPUCrit),
			FBWht, fb(e.Metrics.MemoryBytes), R,
			frate(e.Metrics.DiskReadBps),
			frate(e.Metrics.DiskWriteBps),
			frate(e.Metrics.NetInBps),
			frate(e.Metrics.NetOutBps),
			gpuStr)
	}

	fmt.Println(hr())
	fmt.Printf(" %sCtrl+C%s to quit\n", B, R)
}

// topByCPU returns at most n entities sorted by CPU descending.
func topByCPU(entities []model.Entity, n int) []model.Entity {
	out := make([]model.Entity, len(entities))
	copy(out, entities)
	sort.Slice(out, func(i, j int) bool { return out[i].Metrics.CPUPercent > out[j].Metrics.CPUPercent })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
