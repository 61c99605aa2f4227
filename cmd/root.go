package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/procscope/procscope/config"
	"github.com/procscope/procscope/engine"
	"github.com/procscope/procscope/gpu"
	"github.com/procscope/procscope/graph"
	"github.com/procscope/procscope/logutil"
	"github.com/procscope/procscope/proc"
	"github.com/procscope/procscope/ui"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// Options holds the resolved CLI configuration.
type Options struct {
	Interval   time.Duration
	Retention  time.Duration
	Flat       bool
	StaleTicks int
	LogFile    string
	Debug      bool

	WatchMode  bool
	WatchCount int
	JSONMode   bool
	GraphPath  string
	GraphPID   int
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `procscope v%s — live per-process resource monitor for Linux

Usage:
  procscope [OPTIONS] [INTERVAL]

Modes:
  (default)         Interactive TUI (bubbletea, fullscreen)
  -watch            Plain-text output mode — prints the process table with auto-refresh
  -json             Single JSON snapshot to stdout, then exit
  -graph FILE       Sample for a while, then write an HTML chart page and exit
  -version          Print version and exit

Options:
  -interval N       Sampling interval in seconds (default: 2)
  -retention N      History window in minutes: 1, 2, 5, 10, 30, 60 (default: 2)
  -flat             Per-process counters only, no thread aggregation
  -stale-ticks N    Missed samples before a process is dropped (default: 2)
  -count N          Iterations for -watch / samples for -graph (0 = infinite watch)
  -pid N            Process to export with -graph (default: busiest at the end)
  -log FILE         Write logs to FILE (required to see logs in TUI mode)
  -debug            Verbose logging

Positional:
  INTERVAL          First positional arg sets interval: procscope 5 = procscope -interval 5

Examples:
  procscope                          Interactive TUI, 2s refresh
  procscope 5                        Interactive TUI, 5s refresh
  procscope -watch -count 10         Print the table 10 times, then exit
  procscope -json | jq '.Entities[0]'
  procscope -graph load.html -pid 1234 -count 60
`, Version)
}

// Run parses flags and starts the application.
func Run() error {
	cfg, cfgErr := config.Load()

	var o Options
	var intervalSec, retentionMin int
	var showVersion bool

	flag.IntVar(&intervalSec, "interval", cfg.IntervalSec, "Sampling interval in seconds")
	flag.IntVar(&retentionMin, "retention", cfg.RetentionMin, "History window in minutes (1,2,5,10,30,60)")
	flag.BoolVar(&o.Flat, "flat", cfg.Flat, "Per-process counters only, no thread aggregation")
	flag.IntVar(&o.StaleTicks, "stale-ticks", cfg.StaleTicks, "Missed samples before a process is dropped")
	flag.BoolVar(&o.WatchMode, "watch", false, "Plain-text output mode (no TUI)")
	flag.IntVar(&o.WatchCount, "count", 0, "Iterations for -watch / samples for -graph")
	flag.BoolVar(&o.JSONMode, "json", false, "Output a single JSON snapshot and exit")
	flag.StringVar(&o.GraphPath, "graph", "", "Write an HTML chart page to FILE and exit")
	flag.IntVar(&o.GraphPID, "pid", 0, "Process to export with -graph")
	flag.StringVar(&o.LogFile, "log", cfg.LogFile, "Write logs to FILE")
	flag.BoolVar(&o.Debug, "debug", cfg.Debug, "Verbose logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = printUsage
	flag.Parse()

	if showVersion {
		fmt.Printf("procscope v%s\n", Version)
		return nil
	}

	// `procscope 5` = `procscope -interval 5`
	if args := flag.Args(); len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			intervalSec = n
		}
	}

	o.Interval = time.Duration(intervalSec) * time.Second
	o.Retention = time.Duration(retentionMin) * time.Minute
	if !engine.ValidRetention(o.Retention) {
		return fmt.Errorf("unsupported retention %dm (use 1, 2, 5, 10, 30 or 60)", retentionMin)
	}

	tui := !o.WatchMode && !o.JSONMode && o.GraphPath == ""
	if tui && o.LogFile == "" {
		logutil.Discard()
	} else if err := logutil.InitLogger(o.LogFile, o.Debug); err != nil {
		return err
	}
	defer logutil.Sync()
	log := logutil.GetLogger()

	if cfgErr != nil {
		log.Warn("config file ignored", zap.Error(cfgErr))
	}
	if os.Geteuid() != 0 {
		log.Info("running without root, per-process disk counters may be unavailable")
	}

	mode := engine.Hierarchical
	if o.Flat {
		mode = engine.Flat
	}

	provider := newProvider(log)
	defer provider.Close()

	mon, err := engine.NewMonitor(&proc.Reader{}, provider, engine.Options{
		Interval:   o.Interval,
		Retention:  o.Retention,
		StaleTicks: o.StaleTicks,
		Mode:       mode,
	}, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case o.JSONMode:
		return runJSON(ctx, mon, o.Interval)
	case o.GraphPath != "":
		return runGraph(ctx, mon, o)
	case o.WatchMode:
		return runWatch(ctx, mon, o.WatchCount)
	}
	return runTUI(ctx, mon)
}

// newProvider probes for NVML, falling back to the no-op provider when the
// library or a device is absent.
func newProvider(log *zap.Logger) gpu.Provider {
	p, err := gpu.NewNVML()
	if err != nil {
		log.Info("gpu metrics unavailable", zap.Error(err))
		return gpu.Unavailable()
	}
	log.Info("gpu provider ready", zap.String("provider", p.Name()))
	return p
}

func runTUI(ctx context.Context, mon *engine.Monitor) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mon.Run(ctx) })

	p := tea.NewProgram(ui.NewModel(mon), tea.WithAltScreen(), tea.WithContext(ctx))
	g.Go(func() error {
		_, err := p.Run()
		cancel() // user quit: stop the sampler too
		if err == tea.ErrProgramKilled && ctx.Err() != nil {
			return nil // clean shutdown on signal
		}
		return err
	})
	return g.Wait()
}

// runJSON waits for two sampling passes so rates are populated, then prints
// the snapshot.
func runJSON(ctx context.Context, mon *engine.Monitor, interval time.Duration) error {
	mon.Tick(ctx)
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(interval):
	}
	mon.Tick(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(mon.Latest())
}

// runGraph samples for count passes (default 30), then exports the chosen
// process's history as an HTML page.
func runGraph(ctx context.Context, mon *engine.Monitor, o Options) error {
	count := o.WatchCount
	if count <= 0 {
		count = 30
	}

	for i := 0; i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.Interval):
			}
		}
		mon.Tick(ctx)
		fmt.Fprintf(os.Stderr, "\rsampling %d/%d", i+1, count)
	}
	fmt.Fprintln(os.Stderr)

	pid := o.GraphPID
	if pid == 0 {
		pid = busiestPID(mon)
	}
	if pid == 0 {
		return fmt.Errorf("no process to export")
	}

	series := graph.CollectEntity(mon, pid, mon.Retention())
	if err := graph.ExportFile(o.GraphPath, fmt.Sprintf("pid %d", pid), series); err != nil {
		return err
	}
	fmt.Printf("wrote %s (pid %d, %d series)\n", o.GraphPath, pid, len(series))
	return nil
}

func busiestPID(mon *engine.Monitor) int {
	snap := mon.Latest()
	if snap == nil {
		return 0
	}
	best, bestCPU := 0, -1.0
	for _, e := range snap.Entities {
		if e.Metrics.CPUPercent > bestCPU {
			best, bestCPU = e.ID, e.Metrics.CPUPercent
		}
	}
	return best
}
