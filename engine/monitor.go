package engine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/procscope/procscope/gpu"
	"github.com/procscope/procscope/model"
)

// Sampler is the kernel-facing read interface. proc.Reader implements it;
// tests substitute fakes.
type Sampler interface {
	// Enumerate lists live pids; failure here is systemic.
	Enumerate() ([]int, error)
	// ReadProcess returns per-task samples for one thread group, or
	// proc.ErrGone when it exited between enumeration and read.
	ReadProcess(pid int) ([]model.RawSample, error)
	// ReadSystem returns the aggregates needed for normalization.
	ReadSystem() (model.SystemStats, error)
}

// Options configures a Monitor. Zero values take the documented defaults.
type Options struct {
	Interval   time.Duration // sampling period, default 2s
	Retention  time.Duration // history window, default 2m
	StaleTicks int           // missed ticks before eviction, default 2, min 1
	Mode       GroupMode
	GPUBudget  time.Duration // per-tick GPU query budget, default 500ms
}

func (o *Options) withDefaults() {
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.Retention == 0 {
		o.Retention = 2 * time.Minute
	}
	if o.StaleTicks < 1 {
		o.StaleTicks = 2
	}
	if o.GPUBudget <= 0 {
		o.GPUBudget = 500 * time.Millisecond
	}
}

// entityState is the per-entity bookkeeping owned by the sampling
// goroutine: last aggregate counters for delta computation, staleness, and
// the most recent derived metrics for republication while stale.
type entityState struct {
	prev    model.RawSample
	prevAt  time.Time
	missed  int
	grouped Grouped
	metrics model.DerivedMetrics
}

// Monitor drives sampling on a fixed period and publishes immutable
// snapshots. One goroutine (the Run loop) owns the entity table and the
// previous-tick sample table; consumers only ever see published snapshots
// and history copies, so their reads never race a tick.
type Monitor struct {
	opts    Options
	sampler Sampler
	gpu     gpu.Provider
	hist    *History
	log     *zap.Logger

	cur   atomic.Pointer[model.Snapshot]
	subMu sync.Mutex
	subs  []chan struct{}

	// sampling-goroutine state
	entities    map[int]*entityState
	prevSys     model.SystemStats
	havePrevSys bool
	gpuFaulted  bool
	enumFaulted bool
}

// NewMonitor builds a Monitor. The provider must not be nil; pass
// gpu.Unavailable() when no device exists.
func NewMonitor(sampler Sampler, provider gpu.Provider, opts Options, log *zap.Logger) (*Monitor, error) {
	opts.withDefaults()
	hist, err := NewHistory(opts.Retention)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		opts:     opts,
		sampler:  sampler,
		gpu:      provider,
		hist:     hist,
		log:      log,
		entities: make(map[int]*entityState),
	}, nil
}

// Run samples until ctx is cancelled. Passes never overlap: a pass that
// outlives the period simply delays the next one. Cancellation takes
// effect at the idle boundary, never mid-pass.
func (m *Monitor) Run(ctx context.Context) error {
	m.tick(ctx, time.Now())

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.tick(ctx, time.Now())
		}
	}
}

// Tick runs one sampling pass immediately. Exposed for one-shot modes and
// tests; Run is the normal driver.
func (m *Monitor) Tick(ctx context.Context) {
	m.tick(ctx, time.Now())
}

func (m *Monitor) tick(ctx context.Context, now time.Time) {
	sys, sysErr := m.sampler.ReadSystem()
	pids, enumErr := m.sampler.Enumerate()
	if sysErr != nil || enumErr != nil {
		err := sysErr
		if err == nil {
			err = enumErr
		}
		if !m.enumFaulted {
			m.log.Error("process enumeration failed, keeping last snapshot", zap.Error(err))
			m.enumFaulted = true
		}
		m.publishDegraded(err)
		return
	}
	m.enumFaulted = false

	var samples []model.RawSample
	for _, pid := range pids {
		ps, err := m.sampler.ReadProcess(pid)
		if err != nil {
			continue // exited mid-scan or unreadable: omit from this tick
		}
		samples = append(samples, ps...)
	}

	groups := Group(samples, m.opts.Mode)
	gpuUsage := m.queryGPU(ctx)

	if m.havePrevSys {
		sys.CPUPercent = SystemCPUPercent(m.prevSys, sys)
	}

	seen := make(map[int]bool, len(groups))
	for _, g := range groups {
		seen[g.ID] = true
		st := m.entities[g.ID]
		fresh := st == nil || !st.prev.SameIdentity(g.Aggregate)
		if st == nil {
			st = &entityState{}
			m.entities[g.ID] = st
		}

		var dm model.DerivedMetrics
		if fresh {
			// First observation (or a reused tgid): no previous counters,
			// so rates stay zero for this tick.
			dm = model.DerivedMetrics{MemoryBytes: g.Aggregate.RSS}
		} else {
			dm = ComputeRates(st.prev, g.Aggregate, now.Sub(st.prevAt), sys.CPUTicksPerS)
		}

		if gm, ok := gpuUsage[g.ID]; ok {
			pct := gm.UtilPercent
			mem := gm.MemoryBytes
			dm.GPUPercent = &pct
			dm.GPUMemoryBytes = &mem
		}

		st.prev = g.Aggregate
		st.prevAt = now
		st.missed = 0
		st.grouped = g
		st.metrics = dm

		m.appendHistory(g.ID, now, dm)
	}

	for id, st := range m.entities {
		if seen[id] {
			continue
		}
		st.missed++
		if st.missed >= m.opts.StaleTicks {
			delete(m.entities, id)
			m.hist.RemoveEntity(id)
		}
	}

	m.publish(now, sys)
	m.prevSys = sys
	m.havePrevSys = true
}

func (m *Monitor) appendHistory(id int, now time.Time, dm model.DerivedMetrics) {
	for _, metric := range model.AllMetrics() {
		v, ok := dm.Value(metric)
		if !ok {
			continue // GPU not applicable: no series entry, not a zero
		}
		m.hist.Append(id, metric, now, v)
	}
}

// queryGPU enforces the per-tick budget. NVML calls are not context-aware
// mid-call, so a stuck driver is abandoned in its goroutine and the tick
// proceeds with GPU treated as unavailable.
func (m *Monitor) queryGPU(parent context.Context) map[int]model.GPUMetrics {
	ctx, cancel := context.WithTimeout(parent, m.opts.GPUBudget)
	defer cancel()

	type result struct {
		usage map[int]model.GPUMetrics
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		usage, err := m.gpu.QueryAll(ctx)
		ch <- result{usage, err}
	}()

	select {
	case <-ctx.Done():
		if !m.gpuFaulted {
			m.log.Warn("gpu query exceeded tick budget, treating as unavailable",
				zap.String("provider", m.gpu.Name()), zap.Duration("budget", m.opts.GPUBudget))
			m.gpuFaulted = true
		}
		return nil
	case r := <-ch:
		if r.err != nil {
			if !m.gpuFaulted {
				m.log.Warn("gpu query failed, treating as unavailable",
					zap.String("provider", m.gpu.Name()), zap.Error(r.err))
				m.gpuFaulted = true
			}
			return nil
		}
		m.gpuFaulted = false
		return r.usage
	}
}

func (m *Monitor) publish(now time.Time, sys model.SystemStats) {
	entities := make([]model.Entity, 0, len(m.entities))
	for id, st := range m.entities {
		entities = append(entities, model.Entity{
			ID:          id,
			Leader:      st.grouped.Leader,
			Approximate: st.grouped.Approximate,
			ThreadCount: st.grouped.ThreadCount,
			Missed:      st.missed,
			Metrics:     st.metrics,
		})
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })

	m.cur.Store(&model.Snapshot{
		Timestamp: now,
		System:    sys,
		Entities:  entities,
	})
	m.notify()
}

// publishDegraded keeps the previous snapshot's data visible, flagged
// degraded; its timestamp still names the last successful pass so
// consumers can show staleness.
func (m *Monitor) publishDegraded(err error) {
	prev := m.cur.Load()
	snap := &model.Snapshot{Degraded: true, Err: err.Error()}
	if prev != nil {
		snap.Timestamp = prev.Timestamp
		snap.System = prev.System
		snap.Entities = prev.Entities // immutable once published
	}
	m.cur.Store(snap)
	m.notify()
}

// Latest returns the most recently published snapshot, or nil before the
// first pass. Never blocks.
func (m *Monitor) Latest() *model.Snapshot {
	return m.cur.Load()
}

// History returns the (entity, metric) series clipped to the given window.
func (m *Monitor) History(entityID int, metric model.Metric, window time.Duration) []Point {
	if window <= 0 || window > m.hist.Retention() {
		window = m.hist.Retention()
	}
	return m.hist.SeriesSince(entityID, metric, time.Now(), window)
}

// SetRetention switches the history window to another preset, evicting
// immediately when shrinking. Invalid durations are rejected and the
// previous setting stays in effect.
func (m *Monitor) SetRetention(d time.Duration) error {
	return m.hist.SetRetention(d)
}

// Retention returns the configured history window.
func (m *Monitor) Retention() time.Duration { return m.hist.Retention() }

// Interval returns the sampling period.
func (m *Monitor) Interval() time.Duration { return m.opts.Interval }

// Subscribe returns a channel that receives a best-effort signal after
// each publication. A slow consumer misses signals rather than slowing
// the sampler.
func (m *Monitor) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.subMu.Lock()
	m.subs = append(m.subs, ch)
	m.subMu.Unlock()
	return ch
}

func (m *Monitor) notify() {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
