package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/procscope/procscope/model"
)

// Point is one (timestamp, value) history sample.
type Point struct {
	T time.Time
	V float64
}

// RetentionPresets are the supported history spans, shortest first.
var RetentionPresets = []time.Duration{
	1 * time.Minute,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
	60 * time.Minute,
}

// ValidRetention reports whether d is one of the supported presets.
func ValidRetention(d time.Duration) bool {
	for _, p := range RetentionPresets {
		if p == d {
			return true
		}
	}
	return false
}

// series is a growable circular buffer: O(1) push-back and pop-front.
// Retention spanning an hour at sub-second cadence rules out the
// shift-a-slice approach.
type series struct {
	buf  []Point
	head int // index of oldest element
	n    int
}

func (s *series) pushBack(p Point) {
	if s.n == len(s.buf) {
		s.grow()
	}
	s.buf[(s.head+s.n)%len(s.buf)] = p
	s.n++
}

func (s *series) popFront() {
	s.buf[s.head] = Point{}
	s.head = (s.head + 1) % len(s.buf)
	s.n--
}

func (s *series) front() Point { return s.buf[s.head] }

func (s *series) grow() {
	newCap := len(s.buf) * 2
	if newCap == 0 {
		newCap = 16
	}
	buf := make([]Point, newCap)
	for i := 0; i < s.n; i++ {
		buf[i] = s.buf[(s.head+i)%len(s.buf)]
	}
	s.buf = buf
	s.head = 0
}

// snapshot copies the live entries oldest-first.
func (s *series) snapshot() []Point {
	out := make([]Point, s.n)
	for i := 0; i < s.n; i++ {
		out[i] = s.buf[(s.head+i)%len(s.buf)]
	}
	return out
}

// History stores bounded time-ordered series per (entity, metric). The
// sampling goroutine is the only writer; reads take the shared lock and
// return copies, so a returned series never changes under the caller.
type History struct {
	mu        sync.RWMutex
	retention time.Duration
	entities  map[int]map[model.Metric]*series
}

// NewHistory creates a store with the given retention, which must be one of
// RetentionPresets.
func NewHistory(retention time.Duration) (*History, error) {
	if !ValidRetention(retention) {
		return nil, fmt.Errorf("unsupported retention %s", retention)
	}
	return &History{
		retention: retention,
		entities:  make(map[int]map[model.Metric]*series),
	}, nil
}

// Append adds a sample and evicts entries older than the retention window.
// Out-of-order timestamps are dropped to keep the strictly-increasing
// invariant.
func (h *History) Append(entityID int, metric model.Metric, t time.Time, v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	byMetric := h.entities[entityID]
	if byMetric == nil {
		byMetric = make(map[model.Metric]*series)
		h.entities[entityID] = byMetric
	}
	s := byMetric[metric]
	if s == nil {
		s = &series{}
		byMetric[metric] = s
	}
	if s.n > 0 && !s.buf[(s.head+s.n-1)%len(s.buf)].T.Before(t) {
		return
	}
	s.pushBack(Point{T: t, V: v})
	evictSeries(s, t.Add(-h.retention))
}

// EvictOlderThan drops entries at or before cutoff for one entity, keeping
// the stored span strictly under the window measured from the newest entry.
func (h *History) EvictOlderThan(entityID int, cutoff time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.entities[entityID] {
		evictSeries(s, cutoff)
	}
}

func evictSeries(s *series, cutoff time.Time) {
	for s.n > 0 && !s.front().T.After(cutoff) {
		s.popFront()
	}
}

// Series returns the stored samples for one (entity, metric), oldest first.
// The result is a copy: re-reading it yields the same data regardless of
// later appends or evictions.
func (h *History) Series(entityID int, metric model.Metric) []Point {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.entities[entityID][metric]
	if s == nil {
		return nil
	}
	return s.snapshot()
}

// SeriesSince returns the samples newer than now-window, oldest first.
func (h *History) SeriesSince(entityID int, metric model.Metric, now time.Time, window time.Duration) []Point {
	pts := h.Series(entityID, metric)
	cutoff := now.Add(-window)
	for i, p := range pts {
		if !p.T.Before(cutoff) {
			return pts[i:]
		}
	}
	return nil
}

// RemoveEntity releases every series of a stale entity.
func (h *History) RemoveEntity(entityID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entities, entityID)
}

// Retention returns the configured window.
func (h *History) Retention() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.retention
}

// SetRetention switches to another preset. Shrinking evicts immediately
// against the newest timestamp of each series; growing never resurrects
// evicted data.
func (h *History) SetRetention(d time.Duration) error {
	if !ValidRetention(d) {
		return fmt.Errorf("unsupported retention %s", d)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retention = d
	for _, byMetric := range h.entities {
		for _, s := range byMetric {
			if s.n == 0 {
				continue
			}
			newest := s.buf[(s.head+s.n-1)%len(s.buf)].T
			evictSeries(s, newest.Add(-d))
		}
	}
	return nil
}

// EntityIDs returns the ids that currently hold history.
func (h *History) EntityIDs() []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]int, 0, len(h.entities))
	for id := range h.entities {
		ids = append(ids, id)
	}
	return ids
}
