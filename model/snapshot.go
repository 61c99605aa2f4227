package model

import "time"

// Entity is one logical process tracked across ticks. In hierarchical mode
// its identity is the tgid and its counters aggregate all member threads;
// in flat mode it is still keyed by tgid but carries only the leader's
// counters, annotated with the member count.
type Entity struct {
	ID          int       // tgid
	Leader      RawSample // thread-group leader, or a synthesized stand-in
	Approximate bool      // leader was absent this tick and was synthesized
	ThreadCount int       // distinct task ids observed this tick
	Missed      int       // consecutive ticks without observation (0 = live)
	Metrics     DerivedMetrics
}

// SystemStats holds the system-wide aggregates a tick needs for
// normalization and display.
type SystemStats struct {
	NumCPUs       int
	TotalMemBytes uint64
	CPUTicksPerS  uint64
	TotalCPUTicks uint64  // aggregate jiffies from /proc/stat, all states
	BusyCPUTicks  uint64  // aggregate minus idle+iowait
	CPUPercent    float64 // system-wide busy %, filled by the rate pass
}

// Snapshot is the immutable point-in-time view handed to consumers.
// Entities and the slice backing them are never mutated after publication.
type Snapshot struct {
	Timestamp time.Time
	System    SystemStats
	Entities  []Entity

	// Degraded marks a snapshot republished after a failed sampling pass;
	// Timestamp then still refers to the last successful pass.
	Degraded bool
	Err      string
}

// Entity returns the entity with the given id, or nil.
func (s *Snapshot) Entity(id int) *Entity {
	for i := range s.Entities {
		if s.Entities[i].ID == id {
			return &s.Entities[i]
		}
	}
	return nil
}

// Age reports how long ago the snapshot's sampling pass completed.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}
