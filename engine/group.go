package engine

import (
	"sort"

	"github.com/procscope/procscope/model"
)

// GroupMode selects how raw task samples become logical entities.
type GroupMode int

const (
	// Hierarchical aggregates all threads of a group into one entity.
	Hierarchical GroupMode = iota
	// Flat keeps only the group leader's counters, annotated with the
	// member count.
	Flat
)

// Grouped is one thread group's tick result: the entity-facing fields plus
// the aggregate counter sample used for the next tick's delta.
type Grouped struct {
	ID          int
	Leader      model.RawSample
	Approximate bool
	ThreadCount int
	// Aggregate carries the summed cumulative counters (hierarchical) or
	// the leader's counters (flat). PID/TGID are the entity id.
	Aggregate model.RawSample
}

// Group partitions raw task samples by tgid. The representative sample is
// the thread-group leader (pid == tgid); when the leader exited mid-scan a
// placeholder is synthesized from an arbitrary member and flagged
// approximate. ThreadCount is recomputed from this tick's samples alone,
// never carried over.
func Group(samples []model.RawSample, mode GroupMode) []Grouped {
	byTgid := make(map[int][]model.RawSample)
	for _, s := range samples {
		byTgid[s.TGID] = append(byTgid[s.TGID], s)
	}

	out := make([]Grouped, 0, len(byTgid))
	for tgid, members := range byTgid {
		g := Grouped{ID: tgid, ThreadCount: len(members)}

		leaderIdx := -1
		for i, m := range members {
			if m.PID == tgid {
				leaderIdx = i
				break
			}
		}
		if leaderIdx >= 0 {
			g.Leader = members[leaderIdx]
		} else {
			g.Leader = members[0]
			g.Leader.PID = tgid
			g.Approximate = true
		}

		if mode == Flat {
			g.Aggregate = g.Leader
		} else {
			g.Aggregate = aggregate(g.Leader, members)
		}
		out = append(out, g)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// aggregate sums the cumulative counters over all members. Memory is the
// leader's RSS, not a sum: threads share one address space. Network
// counters live on the leader sample only, so summing stays correct.
func aggregate(leader model.RawSample, members []model.RawSample) model.RawSample {
	agg := leader
	agg.CPUTicks = 0
	agg.ReadBytes = 0
	agg.WriteBytes = 0
	agg.NetRxBytes = 0
	agg.NetTxBytes = 0
	for _, m := range members {
		agg.CPUTicks += m.CPUTicks
		agg.ReadBytes += m.ReadBytes
		agg.WriteBytes += m.WriteBytes
		agg.NetRxBytes += m.NetRxBytes
		agg.NetTxBytes += m.NetTxBytes
	}
	return agg
}
