package engine

import (
	"testing"

	"github.com/procscope/procscope/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(pid, tgid int, ticks, rss, rd, wr uint64) model.RawSample {
	return model.RawSample{
		PID: pid, TGID: tgid, Comm: "app",
		CPUTicks: ticks, RSS: rss, ReadBytes: rd, WriteBytes: wr,
	}
}

func TestGroupHierarchical(t *testing.T) {
	samples := []model.RawSample{
		task(100, 100, 10, 4096, 100, 200),
		task(101, 100, 20, 4096, 50, 0),
		task(102, 100, 30, 4096, 0, 25),
		task(200, 200, 5, 1024, 0, 0),
	}

	groups := Group(samples, Hierarchical)
	require.Len(t, groups, 2)

	g := groups[0]
	assert.Equal(t, 100, g.ID)
	assert.Equal(t, 3, g.ThreadCount)
	assert.Equal(t, 100, g.Leader.PID)
	assert.False(t, g.Approximate)
	assert.Equal(t, uint64(60), g.Aggregate.CPUTicks, "ticks sum over members")
	assert.Equal(t, uint64(150), g.Aggregate.ReadBytes)
	assert.Equal(t, uint64(225), g.Aggregate.WriteBytes)
	assert.Equal(t, uint64(4096), g.Aggregate.RSS, "threads share one address space")

	assert.Equal(t, 200, groups[1].ID)
	assert.Equal(t, 1, groups[1].ThreadCount)
}

func TestGroupLeaderAbsent(t *testing.T) {
	// Leader exited between task enumeration and read: synthesize one from
	// a member and flag it.
	samples := []model.RawSample{
		task(301, 300, 10, 2048, 0, 0),
		task(302, 300, 10, 2048, 0, 0),
	}

	groups := Group(samples, Hierarchical)
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, 300, g.ID)
	assert.Equal(t, 300, g.Leader.PID, "placeholder leader adopts the tgid")
	assert.True(t, g.Approximate)
	assert.Equal(t, 2, g.ThreadCount)
	assert.Equal(t, uint64(20), g.Aggregate.CPUTicks)
}

func TestGroupFlat(t *testing.T) {
	samples := []model.RawSample{
		task(100, 100, 10, 4096, 100, 0),
		task(101, 100, 90, 4096, 900, 0),
	}

	groups := Group(samples, Flat)
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, 2, g.ThreadCount, "flat mode still annotates the member count")
	assert.Equal(t, uint64(10), g.Aggregate.CPUTicks, "flat mode keeps leader counters only")
	assert.Equal(t, uint64(100), g.Aggregate.ReadBytes)
}

func TestGroupThreadCountPerTick(t *testing.T) {
	// Thread count reflects the current tick's samples alone.
	first := Group([]model.RawSample{
		task(100, 100, 0, 0, 0, 0),
		task(101, 100, 0, 0, 0, 0),
		task(102, 100, 0, 0, 0, 0),
	}, Hierarchical)
	second := Group([]model.RawSample{
		task(100, 100, 0, 0, 0, 0),
	}, Hierarchical)

	assert.Equal(t, 3, first[0].ThreadCount)
	assert.Equal(t, 1, second[0].ThreadCount)
}

func TestGroupEmpty(t *testing.T) {
	assert.Empty(t, Group(nil, Hierarchical))
}
