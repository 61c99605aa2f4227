package proc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/procscope/procscope/model"
	"github.com/procscope/procscope/util"
)

// ClockTicks returns the jiffies-per-second constant. The CLK_TCK env var
// overrides it (useful for tests); otherwise 100, which every mainstream
// kernel config uses for USER_HZ. sysconf(_SC_CLK_TCK) would need cgo.
func ClockTicks() uint64 {
	if v, _ := strconv.Atoi(os.Getenv("CLK_TCK")); v > 0 {
		return uint64(v)
	}
	return 100
}

// ReadSystem reads the system-wide aggregates needed to normalize
// per-entity metrics. An error here is systemic: the whole tick is degraded.
func (r *Reader) ReadSystem() (model.SystemStats, error) {
	st := model.SystemStats{CPUTicksPerS: ClockTicks()}

	lines, err := util.ReadFileLines(filepath.Join(r.root(), "stat"))
	if err != nil {
		return st, fmt.Errorf("read cpu accounting: %w", err)
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 8 || !strings.HasPrefix(fields[0], "cpu") {
			continue
		}
		if fields[0] != "cpu" {
			st.NumCPUs++
			continue
		}
		var vals []uint64
		for _, f := range fields[1:] {
			vals = append(vals, util.ParseUint64(f))
		}
		for _, v := range vals {
			st.TotalCPUTicks += v
		}
		// idle + iowait are vals[3] and vals[4]
		st.BusyCPUTicks = st.TotalCPUTicks - vals[3] - vals[4]
	}
	if st.TotalCPUTicks == 0 {
		return st, fmt.Errorf("no aggregate cpu line in %s/stat", r.root())
	}
	if st.NumCPUs == 0 {
		st.NumCPUs = 1
	}

	if kv, err := util.ParseKeyValueFile(filepath.Join(r.root(), "meminfo")); err == nil {
		st.TotalMemBytes = util.ParseUint64(kv["MemTotal"]) * 1024
	}
	return st, nil
}
