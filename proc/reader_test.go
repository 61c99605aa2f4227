package proc

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/procscope/procscope/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statLine = "1234 (fire fox) S 1 1234 1234 0 -1 4194304 9000 0 120 0 " +
	"300 200 0 0 20 0 7 0 555555 1000000 2048 18446744073709551615 " +
	"1 1 0 0 0 0 0 0 0 0 0 0 17 3 0 0 0 0 0"

func TestParseStat(t *testing.T) {
	var s model.RawSample
	require.NoError(t, parseStat(statLine, &s))

	assert.Equal(t, "fire fox", s.Comm, "comm with spaces must survive the parens split")
	assert.Equal(t, model.StateSleeping, s.State)
	assert.Equal(t, 1, s.PPID)
	assert.Equal(t, uint64(500), s.CPUTicks, "utime+stime")
	assert.Equal(t, uint64(555555), s.StartTicks)
}

func TestParseStatMalformed(t *testing.T) {
	var s model.RawSample
	assert.Error(t, parseStat("no parens here", &s))
	assert.Error(t, parseStat("1 (x) S 2 3", &s), "truncated field list")
}

func TestParseStatus(t *testing.T) {
	kv := map[string]string{
		"Tgid":  "1234",
		"Uid":   "1000\t1000\t1000\t1000",
		"VmRSS": "2048 kB",
	}
	s := model.RawSample{PID: 1240, TGID: 1240, UID: -1}
	parseStatus(kv, &s)

	assert.Equal(t, 1234, s.TGID)
	assert.Equal(t, 1000, s.UID)
	assert.Equal(t, uint64(2048*1024), s.RSS)
}

func TestParseStatusKernelThread(t *testing.T) {
	// Kernel threads have no VmRSS line at all.
	s := model.RawSample{PID: 17, TGID: 17, UID: -1}
	parseStatus(map[string]string{"Tgid": "17", "Uid": "0\t0\t0\t0"}, &s)
	assert.Zero(t, s.RSS)
	assert.Equal(t, 0, s.UID)
}

func TestCmdlineString(t *testing.T) {
	assert.Equal(t, "nginx -g daemon off;", cmdlineString([]byte("nginx\x00-g\x00daemon off;\x00")))
	assert.Equal(t, "", cmdlineString(nil), "zombies have an empty cmdline")
}

// writeFakeProc lays out a minimal procfs under dir for one two-thread
// process plus system files.
func writeFakeProc(t *testing.T, dir string) {
	t.Helper()

	writeTask := func(taskDir string, tid int, ticks uint64) {
		require.NoError(t, os.MkdirAll(taskDir, 0o755))
		stat := strconv.Itoa(tid) + " (worker) R 1 4321 4321 0 -1 0 0 0 0 0 " +
			strconv.FormatUint(ticks, 10) + " 0 0 0 20 0 2 0 999 0 0 0 " +
			"0 0 0 0 0 0 0 0 0 0 0 0 17 0 0 0 0 0 0"
		require.NoError(t, os.WriteFile(filepath.Join(taskDir, "stat"), []byte(stat), 0o644))
		status := "Name:\tworker\nTgid:\t4321\nUid:\t500\t500\t500\t500\nVmRSS:\t1024 kB\n"
		require.NoError(t, os.WriteFile(filepath.Join(taskDir, "status"), []byte(status), 0o644))
		io := "read_bytes: 4096\nwrite_bytes: 8192\n"
		require.NoError(t, os.WriteFile(filepath.Join(taskDir, "io"), []byte(io), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(taskDir, "cmdline"), []byte("worker\x00--run\x00"), 0o644))
	}

	pidDir := filepath.Join(dir, "4321")
	writeTask(filepath.Join(pidDir, "task", "4321"), 4321, 100)
	writeTask(filepath.Join(pidDir, "task", "4330"), 4330, 40)

	require.NoError(t, os.MkdirAll(filepath.Join(pidDir, "net"), 0o755))
	netdev := "Inter-|   Receive                |  Transmit\n" +
		" face |bytes    packets |bytes    packets\n" +
		"    lo:     500       5    0 0 0 0 0 0      500       5    0 0 0 0 0 0\n" +
		"  eth0:    7000      70    0 0 0 0 0 0     3000      30    0 0 0 0 0 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(pidDir, "net", "dev"), []byte(netdev), 0o644))

	stat := "cpu  100 0 100 700 50 0 0 0 0 0\n" +
		"cpu0 50 0 50 350 25 0 0 0 0 0\n" +
		"cpu1 50 0 50 350 25 0 0 0 0 0\n" +
		"intr 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(stat), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meminfo"), []byte("MemTotal: 16384 kB\nMemFree: 8192 kB\n"), 0o644))
}

func TestReadProcess(t *testing.T) {
	dir := t.TempDir()
	writeFakeProc(t, dir)
	r := &Reader{Root: dir}

	pids, err := r.Enumerate()
	require.NoError(t, err)
	assert.Equal(t, []int{4321}, pids)

	samples, err := r.ReadProcess(4321)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	byPID := map[int]model.RawSample{}
	for _, s := range samples {
		byPID[s.PID] = s
	}
	leader := byPID[4321]
	assert.Equal(t, 4321, leader.TGID)
	assert.Equal(t, "worker --run", leader.Cmdline)
	assert.Equal(t, uint64(100), leader.CPUTicks)
	assert.Equal(t, uint64(4096), leader.ReadBytes)
	assert.Equal(t, uint64(7000), leader.NetRxBytes, "loopback excluded")
	assert.Equal(t, uint64(3000), leader.NetTxBytes)

	member := byPID[4330]
	assert.Equal(t, 4321, member.TGID)
	assert.Zero(t, member.NetRxBytes, "net counters attach to the leader only")
}

func TestReadProcessGone(t *testing.T) {
	r := &Reader{Root: t.TempDir()}
	_, err := r.ReadProcess(99999)
	assert.ErrorIs(t, err, ErrGone)
}

func TestReadSystem(t *testing.T) {
	dir := t.TempDir()
	writeFakeProc(t, dir)
	r := &Reader{Root: dir}

	st, err := r.ReadSystem()
	require.NoError(t, err)
	assert.Equal(t, 2, st.NumCPUs)
	assert.Equal(t, uint64(950), st.TotalCPUTicks)
	assert.Equal(t, uint64(200), st.BusyCPUTicks)
	assert.Equal(t, uint64(16384*1024), st.TotalMemBytes)
}

func TestReadSystemMissing(t *testing.T) {
	r := &Reader{Root: t.TempDir()}
	_, err := r.ReadSystem()
	assert.Error(t, err)
}
