package proc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/procscope/procscope/model"
	"github.com/procscope/procscope/util"
)

// ErrGone reports a process that disappeared between enumeration and read.
// Callers treat it as expected (TOCTOU), not as a cycle failure.
var ErrGone = errors.New("process gone")

// Reader reads per-task samples from the proc filesystem.
type Reader struct {
	// Root is the procfs mount point; overridable for tests.
	Root string
}

// NewReader returns a Reader over /proc.
func NewReader() *Reader {
	return &Reader{Root: "/proc"}
}

func (r *Reader) root() string {
	if r.Root == "" {
		return "/proc"
	}
	return r.Root
}

// Enumerate lists the live thread-group ids. A process created mid-scan may
// or may not appear; that is acceptable at this boundary.
func (r *Reader) Enumerate() ([]int, error) {
	entries, err := os.ReadDir(r.root())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.root(), err)
	}
	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// ReadProcess reads one sample per task of the given thread group.
// Returns ErrGone if the process exited before it could be read. Individual
// tasks that vanish mid-read are simply omitted; fields the caller lacks
// permission for are left at their zero defaults.
func (r *Reader) ReadProcess(pid int) ([]model.RawSample, error) {
	pidDir := filepath.Join(r.root(), strconv.Itoa(pid))

	tids := r.taskIDs(pidDir)
	if len(tids) == 0 {
		// No task dir (exited, or a restricted procfs): fall back to the
		// process-level files, which cover the whole group.
		s, err := r.readTask(pid, pidDir)
		if err != nil {
			return nil, err
		}
		return []model.RawSample{s}, nil
	}

	samples := make([]model.RawSample, 0, len(tids))
	for _, tid := range tids {
		s, err := r.readTask(tid, filepath.Join(pidDir, "task", strconv.Itoa(tid)))
		if err != nil {
			continue // task exited mid-scan
		}
		samples = append(samples, s)
	}
	if len(samples) == 0 {
		return nil, ErrGone
	}

	// Namespace-wide network counters belong to the group, not to a single
	// task: attach them to the leader sample only so aggregation cannot
	// count them once per thread.
	for i := range samples {
		if samples[i].PID == samples[i].TGID {
			samples[i].NetRxBytes, samples[i].NetTxBytes = r.readNetDev(pidDir)
			break
		}
	}
	return samples, nil
}

func (r *Reader) taskIDs(pidDir string) []int {
	entries, err := os.ReadDir(filepath.Join(pidDir, "task"))
	if err != nil {
		return nil
	}
	tids := make([]int, 0, len(entries))
	for _, e := range entries {
		if tid, err := strconv.Atoi(e.Name()); err == nil && tid > 0 {
			tids = append(tids, tid)
		}
	}
	return tids
}

func (r *Reader) readTask(tid int, taskDir string) (model.RawSample, error) {
	s := model.RawSample{PID: tid, TGID: tid, UID: -1}

	content, err := util.ReadFileString(filepath.Join(taskDir, "stat"))
	if err != nil {
		if os.IsNotExist(err) {
			return s, ErrGone
		}
		return s, err
	}
	if err := parseStat(content, &s); err != nil {
		return s, err
	}

	// status carries tgid, owner and RSS; unreadable for foreign processes
	// on hardened systems, in which case the defaults stand.
	if kv, err := util.ParseKeyValueFile(filepath.Join(taskDir, "status")); err == nil {
		parseStatus(kv, &s)
	}

	// io requires ptrace-level access; zeros when denied.
	if kv, err := util.ParseKeyValueFile(filepath.Join(taskDir, "io")); err == nil {
		s.ReadBytes = util.ParseUint64(kv["read_bytes"])
		s.WriteBytes = util.ParseUint64(kv["write_bytes"])
	}

	if raw, err := os.ReadFile(filepath.Join(taskDir, "cmdline")); err == nil {
		s.Cmdline = cmdlineString(raw)
	}

	return s, nil
}

// parseStat fills a sample from the contents of /proc/[pid]/stat.
// comm may contain spaces and parens, so the split anchors on the last ')'.
func parseStat(content string, s *model.RawSample) error {
	openIdx := strings.Index(content, "(")
	closeIdx := strings.LastIndex(content, ")")
	if openIdx < 0 || closeIdx < openIdx {
		return fmt.Errorf("malformed stat line")
	}
	s.Comm = content[openIdx+1 : closeIdx]

	rest := strings.Fields(content[closeIdx+1:])
	if len(rest) < 22 {
		return fmt.Errorf("stat line too short: %d fields", len(rest))
	}
	if len(rest[0]) > 0 {
		s.State = model.StateFromChar(rest[0][0])
	}
	s.PPID = util.ParseInt(rest[1])
	s.CPUTicks = util.ParseUint64(rest[11]) + util.ParseUint64(rest[12]) // utime+stime
	s.StartTicks = util.ParseUint64(rest[19])
	return nil
}

func parseStatus(kv map[string]string, s *model.RawSample) {
	if tgid := util.ParseInt(kv["Tgid"]); tgid > 0 {
		s.TGID = tgid
	}
	// Uid line: real, effective, saved, fs
	if f := strings.Fields(kv["Uid"]); len(f) > 0 {
		s.UID = util.ParseInt(f[0])
	}
	// VmRSS is absent for kernel threads and zombies.
	s.RSS = util.ParseUint64(kv["VmRSS"]) * 1024
}

// cmdlineString converts the NUL-separated argv into a display string.
func cmdlineString(raw []byte) string {
	str := strings.TrimRight(string(raw), "\x00")
	return strings.ReplaceAll(str, "\x00", " ")
}

// readNetDev sums the rx/tx byte counters of the process's network
// namespace, excluding loopback. Meaningful for processes in their own
// namespace (containers); for host processes it mirrors the host totals
// and the per-entity rate degrades to a namespace-level figure.
func (r *Reader) readNetDev(pidDir string) (rx, tx uint64) {
	lines, err := util.ReadFileLines(filepath.Join(pidDir, "net", "dev"))
	if err != nil {
		return 0, 0
	}
	for _, line := range lines {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue // header lines
		}
		name := strings.TrimSpace(line[:idx])
		if name == "lo" {
			continue
		}
		fields := strings.Fields(line[idx+1:])
		if len(fields) < 16 {
			continue
		}
		rx += util.ParseUint64(fields[0])
		tx += util.ParseUint64(fields[8])
	}
	return rx, tx
}
