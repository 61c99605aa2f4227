package model

// ProcState is the kernel execution state of a task.
type ProcState int

const (
	StateRunning ProcState = iota
	StateSleeping
	StateDiskSleep
	StateZombie
	StateStopped
	StateOther
)

// StateFromChar maps the single-letter state from /proc/[pid]/stat.
func StateFromChar(c byte) ProcState {
	switch c {
	case 'R':
		return StateRunning
	case 'S':
		return StateSleeping
	case 'D':
		return StateDiskSleep
	case 'Z':
		return StateZombie
	case 'T', 't':
		return StateStopped
	}
	return StateOther
}

func (s ProcState) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateDiskSleep:
		return "Disk Sleep"
	case StateZombie:
		return "Zombie"
	case StateStopped:
		return "Stopped"
	}
	return "Other"
}

// RawSample is one task (thread or process) read from /proc at one instant.
// All counter fields are cumulative; rates are derived by pairing two
// samples of the same task across ticks.
type RawSample struct {
	PID  int // task id; equals TGID for the thread-group leader
	TGID int
	PPID int

	Comm    string
	Cmdline string // empty when unreadable (foreign-owned process)
	UID     int
	State   ProcState

	CPUTicks   uint64 // utime+stime, jiffies
	RSS        uint64 // bytes
	ReadBytes  uint64
	WriteBytes uint64
	NetRxBytes uint64 // namespace-wide, 0 when /proc/[pid]/net/dev is unreadable
	NetTxBytes uint64

	StartTicks uint64 // jiffies since boot; distinguishes reused pids
}

// SameIdentity reports whether two samples describe the same task instance,
// not merely the same numeric pid.
func (s RawSample) SameIdentity(o RawSample) bool {
	return s.PID == o.PID && s.StartTicks == o.StartTicks
}
