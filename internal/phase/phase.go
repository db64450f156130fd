// Package phase tracks, per Binder thread, which tracepoint is expected to
// fire next and validates every observed transition against the fixed table
// the kernel driver's call graph actually permits.
package phase

import "sync"

// Phase is one state of a thread's Binder ioctl lifecycle.
type Phase int

const (
	Invalid Phase = iota
	Ioctl
	Command
	Txn
	WriteDone
	WaitForWork
	Return
	ReadDone
	TxnReceived
	IoctlDone

	stateMax // sentinel: one past the last real phase, bounds the table below
)

// Pseudo-tags are not positions in the state machine; they label event
// kinds emitted alongside a transition (process exit, write-read framing,
// transaction payloads) and never appear as a from/to value below.
const (
	InvalidateProcess Phase = stateMax + iota
	Write
	Read
	TxnData
)

func (p Phase) String() string {
	switch p {
	case Invalid:
		return "invalid"
	case Ioctl:
		return "ioctl"
	case Command:
		return "command"
	case Txn:
		return "txn"
	case WriteDone:
		return "write_done"
	case WaitForWork:
		return "wait_for_work"
	case Return:
		return "return"
	case ReadDone:
		return "read_done"
	case TxnReceived:
		return "txn_received"
	case IoctlDone:
		return "ioctl_done"
	case InvalidateProcess:
		return "invalidate_process"
	case Write:
		return "write"
	case Read:
		return "read"
	case TxnData:
		return "txn_data"
	default:
		return "unknown"
	}
}

// validFrom[to] lists every phase a transition into `to` may originate from.
// A thread with no tracked phase yet can only become Ioctl, and that entry
// point bypasses this table entirely (see Machine.Enter). The ordering and
// membership mirror the driver's own call graph: Command loops against
// itself and against Txn because BC_* sub-commands are walked one at a time
// in a loop that a transaction command may interrupt; WriteDone closes that
// loop from either Command or Txn; WaitForWork starts the read side, which
// either moves straight to ReadDone (no work) or into the
// Return/TxnReceived pair that a read loop alternates between; ReadDone is
// reached from WaitForWork or Return, and IoctlDone only from Ioctl,
// WriteDone or ReadDone.
var validFrom = [stateMax][]Phase{
	Command:     {Ioctl, Command, Txn},
	Txn:         {Command},
	WriteDone:   {Txn, Command},
	WaitForWork: {Ioctl, WriteDone},
	TxnReceived: {WaitForWork, Return},
	Return:      {WaitForWork, TxnReceived, Return},
	ReadDone:    {WaitForWork, Return},
	IoctlDone:   {Ioctl, WriteDone, ReadDone},
}

// IsValidTransition reports whether a thread may move from `from` to `to`.
// Linear scan over a handful of entries, same as the table it mirrors.
func IsValidTransition(from, to Phase) bool {
	for _, s := range validFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Machine tracks the current phase of every thread the tracer has seen a
// Binder ioctl from. Zero value is ready to use.
type Machine struct {
	mu    sync.Mutex
	state map[int32]Phase
}

// NewMachine returns a ready-to-use Machine.
func NewMachine() *Machine {
	return &Machine{state: make(map[int32]Phase)}
}

// Enter unconditionally places tid into Ioctl, the one transition the
// driver performs as a plain map write rather than through the validated
// table; it is how a thread's state first comes to exist. Entering from
// any prior phase silently overwrites it, matching the driver's own
// unconditional update on every BINDER_IOCTL entry.
func (m *Machine) Enter(tid int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		m.state = make(map[int32]Phase)
	}
	m.state[tid] = Ioctl
}

// Result classifies the outcome of a Transition attempt. The driver treats
// "no tracked thread" and "tracked but not a permitted move" differently ;
// only the latter is worth telling a consumer about, so callers need more
// than a single bool to reproduce that.
type Result int

const (
	// Valid: the move was permitted and applied.
	Valid Result = iota
	// Rejected: tid was tracked but the move isn't in validFrom[to]; tid's
	// phase is left unchanged.
	Rejected
	// Unknown: tid has no tracked phase at all, so there was nothing to
	// validate the move against.
	Unknown
)

// Transition attempts to move tid to the given phase and reports which of
// the three outcomes above occurred.
func (m *Machine) Transition(tid int32, to Phase) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, ok := m.state[tid]
	if !ok {
		return Unknown
	}
	if !IsValidTransition(from, to) {
		return Rejected
	}
	m.state[tid] = to
	return Valid
}

// Current returns tid's tracked phase and whether it has one at all.
func (m *Machine) Current(tid int32) (Phase, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state[tid]
	return p, ok
}

// Forget drops tid's tracked phase, used on thread/process exit.
func (m *Machine) Forget(tid int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, tid)
}
