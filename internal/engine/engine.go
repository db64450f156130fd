// Package engine composes the phase machine, ioctl-context tracker,
// write-read extractor and lifecycle handling into one type with a method
// per attached tracepoint, the shape both a real cilium/ebpf ring-buffer
// consumer and the deterministic replay tests drive.
package engine

import (
	"github.com/ehrlich-b/go-bindertrace/internal/framer"
	"github.com/ehrlich-b/go-bindertrace/internal/interfaces"
	"github.com/ehrlich-b/go-bindertrace/internal/ioctlctx"
	"github.com/ehrlich-b/go-bindertrace/internal/lifecycle"
	"github.com/ehrlich-b/go-bindertrace/internal/phase"
	"github.com/ehrlich-b/go-bindertrace/internal/uapi"
	"github.com/ehrlich-b/go-bindertrace/internal/usermem"
	"github.com/ehrlich-b/go-bindertrace/internal/wrextract"
)

// Engine is the per-attachment state a tracer session needs: one phase
// machine and one ioctl-context tracker and one write-read extractor,
// shared across every tracepoint callback for the lifetime of the
// attachment (not per-thread; each of those components is itself
// thread-keyed internally).
type Engine struct {
	Phase   *phase.Machine
	Ioctl   *ioctlctx.Tracker
	Extract *wrextract.Extractor
	Mem     usermem.Space
	Ring    framer.RingBuffer
	Obs     interfaces.Observer
	Log     interfaces.Logger
}

// New builds an Engine around the given user-memory source and ring
// buffer. obs and log may both be nil.
func New(mem usermem.Space, rb framer.RingBuffer, obs interfaces.Observer, log interfaces.Logger) *Engine {
	return &Engine{
		Phase:   phase.NewMachine(),
		Ioctl:   ioctlctx.NewTracker(),
		Extract: wrextract.New(),
		Mem:     mem,
		Ring:    rb,
		Obs:     obs,
		Log:     log,
	}
}

func (e *Engine) observe(typ phase.Phase) {
	if e.Obs != nil {
		e.Obs.ObserveEvent(typ)
	}
}

func (e *Engine) invalid(pid, tid int32, ts uint64) {
	if e.Obs != nil {
		e.Obs.ObserveInvalidTransition()
	}
	lifecycle.EmitInvalid(e.Ring, pid, tid, ts)
}

// transition requests a phase move for tid and reports the outcome. A
// tracked-but-rejected move emits the single Invalid record the consumer
// needs to abandon its partial reconstruction; an Unknown thread stays
// silent, since there is nothing tracked to invalidate.
func (e *Engine) transition(pid, tid int32, to phase.Phase, ts uint64) phase.Result {
	res := e.Phase.Transition(tid, to)
	if res == phase.Rejected {
		e.invalid(pid, tid, ts)
	}
	return res
}

// SysEnter handles tp/raw_syscalls/sys_enter: arms tid's ioctl context with
// the fd argument if this is an ioctl(2) call.
func (e *Engine) SysEnter(tid int32, syscallNR int64, fd int32) {
	e.Ioctl.SysEnter(tid, syscallNR, fd)
}

// SysExit handles tp/raw_syscalls/sys_exit: disarms tid's ioctl context.
func (e *Engine) SysExit(tid int32, syscallNR int64) {
	e.Ioctl.SysExit(tid, syscallNR)
}

// SchedProcessExit handles tp/sched/sched_process_exit.
func (e *Engine) SchedProcessExit(pid, tid int32, ts uint64) {
	lifecycle.OnProcessExit(e.Phase, e.Ioctl, e.Extract, e.Ring, pid, tid, ts)
}

// BinderIoctl handles tp/binder/binder_ioctl. The phase transition to
// Ioctl is unconditional (it is how a thread's tracked phase comes to
// exist in the first place) and happens whether or not an ioctl context
// is present; only event emission is gated on the context lookup
// succeeding, matching the BPF program's silent-skip path when no fd was
// captured at syscall entry.
func (e *Engine) BinderIoctl(pid, tid int32, cmd uint32, arg uint64, comm [16]byte, uid, gid uint32, ts uint64) {
	e.Phase.Enter(tid)

	ctx, ok := e.Ioctl.Arm(tid, cmd, arg)
	if !ok {
		if e.Log != nil {
			e.Log.Debugf("binder_ioctl: no fd for tid %d", tid)
		}
		return
	}

	e.observe(phase.Ioctl)
	rec := framer.Header{Type: phase.Ioctl, Pid: pid, Tid: tid, Timestamp: ts}.Encode(nil)
	rec = framer.IoctlTail{Fd: ctx.Fd, Comm: comm, Uid: uid, Gid: gid, Cmd: cmd, Arg: arg}.Encode(rec)
	e.Ring.Submit(rec, true) // force wakeup: first event a consumer sees about this thread

	if cmd != uapi.BinderWriteReadCmd {
		return
	}
	if !e.Extract.OnIoctlEntry(tid, pid, ctx, ts, e.Mem, e.Ring) {
		e.invalid(pid, tid, ts)
	}
}

// BinderIoctlDone handles tp/binder/binder_ioctl_done. A rejected
// transition emits an Invalid record and returns; the thread's phase and
// write-read cursor are not reset and stay as they were. An unknown thread
// returns silently.
func (e *Engine) BinderIoctlDone(pid, tid int32, ret int32, ts uint64) {
	if e.transition(pid, tid, phase.IoctlDone, ts) != phase.Valid {
		return
	}
	e.Phase.Forget(tid) // reset to invalid: the call is over either way

	ctx, ok := e.Ioctl.Lookup(tid)
	if !ok {
		if e.Log != nil {
			e.Log.Debugf("binder_ioctl_done: no fd for tid %d", tid)
		}
		return
	}

	if ctx.Cmd == uapi.BinderWriteReadCmd {
		if !e.Extract.OnIoctlExit(tid, pid, ctx, ts, e.Mem, e.Ring) {
			e.invalid(pid, tid, ts)
			return
		}
	}

	e.observe(phase.IoctlDone)
	rec := framer.Header{Type: phase.IoctlDone, Pid: pid, Tid: tid, Timestamp: ts}.Encode(nil)
	rec = framer.IoctlDoneTail{Ret: ret}.Encode(rec)
	e.Ring.Submit(rec, false)
}

// BinderCommand handles tp/binder/binder_command. A failed sub-command
// extraction is logged and destroys the cursor (OnCommand does that
// itself) but emits nothing: only the ioctl entry/exit capture failures
// warrant an Invalid record.
func (e *Engine) BinderCommand(pid, tid int32, cmd uint32, ts uint64) {
	if e.transition(pid, tid, phase.Command, ts) != phase.Valid {
		e.Extract.Forget(tid)
		return
	}

	if !e.Extract.OnCommand(tid, pid, cmd, ts, e.Mem, e.Ring) && e.Log != nil {
		e.Log.Debugf("binder_command: extraction failed for tid %d", tid)
	}
}

// BinderReturn handles tp/binder/binder_return. As with BinderCommand, an
// extraction failure costs the thread its cursor but not an Invalid
// record. wrextract.OnReturn itself special-cases BR_SPAWN_LOOPER
// (pre-advance persisted, no further processing).
func (e *Engine) BinderReturn(pid, tid int32, cmd uint32, ts uint64) {
	if e.transition(pid, tid, phase.Return, ts) != phase.Valid {
		e.Extract.Forget(tid)
		return
	}

	if !e.Extract.OnReturn(tid, pid, cmd, ts, e.Mem, e.Ring) && e.Log != nil {
		e.Log.Debugf("binder_return: extraction failed for tid %d", tid)
	}
}

// BinderTransaction handles tp/binder/binder_transaction.
func (e *Engine) BinderTransaction(pid, tid int32, txn framer.TransactionTail, ts uint64) {
	if e.transition(pid, tid, phase.Txn, ts) != phase.Valid {
		return
	}

	e.observe(phase.Txn)
	rec := framer.Header{Type: phase.Txn, Pid: pid, Tid: tid, Timestamp: ts}.Encode(nil)
	rec = txn.Encode(rec)
	e.Ring.Submit(rec, false)
}

// BinderTransactionReceived handles tp/binder/binder_transaction_received.
func (e *Engine) BinderTransactionReceived(pid, tid int32, debugID int32, ts uint64) {
	if e.transition(pid, tid, phase.TxnReceived, ts) != phase.Valid {
		return
	}

	e.observe(phase.TxnReceived)
	rec := framer.Header{Type: phase.TxnReceived, Pid: pid, Tid: tid, Timestamp: ts}.Encode(nil)
	rec = framer.TransactionReceivedTail{DebugID: debugID}.Encode(rec)
	e.Ring.Submit(rec, false)
}

// BinderWriteDone handles tp/binder/binder_write_done: a bare transition
// with no record of its own unless the move is rejected.
func (e *Engine) BinderWriteDone(pid, tid int32, ts uint64) {
	e.transition(pid, tid, phase.WriteDone, ts)
}

// BinderWaitForWork handles tp/binder/binder_wait_for_work: a bare
// transition with no record of its own unless the move is rejected.
func (e *Engine) BinderWaitForWork(pid, tid int32, ts uint64) {
	e.transition(pid, tid, phase.WaitForWork, ts)
}

// BinderReadDone handles tp/binder/binder_read_done: a bare transition
// with no record of its own unless the move is rejected.
func (e *Engine) BinderReadDone(pid, tid int32, ts uint64) {
	e.transition(pid, tid, phase.ReadDone, ts)
}
