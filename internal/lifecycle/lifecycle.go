// Package lifecycle handles the two event paths that fall outside the
// per-tracepoint state machine proper: a thread's process exiting out from
// under it, and a tracepoint sequence that turned out invalid partway
// through a write-read call. Both just emit a bare header record and clean
// up whatever the other components were tracking for the thread.
package lifecycle

import (
	"github.com/ehrlich-b/go-bindertrace/internal/framer"
	"github.com/ehrlich-b/go-bindertrace/internal/ioctlctx"
	"github.com/ehrlich-b/go-bindertrace/internal/phase"
	"github.com/ehrlich-b/go-bindertrace/internal/wrextract"
)

// OnProcessExit handles a sched/sched_process_exit tracepoint for tid: it
// deletes any tracked phase and write-read cursor for the thread, resets
// its ioctl context to the Fd -1 sentinel (the entry stays, so a later
// Lookup still finds it, disarmed), and always emits a
// BINDER_INVALIDATE_PROCESS record regardless of whether the thread had
// anything tracked; userspace needs to know the thread is gone either way.
func OnProcessExit(ph *phase.Machine, ic *ioctlctx.Tracker, wr *wrextract.Extractor, rb framer.RingBuffer, pid, tid int32, ts uint64) {
	ph.Forget(tid)
	ic.Invalidate(tid)
	wr.Forget(tid)

	rec := framer.Header{Type: phase.InvalidateProcess, Pid: pid, Tid: tid, Timestamp: ts}.Encode(nil)
	rb.Output(rec, false)
}

// EmitInvalid publishes a bare BINDER_INVALID record, used whenever a
// component detects a tracepoint sequence gone wrong partway through
// (a rejected phase transition, a write-read extraction failure) so a
// consumer can drop whatever partial reconstruction it was assembling for
// that thread.
func EmitInvalid(rb framer.RingBuffer, pid, tid int32, ts uint64) {
	rec := framer.Header{Type: phase.Invalid, Pid: pid, Tid: tid, Timestamp: ts}.Encode(nil)
	rb.Output(rec, false)
}
