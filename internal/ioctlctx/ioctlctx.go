// Package ioctlctx stitches together the two tracepoint layers a traced
// ioctl(2) call passes through: the generic raw_syscalls entry/exit pair
// (which carries the fd but no Binder-specific detail) and the
// Binder-specific tp/binder/binder_ioctl tracepoint (which carries the cmd
// and arg but fires from inside the driver, with no direct view of which fd
// the calling thread's syscall used).
package ioctlctx

import (
	"sync"

	"golang.org/x/sys/unix"
)

// Context is what a thread's in-flight ioctl call is known about so far.
// Fd is populated at syscall entry; Cmd and Arg are filled in once the
// Binder-specific tracepoint fires partway through the same call.
type Context struct {
	Fd  int32
	Cmd uint32
	Arg uint64
}

// Tracker maps a thread id to its in-flight ioctl context. Zero value is
// ready to use.
type Tracker struct {
	mu  sync.Mutex
	ctx map[int32]Context
}

// NewTracker returns a ready-to-use Tracker.
func NewTracker() *Tracker {
	return &Tracker{ctx: make(map[int32]Context)}
}

// binderIoctlSyscallNR is the syscall number sys_enter/sys_exit compare
// ctx.id against before arming or disarming a thread's context. ioctl(2)'s
// number differs per architecture; unix.SYS_IOCTL resolves to the right one
// for the build target.
const binderIoctlSyscallNR = unix.SYS_IOCTL

// SyscallNR reports the raw_syscalls id this tracker arms/disarms on.
func SyscallNR() int64 { return binderIoctlSyscallNR }

// SysEnter arms tid's context with the fd argument if the entered syscall is
// ioctl(2); any other syscall is ignored. Called once per raw syscall, not
// just Binder ones, so nr must be checked here rather than by the caller.
func (t *Tracker) SysEnter(tid int32, nr int64, fd int32) {
	if nr != binderIoctlSyscallNR {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx == nil {
		t.ctx = make(map[int32]Context)
	}
	t.ctx[tid] = Context{Fd: fd}
}

// SysExit disarms tid's context by setting Fd to -1, a sentinel write
// rather than deleting the map entry; a stale
// leftover from an ioctl that exited is distinguishable from one that never
// ran, but the entry itself stays so the next binder_ioctl's lookup never
// has to special-case "not present yet".
func (t *Tracker) SysExit(tid int32, nr int64) {
	if nr != binderIoctlSyscallNR {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx == nil {
		t.ctx = make(map[int32]Context)
	}
	t.ctx[tid] = Context{Fd: -1}
}

// Arm records the cmd/arg of a Binder ioctl for tid's in-flight context,
// leaving Fd as whatever sys_enter recorded. Returns false if no context
// exists yet for tid (the "no fd?" case upstream): tid's Binder tracepoint
// fired without ever observing the matching raw syscall entry.
func (t *Tracker) Arm(tid int32, cmd uint32, arg uint64) (Context, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.ctx[tid]
	if !ok {
		return Context{}, false
	}
	c.Cmd = cmd
	c.Arg = arg
	t.ctx[tid] = c
	return c, true
}

// Lookup returns tid's tracked context without modifying it.
func (t *Tracker) Lookup(tid int32) (Context, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.ctx[tid]
	return c, ok
}

// Invalidate disarms tid's context the same way SysExit does, used on
// thread/process exit.
func (t *Tracker) Invalidate(tid int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx == nil {
		t.ctx = make(map[int32]Context)
	}
	t.ctx[tid] = Context{Fd: -1}
}
