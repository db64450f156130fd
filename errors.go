package bindertrace

import (
	"errors"
	"fmt"
	"syscall"
)

// Error is a structured tracer error carrying the operation that failed
// and the thread/process it concerned; every failure this tracer reports
// is scoped to a traced thread, not to the tracer as a whole.
type Error struct {
	Op    string // Operation that failed (e.g. "attach", "read-user-memory")
	Pid   int32  // Process id the failure concerned (0 if not applicable)
	Tid   int32  // Thread id the failure concerned (0 if not applicable)
	Code  ErrorCode
	Errno syscall.Errno
	Msg   string
	Inner error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Pid != 0 {
		parts = append(parts, fmt.Sprintf("pid=%d", e.Pid))
	}
	if e.Tid != 0 {
		parts = append(parts, fmt.Sprintf("tid=%d", e.Tid))
	}
	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("bindertrace: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("bindertrace: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support against either another *Error with the same
// Code or a bare ErrorCode sentinel.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if ec, ok := target.(ErrorCode); ok {
		return e.Code == ec
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode categorizes tracer failures: the runtime classes a handler
// can hit (state-machine rejection, missing context, user-memory read
// failure, ring-buffer exhaustion) plus the attachment-time failures the
// in-kernel half has no analogue for, like a BPF object that fails to
// load.
type ErrorCode string

func (c ErrorCode) Error() string { return string(c) }

const (
	ErrCodeInvalidTransition  ErrorCode = "invalid state transition"
	ErrCodeMissingContext     ErrorCode = "missing ioctl context"
	ErrCodeUserMemoryRead     ErrorCode = "user memory read failed"
	ErrCodeRingBufferFull     ErrorCode = "ring buffer exhausted"
	ErrCodeAttachFailed       ErrorCode = "tracepoint attach failed"
	ErrCodeLoadFailed         ErrorCode = "bpf object load failed"
	ErrCodeKernelNotSupported ErrorCode = "kernel does not support required bpf features"
	ErrCodePermissionDenied   ErrorCode = "permission denied"
	ErrCodeInvalidParameters  ErrorCode = "invalid parameters"
	ErrCodeInsufficientMemory ErrorCode = "insufficient memory"
	ErrCodeIOError            ErrorCode = "I/O error"
)

// Sentinel errors for errors.Is comparisons against well-known failure
// modes that aren't really about any one ErrorCode.
var (
	ErrNotAttached     = errors.New("bindertrace: tracer is not attached")
	ErrAlreadyAttached = errors.New("bindertrace: tracer is already attached")
)

// NewError creates a structured error with no thread/process context.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewErrorWithErrno creates a structured error carrying a kernel errno.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{Op: op, Code: code, Errno: errno, Msg: errno.Error()}
}

// NewThreadError creates a structured error scoped to a specific pid/tid,
// used when a missing-context or user-memory failure crosses back out of
// the non-blocking tracepoint handlers into something a caller can see.
func NewThreadError(op string, pid, tid int32, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Pid: pid, Tid: tid, Code: code, Msg: msg}
}

// WrapError wraps an arbitrary error with tracer context, mapping a bare
// syscall.Errno to its ErrorCode.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if e, ok := inner.(*Error); ok {
		return &Error{Op: op, Pid: e.Pid, Tid: e.Tid, Code: e.Code, Errno: e.Errno, Msg: e.Msg, Inner: e.Inner}
	}

	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}

	return &Error{Op: op, Code: ErrCodeIOError, Msg: inner.Error(), Inner: inner}
}

// mapErrnoToCode maps a kernel errno to a tracer ErrorCode. EPERM/EACCES is
// the common case here, since attaching tracepoints and opening a ring
// buffer both require CAP_BPF/CAP_PERFMON (or root) rather than any
// device-specific permission.
func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EPERM, syscall.EACCES:
		return ErrCodePermissionDenied
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidParameters
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return ErrCodeKernelNotSupported
	case syscall.ENOMEM:
		return ErrCodeInsufficientMemory
	default:
		return ErrCodeIOError
	}
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsErrno reports whether err is (or wraps) an *Error carrying the given
// errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Errno == errno
	}
	return false
}
