// Package bpfload loads the compiled bpf/binder.bpf.c object, attaches
// its binder/syscall/sched tracepoints, and hands the caller a
// ring-buffer reader of already-framed wire records. The phase machine,
// ioctl-context tracker, write-read extractor and lifecycle hooks all run
// inside the BPF program itself once attached; this package's job ends
// at getting bytes out of the kernel.
package bpfload

import "errors"

// TracepointSpec names one tracepoint attachment the loader makes: the
// Binder-specific hooks plus the raw-syscall pair the ioctl-context
// tracker needs and the sched hook process-exit cleanup needs.
type TracepointSpec struct {
	Group string
	Name  string
}

// Tracepoints is the fixed attachment list the loader walks. Order
// doesn't matter functionally; the kernel delivers each independently.
var Tracepoints = []TracepointSpec{
	{Group: "raw_syscalls", Name: "sys_enter"},
	{Group: "raw_syscalls", Name: "sys_exit"},
	{Group: "sched", Name: "sched_process_exit"},
	{Group: "binder", Name: "binder_ioctl"},
	{Group: "binder", Name: "binder_ioctl_done"},
	{Group: "binder", Name: "binder_command"},
	{Group: "binder", Name: "binder_return"},
	{Group: "binder", Name: "binder_transaction"},
	{Group: "binder", Name: "binder_transaction_received"},
	{Group: "binder", Name: "binder_write_done"},
	{Group: "binder", Name: "binder_wait_for_work"},
	{Group: "binder", Name: "binder_read_done"},
}

// Config selects the object file to load and the map it should size its
// ring-buffer reader around. ObjectPath is typically
// "bpf/binder.bpf.o" next to the cmd/bindertrace binary.
type Config struct {
	ObjectPath string
	MapName    string // name of the BPF_MAP_TYPE_RINGBUF map, default "binder_events_buffer"
}

// DefaultConfig returns the conventional object path and map name the
// bpf/binder.bpf.c source (internal/bpfload's counterpart) declares.
func DefaultConfig() Config {
	return Config{
		ObjectPath: "bpf/binder.bpf.o",
		MapName:    "binder_events_buffer",
	}
}

// Reader is the subset of *ringbuf.Reader the rest of this package and
// tracer.go need, kept as an interface so tracer.go's consumer loop is
// testable without a kernel.
type Reader interface {
	Read() ([]byte, error)
	Close() error
}

// Attachment is a live BPF load: a ring-buffer reader plus the links that
// must be closed to detach every tracepoint.
type Attachment struct {
	Reader Reader
	closer func() error
}

// Close detaches every tracepoint and closes the ring-buffer reader.
func (a *Attachment) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// ErrUnsupported is returned by Load on platforms with no BPF support.
var ErrUnsupported = errors.New("bpfload: ebpf attachment is not supported on this platform")
