// Package constants holds the tunables and fixed sizes shared across the
// tracer's components.
package constants

const (
	// PidMax bounds the thread-keyed maps (phase, ioctl context). Android's
	// default; real kernels expose the live value at /proc/sys/kernel/pid_max.
	PidMax = 32768

	// RingBufferSize is the default capacity of the shared events ring
	// buffer, in bytes.
	RingBufferSize = 64 << 20

	// ScratchSize is the fixed size of the per-CPU scratch buffer used to
	// stage BINDER_WRITE_READ payloads before framing. All copy lengths are
	// clamped to the room left after the record header and then masked
	// against ScratchSize-1 before use; the mask is the bound the in-kernel
	// verifier can prove.
	ScratchSize = 32 << 10

	// ScratchMask masks a size down to what fits in one scratch buffer.
	ScratchMask = ScratchSize - 1
)
