//go:build !linux

package bpfload

// Load always fails on non-Linux hosts: there is no BPF subsystem to
// attach to. Kept so tracer.go and cmd/bindertrace build everywhere even
// though they only run on Linux.
func Load(cfg Config) (*Attachment, error) {
	return nil, ErrUnsupported
}
