//go:build linux

package bpfload

import (
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/ringbuf"
	"github.com/cilium/ebpf/rlimit"
)

// Load reads cfg.ObjectPath, attaches every tracepoint in Tracepoints that
// the object exposes a matching "tp_<group>_<name>" program for, and opens
// a ring-buffer reader on cfg.MapName. RemoveMemlock is called first since
// loading BPF maps and programs needs locked-memory headroom on kernels
// without cgroup-based accounting.
func Load(cfg Config) (*Attachment, error) {
	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("bpfload: remove memlock rlimit: %w", err)
	}

	spec, err := ebpf.LoadCollectionSpec(cfg.ObjectPath)
	if err != nil {
		return nil, fmt.Errorf("bpfload: load collection spec %s: %w", cfg.ObjectPath, err)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, fmt.Errorf("bpfload: instantiate collection: %w", err)
	}

	var links []link.Link
	closeLinks := func() {
		for _, l := range links {
			l.Close()
		}
	}

	for _, tp := range Tracepoints {
		progName := "tp_" + tp.Group + "_" + tp.Name
		prog, ok := coll.Programs[progName]
		if !ok {
			continue // object doesn't implement this hook; not every build traces every tracepoint
		}
		l, err := link.Tracepoint(tp.Group, tp.Name, prog, nil)
		if err != nil {
			closeLinks()
			coll.Close()
			return nil, fmt.Errorf("bpfload: attach %s/%s: %w", tp.Group, tp.Name, err)
		}
		links = append(links, l)
	}

	m, ok := coll.Maps[cfg.MapName]
	if !ok {
		closeLinks()
		coll.Close()
		return nil, fmt.Errorf("bpfload: collection has no map named %s", cfg.MapName)
	}

	rd, err := ringbuf.NewReader(m)
	if err != nil {
		closeLinks()
		coll.Close()
		return nil, fmt.Errorf("bpfload: open ringbuf reader: %w", err)
	}

	return &Attachment{
		Reader: &ringbufReader{rd: rd},
		closer: func() error {
			rd.Close()
			closeLinks()
			coll.Close()
			return nil
		},
	}, nil
}

// ringbufReader adapts *ringbuf.Reader to the Reader interface, returning
// just the raw sample bytes the framer package decodes.
type ringbufReader struct {
	rd *ringbuf.Reader
}

func (r *ringbufReader) Read() ([]byte, error) {
	rec, err := r.rd.Read()
	if err != nil {
		return nil, err
	}
	return rec.RawSample, nil
}

func (r *ringbufReader) Close() error {
	return r.rd.Close()
}
