package bindertrace

import (
	"context"
	"sync"

	"github.com/ehrlich-b/go-bindertrace/internal/bpfload"
	"github.com/ehrlich-b/go-bindertrace/internal/constants"
	"github.com/ehrlich-b/go-bindertrace/internal/framer"
	"github.com/ehrlich-b/go-bindertrace/internal/interfaces"
	"github.com/ehrlich-b/go-bindertrace/internal/logging"
)

// Config selects the tunables a production attachment needs, split
// between what the caller can configure and what is fixed at BPF-object
// compile time.
type Config struct {
	ObjectPath      string // path to the compiled bpf/binder.bpf.c object
	MapName         string // BPF_MAP_TYPE_RINGBUF map to read from
	RingBufferSize  int    // advisory; the actual size is fixed at BPF-object compile time
	ScratchSize     int    // advisory; ditto
	PidMax          int    // advisory; ditto
}

// DefaultConfig returns the stock sizes the BPF object is built with: a
// 64 MiB ring buffer, a 32 KiB per-CPU scratch buffer, and Android's
// default PID_MAX of 32768.
func DefaultConfig() Config {
	loader := bpfload.DefaultConfig()
	return Config{
		ObjectPath:     loader.ObjectPath,
		MapName:        loader.MapName,
		RingBufferSize: constants.RingBufferSize,
		ScratchSize:    constants.ScratchSize,
		PidMax:         constants.PidMax,
	}
}

// Options carries the ambient collaborators a Tracer reports through.
type Options struct {
	Logger   *logging.Logger
	Observer interfaces.Observer
}

// Record is a decoded wire record handed to a Tracer's consumer. The
// tracer's job stops at framed records; nothing here attempts
// transaction reconstruction; that belongs to whatever consumes Events.
type Record struct {
	Header    framer.Header
	Truncated bool
	Tail      []byte // type-specific tail bytes, undecoded; see framer.Decode*Tail
}

// Tracer is a live attachment: tracepoints are attached, the BPF program
// is running, and decoded records are available from Events.
type Tracer struct {
	attachment *bpfload.Attachment
	metrics    *Metrics
	obs        interfaces.Observer
	log        *logging.Logger

	events chan Record
	errs   chan error

	closeOnce sync.Once
	cancel    context.CancelFunc
}

// Attach loads the BPF object named by cfg.ObjectPath, attaches its
// tracepoints, and starts decoding records from the ring buffer in the
// background. Cancel ctx or call (*Tracer).Close to detach.
func Attach(ctx context.Context, cfg Config, opts Options) (*Tracer, error) {
	attachment, err := bpfload.Load(bpfload.Config{ObjectPath: cfg.ObjectPath, MapName: cfg.MapName})
	if err != nil {
		return nil, WrapError("attach", err)
	}
	return attachTracer(ctx, attachment, opts), nil
}

// attachTracer wires up the consumer goroutine around an already-loaded
// Attachment. Split out from Attach so tests can drive a fake
// bpfload.Attachment without a kernel.
func attachTracer(ctx context.Context, attachment *bpfload.Attachment, opts Options) *Tracer {
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	obs := opts.Observer
	if obs == nil {
		obs = NoOpObserver{}
	}

	runCtx, cancel := context.WithCancel(ctx)
	t := &Tracer{
		attachment: attachment,
		metrics:    NewMetrics(),
		obs:        obs,
		log:        log,
		events:     make(chan Record, 1024),
		errs:       make(chan error, 1),
		cancel:     cancel,
	}

	go t.consume(runCtx)
	return t
}

// consume drains the ring buffer until ctx is cancelled or a read fails,
// decoding only the fixed Header every record shares; the type-specific
// tail is left for the caller to interpret via framer.Decode*Tail, since
// which decoder applies depends on Header.Type.
func (t *Tracer) consume(ctx context.Context) {
	defer close(t.events)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		raw, err := t.attachment.Reader.Read()
		if err != nil {
			select {
			case t.errs <- err:
			default:
			}
			return
		}

		hdr, ok := framer.DecodeHeader(raw)
		if !ok {
			t.metrics.RecordTruncation()
			t.obs.ObserveTruncation()
			continue
		}

		t.metrics.RecordEvent(hdr.Type)
		t.obs.ObserveEvent(hdr.Type)

		rec := Record{Header: hdr}
		if len(raw) > framer.HeaderSize {
			rec.Tail = raw[framer.HeaderSize:]
		}

		select {
		case t.events <- rec:
		case <-ctx.Done():
			return
		default:
			t.metrics.RecordDrop()
			t.obs.ObserveDrop()
		}
	}
}

// Events returns the channel of decoded records. It is closed once the
// Tracer stops consuming, whether from Close or a ring-buffer read error.
func (t *Tracer) Events() <-chan Record {
	return t.events
}

// Errs returns the channel a terminal ring-buffer read error is delivered
// on, if any. Receives at most one value before Events closes.
func (t *Tracer) Errs() <-chan error {
	return t.errs
}

// Metrics returns the live Metrics instance backing this attachment.
func (t *Tracer) Metrics() *Metrics {
	return t.metrics
}

// MetricsSnapshot is a convenience for Metrics().Snapshot().
func (t *Tracer) MetricsSnapshot() MetricsSnapshot {
	return t.metrics.Snapshot()
}

// Close detaches every tracepoint and stops the consumer goroutine. Safe
// to call more than once.
func (t *Tracer) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.cancel()
		t.metrics.Stop()
		err = t.attachment.Close()
	})
	return err
}
