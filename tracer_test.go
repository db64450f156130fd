package bindertrace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ehrlich-b/go-bindertrace/internal/bpfload"
	"github.com/ehrlich-b/go-bindertrace/internal/framer"
	"github.com/ehrlich-b/go-bindertrace/internal/phase"
	"github.com/stretchr/testify/assert"
)

// fakeReader replays a fixed sequence of raw records, then returns err.
type fakeReader struct {
	records [][]byte
	err     error
	closed  bool
}

func (r *fakeReader) Read() ([]byte, error) {
	if len(r.records) == 0 {
		return nil, r.err
	}
	rec := r.records[0]
	r.records = r.records[1:]
	return rec, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

var errReaderClosed = errors.New("fake reader closed")

func TestTracerDecodesRecordsFromRingBuffer(t *testing.T) {
	rec1 := framer.Header{Type: phase.Ioctl, Pid: 10, Tid: 11, Timestamp: 100}.Encode(nil)
	rec2 := framer.Header{Type: phase.IoctlDone, Pid: 10, Tid: 11, Timestamp: 200}.Encode(nil)
	rec2 = framer.IoctlDoneTail{Ret: 0}.Encode(rec2)

	reader := &fakeReader{records: [][]byte{rec1, rec2}, err: errReaderClosed}
	tracer := attachTracer(context.Background(), &bpfload.Attachment{Reader: reader}, Options{})
	defer tracer.Close()

	var got []Record
	for rec := range tracer.Events() {
		got = append(got, rec)
	}

	assert.Len(t, got, 2)
	assert.Equal(t, phase.Ioctl, got[0].Header.Type)
	assert.Equal(t, int32(10), got[0].Header.Pid)
	assert.Equal(t, phase.IoctlDone, got[1].Header.Type)
	assert.Len(t, got[1].Tail, framer.IoctlDoneTailSize)

	snap := tracer.MetricsSnapshot()
	assert.Equal(t, uint64(2), snap.TotalEvents)

	select {
	case err := <-tracer.Errs():
		assert.ErrorIs(t, err, errReaderClosed)
	case <-time.After(time.Second):
		t.Fatal("expected terminal read error to be delivered")
	}
}

func TestTracerCloseStopsConsumer(t *testing.T) {
	reader := &fakeReader{err: errReaderClosed}
	tracer := attachTracer(context.Background(), &bpfload.Attachment{Reader: reader}, Options{})

	if err := tracer.Close(); err != nil {
		t.Fatalf("Close returned %v", err)
	}
	if err := tracer.Close(); err != nil {
		t.Fatalf("second Close returned %v", err)
	}
}

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 64<<20, cfg.RingBufferSize)
	assert.Equal(t, 32<<10, cfg.ScratchSize)
	assert.Equal(t, 32768, cfg.PidMax)
}
