package framer

import (
	"testing"

	"github.com/ehrlich-b/go-bindertrace/internal/phase"
	"github.com/ehrlich-b/go-bindertrace/internal/uapi"
	"github.com/stretchr/testify/assert"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Type: phase.Ioctl, Pid: 100, Tid: 101, Timestamp: 123456789}
	buf := h.Encode(nil)
	assert.Len(t, buf, HeaderSize)

	got, ok := DecodeHeader(buf)
	assert.True(t, ok)
	assert.Equal(t, h, got)
}

func TestIoctlTailRoundTrip(t *testing.T) {
	tail := IoctlTail{Fd: 3, Uid: 1000, Gid: 1000, Cmd: uapi.BinderWriteReadCmd, Arg: 0x7f0000000000}
	copy(tail.Comm[:], "binder_tx")

	buf := tail.Encode(nil)
	got, ok := DecodeIoctlTail(buf)
	assert.True(t, ok)
	assert.Equal(t, tail, got)
}

func TestWriteReadTailRoundTrip(t *testing.T) {
	tail := WriteReadTail{
		Bwr:  uapi.BinderWriteRead{WriteSize: 16, WriteBuffer: 0x1000},
		Data: []byte("payload"),
	}
	buf := tail.Encode(nil)
	got, ok := DecodeWriteReadTail(buf)
	assert.True(t, ok)
	assert.Equal(t, tail.Bwr, got.Bwr)
	assert.Equal(t, tail.Data, got.Data)
}

func TestTransactionTailRoundTrip(t *testing.T) {
	tail := TransactionTail{DebugID: 5, TargetNode: 1, ToProc: 200, ToThread: 201, Code: 1, Flags: 2}
	buf := tail.Encode(nil)
	got, ok := DecodeTransactionTail(buf)
	assert.True(t, ok)
	assert.Equal(t, tail, got)
}

func TestSimBufferDropsWhenFull(t *testing.T) {
	b := NewSimBuffer(1)
	assert.True(t, b.Output([]byte("a"), false))
	assert.False(t, b.Output([]byte("b"), false))
	assert.Equal(t, 1, b.Drops)
	assert.Len(t, b.Records, 1)
}

func TestSimBufferForceWakeupCounted(t *testing.T) {
	b := NewSimBuffer(10)
	b.Output([]byte("a"), true)
	assert.Equal(t, 1, b.Wakeups)
}

func TestSimBufferReserveSubmitDiscard(t *testing.T) {
	b := NewSimBuffer(10)
	rec, ok := b.Reserve(4)
	assert.True(t, ok)
	copy(rec, []byte{1, 2, 3, 4})
	b.Submit(rec, false)
	assert.Len(t, b.Records, 1)

	rec2, _ := b.Reserve(4)
	b.Discard(rec2)
	assert.Len(t, b.Records, 1)
}
