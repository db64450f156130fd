// Package framer defines the wire records the tracer publishes and the
// ring-buffer primitives it publishes them through: reserve+submit for
// fixed-size events known up front, output for the variable-length payload
// records the write-read extractor and transaction-payload capture produce.
package framer

import (
	"encoding/binary"

	"github.com/ehrlich-b/go-bindertrace/internal/constants"
	"github.com/ehrlich-b/go-bindertrace/internal/phase"
	"github.com/ehrlich-b/go-bindertrace/internal/uapi"
)

var nativeOrder = binary.NativeEndian

// HeaderSize is the wire size of Header: a 4-byte type tag, two 4-byte ids,
// 4 bytes of padding to bring the trailing timestamp onto an 8-byte
// boundary (mirroring the natural alignment of the struct this is modeled
// on, which is not packed), then the 8-byte timestamp.
const HeaderSize = 24

// Header precedes every record type on the wire. Type doubles as both a
// phase-machine state and a pseudo-tag (InvalidateProcess/Write/Read/
// TxnData), since a consumer needs to dispatch on "what kind of record is
// this" regardless of whether the kind corresponds to a tracked phase.
type Header struct {
	Type      phase.Phase
	Pid       int32
	Tid       int32
	Timestamp uint64
}

// Encode appends h's wire encoding to buf and returns the result.
func (h Header) Encode(buf []byte) []byte {
	var tmp [HeaderSize]byte
	nativeOrder.PutUint32(tmp[0:4], uint32(h.Type))
	nativeOrder.PutUint32(tmp[4:8], uint32(h.Pid))
	nativeOrder.PutUint32(tmp[8:12], uint32(h.Tid))
	// tmp[12:16] left zero: alignment padding, not a field.
	nativeOrder.PutUint64(tmp[16:24], h.Timestamp)
	return append(buf, tmp[:]...)
}

// DecodeHeader reads a Header from the front of data.
func DecodeHeader(data []byte) (Header, bool) {
	var h Header
	if len(data) < HeaderSize {
		return h, false
	}
	h.Type = phase.Phase(nativeOrder.Uint32(data[0:4]))
	h.Pid = int32(nativeOrder.Uint32(data[4:8]))
	h.Tid = int32(nativeOrder.Uint32(data[8:12]))
	h.Timestamp = nativeOrder.Uint64(data[16:24])
	return h, true
}

// IoctlTail is the BINDER_IOCTL record's type-specific tail: the only point
// in the lifecycle where the calling thread's fd, comm, uid/gid, cmd and
// arg are all captured, since by the time ioctl_done fires the process may
// already be gone.
type IoctlTail struct {
	Fd   int32
	Comm [16]byte
	Uid  uint32
	Gid  uint32
	Cmd  uint32
	Arg  uint64
}

const IoctlTailSize = 4 + 16 + 4 + 4 + 4 + 8 // = 40; Arg sits at offset 32, already 8-aligned, so no padding

func (t IoctlTail) Encode(buf []byte) []byte {
	var tmp [40]byte
	nativeOrder.PutUint32(tmp[0:4], uint32(t.Fd))
	copy(tmp[4:20], t.Comm[:])
	nativeOrder.PutUint32(tmp[20:24], t.Uid)
	nativeOrder.PutUint32(tmp[24:28], t.Gid)
	nativeOrder.PutUint32(tmp[28:32], t.Cmd)
	nativeOrder.PutUint64(tmp[32:40], t.Arg)
	return append(buf, tmp[:]...)
}

func DecodeIoctlTail(data []byte) (IoctlTail, bool) {
	var t IoctlTail
	if len(data) < 40 {
		return t, false
	}
	t.Fd = int32(nativeOrder.Uint32(data[0:4]))
	copy(t.Comm[:], data[4:20])
	t.Uid = nativeOrder.Uint32(data[20:24])
	t.Gid = nativeOrder.Uint32(data[24:28])
	t.Cmd = nativeOrder.Uint32(data[28:32])
	t.Arg = nativeOrder.Uint64(data[32:40])
	return t, true
}

// IoctlDoneTail is the BINDER_IOCTL_DONE record's tail: the ioctl's return
// value.
type IoctlDoneTail struct {
	Ret int32
}

const IoctlDoneTailSize = 4

func (t IoctlDoneTail) Encode(buf []byte) []byte {
	var tmp [4]byte
	nativeOrder.PutUint32(tmp[0:4], uint32(t.Ret))
	return append(buf, tmp[:]...)
}

func DecodeIoctlDoneTail(data []byte) (IoctlDoneTail, bool) {
	var t IoctlDoneTail
	if len(data) < 4 {
		return t, false
	}
	t.Ret = int32(nativeOrder.Uint32(data[0:4]))
	return t, true
}

// TransactionTail is the BINDER_TXN/BINDER_TXN_RECEIVED-adjacent record's
// tail carrying the transaction identifiers the binder_transaction and
// binder_transaction_received tracepoints expose. Target node/proc/thread,
// code and flags are carried only as opaque integers; decoding what they
// mean belongs to a full Binder protocol client, not this tracer.
type TransactionTail struct {
	DebugID    int32
	TargetNode int32
	ToProc     int32
	ToThread   int32
	Reply      int32
	Code       uint32
	Flags      uint32
}

const TransactionTailSize = 4 * 7

func (t TransactionTail) Encode(buf []byte) []byte {
	var tmp [TransactionTailSize]byte
	nativeOrder.PutUint32(tmp[0:4], uint32(t.DebugID))
	nativeOrder.PutUint32(tmp[4:8], uint32(t.TargetNode))
	nativeOrder.PutUint32(tmp[8:12], uint32(t.ToProc))
	nativeOrder.PutUint32(tmp[12:16], uint32(t.ToThread))
	nativeOrder.PutUint32(tmp[16:20], uint32(t.Reply))
	nativeOrder.PutUint32(tmp[20:24], t.Code)
	nativeOrder.PutUint32(tmp[24:28], t.Flags)
	return append(buf, tmp[:]...)
}

func DecodeTransactionTail(data []byte) (TransactionTail, bool) {
	var t TransactionTail
	if len(data) < TransactionTailSize {
		return t, false
	}
	t.DebugID = int32(nativeOrder.Uint32(data[0:4]))
	t.TargetNode = int32(nativeOrder.Uint32(data[4:8]))
	t.ToProc = int32(nativeOrder.Uint32(data[8:12]))
	t.ToThread = int32(nativeOrder.Uint32(data[12:16]))
	t.Reply = int32(nativeOrder.Uint32(data[16:20]))
	t.Code = nativeOrder.Uint32(data[20:24])
	t.Flags = nativeOrder.Uint32(data[24:28])
	return t, true
}

// TransactionReceivedTail is the BINDER_TXN_RECEIVED record's tail.
type TransactionReceivedTail struct {
	DebugID int32
}

const TransactionReceivedTailSize = 4

func (t TransactionReceivedTail) Encode(buf []byte) []byte {
	var tmp [4]byte
	nativeOrder.PutUint32(tmp[0:4], uint32(t.DebugID))
	return append(buf, tmp[:]...)
}

func DecodeTransactionReceivedTail(data []byte) (TransactionReceivedTail, bool) {
	var t TransactionReceivedTail
	if len(data) < 4 {
		return t, false
	}
	t.DebugID = int32(nativeOrder.Uint32(data[0:4]))
	return t, true
}

// WriteReadTail is the BINDER_WRITE/BINDER_READ/BINDER_TXN_DATA record's
// tail: a BinderWriteRead cursor snapshot (repurposed as a plain
// size/offset header for BINDER_TXN_DATA records) followed by up to
// constants.ScratchSize-HeaderSize-BinderWriteReadSize bytes of payload
// captured from user memory.
type WriteReadTail struct {
	Bwr  uapi.BinderWriteRead
	Data []byte
}

func (t WriteReadTail) Encode(buf []byte) []byte {
	buf = append(buf, uapi.MarshalBinderWriteRead(&t.Bwr)...)
	return append(buf, t.Data...)
}

func DecodeWriteReadTail(data []byte) (WriteReadTail, bool) {
	var t WriteReadTail
	bwr, ok := uapi.UnmarshalBinderWriteRead(data)
	if !ok {
		return t, false
	}
	t.Bwr = bwr
	if len(data) > uapi.BinderWriteReadSize {
		t.Data = append([]byte(nil), data[uapi.BinderWriteReadSize:]...)
	}
	return t, true
}

// MaxPayload is the largest Data slice a WriteReadTail can carry once the
// header and BinderWriteRead cursor are accounted for; the scratch
// capacity minus the offset of the data region.
const MaxPayload = constants.ScratchSize - HeaderSize - uapi.BinderWriteReadSize

// RingBuffer is the subset of BPF ring-buffer semantics the tracer's
// components need: reserve a fixed-size slot and commit or discard it, or
// output a complete record in one call when its size is only known once
// the payload is captured. ForceWakeup mirrors BPF_RB_FORCE_WAKEUP, used
// on BINDER_IOCTL events so a consumer can
// capture /proc/<pid>/comm before the process potentially exits.
type RingBuffer interface {
	Reserve(size int) ([]byte, bool)
	Submit(rec []byte, forceWakeup bool)
	Discard(rec []byte)
	Output(rec []byte, forceWakeup bool) bool
}
