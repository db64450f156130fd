package uapi

import (
	"encoding/binary"
	"unsafe"
)

// nativeOrder is the encoding/binary.ByteOrder matching the host's
// endianness. The wire format is defined as host-endian (§6: "same machine
// as consumer"), so records are encoded and decoded with whichever of
// binary.LittleEndian / binary.BigEndian this process's architecture uses,
// never a fixed choice.
var nativeOrder = binary.NativeEndian

// BinderWriteRead mirrors the kernel's struct binder_write_read exactly
// (48 bytes on 64-bit): the cursor the write-read extractor snapshots at
// BINDER_WRITE_READ entry and re-reads at exit.
type BinderWriteRead struct {
	WriteSize     uint64 // total bytes in write_buffer
	WriteConsumed uint64 // bytes of write_buffer processed so far
	WriteBuffer   uint64 // userspace address of the write buffer
	ReadSize      uint64 // total bytes in read_buffer
	ReadConsumed  uint64 // bytes of read_buffer processed so far
	ReadBuffer    uint64 // userspace address of the read buffer
}

// BinderWriteReadSize is the wire size of BinderWriteRead.
const BinderWriteReadSize = 48

// Compile-time size check: must match the kernel's struct binder_write_read.
var _ [BinderWriteReadSize]byte = [unsafe.Sizeof(BinderWriteRead{})]byte{}

// MarshalBinderWriteRead encodes a BinderWriteRead the way it appears in
// the kernel's write-read buffer snapshot (component A's scratch header).
func MarshalBinderWriteRead(bwr *BinderWriteRead) []byte {
	buf := make([]byte, BinderWriteReadSize)
	nativeOrder.PutUint64(buf[0:8], bwr.WriteSize)
	nativeOrder.PutUint64(buf[8:16], bwr.WriteConsumed)
	nativeOrder.PutUint64(buf[16:24], bwr.WriteBuffer)
	nativeOrder.PutUint64(buf[24:32], bwr.ReadSize)
	nativeOrder.PutUint64(buf[32:40], bwr.ReadConsumed)
	nativeOrder.PutUint64(buf[40:48], bwr.ReadBuffer)
	return buf
}

// UnmarshalBinderWriteRead decodes a BinderWriteRead snapshot read from
// user memory at BINDER_WRITE_READ entry or exit.
func UnmarshalBinderWriteRead(data []byte) (BinderWriteRead, bool) {
	var bwr BinderWriteRead
	if len(data) < BinderWriteReadSize {
		return bwr, false
	}
	bwr.WriteSize = nativeOrder.Uint64(data[0:8])
	bwr.WriteConsumed = nativeOrder.Uint64(data[8:16])
	bwr.WriteBuffer = nativeOrder.Uint64(data[16:24])
	bwr.ReadSize = nativeOrder.Uint64(data[24:32])
	bwr.ReadConsumed = nativeOrder.Uint64(data[32:40])
	bwr.ReadBuffer = nativeOrder.Uint64(data[40:48])
	return bwr, true
}

// TransactionHeader is the {u32 cmd, binder_transaction_data} pair the
// extractor reads from (buffer + consumed) for every transaction-carrying
// BC_*/BR_* sub-command. The kernel's struct is declared __attribute__((packed)),
// so the layout here is decoded field-by-field at fixed byte offsets rather
// than relying on Go's own struct alignment.
type TransactionHeader struct {
	Cmd         uint32
	TargetOrPtr uint64
	Cookie      uint64
	Code        uint32
	Flags       uint32
	SenderPID   int32
	SenderEUID  uint32
	DataSize    uint64
	OffsetsSize uint64
	DataBuffer  uint64
	OffsetsPtr  uint64
}

// TransactionHeaderSize is the packed wire size of {u32 cmd, binder_transaction_data}.
const TransactionHeaderSize = 4 + 64

// UnmarshalTransactionHeader decodes a TransactionHeader from the packed
// kernel layout. Returns false if data is too short.
func UnmarshalTransactionHeader(data []byte) (TransactionHeader, bool) {
	var h TransactionHeader
	if len(data) < TransactionHeaderSize {
		return h, false
	}
	h.Cmd = nativeOrder.Uint32(data[0:4])
	h.TargetOrPtr = nativeOrder.Uint64(data[4:12])
	h.Cookie = nativeOrder.Uint64(data[12:20])
	h.Code = nativeOrder.Uint32(data[20:24])
	h.Flags = nativeOrder.Uint32(data[24:28])
	h.SenderPID = int32(nativeOrder.Uint32(data[28:32]))
	h.SenderEUID = nativeOrder.Uint32(data[32:36])
	h.DataSize = nativeOrder.Uint64(data[36:44])
	h.OffsetsSize = nativeOrder.Uint64(data[44:52])
	h.DataBuffer = nativeOrder.Uint64(data[52:60])
	h.OffsetsPtr = nativeOrder.Uint64(data[60:68])
	return h, true
}
