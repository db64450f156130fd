// Package wrextract implements the BINDER_WRITE_READ payload extractor
// (component D): capturing the write and read buffers a traced ioctl call
// exchanges with the driver, and walking the BC_*/BR_* sub-commands inside
// them one at a time as binder_command/binder_return tracepoints fire.
package wrextract

import (
	"github.com/ehrlich-b/go-bindertrace/internal/constants"
	"github.com/ehrlich-b/go-bindertrace/internal/framer"
	"github.com/ehrlich-b/go-bindertrace/internal/ioctlctx"
	"github.com/ehrlich-b/go-bindertrace/internal/phase"
	"github.com/ehrlich-b/go-bindertrace/internal/uapi"
	"github.com/ehrlich-b/go-bindertrace/internal/usermem"
)

// Extractor tracks, per thread, the write-read cursor snapshot captured at
// BINDER_WRITE_READ entry so binder_command/binder_return can advance it
// sub-command by sub-command without re-reading the whole struct from user
// memory on every tracepoint.
type Extractor struct {
	cursors map[int32]uapi.BinderWriteRead
}

// New returns a ready-to-use Extractor.
func New() *Extractor {
	return &Extractor{cursors: make(map[int32]uapi.BinderWriteRead)}
}

// truncate bounds a user-supplied size to what the scratch buffer can
// actually hold before any copy touches it: clamp to framer.MaxPayload (the
// capacity left once the record header and BinderWriteRead cursor are
// accounted for), then apply the power-of-two ScratchMask the in-kernel
// implementation needs so the verifier can prove the copy length is bounded.
// The clamp must come first: masking alone wraps any size that is an exact
// multiple of the scratch capacity down to zero instead of truncating it,
// and a wrapped 64 KiB payload would emit an empty record where the consumer
// contract promises a full scratch's worth of leading bytes.
func truncate(size uint32) (int, bool) {
	n := int(size)
	truncated := false
	if n > framer.MaxPayload {
		n = framer.MaxPayload
		truncated = true
	}
	n &= constants.ScratchMask
	return n, truncated
}

// OnIoctlEntry captures the BINDER_WRITE_READ argument struct at ioctl
// entry and emits its write buffer as a BINDER_WRITE record. It saves the
// cursor for later BC_*/BR_* advancement only if none is already tracked
// for tid (a BPF_NOEXIST-style update); a thread that somehow re-enters
// BINDER_WRITE_READ without an intervening ioctl_done keeps the cursor it
// already had.
func (e *Extractor) OnIoctlEntry(tid, pid int32, ctx ioctlctx.Context, ts uint64, mem usermem.Space, rb framer.RingBuffer) bool {
	var raw [uapi.BinderWriteReadSize]byte
	if _, err := mem.ReadAt(ctx.Arg, raw[:]); err != nil {
		return false
	}
	bwr, ok := uapi.UnmarshalBinderWriteRead(raw[:])
	if !ok {
		return false
	}

	if _, exists := e.cursors[tid]; !exists {
		e.cursors[tid] = bwr
	}

	return emitBuffer(rb, phase.Write, pid, tid, ts, bwr, uint32(bwr.WriteSize), bwr.WriteBuffer, mem)
}

// OnIoctlExit re-reads the BINDER_WRITE_READ argument struct at ioctl_done
// and emits its read buffer as a BINDER_READ record, then drops tid's
// tracked cursor; the driver call is over regardless of whether every
// sub-command inside it was individually traced.
func (e *Extractor) OnIoctlExit(tid, pid int32, ctx ioctlctx.Context, ts uint64, mem usermem.Space, rb framer.RingBuffer) bool {
	var raw [uapi.BinderWriteReadSize]byte
	if _, err := mem.ReadAt(ctx.Arg, raw[:]); err != nil {
		return false
	}
	bwr, ok := uapi.UnmarshalBinderWriteRead(raw[:])
	if !ok {
		return false
	}
	delete(e.cursors, tid)

	return emitBuffer(rb, phase.Read, pid, tid, ts, bwr, uint32(bwr.ReadConsumed), bwr.ReadBuffer, mem)
}

func emitBuffer(rb framer.RingBuffer, typ phase.Phase, pid, tid int32, ts uint64, bwr uapi.BinderWriteRead, size uint32, addr uint64, mem usermem.Space) bool {
	n, truncated := truncate(size)
	_ = truncated // recorded by callers that care via WriteSize/ReadConsumed vs payload length

	data := make([]byte, n)
	if n > 0 {
		if _, err := mem.ReadAt(addr, data); err != nil {
			return false
		}
	}

	rec := framer.Header{Type: typ, Pid: pid, Tid: tid, Timestamp: ts}.Encode(nil)
	rec = framer.WriteReadTail{Bwr: bwr, Data: data}.Encode(rec)
	return rb.Output(rec, false)
}

// OnCommand handles a binder_command tracepoint: if tid has a tracked
// cursor and cmd carries a binder_transaction_data payload, reads it from
// (write_buffer + write_consumed), verifies it against cmd, emits it as a
// BINDER_TXN_DATA record, and advances write_consumed by
// sizeof(u32) + IOCSize(cmd). Returns false only on a verified mismatch, a
// read failure or a ring buffer that refuses the record; a thread with no
// tracked cursor is not an error, it just
// means this command isn't part of a BINDER_WRITE_READ this extractor
// captured the entry of.
func (e *Extractor) OnCommand(tid, pid int32, cmd uint32, ts uint64, mem usermem.Space, rb framer.RingBuffer) bool {
	bwr, ok := e.cursors[tid]
	if !ok {
		return true
	}

	if uapi.IsTransactionCommand(cmd) {
		if !e.emitTxnData(tid, pid, cmd, ts, bwr.WriteBuffer+bwr.WriteConsumed, mem, rb) {
			delete(e.cursors, tid)
			return false
		}
	}

	bwr.WriteConsumed += 4 + uint64(uapi.IOCSize(cmd))
	e.cursors[tid] = bwr
	return true
}

// OnReturn handles a binder_return tracepoint. BR_NOOP is always injected
// as the first return but never itself traced, so the first call for a
// cursor pre-advances read_consumed by 4 to account for it. BR_SPAWN_LOOPER
// overwrites that same leading BR_NOOP and is traced last, so it is
// ignored entirely rather than advanced past. Otherwise behaves like
// OnCommand but against the read side.
func (e *Extractor) OnReturn(tid, pid int32, cmd uint32, ts uint64, mem usermem.Space, rb framer.RingBuffer) bool {
	bwr, ok := e.cursors[tid]
	if !ok {
		return true
	}

	if bwr.ReadConsumed == 0 {
		bwr.ReadConsumed += 4
	}
	if cmd == uapi.BR_SPAWN_LOOPER {
		e.cursors[tid] = bwr
		return true
	}

	if uapi.IsTransactionReturn(cmd) {
		if !e.emitTxnData(tid, pid, cmd, ts, bwr.ReadBuffer+bwr.ReadConsumed, mem, rb) {
			delete(e.cursors, tid)
			return false
		}
	}

	bwr.ReadConsumed += 4 + uint64(uapi.IOCSize(cmd))
	e.cursors[tid] = bwr
	return true
}

// emitTxnData reads a {cmd, binder_transaction_data} header from addr,
// verifies its embedded cmd matches what the tracepoint reported, and
// emits its data and offsets spans as two separate BINDER_TXN_DATA
// records; two independent outputs, one per span, each skipped if its
// span is empty.
func (e *Extractor) emitTxnData(tid, pid int32, cmd uint32, ts uint64, addr uint64, mem usermem.Space, rb framer.RingBuffer) bool {
	var raw [uapi.TransactionHeaderSize]byte
	if _, err := mem.ReadAt(addr, raw[:]); err != nil {
		return false
	}
	hdr, ok := uapi.UnmarshalTransactionHeader(raw[:])
	if !ok || hdr.Cmd != cmd {
		return false
	}

	base := uapi.BinderWriteRead{WriteSize: hdr.DataSize, ReadSize: hdr.OffsetsSize}

	if hdr.DataSize > 0 {
		n, _ := truncate(uint32(hdr.DataSize))
		data := make([]byte, n)
		if n > 0 {
			if _, err := mem.ReadAt(hdr.DataBuffer, data); err != nil {
				return false
			}
		}
		b := base
		b.WriteConsumed = uint64(n)
		b.WriteBuffer = 1
		rec := framer.Header{Type: phase.TxnData, Pid: pid, Tid: tid, Timestamp: ts}.Encode(nil)
		rec = framer.WriteReadTail{Bwr: b, Data: data}.Encode(rec)
		if !rb.Output(rec, false) {
			return false
		}
	}

	if hdr.OffsetsSize > 0 {
		n, _ := truncate(uint32(hdr.OffsetsSize))
		data := make([]byte, n)
		if n > 0 {
			if _, err := mem.ReadAt(hdr.OffsetsPtr, data); err != nil {
				return false
			}
		}
		b := base
		b.WriteBuffer = 0
		b.ReadBuffer = 1
		b.ReadConsumed = uint64(n)
		rec := framer.Header{Type: phase.TxnData, Pid: pid, Tid: tid, Timestamp: ts}.Encode(nil)
		rec = framer.WriteReadTail{Bwr: b, Data: data}.Encode(rec)
		if !rb.Output(rec, false) {
			return false
		}
	}

	return true
}

// Forget drops tid's tracked cursor without emitting anything, used when a
// thread's transition turns out invalid partway through a write-read call.
func (e *Extractor) Forget(tid int32) {
	delete(e.cursors, tid)
}
