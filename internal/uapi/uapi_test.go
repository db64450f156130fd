package uapi

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestStructSizes(t *testing.T) {
	assert.EqualValues(t, BinderWriteReadSize, unsafe.Sizeof(BinderWriteRead{}))
}

func TestBinderWriteReadRoundTrip(t *testing.T) {
	original := BinderWriteRead{
		WriteSize:     16,
		WriteConsumed: 0,
		WriteBuffer:   0x7f0000001000,
		ReadSize:      256,
		ReadConsumed:  0,
		ReadBuffer:    0x7f0000002000,
	}

	data := MarshalBinderWriteRead(&original)
	assert.Len(t, data, BinderWriteReadSize)

	decoded, ok := UnmarshalBinderWriteRead(data)
	assert.True(t, ok)
	assert.Equal(t, original, decoded)
}

func TestUnmarshalBinderWriteReadShortBuffer(t *testing.T) {
	_, ok := UnmarshalBinderWriteRead(make([]byte, 10))
	assert.False(t, ok)
}

func TestUnmarshalTransactionHeader(t *testing.T) {
	buf := make([]byte, TransactionHeaderSize)
	nativeOrder.PutUint32(buf[0:4], BC_TRANSACTION)
	nativeOrder.PutUint64(buf[36:44], 16)  // data_size
	nativeOrder.PutUint64(buf[44:52], 8)   // offsets_size
	nativeOrder.PutUint64(buf[52:60], 0x1000)
	nativeOrder.PutUint64(buf[60:68], 0x2000)

	h, ok := UnmarshalTransactionHeader(buf)
	assert.True(t, ok)
	assert.EqualValues(t, BC_TRANSACTION, h.Cmd)
	assert.EqualValues(t, 16, h.DataSize)
	assert.EqualValues(t, 8, h.OffsetsSize)
	assert.EqualValues(t, 0x1000, h.DataBuffer)
	assert.EqualValues(t, 0x2000, h.OffsetsPtr)
}

func TestUnmarshalTransactionHeaderShortBuffer(t *testing.T) {
	_, ok := UnmarshalTransactionHeader(make([]byte, 4))
	assert.False(t, ok)
}

func TestIOCSize(t *testing.T) {
	// BC_TRANSACTION = _IOC(_IOC_WRITE, 'c', 0, sizeof(binder_transaction_data))
	// sizeof(binder_transaction_data) == 64 on 64-bit, which is what's encoded
	// into the command word's size field.
	assert.EqualValues(t, 64, IOCSize(BC_TRANSACTION))
	assert.EqualValues(t, 8, IOCSize(BC_FREE_BUFFER))
}

func TestIsTransactionCommandAndReturn(t *testing.T) {
	assert.True(t, IsTransactionCommand(BC_TRANSACTION))
	assert.True(t, IsTransactionCommand(BC_REPLY_SG))
	assert.False(t, IsTransactionCommand(BC_FREE_BUFFER))

	assert.True(t, IsTransactionReturn(BR_TRANSACTION))
	assert.True(t, IsTransactionReturn(BR_TRANSACTION_SEC_CTX))
	assert.False(t, IsTransactionReturn(BR_NOOP))
	assert.False(t, IsTransactionReturn(BR_SPAWN_LOOPER))
}
