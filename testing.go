package bindertrace

import (
	"github.com/ehrlich-b/go-bindertrace/internal/framer"
	"github.com/ehrlich-b/go-bindertrace/internal/usermem"
)

// MockUserMemory is a re-export of internal/usermem's in-memory Space
// implementation, for callers who want to exercise a Tracer (or its
// sub-components) against a canned trace without a kernel.
type MockUserMemory = usermem.MockSpace

// NewMockUserMemory returns an empty MockUserMemory.
func NewMockUserMemory() *MockUserMemory {
	return usermem.NewMockSpace()
}

// MockRingBuffer is a re-export of internal/framer's bounded in-memory
// RingBuffer implementation, for callers who want to inspect every record a
// Tracer (or internal/engine directly) emits during a test.
type MockRingBuffer = framer.SimBuffer

// NewMockRingBuffer returns a MockRingBuffer holding up to capacity
// records; capacity <= 0 means unbounded.
func NewMockRingBuffer(capacity int) *MockRingBuffer {
	return framer.NewSimBuffer(capacity)
}
