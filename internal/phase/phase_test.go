package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnterIsUnconditional(t *testing.T) {
	m := NewMachine()
	m.Enter(1)
	p, ok := m.Current(1)
	assert.True(t, ok)
	assert.Equal(t, Ioctl, p)

	assert.Equal(t, Valid, m.Transition(1, Command))
	m.Enter(1) // driver overwrites state on every ioctl entry, even mid-sequence
	p, _ = m.Current(1)
	assert.Equal(t, Ioctl, p)
}

func TestTransitionUnknownThreadIsUnknown(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, Unknown, m.Transition(99, Command))
	_, ok := m.Current(99)
	assert.False(t, ok)
}

func TestTransitionTableExhaustive(t *testing.T) {
	cases := []struct {
		from, to Phase
		want     bool
	}{
		{Ioctl, Command, true},
		{Command, Command, true},
		{Txn, Command, true},
		{WaitForWork, Command, false},

		{Command, Txn, true},
		{Ioctl, Txn, false},

		{Txn, WriteDone, true},
		{Command, WriteDone, true},
		{Ioctl, WriteDone, false},

		{Ioctl, WaitForWork, true},
		{WriteDone, WaitForWork, true},
		{Command, WaitForWork, false},

		{WaitForWork, TxnReceived, true},
		{Return, TxnReceived, true},
		{Ioctl, TxnReceived, false},

		{WaitForWork, Return, true},
		{TxnReceived, Return, true},
		{Return, Return, true},
		{Ioctl, Return, false},

		{WaitForWork, ReadDone, true},
		{Return, ReadDone, true},
		{TxnReceived, ReadDone, false},

		{Ioctl, IoctlDone, true},
		{WriteDone, IoctlDone, true},
		{ReadDone, IoctlDone, true},
		{Command, IoctlDone, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, IsValidTransition(c.from, c.to),
			"%s -> %s", c.from, c.to)
	}
}

func TestInvalidTransitionLeavesStateUnchanged(t *testing.T) {
	m := NewMachine()
	m.Enter(1) // -> Ioctl
	assert.Equal(t, Rejected, m.Transition(1, Txn))
	p, ok := m.Current(1)
	assert.True(t, ok)
	assert.Equal(t, Ioctl, p)
}

func TestForget(t *testing.T) {
	m := NewMachine()
	m.Enter(1)
	m.Forget(1)
	_, ok := m.Current(1)
	assert.False(t, ok)
}

func TestSampleLifecycle(t *testing.T) {
	m := NewMachine()
	tid := int32(42)
	m.Enter(tid)
	assert.Equal(t, Valid, m.Transition(tid, Command))
	assert.Equal(t, Valid, m.Transition(tid, Txn))
	assert.Equal(t, Valid, m.Transition(tid, Command))
	assert.Equal(t, Valid, m.Transition(tid, WriteDone))
	assert.Equal(t, Valid, m.Transition(tid, WaitForWork))
	assert.Equal(t, Valid, m.Transition(tid, TxnReceived))
	assert.Equal(t, Valid, m.Transition(tid, Return))
	assert.Equal(t, Valid, m.Transition(tid, ReadDone))
	assert.Equal(t, Valid, m.Transition(tid, IoctlDone))
}
