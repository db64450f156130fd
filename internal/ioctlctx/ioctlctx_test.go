package ioctlctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSysEnterArmsFd(t *testing.T) {
	tr := NewTracker()
	tr.SysEnter(1, SyscallNR(), 7)
	c, ok := tr.Lookup(1)
	assert.True(t, ok)
	assert.EqualValues(t, 7, c.Fd)
}

func TestSysEnterIgnoresOtherSyscalls(t *testing.T) {
	tr := NewTracker()
	tr.SysEnter(1, SyscallNR()+1, 7)
	_, ok := tr.Lookup(1)
	assert.False(t, ok)
}

func TestSysExitDisarms(t *testing.T) {
	tr := NewTracker()
	tr.SysEnter(1, SyscallNR(), 7)
	tr.SysExit(1, SyscallNR())
	c, ok := tr.Lookup(1)
	assert.True(t, ok)
	assert.EqualValues(t, -1, c.Fd)
}

func TestArmWithoutSysEnterFails(t *testing.T) {
	tr := NewTracker()
	_, ok := tr.Arm(1, 0xc0306201, 0x1000)
	assert.False(t, ok)
}

func TestArmFillsCmdAndArgPreservingFd(t *testing.T) {
	tr := NewTracker()
	tr.SysEnter(1, SyscallNR(), 7)
	c, ok := tr.Arm(1, 0xc0306201, 0x1000)
	assert.True(t, ok)
	assert.EqualValues(t, 7, c.Fd)
	assert.EqualValues(t, 0xc0306201, c.Cmd)
	assert.EqualValues(t, 0x1000, c.Arg)

	c2, _ := tr.Lookup(1)
	assert.Equal(t, c, c2)
}

func TestInvalidateDisarms(t *testing.T) {
	tr := NewTracker()
	tr.SysEnter(1, SyscallNR(), 7)
	tr.Invalidate(1)
	c, ok := tr.Lookup(1)
	assert.True(t, ok)
	assert.EqualValues(t, -1, c.Fd)
}
