package bpfload

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ObjectPath == "" || cfg.MapName == "" {
		t.Fatal("DefaultConfig must set both ObjectPath and MapName")
	}
}

func TestTracepointsCoversSpecSet(t *testing.T) {
	want := map[string]bool{
		"raw_syscalls/sys_enter":             false,
		"raw_syscalls/sys_exit":              false,
		"sched/sched_process_exit":           false,
		"binder/binder_ioctl":                false,
		"binder/binder_ioctl_done":           false,
		"binder/binder_command":              false,
		"binder/binder_return":               false,
		"binder/binder_transaction":          false,
		"binder/binder_transaction_received": false,
		"binder/binder_write_done":           false,
		"binder/binder_wait_for_work":        false,
		"binder/binder_read_done":            false,
	}

	for _, tp := range Tracepoints {
		key := tp.Group + "/" + tp.Name
		if _, ok := want[key]; !ok {
			t.Errorf("unexpected tracepoint %s", key)
		}
		want[key] = true
	}

	for key, seen := range want {
		if !seen {
			t.Errorf("missing tracepoint %s", key)
		}
	}
}

func TestAttachmentCloseWithoutLoadIsNoOp(t *testing.T) {
	a := &Attachment{}
	if err := a.Close(); err != nil {
		t.Fatalf("Close on zero-value Attachment returned %v", err)
	}
}
