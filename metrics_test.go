package bindertrace

import (
	"testing"
	"time"

	"github.com/ehrlich-b/go-bindertrace/internal/phase"
)

func TestMetricsInitialState(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()

	if snap.TotalEvents != 0 {
		t.Errorf("Expected 0 initial events, got %d", snap.TotalEvents)
	}
	if snap.InvalidTransitions != 0 || snap.Truncations != 0 || snap.Drops != 0 {
		t.Error("Expected all counters to start at 0")
	}
}

func TestMetricsRecordEvent(t *testing.T) {
	m := NewMetrics()

	m.RecordEvent(phase.Ioctl)
	m.RecordEvent(phase.Ioctl)
	m.RecordEvent(phase.Write)
	m.RecordEvent(phase.IoctlDone)

	snap := m.Snapshot()
	if snap.TotalEvents != 4 {
		t.Errorf("Expected 4 total events, got %d", snap.TotalEvents)
	}
	if snap.EventsByType[phase.Ioctl] != 2 {
		t.Errorf("Expected 2 Ioctl events, got %d", snap.EventsByType[phase.Ioctl])
	}
	if snap.EventsByType[phase.Write] != 1 {
		t.Errorf("Expected 1 Write event, got %d", snap.EventsByType[phase.Write])
	}
}

func TestMetricsProcessExitCounted(t *testing.T) {
	m := NewMetrics()

	m.RecordEvent(phase.InvalidateProcess)
	m.RecordEvent(phase.InvalidateProcess)

	snap := m.Snapshot()
	if snap.ProcessExits != 2 {
		t.Errorf("Expected 2 process exits, got %d", snap.ProcessExits)
	}
	if snap.EventsByType[phase.InvalidateProcess] != 2 {
		t.Errorf("Expected InvalidateProcess counted in EventsByType too, got %d", snap.EventsByType[phase.InvalidateProcess])
	}
}

func TestMetricsInvalidTransitionsTruncationsAndDrops(t *testing.T) {
	m := NewMetrics()

	m.RecordInvalidTransition()
	m.RecordInvalidTransition()
	m.RecordTruncation()
	m.RecordDrop()
	m.RecordDrop()
	m.RecordDrop()

	snap := m.Snapshot()
	if snap.InvalidTransitions != 2 {
		t.Errorf("Expected 2 invalid transitions, got %d", snap.InvalidTransitions)
	}
	if snap.Truncations != 1 {
		t.Errorf("Expected 1 truncation, got %d", snap.Truncations)
	}
	if snap.Drops != 3 {
		t.Errorf("Expected 3 drops, got %d", snap.Drops)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)
	snap := m.Snapshot()
	if snap.UptimeNs < 10*1_000_000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)
	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1_000_000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordEvent(phase.Ioctl)
	m.RecordInvalidTransition()
	m.RecordDrop()

	snap := m.Snapshot()
	if snap.TotalEvents == 0 {
		t.Error("Expected some events before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TotalEvents != 0 || snap.InvalidTransitions != 0 || snap.Drops != 0 {
		t.Error("Expected all counters to be 0 after reset")
	}
}

func TestObserverNoOpDoesNotPanic(t *testing.T) {
	observer := &NoOpObserver{}
	observer.ObserveEvent(phase.Ioctl)
	observer.ObserveInvalidTransition()
	observer.ObserveTruncation()
	observer.ObserveDrop()
}

func TestMetricsObserverForwardsToMetrics(t *testing.T) {
	m := NewMetrics()
	observer := NewMetricsObserver(m)

	observer.ObserveEvent(phase.Txn)
	observer.ObserveInvalidTransition()
	observer.ObserveTruncation()
	observer.ObserveDrop()

	snap := m.Snapshot()
	if snap.EventsByType[phase.Txn] != 1 {
		t.Errorf("Expected 1 Txn event via observer, got %d", snap.EventsByType[phase.Txn])
	}
	if snap.InvalidTransitions != 1 || snap.Truncations != 1 || snap.Drops != 1 {
		t.Error("Expected observer calls forwarded to underlying metrics")
	}
}
