package bindertrace

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ehrlich-b/go-bindertrace/internal/interfaces"
	"github.com/ehrlich-b/go-bindertrace/internal/phase"
)

// Metrics tracks the tracer's operational counters: events emitted per
// record type, rejected transitions, truncated records, and ring-buffer
// drops. Counters are safe to update from whichever goroutine
// is consuming ring-buffer records.
type Metrics struct {
	mu           sync.Mutex
	eventsByType map[phase.Phase]uint64

	InvalidTransitions atomic.Uint64
	Truncations        atomic.Uint64
	Drops              atomic.Uint64
	ProcessExits       atomic.Uint64

	StartTime atomic.Int64 // attachment start timestamp (UnixNano)
	StopTime  atomic.Int64 // attachment stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{eventsByType: make(map[phase.Phase]uint64)}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordEvent increments the counter for typ. typ is whatever phase.Phase
// tag labeled the emitted record, including the pseudo-tags
// (InvalidateProcess, Write, Read, TxnData) that are never themselves
// tracked phases.
func (m *Metrics) RecordEvent(typ phase.Phase) {
	m.mu.Lock()
	m.eventsByType[typ]++
	m.mu.Unlock()
	if typ == phase.InvalidateProcess {
		m.ProcessExits.Add(1)
	}
}

// RecordInvalidTransition records a state-machine rejection.
func (m *Metrics) RecordInvalidTransition() {
	m.InvalidTransitions.Add(1)
}

// RecordTruncation records a truncated record. Tracer calls it for a
// ring-buffer record too short to hold a Header; a Write/Read/TxnData
// payload cut short at the scratch bound is not detected or counted.
func (m *Metrics) RecordTruncation() {
	m.Truncations.Add(1)
}

// RecordDrop records a ring-buffer reservation or output call that failed
// due to backpressure.
func (m *Metrics) RecordDrop() {
	m.Drops.Add(1)
}

// Stop marks the attachment as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to read without
// racing further updates.
type MetricsSnapshot struct {
	EventsByType       map[phase.Phase]uint64
	TotalEvents        uint64
	InvalidTransitions uint64
	Truncations        uint64
	Drops              uint64
	ProcessExits       uint64
	UptimeNs           uint64
}

// Snapshot creates a point-in-time snapshot of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	eventsByType := make(map[phase.Phase]uint64, len(m.eventsByType))
	var total uint64
	for typ, count := range m.eventsByType {
		eventsByType[typ] = count
		total += count
	}
	m.mu.Unlock()

	snap := MetricsSnapshot{
		EventsByType:       eventsByType,
		TotalEvents:        total,
		InvalidTransitions: m.InvalidTransitions.Load(),
		Truncations:        m.Truncations.Load(),
		Drops:              m.Drops.Load(),
		ProcessExits:       m.ProcessExits.Load(),
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	return snap
}

// Reset clears all counters, useful for testing. StartTime is reset to now.
func (m *Metrics) Reset() {
	m.mu.Lock()
	m.eventsByType = make(map[phase.Phase]uint64)
	m.mu.Unlock()
	m.InvalidTransitions.Store(0)
	m.Truncations.Store(0)
	m.Drops.Store(0)
	m.ProcessExits.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// MetricsObserver implements interfaces.Observer by recording into a
// Metrics instance. A Tracer always records into its own Metrics and
// defaults Options.Observer to NoOpObserver; passing a MetricsObserver
// there also records into a caller-owned Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveEvent(typ phase.Phase) { o.metrics.RecordEvent(typ) }
func (o *MetricsObserver) ObserveInvalidTransition()    { o.metrics.RecordInvalidTransition() }
func (o *MetricsObserver) ObserveTruncation()           { o.metrics.RecordTruncation() }
func (o *MetricsObserver) ObserveDrop()                 { o.metrics.RecordDrop() }

// NoOpObserver discards every observation. Used when a caller wants no
// metrics overhead at all.
type NoOpObserver struct{}

func (NoOpObserver) ObserveEvent(phase.Phase)  {}
func (NoOpObserver) ObserveInvalidTransition() {}
func (NoOpObserver) ObserveTruncation()        {}
func (NoOpObserver) ObserveDrop()              {}

var _ interfaces.Observer = (*MetricsObserver)(nil)
var _ interfaces.Observer = (*NoOpObserver)(nil)
