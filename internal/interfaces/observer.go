// Package interfaces provides internal interface definitions for
// go-bindertrace. These are separate from the public interfaces to avoid
// circular imports between the root package and the internal packages that
// need to report through them.
package interfaces

import "github.com/ehrlich-b/go-bindertrace/internal/phase"

// Logger is the subset of logging.Logger the tracing components need,
// kept as its own interface so they depend on a method set rather than a
// concrete type.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Observer receives counters from the tracing engine as it runs.
// Implementations must be thread-safe: engine methods are called from
// whichever goroutine is consuming ring-buffer tracepoint callbacks, which
// may not be single-threaded once attached to a real perf/ring-buffer
// source with per-CPU readers.
type Observer interface {
	ObserveEvent(typ phase.Phase)
	ObserveInvalidTransition()
	ObserveTruncation()
	ObserveDrop()
}
