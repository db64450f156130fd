package bindertrace

import "github.com/ehrlich-b/go-bindertrace/internal/constants"

// Re-exported tunables for callers assembling a Config without reaching
// into internal/constants directly.
const (
	DefaultPidMax         = constants.PidMax
	DefaultRingBufferSize = constants.RingBufferSize
	DefaultScratchSize    = constants.ScratchSize
)
