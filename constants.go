package promise

import "github.com/behrlich/go-promise/internal/constants"

// Re-export of the build-time defaults so embedders don't need to import
// internal packages.
const (
	// DefaultArenaSize is the default backing-region capacity in bytes.
	// Every node (with its carrier slots), pool descriptor and queue entry
	// lives inside this budget; the closures captured by callbacks are
	// ordinary Go allocations outside it. Exhausting it is fatal.
	DefaultArenaSize = constants.DefaultArenaSize
)
