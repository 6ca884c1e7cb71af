package promise

import (
	"sync/atomic"
	"time"
)

// Metrics tracks allocator and chain statistics for one engine
type Metrics struct {
	// Chain activity counters
	NodesCreated atomic.Uint64 // Promise nodes allocated
	Resolves     atomic.Uint64 // Successful settlements
	Rejects      atomic.Uint64 // Failed settlements
	CarrierRuns  atomic.Uint64 // Callback carriers invoked
	Splices      atomic.Uint64 // Sub-chains spliced in place of a node

	// Deferred-queue counters
	DeferEnqueues atomic.Uint64 // Entries appended (ISR side)
	DeferDrains   atomic.Uint64 // Entries drained (main-loop side)

	// Engine lifecycle
	StartTime atomic.Int64 // Engine creation timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// MetricsSnapshot is a point-in-time view of an engine's counters merged
// with its allocator state.
type MetricsSnapshot struct {
	// Chain activity
	NodesCreated uint64
	Resolves     uint64
	Rejects      uint64
	CarrierRuns  uint64
	Splices      uint64

	// Deferred queue
	DeferEnqueues uint64
	DeferDrains   uint64
	DeferPending  uint64 // enqueued but not yet drained

	// Allocator state
	ArenaUsed      int   // bytes reserved from the region
	ArenaHighWater int   // peak reservation
	ArenaCapacity  int   // region capacity
	LiveBytes      int64 // bytes held by live slab blocks
	SlabObtains    uint64
	SlabReleases   uint64
	SlabGrown      uint64 // blocks carved fresh from the region

	// Uptime
	UptimeNs uint64
}

// snapshot builds the merged view. Engine state is read through atomics, so
// the snapshot is consistent enough for diagnostics but not a transaction.
func (m *Metrics) snapshot(e *Engine) MetricsSnapshot {
	snap := MetricsSnapshot{
		NodesCreated:  m.NodesCreated.Load(),
		Resolves:      m.Resolves.Load(),
		Rejects:       m.Rejects.Load(),
		CarrierRuns:   m.CarrierRuns.Load(),
		Splices:       m.Splices.Load(),
		DeferEnqueues: m.DeferEnqueues.Load(),
		DeferDrains:   m.DeferDrains.Load(),

		ArenaUsed:      e.region.Used(),
		ArenaHighWater: e.region.HighWater(),
		ArenaCapacity:  e.region.Capacity(),
		LiveBytes:      e.stats.LiveBytes.Load(),
		SlabObtains:    e.stats.Obtains.Load(),
		SlabReleases:   e.stats.Releases.Load(),
		SlabGrown:      e.stats.Grown.Load(),
	}
	if snap.DeferEnqueues > snap.DeferDrains {
		snap.DeferPending = snap.DeferEnqueues - snap.DeferDrains
	}
	snap.UptimeNs = uint64(time.Now().UnixNano() - m.StartTime.Load())
	return snap
}

// Reset resets all counters (useful for testing)
func (m *Metrics) Reset() {
	m.NodesCreated.Store(0)
	m.Resolves.Store(0)
	m.Rejects.Store(0)
	m.CarrierRuns.Store(0)
	m.Splices.Store(0)
	m.DeferEnqueues.Store(0)
	m.DeferDrains.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
}

// Observer allows pluggable instrumentation of engine events
type Observer interface {
	// ObserveSettle is called once per effective settlement
	ObserveSettle(rejected bool)

	// ObserveCarrier is called for each carrier invocation
	ObserveCarrier()

	// ObserveDefer is called for each deferred-queue append
	ObserveDefer()
}

// NoOpObserver is a no-op implementation of Observer
type NoOpObserver struct{}

func (NoOpObserver) ObserveSettle(bool) {}
func (NoOpObserver) ObserveCarrier()    {}
func (NoOpObserver) ObserveDefer()      {}

// Compile-time interface check
var _ Observer = (*NoOpObserver)(nil)
