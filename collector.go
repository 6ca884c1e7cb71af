package promise

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes an engine's counters as Prometheus metrics. Hosted
// deployments that already run a registry can register one per engine;
// embedded targets simply don't build this in.
type Collector struct {
	eng *Engine

	nodesCreated  *prometheus.Desc
	resolves      *prometheus.Desc
	rejects       *prometheus.Desc
	carrierRuns   *prometheus.Desc
	splices       *prometheus.Desc
	deferEnqueues *prometheus.Desc
	deferDrains   *prometheus.Desc
	deferPending  *prometheus.Desc
	arenaUsed     *prometheus.Desc
	arenaHigh     *prometheus.Desc
	arenaCapacity *prometheus.Desc
	liveBytes     *prometheus.Desc
	slabObtains   *prometheus.Desc
	slabReleases  *prometheus.Desc
	slabGrown     *prometheus.Desc
}

// NewCollector creates a collector over the engine's metrics.
func NewCollector(e *Engine) *Collector {
	return &Collector{
		eng: e,
		nodesCreated: prometheus.NewDesc("promise_nodes_created_total",
			"Promise nodes allocated.", nil, nil),
		resolves: prometheus.NewDesc("promise_resolves_total",
			"Settlements on the success path.", nil, nil),
		rejects: prometheus.NewDesc("promise_rejects_total",
			"Settlements on the failure path.", nil, nil),
		carrierRuns: prometheus.NewDesc("promise_carrier_runs_total",
			"Callback carriers invoked.", nil, nil),
		splices: prometheus.NewDesc("promise_splices_total",
			"Sub-chains spliced in place of a consumed node.", nil, nil),
		deferEnqueues: prometheus.NewDesc("promise_defer_enqueues_total",
			"Deferred-queue appends.", nil, nil),
		deferDrains: prometheus.NewDesc("promise_defer_drains_total",
			"Deferred-queue entries drained.", nil, nil),
		deferPending: prometheus.NewDesc("promise_defer_pending",
			"Deferred-queue entries awaiting drain.", nil, nil),
		arenaUsed: prometheus.NewDesc("promise_arena_used_bytes",
			"Bytes reserved from the arena region.", nil, nil),
		arenaHigh: prometheus.NewDesc("promise_arena_high_water_bytes",
			"Peak arena reservation.", nil, nil),
		arenaCapacity: prometheus.NewDesc("promise_arena_capacity_bytes",
			"Arena region capacity.", nil, nil),
		liveBytes: prometheus.NewDesc("promise_slab_live_bytes",
			"Bytes held by live slab blocks.", nil, nil),
		slabObtains: prometheus.NewDesc("promise_slab_obtains_total",
			"Slab blocks handed out.", nil, nil),
		slabReleases: prometheus.NewDesc("promise_slab_releases_total",
			"Slab blocks returned to a free-list.", nil, nil),
		slabGrown: prometheus.NewDesc("promise_slab_grown_total",
			"Slab blocks carved fresh from the arena.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodesCreated
	ch <- c.resolves
	ch <- c.rejects
	ch <- c.carrierRuns
	ch <- c.splices
	ch <- c.deferEnqueues
	ch <- c.deferDrains
	ch <- c.deferPending
	ch <- c.arenaUsed
	ch <- c.arenaHigh
	ch <- c.arenaCapacity
	ch <- c.liveBytes
	ch <- c.slabObtains
	ch <- c.slabReleases
	ch <- c.slabGrown
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.eng.MetricsSnapshot()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.nodesCreated, snap.NodesCreated)
	counter(c.resolves, snap.Resolves)
	counter(c.rejects, snap.Rejects)
	counter(c.carrierRuns, snap.CarrierRuns)
	counter(c.splices, snap.Splices)
	counter(c.deferEnqueues, snap.DeferEnqueues)
	counter(c.deferDrains, snap.DeferDrains)
	gauge(c.deferPending, float64(snap.DeferPending))
	gauge(c.arenaUsed, float64(snap.ArenaUsed))
	gauge(c.arenaHigh, float64(snap.ArenaHighWater))
	gauge(c.arenaCapacity, float64(snap.ArenaCapacity))
	gauge(c.liveBytes, float64(snap.LiveBytes))
	counter(c.slabObtains, snap.SlabObtains)
	counter(c.slabReleases, snap.SlabReleases)
	counter(c.slabGrown, snap.SlabGrown)
}

// Compile-time interface check
var _ prometheus.Collector = (*Collector)(nil)
