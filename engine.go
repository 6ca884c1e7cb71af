package promise

import (
	"sync"

	"github.com/behrlich/go-promise/internal/arena"
	"github.com/behrlich/go-promise/internal/constants"
	"github.com/behrlich/go-promise/internal/list"
	"github.com/behrlich/go-promise/internal/logging"
	"github.com/behrlich/go-promise/internal/slab"
)

// Config holds engine construction parameters
type Config struct {
	// ArenaSize is the backing-region capacity in bytes (default 2048).
	ArenaSize int

	// Debug enables chain-integrity assertions on every splice.
	Debug bool

	// Logger receives lifecycle diagnostics. Defaults to logging.Default().
	Logger *logging.Logger

	// Observer receives allocator and settlement events (may be nil).
	Observer Observer
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		ArenaSize: DefaultArenaSize,
	}
}

// Engine owns the process-wide state of one promise runtime: the arena
// region, the slab pools, the deferred-resolve queue and the counters. On
// target hardware these are singletons initialised at reset; hosted code
// usually uses Default(), while tests build one engine per scenario so
// every scenario starts from a clean region.
type Engine struct {
	region    *arena.Region
	stats     slab.Stats
	metrics   *Metrics
	observer  Observer
	log       *logging.Logger
	debug     bool
	nodePool  *slab.Pool[node]
	deferPool *slab.Pool[deferEntry]

	// deferMu guards the append side of the deferred queue, which runs in
	// (simulated) interrupt context. The hosted analogue of the
	// interrupts-off critical section around the O(1) splice.
	deferMu   sync.Mutex
	deferHead list.Node
}

var (
	defaultEngine *Engine
	defaultMu     sync.Mutex
)

// NewEngine creates an engine with the given configuration. A nil config
// uses defaults.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	size := cfg.ArenaSize
	if size <= 0 {
		size = DefaultArenaSize
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}

	e := &Engine{
		region:   arena.New(size),
		metrics:  NewMetrics(),
		observer: cfg.Observer,
		log:      log,
		debug:    cfg.Debug,
	}
	e.deferHead.Init()
	e.nodePool = slab.NewPool(e.region, &e.stats, e.finalizeNode)
	e.deferPool = slab.NewPool(e.region, &e.stats, e.finalizeDeferEntry)

	log.Debug("promise engine created", "arena_bytes", e.region.Capacity(), "debug", e.debug)
	return e
}

// Default returns the process-wide engine, creating it with defaults on
// first use.
func Default() *Engine {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine == nil {
		defaultEngine = NewEngine(nil)
	}
	return defaultEngine
}

// SetDefault replaces the process-wide engine. Intended for embedders that
// configure the engine at program start.
func SetDefault(e *Engine) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultEngine = e
}

// Metrics returns the engine's counters.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of the engine's
// counters, merged with the allocator state.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.snapshot(e)
}

// newNode allocates a pending node carrying the two callback payloads
// in-place. The node is born a chain head holding its own root reference.
func (e *Engine) newNode(onResolved, onRejected carrier) *node {
	n := slab.New(e.nodePool)
	n.eng = e
	n.prev = arena.Nil
	n.status = StatusInit
	n.rooted = true
	n.onResolved = onResolved
	n.onRejected = onRejected

	e.metrics.NodesCreated.Add(1)
	return n
}

// finalizeNode runs when a node's last reference drops: it clears the
// predecessor link of the successor, releases the forward ownership down
// the chain and drops the callback captures.
func (e *Engine) finalizeNode(n *node) {
	n.onResolved = nil
	n.onRejected = nil
	n.cleared = true

	// Release the owned suffix iteratively; a doomed successor is
	// pre-detached so its own finalizer does not recurse down the chain.
	nx := n.next
	n.next = nil
	for nx != nil {
		nx.prev = arena.Nil
		if slab.Refs(nx) > 1 {
			nx.decRef()
			return
		}
		follow := nx.next
		nx.next = nil
		nx.decRef()
		nx = follow
	}
}

// New allocates a pending promise, runs f synchronously with its handle and
// returns the handle. f typically registers the handle with a producer — a
// timer, an interrupt source — that settles it later.
func (e *Engine) New(f func(Handle)) Handle {
	h := Handle{n: e.newNode(nil, nil)}
	if f != nil {
		f(h)
	}
	return h
}

// Reject returns a promise already queued to reject on first drive.
func (e *Engine) Reject() Handle {
	return e.New(func(d Handle) { d.Reject() })
}

// While runs f, and re-runs it each time the promise it settles resolves;
// the loop ends when an iteration rejects. Each iteration re-arms through
// the resolution walk, so stack growth per iteration is O(1). The next
// iteration's nodes are allocated while the carrier runs, and the consumed
// iteration's nodes recycle right after, so slab use stays constant.
func (e *Engine) While(f func(Handle)) Handle {
	return e.New(f).Then(func() Handle {
		return e.While(f)
	})
}

// assertDisjoint verifies that a splice cannot form a cycle: neither the
// consumed node nor its predecessor may appear in the replacement chain.
func (e *Engine) assertDisjoint(pred, consumed, head, tail *node) {
	steps := 0
	for p := head; p != nil; p = p.next {
		if p == pred || p == consumed {
			fatal("splice", ErrCodeInvariant, "splice would form a cycle")
		}
		if p == tail {
			return
		}
		if steps++; steps > constants.MaxChainWalk {
			fatal("splice", ErrCodeInvariant, "replacement chain does not terminate")
		}
	}
}

// New allocates a pending promise on the default engine; see Engine.New.
func New(f func(Handle)) Handle {
	return Default().New(f)
}

// Reject returns an already-rejecting promise on the default engine.
func Reject() Handle {
	return Default().Reject()
}

// While runs a resolution-driven loop on the default engine; see
// Engine.While.
func While(f func(Handle)) Handle {
	return Default().While(f)
}
