package promise

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestEngine builds a fresh engine per scenario so every test starts
// from a clean region, with debug assertions on.
func newTestEngine() *Engine {
	return NewEngine(&Config{ArenaSize: 1 << 16, Debug: true})
}

func TestResolveThenChain(t *testing.T) {
	e := newTestEngine()
	var log EventLog

	p := e.New(func(d Handle) { d.Resolve() })
	p.Then(log.Mark("A")).Then(log.Mark("B"))

	require.Equal(t, []string{"A", "B"}, log.Events())
}

func TestRejectFailRecovers(t *testing.T) {
	e := newTestEngine()
	var log EventLog

	p := e.New(func(d Handle) { d.Reject() })
	p.Then(log.Mark("A")).Fail(log.Mark("B")).Then(log.Mark("C"))

	// A is skipped, B recovers the chain, C runs as resolved.
	require.Equal(t, []string{"B", "C"}, log.Events())
}

func TestResolveIsIdempotent(t *testing.T) {
	e := newTestEngine()
	count := 0

	p := e.New(nil)
	p.Retain()
	defer p.Release()

	p.Then(func() { count++ })
	p.Resolve()
	p.Resolve()

	if count != 1 {
		t.Errorf("callback ran %d times, want 1", count)
	}
	if p.Status() != StatusFinished {
		t.Errorf("status = %v, want finished", p.Status())
	}
}

func TestRejectAfterResolveIsNoOp(t *testing.T) {
	e := newTestEngine()
	var log EventLog

	p := e.New(nil)
	p.Retain()
	defer p.Release()
	p.Then(log.Mark("ok"), log.Mark("fail"))

	p.Resolve()
	p.Reject()

	require.Equal(t, []string{"ok"}, log.Events())
}

// Settling before or after chaining must be equivalent: for any f,
// new(resolve).then(f) behaves like new(f; resolve).then(noop).
func TestSettleOrderEquivalence(t *testing.T) {
	e := newTestEngine()
	var log1, log2 EventLog

	e.New(func(d Handle) { d.Resolve() }).Then(log1.Mark("f"))

	e.New(func(d Handle) {
		log2.Record("f")
		d.Resolve()
	}).Then(func() {})

	require.Equal(t, log1.Events(), log2.Events())
}

func TestDeferredChainRunsOnLaterResolve(t *testing.T) {
	e := newTestEngine()
	var log EventLog

	var d Handle
	p := e.New(func(h Handle) { d = h })
	p.Then(log.Mark("A"))

	require.Empty(t, log.Events())
	d.Resolve()
	require.Equal(t, []string{"A"}, log.Events())
}

func TestRejectPending(t *testing.T) {
	e := newTestEngine()
	var log EventLog

	var d Handle
	p := e.New(func(h Handle) { d = h })
	p.Then(log.Mark("A"), log.Mark("rej"))

	require.Empty(t, log.Events())
	d.RejectPending()
	require.Equal(t, []string{"rej"}, log.Events())
}

func TestFindPendingFrontier(t *testing.T) {
	e := newTestEngine()

	p := e.New(nil)
	p.Retain()
	defer p.Release()
	tail := p.Then(func() {}).Then(func() {})

	// From the pending tail the frontier is the chain head.
	fp := tail.FindPending()
	require.False(t, fp.IsNil())
	require.Equal(t, StatusInit, fp.Status())
	require.Equal(t, p, fp)

	p.Resolve()

	// Everything settled: no frontier left.
	require.True(t, p.FindPending().IsNil())
}

func TestCallbackChainSplice(t *testing.T) {
	e := newTestEngine()
	var log EventLog

	inner := e.New(nil)
	inner.Retain()
	defer inner.Release()

	p := e.New(nil)
	p.Then(func() Handle {
		log.Record("outer")
		return inner.Then(log.Mark("inner"))
	}).Then(log.Mark("after"))

	p.Resolve()
	require.Equal(t, []string{"outer"}, log.Events())

	inner.Resolve()
	require.Equal(t, []string{"outer", "inner", "after"}, log.Events())
}

func TestSingleSuccessorDisplacement(t *testing.T) {
	e := newTestEngine()
	var log EventLog

	p := e.New(nil)
	c1 := p.Then(log.Mark("f1"))
	c1.Retain()
	defer c1.Release()
	p.Then(log.Mark("f2"))

	p.Resolve()

	// Only the most recently attached sub-chain is driven; the displaced
	// one stays pending as an independent chain.
	require.Equal(t, []string{"f2"}, log.Events())
	require.Equal(t, StatusInit, c1.Status())
}

func TestBypassOnResolvedPath(t *testing.T) {
	e := newTestEngine()
	var log EventLog

	p := e.New(nil)
	p.Bypass(log.Mark("side")).Then(log.Mark("C"))
	p.Resolve()

	require.Equal(t, []string{"side", "C"}, log.Events())
}

func TestBypassPreservesRejection(t *testing.T) {
	e := newTestEngine()
	var log EventLog

	p := e.New(nil)
	p.Bypass(log.Mark("side")).Then(log.Mark("C"), log.Mark("rej"))
	p.Reject()

	// The side effect runs but the rejection flows on: C is skipped, the
	// downstream reject handler fires.
	require.Equal(t, []string{"side", "rej"}, log.Events())
}

func TestAlwaysRunsOnBothPaths(t *testing.T) {
	e := newTestEngine()
	var log EventLog

	e.New(func(d Handle) { d.Resolve() }).Always(log.Mark("always"))
	e.New(func(d Handle) { d.Reject() }).Always(log.Mark("always"))

	require.Equal(t, []string{"always", "always"}, log.Events())
}

func TestLongChainEachCallbackOnce(t *testing.T) {
	const n = 10_000
	e := NewEngine(&Config{ArenaSize: 4 << 20})
	count := 0

	p := e.New(nil)
	tail := Handle{}
	for i := 0; i < n; i++ {
		if tail.IsNil() {
			tail = p.Then(func() { count++ })
		} else {
			tail = tail.Then(func() { count++ })
		}
	}
	p.Resolve()

	if count != n {
		t.Errorf("callbacks ran %d times, want %d", count, n)
	}
}

func TestStatusTransitionsMonotone(t *testing.T) {
	e := newTestEngine()

	p := e.New(nil)
	p.Retain()
	defer p.Release()
	require.Equal(t, StatusInit, p.Status())

	p.Then(func() {})
	require.Equal(t, StatusInit, p.Status())

	p.Resolve()
	// Consumed by the walk: resolved, then finished.
	require.Equal(t, StatusFinished, p.Status())

	p.Reject()
	require.Equal(t, StatusFinished, p.Status())
}

func TestRejectConstructor(t *testing.T) {
	e := newTestEngine()
	var log EventLog

	e.Reject().Then(log.Mark("A"), log.Mark("rej"))
	require.Equal(t, []string{"rej"}, log.Events())
}

func TestNullHandleOperationsAreVacuous(t *testing.T) {
	var h Handle

	require.True(t, h.IsNil())
	h.Resolve()
	h.Reject()
	h.RejectPending()
	h.Retain()
	h.Release()
	h.Clear()
	require.True(t, h.FindPending().IsNil())
}

func TestThenOnNullHandleIsFatal(t *testing.T) {
	var h Handle
	require.PanicsWithError(t,
		"promise: Then on a null handle (op=Then)",
		func() { h.Then(func() {}) })
}

func TestBadCallbackShapeIsFatal(t *testing.T) {
	e := newTestEngine()
	p := e.New(nil)
	require.Panics(t, func() { p.Then(42) })
}

func TestNullCallbackReturnIsFatal(t *testing.T) {
	e := newTestEngine()
	p := e.New(func(d Handle) { d.Resolve() })
	require.Panics(t, func() {
		p.Then(func() Handle { return Handle{} })
	})
}
