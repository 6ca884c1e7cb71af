package promise

import (
	"errors"
	"testing"

	"github.com/behrlich/go-promise/internal/arena"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ArenaSize != DefaultArenaSize {
		t.Errorf("arena size = %d, want %d", cfg.ArenaSize, DefaultArenaSize)
	}
	if cfg.Debug {
		t.Error("debug should default to off")
	}
}

func TestNewEngineNilConfig(t *testing.T) {
	e := NewEngine(nil)
	snap := e.MetricsSnapshot()
	if snap.ArenaCapacity != DefaultArenaSize {
		t.Errorf("capacity = %d, want %d", snap.ArenaCapacity, DefaultArenaSize)
	}
}

func TestSetDefault(t *testing.T) {
	old := Default()
	defer SetDefault(old)

	e := newTestEngine()
	SetDefault(e)
	if Default() != e {
		t.Error("Default should return the engine just set")
	}

	// Package-level constructors go through the default engine.
	ran := false
	New(func(d Handle) { d.Resolve() }).Then(func() { ran = true })
	if !ran {
		t.Error("package-level New did not use the default engine")
	}
	if e.MetricsSnapshot().Resolves == 0 {
		t.Error("settlement not recorded on the default engine")
	}
}

func TestEnginesAreIndependent(t *testing.T) {
	e1 := newTestEngine()
	e2 := newTestEngine()

	p := e1.New(func(d Handle) { d.Resolve() })
	p.Then(func() {})

	if e2.MetricsSnapshot().NodesCreated != 0 {
		t.Error("activity on e1 leaked into e2")
	}
	if e1.MetricsSnapshot().NodesCreated == 0 {
		t.Error("no activity recorded on e1")
	}
}

func TestArenaExhaustionIsFatal(t *testing.T) {
	e := NewEngine(&Config{ArenaSize: 512})

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected fatal panic on arena exhaustion")
		}
		err, ok := rec.(error)
		if !ok {
			t.Fatalf("panic value = %T, want error", rec)
		}
		var oe *arena.OverflowError
		if !errors.As(err, &oe) {
			t.Fatalf("panic error = %v, want *arena.OverflowError", err)
		}
		if !IsCode(WrapError("New", err), ErrCodeOutOfMemory) {
			t.Error("overflow should map to ErrCodeOutOfMemory")
		}
	}()

	// Hold every handle so nothing recycles; growth must hit the budget.
	held := make([]Handle, 0, 64)
	for i := 0; i < 64; i++ {
		h := e.New(nil)
		h.Retain()
		held = append(held, h)
	}
	t.Fatalf("allocated %d nodes without exhausting a 512-byte arena", len(held))
}

// A resolution-driven loop must reach a steady state where consumed nodes
// recycle through the slab instead of growing the arena.
func TestWhileSteadyStateIsBounded(t *testing.T) {
	e := newTestEngine()
	iterations := 0

	var d Handle
	e.While(func(h Handle) {
		iterations++
		d = h
	})

	// Warm up, then measure.
	for i := 0; i < 10; i++ {
		cur := d
		cur.Resolve()
	}
	warm := e.MetricsSnapshot()

	for i := 0; i < 10_000; i++ {
		cur := d
		cur.Resolve()
	}
	snap := e.MetricsSnapshot()

	if iterations != 10_011 {
		t.Errorf("loop body ran %d times, want 10011", iterations)
	}
	if snap.SlabGrown != warm.SlabGrown {
		t.Errorf("slab grew during steady state: %d -> %d", warm.SlabGrown, snap.SlabGrown)
	}
	if snap.ArenaUsed != warm.ArenaUsed {
		t.Errorf("arena grew during steady state: %d -> %d", warm.ArenaUsed, snap.ArenaUsed)
	}
	if snap.LiveBytes != warm.LiveBytes {
		t.Errorf("live bytes drifted: %d -> %d", warm.LiveBytes, snap.LiveBytes)
	}
}

func TestWhileStopsOnReject(t *testing.T) {
	e := newTestEngine()
	iterations := 0

	var d Handle
	e.While(func(h Handle) {
		iterations++
		d = h
	})

	first := d
	first.Resolve()
	second := d
	second.Reject()

	// The loop body must not re-arm after a rejected iteration.
	if iterations != 2 {
		t.Errorf("loop body ran %d times, want 2", iterations)
	}
}
