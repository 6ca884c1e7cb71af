// Package timer provides the tick-driven timer service that settles promise
// chains. Tick sources — an interval interrupt, a mock clock in tests —
// advance the service from outside the main loop; due promises are never
// resolved from the tick context, they are handed to the engine's deferred
// queue and settle when the main loop drains it.
package timer

import (
	"sync"
	"unsafe"

	"github.com/behrlich/go-promise"
	"github.com/behrlich/go-promise/internal/list"
)

// Ticks is a duration in timer ticks. The tick period is whatever the tick
// source makes it; the service only counts.
type Ticks uint64

// entry is one armed timer. Entries recycle through a sync.Pool: the timer
// is a collaborator outside the arena-backed core, so it uses the hosted
// pooling idiom instead of slab blocks.
type entry struct {
	link     list.Node
	h        promise.Handle
	deadline uint64
}

var entryPool = sync.Pool{New: func() any { return &entry{} }}

// Service counts ticks and resolves armed promises as their deadlines pass.
type Service struct {
	eng *promise.Engine

	mu      sync.Mutex
	now     uint64
	pending list.Node // armed entries, unordered
	armed   int
}

// NewService creates a timer service settling promises on eng. A nil engine
// uses the default.
func NewService(eng *promise.Engine) *Service {
	if eng == nil {
		eng = promise.Default()
	}
	s := &Service{eng: eng}
	s.pending.Init()
	return s
}

// After returns a promise that resolves d ticks from now. The service keeps
// its own reference on the promise until the deadline passes, so the
// returned handle stays valid without a Retain for the usual
// chain-and-forget flow.
//
// A chain cancelled with RejectPending before the deadline is harmless: the
// deferred resolve finds a settled node and is a no-op.
func (s *Service) After(d Ticks) promise.Handle {
	h := s.eng.New(nil)
	h.SetTag(promise.TagTimer)
	h.Retain()

	ent := entryPool.Get().(*entry)
	ent.link.Init()
	ent.h = h

	s.mu.Lock()
	ent.deadline = s.now + uint64(d)
	s.pending.Attach(&ent.link)
	s.armed++
	s.mu.Unlock()
	return h
}

// Tick advances the clock by n ticks and moves every due promise onto the
// engine's deferred queue. Safe to call from interrupt or goroutine
// context; callbacks never run here.
func (s *Service) Tick(n Ticks) {
	s.mu.Lock()
	s.now += uint64(n)

	it := s.pending.Next()
	for it != &s.pending {
		next := it.Next()
		ent := (*entry)(unsafe.Pointer(it)) // link is the first field
		if ent.deadline <= s.now {
			it.Detach()
			s.armed--
			s.eng.DeferAttach(ent.h)
			ent.h.Clear()
			entryPool.Put(ent)
		}
		it = next
	}
	s.mu.Unlock()
}

// Now returns the current tick count.
func (s *Service) Now() Ticks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ticks(s.now)
}

// Armed returns the number of armed timers.
func (s *Service) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}
