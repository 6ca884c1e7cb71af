package promise

import (
	"sync"
	"sync/atomic"
)

// EventLog records callback firings in order, for scenario tests that
// assert on the exact event sequence.
type EventLog struct {
	mu     sync.Mutex
	events []string
}

// Record appends an event name.
func (l *EventLog) Record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, name)
}

// Mark returns a callback that records name when invoked.
func (l *EventLog) Mark(name string) func() {
	return func() { l.Record(name) }
}

// Events returns a copy of the recorded sequence.
func (l *EventLog) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// ContextSentinel distinguishes simulated interrupt context from the main
// loop in tests: the fake ISR brackets its body with EnterISR/LeaveISR and
// callbacks assert InISR is false when they run.
type ContextSentinel struct {
	depth atomic.Int32
}

// EnterISR marks entry into simulated interrupt context.
func (s *ContextSentinel) EnterISR() {
	s.depth.Add(1)
}

// LeaveISR marks exit from simulated interrupt context.
func (s *ContextSentinel) LeaveISR() {
	s.depth.Add(-1)
}

// InISR reports whether a simulated interrupt is in progress.
func (s *ContextSentinel) InISR() bool {
	return s.depth.Load() > 0
}
