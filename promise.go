// Package promise provides JavaScript-style promise chains for cooperative
// single-threaded programs, backed by a fixed-size arena and a recycling
// slab allocator instead of the garbage collector. It is the hosted
// rendition of a pattern built for microcontrollers with a few kilobytes of
// RAM: asynchronous flows — timers, interrupt-triggered events, retries —
// are written as chains of callbacks rather than explicit state machines,
// and every chain node lives in a slab block that is recycled the moment
// the resolution walk consumes it.
package promise

import (
	"github.com/behrlich/go-promise/internal/arena"
	"github.com/behrlich/go-promise/internal/slab"
)

// Status is a promise node's settlement state.
type Status uint8

const (
	// StatusInit marks a pending node awaiting settlement.
	StatusInit Status = iota
	// StatusResolved marks a node settled on the success path.
	StatusResolved
	// StatusRejected marks a node settled on the failure path.
	StatusRejected
	// StatusFinished marks a consumed node; its callbacks have been cleared
	// and can never run again.
	StatusFinished
)

// Tag classifies a node for diagnostics; producers may label the nodes
// they create so chain dumps and debug assertions can tell them apart.
type Tag uint8

const (
	// TagNone marks an unclassified node.
	TagNone Tag = iota
	// TagTimer marks a node produced by a timer service.
	TagTimer
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "init"
	case StatusResolved:
		return "resolved"
	case StatusRejected:
		return "rejected"
	case StatusFinished:
		return "finished"
	default:
		return "invalid"
	}
}

// node is one link of a promise chain.
//
// Ownership is forward-strong, backward-weak: next holds a counted
// reference, prev is a bare compressed offset cleared by the predecessor's
// finalizer. A node additionally carries at most one floating "root"
// reference (rooted == true): the creation reference of a chain head that
// no predecessor owns yet. Joining a node transfers its root reference to
// the new predecessor's ownership; consuming a node drops it.
type node struct {
	eng        *Engine
	next       *node
	prev       arena.Offset
	status     Status
	cleared    bool
	rooted     bool
	tag        Tag
	onResolved carrier
	onRejected carrier
}

func (n *node) addRef() { slab.AddRef(n) }

func (n *node) decRef() { slab.DecRef(n.eng.region, n) }

func (n *node) offset() arena.Offset { return slab.OffsetOf(n) }

func (n *node) fromOffset(off arena.Offset) *node {
	return slab.FromOffset[node](n.eng.region, off)
}

// prepareResolve transitions Init -> Resolved. Settled and finished nodes
// are left untouched.
func (n *node) prepareResolve() {
	if n.status != StatusInit {
		return
	}
	n.status = StatusResolved
}

// prepareReject transitions Init -> Rejected. Settled and finished nodes
// are left untouched.
func (n *node) prepareReject() {
	if n.status != StatusInit {
		return
	}
	n.status = StatusRejected
}

// resolve settles the node on the success path and drives the chain.
func (n *node) resolve() {
	if n.status != StatusInit {
		return
	}
	n.prepareResolve()
	n.eng.metrics.Resolves.Add(1)
	if n.eng.observer != nil {
		n.eng.observer.ObserveSettle(false)
	}
	n.drive(false)
}

// reject settles the node on the failure path and drives the chain.
func (n *node) reject() {
	if n.status != StatusInit {
		return
	}
	n.prepareReject()
	n.eng.metrics.Rejects.Add(1)
	if n.eng.observer != nil {
		n.eng.observer.ObserveSettle(true)
	}
	n.drive(false)
}

// clearFunc drops the callback payloads so their captures are released and
// the carriers can never run twice.
func (n *node) clearFunc() {
	if n.cleared {
		return
	}
	n.cleared = true
	n.onResolved = nil
	n.onRejected = nil
}

// dropRoot releases the node's floating root reference, if it carries one.
func (n *node) dropRoot() {
	if n.rooted {
		n.rooted = false
		n.decRef()
	}
}

// adopt makes child the node's successor, transferring the child's root
// reference into n's forward ownership. The child must be a chain head.
func (n *node) adopt(child *node) {
	if child.rooted {
		child.rooted = false
	} else {
		child.addRef()
	}
	n.next = child
	child.prev = n.offset()
}

// drive walks the chain forward from n, invoking the appropriate carrier on
// each successor, splicing returned sub-chains in place of their node, and
// recycling every consumed link. It returns the node the walk stopped at:
// either a settled node with no successor, or a pending node, which may
// still have successors of its own.
//
// A pending stop node always keeps the walk reference as its floating root
// reference: it is a chain head after severing, and the producer that will
// settle it may hold nothing but a borrowed handle. With rootTail set a
// settled stop node keeps one too, so then() can hand out a usable handle;
// settlement walks pass false and a settled tail nothing references is
// reclaimed right here — that is what keeps fire-and-forget loops at
// constant slab consumption.
//
// The walk is a loop, not recursion: While-style loops must grow the stack
// by O(1) per iteration.
func (n *node) drive(rootTail bool) *node {
	cur := n
	cur.addRef() // walk reference

	for {
		st := cur.status
		if st != StatusResolved && st != StatusRejected {
			break
		}
		nx := cur.next
		if nx == nil {
			break
		}
		cur.status = StatusFinished

		var cont *node
		if nx.cleared {
			// Consumed by an earlier walk; never re-run its carriers.
			cont = nx
		} else {
			var c carrier
			if st == StatusResolved {
				c = nx.onResolved
			} else {
				c = nx.onRejected
			}
			if c == nil {
				// Absent resolve carrier continues resolved; absent reject
				// carrier propagates the rejection unchanged.
				if st == StatusResolved {
					nx.prepareResolve()
				} else {
					nx.prepareReject()
				}
				cont = nx
			} else {
				n.eng.metrics.CarrierRuns.Add(1)
				if n.eng.observer != nil {
					n.eng.observer.ObserveCarrier()
				}
				cont = c.call(nx)
			}
			nx.clearFunc()
		}

		if cont != nx {
			cur.splice(nx, cont)
		}

		// Sever the consumed node so its block recycles immediately. The
		// walk continues at the chain head cur owns — after a splice that
		// is the spliced chain's head, which cont (the carrier's returned
		// handle, often a tail further down) need not be — and cur's
		// ownership reference transfers to the walk, so the new pending
		// head stays alive exactly as in the single-node case where
		// head == cont. A severed head nothing else references is
		// unreachable garbage and is correctly reclaimed when the walk
		// drops it.
		head := cur.next
		cur.next = nil // ownership transfers to the walk
		head.prev = arena.Nil

		cur.dropRoot()
		cur.decRef()
		cur = head
	}

	if rootTail || cur.status == StatusInit {
		// The stop node is a chain head now. A pending frontier takes the
		// walk reference as its floating root reference — severing undid
		// the join that consumed it — so it stays alive for whichever
		// producer settles it. then() claims the same for its returned
		// tail. Nodes already rooted just shed the walk reference.
		if cur.rooted {
			cur.decRef()
		} else {
			cur.rooted = true
		}
	} else {
		// A settled tail nothing references is reclaimed here.
		cur.decRef()
	}
	return cur
}

// splice replaces the consumed successor nx with the chain containing r:
// the predecessor adopts r's chain head, nx's former successor re-attaches
// after r's chain tail, and nx itself is released.
func (n *node) splice(nx, r *node) {
	head := chainHead(r)
	tail := chainTail(r)
	if n.eng.debug {
		n.eng.assertDisjoint(n, nx, head, tail)
	}
	n.eng.metrics.Splices.Add(1)

	old := nx.next
	nx.next = nil
	if old != nil {
		old.prev = tail.offset()
		tail.next = old // ownership moves from nx to tail
	}

	n.adopt(head)
	nx.prev = arena.Nil
	nx.dropRoot()
	nx.decRef()
}

// chainHead walks prev links back to the root of r's chain.
func chainHead(r *node) *node {
	for {
		prev := r.fromOffset(r.prev)
		if prev == nil {
			return r
		}
		r = prev
	}
}

// chainTail walks next links forward to the end of r's chain.
func chainTail(r *node) *node {
	for r.next != nil {
		r = r.next
	}
	return r
}

// then attaches child as the node's single successor and, when the node is
// already settled, immediately drives the chain through the new carrier.
// Returns the chain's tail after the operation.
//
// A node has exactly one successor: attaching to a node that already has
// one displaces the previous sub-chain, which becomes an independent
// pending chain, drivable through its own head. then on a returned tail
// handle — the common chaining style — never displaces anything.
func (n *node) then(child *node) *node {
	if n.next != nil {
		old := n.next
		old.prev = arena.Nil
		if old.rooted {
			// Already carries a floating reference; ours is surplus.
			old.decRef()
		} else {
			old.rooted = true
		}
		n.next = nil
	}
	n.adopt(child)

	if n.status == StatusResolved || n.status == StatusRejected {
		return chainTail(n.drive(true))
	}
	return child
}

// findPending locates the chain's settlement frontier: the earliest node
// still awaiting settlement. From a pending node it walks backwards to the
// first node after a settled predecessor (or the chain head); from a
// settled node it walks forwards to the first pending successor. Returns
// nil when the chain has no pending node.
func (n *node) findPending() *node {
	if n.status == StatusInit {
		p := n
		for {
			prev := p.fromOffset(p.prev)
			if prev == nil {
				return p
			}
			if prev.status != StatusInit {
				return prev.next
			}
			p = prev
		}
	}
	for p := n.next; p != nil; p = p.next {
		if p.status == StatusInit {
			return p
		}
	}
	return nil
}

// rejectPending rejects whatever findPending locates, if anything.
func (n *node) rejectPending() {
	if p := n.findPending(); p != nil {
		p.reject()
	}
}
