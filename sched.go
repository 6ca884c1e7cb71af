package promise

import (
	"github.com/behrlich/go-promise/internal/list"
	"github.com/behrlich/go-promise/internal/slab"
)

// deferEntry is one queued settlement. Entries come from their own slab
// pool; the block header's list node carries queue membership, so an entry
// costs no allocation beyond its block.
type deferEntry struct {
	n      *node
	reject bool
}

// finalizeDeferEntry releases the entry's reference on its node. Drain
// transfers the reference out before freeing the entry; this path covers
// entries dropped while still queued.
func (e *Engine) finalizeDeferEntry(ent *deferEntry) {
	if ent.n != nil {
		ent.n.decRef()
		ent.n = nil
	}
}

// DeferAttach enqueues a resolve of h to run on the next DeferRun. This is
// the one operation interrupt and timer contexts may call: they never
// invoke callbacks or settle promises directly.
func (e *Engine) DeferAttach(h Handle) {
	e.deferAttach(h, false)
}

// DeferReject enqueues a reject of h to run on the next DeferRun.
func (e *Engine) DeferReject(h Handle) {
	e.deferAttach(h, true)
}

func (e *Engine) deferAttach(h Handle, reject bool) {
	if h.n == nil {
		return
	}
	e.deferMu.Lock()
	ent := slab.New(e.deferPool)
	ent.n = h.n
	ent.reject = reject
	h.n.addRef()
	e.deferHead.Attach(slab.LinkOf(ent))
	e.deferMu.Unlock()

	e.metrics.DeferEnqueues.Add(1)
	if e.observer != nil {
		e.observer.ObserveDefer()
	}
}

// DeferRun drains the deferred queue in FIFO order, settling each entry's
// promise exactly once on the caller's context — the main loop. The drain
// snapshots the queue at entry: settlements enqueued by the callbacks it
// runs land on the emptied queue and wait for the next drain, so a
// self-re-arming chain cannot starve the loop.
func (e *Engine) DeferRun() {
	var batch list.Node
	batch.Init()

	e.deferMu.Lock()
	first := e.deferHead.Next()
	if first != &e.deferHead {
		e.deferHead.Detach()
		batch.Attach(first)
	}
	e.deferMu.Unlock()

	drained := 0
	for !batch.Empty() {
		ln := batch.Next()
		ln.Detach()
		ent := slab.FromLink[deferEntry](ln)

		n := ent.n
		reject := ent.reject
		ent.n = nil // the entry's reference transfers to this frame

		// The entry pool's free-list is shared with interrupt-context
		// appends, so the entry returns to it under the same lock.
		e.deferMu.Lock()
		slab.DecRef(e.region, ent)
		e.deferMu.Unlock()

		if reject {
			n.reject()
		} else {
			n.resolve()
		}
		n.decRef()

		e.metrics.DeferDrains.Add(1)
		drained++
	}

	if drained > 0 {
		e.log.Debug("deferred queue drained", "entries", drained)
	}
}
