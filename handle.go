package promise

// Handle is a reference to a promise node. Handles returned by the library
// are borrowed: they are valid while the node is alive — which the chain,
// its producers (timer registrations, the deferred queue) and the node's
// own pending-head reference guarantee for every usual flow — but they do
// not themselves keep the node alive. Code that stores a handle across
// settlement of the chain must take its own reference with Retain and drop
// it with Release (or Clear).
//
// The zero Handle is null and participates vacuously: settlement and
// pending-search operations on it are no-ops.
type Handle struct {
	n *node
}

// IsNil reports whether the handle is null.
func (h Handle) IsNil() bool { return h.n == nil }

// Status returns the node's settlement state, StatusFinished for null.
func (h Handle) Status() Status {
	if h.n == nil {
		return StatusFinished
	}
	return h.n.status
}

// Retain takes a counted reference on the node for code that stores the
// handle beyond the current flow. Null is a no-op.
func (h Handle) Retain() {
	if h.n != nil {
		h.n.addRef()
	}
}

// Release drops a reference previously taken with Retain. Null is a no-op.
func (h Handle) Release() {
	if h.n != nil {
		h.n.decRef()
	}
}

// Clear releases the retained reference and makes the handle null.
func (h *Handle) Clear() {
	h.Release()
	h.n = nil
}

// Resolve settles the node on the success path and drives the chain.
// Settling a node that is not pending is a no-op.
func (h Handle) Resolve() {
	if h.n != nil {
		h.n.resolve()
	}
}

// Reject settles the node on the failure path and drives the chain.
// Settling a node that is not pending is a no-op.
func (h Handle) Reject() {
	if h.n != nil {
		h.n.reject()
	}
}

// Then appends a continuation and returns the chain's new tail. onResolved
// runs when the preceding step resolves; the optional second callback runs
// when it rejects. Either may be nil, a plain func(), or a func() Handle
// whose returned chain is spliced into this one.
//
// If the node is already settled the new carrier runs before Then returns.
func (h Handle) Then(onResolved any, onRejected ...any) Handle {
	if h.n == nil {
		fatal("Then", ErrCodeBadCallback, "Then on a null handle")
	}
	var rej any
	if len(onRejected) > 0 {
		rej = onRejected[0]
	}
	child := h.n.eng.newNode(
		resolveCarrier("Then", onResolved),
		rejectCarrier("Then", rej),
	)
	return Handle{n: h.n.then(child)}
}

// Fail appends a rejection handler; sugar for Then(nil, onRejected).
func (h Handle) Fail(onRejected any) Handle {
	if h.n == nil {
		fatal("Fail", ErrCodeBadCallback, "Fail on a null handle")
	}
	child := h.n.eng.newNode(nil, rejectCarrier("Fail", onRejected))
	return Handle{n: h.n.then(child)}
}

// Always appends fn on both paths; sugar for Then(fn, fn).
func (h Handle) Always(fn any) Handle {
	if h.n == nil {
		fatal("Always", ErrCodeBadCallback, "Always on a null handle")
	}
	child := h.n.eng.newNode(
		resolveCarrier("Always", fn),
		rejectCarrier("Always", fn),
	)
	return Handle{n: h.n.then(child)}
}

// Bypass runs the side-effecting fn on either path but preserves rejection
// flow: after a rejected step, fn runs and the rejection continues to the
// next handler. Note the composition consequence: a Bypass step reached on
// the success path resolves normally, while one reached on the failure
// path always re-rejects — fn cannot recover the chain.
func (h Handle) Bypass(fn func()) Handle {
	if h.n == nil {
		fatal("Bypass", ErrCodeBadCallback, "Bypass on a null handle")
	}
	eng := h.n.eng
	child := eng.newNode(
		simpleResolve{fn: fn},
		chainReject{fn: func() Handle {
			fn()
			return eng.Reject()
		}},
	)
	return Handle{n: h.n.then(child)}
}

// SetTag labels the node for diagnostics. Null is a no-op.
func (h Handle) SetTag(tag Tag) {
	if h.n != nil {
		h.n.tag = tag
	}
}

// Tag returns the node's diagnostic label, TagNone for null.
func (h Handle) Tag() Tag {
	if h.n == nil {
		return TagNone
	}
	return h.n.tag
}

// FindPending returns the chain's settlement frontier — the earliest node
// still pending — or a null handle when every node has settled.
func (h Handle) FindPending() Handle {
	if h.n == nil {
		return Handle{}
	}
	return Handle{n: h.n.findPending()}
}

// RejectPending rejects the chain's settlement frontier, if any. This is
// the cancellation idiom: downstream reject carriers fire and clean up.
func (h Handle) RejectPending() {
	if h.n != nil {
		h.n.rejectPending()
	}
}
