// Package slab implements the size-indexed block allocator layered on the
// arena region. Each pool recycles blocks of one payload shape through an
// intrusive free-list threaded through the block headers; a block is either
// live (refcount >= 1, off every free-list) or free (refcount 0, on exactly
// its pool's free-list).
//
// A block is laid out as header-then-payload in a single allocation, so the
// header is recoverable from a payload pointer in constant time and vice
// versa, the same container-of bijection the free-lists rely on.
package slab

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/behrlich/go-promise/internal/arena"
	"github.com/behrlich/go-promise/internal/list"
)

// Header is the fixed preamble in front of every slab payload.
//
// Link doubles as queue membership for live blocks: while a block is live it
// is off its free-list, so the deferred queue and the timer service thread
// their lists through the same node. It must stay the first field so a
// *list.Node recovered from a list is also the *Header.
//
// The reference count is atomic because simulated interrupt context may
// retain a block while the main loop releases elsewhere; on target this is
// a 16-bit field mutated with interrupts masked.
type Header struct {
	Link list.Node
	off  arena.Offset // block identity in the region
	pool arena.Offset // owning pool descriptor
	refs atomic.Int32
}

// UnderflowError is the fatal diagnostic raised (via panic) when a
// reference count is decremented below zero or a free block is released
// again. Either indicates a corrupted ownership protocol.
type UnderflowError struct {
	Refs int32
}

func (e *UnderflowError) Error() string {
	return fmt.Sprintf("slab: refcount underflow (refs=%d)", e.Refs)
}

// Stats carries the process-wide allocator counters shared by every pool of
// one engine. The deferred queue obtains entries from simulated interrupt
// context, so the counters are atomics like every other shared counter in
// the tree.
type Stats struct {
	LiveBytes atomic.Int64  // bytes held by live blocks
	Obtains   atomic.Uint64 // blocks handed out (fresh or recycled)
	Releases  atomic.Uint64 // blocks returned to a free-list
	Grown     atomic.Uint64 // blocks carved fresh from the region
}

// poolCore is the type-independent part of a pool. It is what a block
// header's pool offset resolves to, so release and finalisation work
// without knowing the payload type.
type poolCore struct {
	free     list.Node // free-list sentinel
	region   *arena.Region
	stats    *Stats
	size     uintptr // whole block size, for accounting
	finalize func(unsafe.Pointer)
	selfOff  arena.Offset
}

// block is the unit of allocation: header immediately followed by payload.
type block[T any] struct {
	hdr   Header
	value T
}

// Pool hands out payloads of a single shape. One pool exists per distinct
// block size, which in Go is one per payload type.
type Pool[T any] struct {
	core poolCore
}

// NewPool registers a pool on the region. finalize, if non-nil, runs on the
// payload when its last reference is dropped, before the block returns to
// the free-list. The pool descriptor itself is carved from the region, like
// everything else.
func NewPool[T any](r *arena.Region, stats *Stats, finalize func(*T)) *Pool[T] {
	p := &Pool[T]{}
	p.core.free.Init()
	p.core.region = r
	p.core.stats = stats
	p.core.size = unsafe.Sizeof(block[T]{})
	if finalize != nil {
		p.core.finalize = func(v unsafe.Pointer) { finalize((*T)(v)) }
	}
	p.core.selfOff = r.Allocate(unsafe.Sizeof(poolCore{}))
	r.Bind(p.core.selfOff, unsafe.Pointer(&p.core))
	return p
}

// Obtain returns a zeroed payload with refcount 0: the head of the
// free-list when one is available, otherwise a fresh block carved from the
// region (fatal on exhaustion). The caller takes its first reference with
// AddRef; New does both.
func (p *Pool[T]) Obtain() *T {
	p.core.stats.Obtains.Add(1)
	p.core.stats.LiveBytes.Add(int64(p.core.size))

	if !p.core.free.Empty() {
		n := p.core.free.Next()
		n.Detach()
		h := (*Header)(unsafe.Pointer(n))
		b := (*block[T])(unsafe.Pointer(h))
		var zero T
		b.value = zero
		return &b.value
	}

	off := p.core.region.Allocate(p.core.size)
	b := new(block[T])
	p.core.region.Bind(off, unsafe.Pointer(b))
	b.hdr.Link.Init()
	b.hdr.off = off
	b.hdr.pool = p.core.selfOff
	p.core.stats.Grown.Add(1)
	return &b.value
}

// New obtains a payload and takes the caller's first reference on it.
func New[T any](p *Pool[T]) *T {
	v := p.Obtain()
	AddRef(v)
	return v
}

// headerOf recovers the block header from a payload pointer.
func headerOf[T any](v *T) *Header {
	var probe block[T]
	return (*Header)(unsafe.Add(unsafe.Pointer(v), -int(unsafe.Offsetof(probe.value))))
}

// AddRef takes a reference on the payload's block. nil is a no-op.
func AddRef[T any](v *T) {
	if v == nil {
		return
	}
	headerOf(v).refs.Add(1)
}

// Refs returns the payload's current reference count, for harness checks.
func Refs[T any](v *T) int32 {
	if v == nil {
		return 0
	}
	return headerOf(v).refs.Load()
}

// LinkOf exposes the header's list node for live-queue membership. The
// caller must keep a reference on v for as long as the node is enqueued.
func LinkOf[T any](v *T) *list.Node {
	return &headerOf(v).Link
}

// FromLink recovers the payload from a header link obtained via LinkOf.
func FromLink[T any](n *list.Node) *T {
	h := (*Header)(unsafe.Pointer(n))
	b := (*block[T])(unsafe.Pointer(h))
	return &b.value
}

// OffsetOf returns the compressed identity of the payload's block, arena.Nil
// for nil.
func OffsetOf[T any](v *T) arena.Offset {
	if v == nil {
		return arena.Nil
	}
	return headerOf(v).off
}

// FromOffset resolves a compressed block identity back to its payload.
// Nil resolves to nil. The offset must have been produced by OffsetOf on a
// payload of the same type.
func FromOffset[T any](r *arena.Region, off arena.Offset) *T {
	p := r.Pointer(off)
	if p == nil {
		return nil
	}
	b := (*block[T])(p)
	return &b.value
}

// DecRef drops a reference on the payload's block. On the 1 -> 0 transition
// the payload's finalizer runs and the block moves to the tail of its
// pool's free-list. Reports whether the block was released. Decrementing a
// zero refcount is fatal.
//
// The header stores its pool as a compressed offset, so resolving it needs
// the region the block was carved from; every caller owns exactly one.
func DecRef[T any](r *arena.Region, v *T) bool {
	if v == nil {
		return false
	}
	h := headerOf(v)
	left := h.refs.Add(-1)
	if left < 0 {
		panic(&UnderflowError{Refs: left})
	}
	if left > 0 {
		return false
	}
	core := (*poolCore)(r.Pointer(h.pool))
	if core.finalize != nil {
		core.finalize(unsafe.Pointer(v))
	}
	core.free.Move(&h.Link)
	core.stats.LiveBytes.Add(-int64(core.size))
	core.stats.Releases.Add(1)
	return true
}

// BlockSize returns the whole block size the pool accounts per payload.
func (p *Pool[T]) BlockSize() int {
	return int(p.core.size)
}

// FreeCount walks the pool's free-list and returns its length, for harness
// checks of the free-list invariants.
func (p *Pool[T]) FreeCount() int {
	n := 0
	for it := p.core.free.Next(); it != &p.core.free; it = it.Next() {
		n++
	}
	return n
}

// OnFreeList reports whether the payload's block is currently on its pool's
// free-list.
func (p *Pool[T]) OnFreeList(v *T) bool {
	h := headerOf(v)
	for it := p.core.free.Next(); it != &p.core.free; it = it.Next() {
		if it == &h.Link {
			return true
		}
	}
	return false
}
