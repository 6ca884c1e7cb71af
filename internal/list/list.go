// Package list implements the intrusive circular doubly-linked list used by
// the slab free-lists, the deferred-resolve queue and the timer service.
//
// A Node is embedded in the structure it links. A fresh node is self-linked;
// a self-linked node is "empty". All operations are O(1) and the structure is
// always well-formed: for every reachable node x, x.next.prev == x.
package list

// Node is an intrusive list link. The zero value is NOT usable; call Init
// (or obtain the node from a slab block, which initialises it) first.
type Node struct {
	prev *Node
	next *Node
}

// Init makes the node a singleton list (self-linked).
func (n *Node) Init() {
	n.prev = n
	n.next = n
}

// Prev returns the predecessor link.
func (n *Node) Prev() *Node { return n.prev }

// Next returns the successor link.
func (n *Node) Next() *Node { return n.next }

// toggleConnect connects or disconnects two lists. The operation is its own
// inverse: applied to separate lists it splices them into one ring, applied
// to members of one ring it cuts the ring in two.
func toggleConnect(a, b *Node) {
	prevA := a.prev
	prevB := b.prev
	prevA.next = b
	prevB.next = a
	a.prev = prevB
	b.prev = prevA
}

// Attach splices the list containing other into the list at n. With n a
// singleton head this places other immediately after n; with a populated
// ring it places other's list at the tail, before n.
func (n *Node) Attach(other *Node) {
	toggleConnect(n, other)
}

// Detach removes n from its current list, leaving n self-linked.
func (n *Node) Detach() {
	toggleConnect(n, n.next)
}

// Move detaches other from whatever list holds it and re-attaches it
// immediately before n. After the call, other.next == n and n.prev == other.
func (n *Node) Move(other *Node) {
	other.prev.next = other.next
	other.next.prev = other.prev

	other.next = n
	other.prev = n.prev
	n.prev.next = other
	n.prev = other
}

// Empty reports whether n is self-linked.
func (n *Node) Empty() bool {
	return n.next == n
}
