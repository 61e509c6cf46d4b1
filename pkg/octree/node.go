// Package octree implements a generic, depth-bounded sparse octree with
// optional copy-on-write node sharing. The tree itself never interprets
// the values it stores; all merge, split and equality semantics are
// delegated to the Payload implementation, so the same tree machinery
// serves log-odds occupancy (pkg/occupancy) or any future payload kind.
package octree

import "fmt"

// Debug gates expensive invariant checks (double-create of an existing
// child, double-delete of an absent one) that panic rather than return an
// error, since they indicate a bug in the caller rather than bad input.
// Release builds should leave this false.
var Debug = false

func debugAssert(cond bool, msg string, args ...any) {
	if Debug && !cond {
		panic(fmt.Sprintf("octree: "+msg, args...))
	}
}

// Payload is the value type a Node carries. V implements Payload[V]
// itself (a self-referential constraint), so methods like Equal take and
// return the concrete value type rather than an interface.
type Payload[V any] interface {
	// Zero returns the value a freshly created node starts with.
	Zero() V
	// Equal reports whether the receiver and other are the same value.
	Equal(other V) bool
	// Mergeable reports whether all 8 children can collapse into a single
	// value, returning that value when true. Called on children[0].
	Mergeable(children [8]V) (V, bool)
	// Aggregate computes an inner node's value from its 8 children (the
	// occupancy payload uses max; a counting payload might use sum).
	Aggregate(children [8]V) V
	// Split divides the receiver's value across 8 new children, the
	// inverse of collapsing (the occupancy payload copies; a counting
	// payload might divide evenly).
	Split() [8]V
}

// Node is one node of the octree: a value plus up to 8 children. A node
// with no children is a leaf whose value covers its whole volume; a nil
// slot in a node that has other children is unobserved space. Node never invokes the tree's CoW policy itself; Tree and the
// cowPolicy implementations own that responsibility so Node stays a
// plain, reusable data structure.
type Node[V Payload[V]] struct {
	value    V
	children [8]*Node[V]
	refcount uint32
}

// NewNode returns a freshly allocated, uniquely owned leaf node.
func NewNode[V Payload[V]](value V) *Node[V] {
	return &Node[V]{value: value, refcount: 1}
}

// Value returns the node's current value.
func (n *Node[V]) Value() V { return n.value }

// SetValue overwrites the node's value in place. Callers are responsible
// for having made the node unique first (see Tree.UpdateNodeAtKey).
func (n *Node[V]) SetValue(v V) { n.value = v }

// HasChildren reports whether any of the 8 child slots is occupied.
func (n *Node[V]) HasChildren() bool {
	for _, c := range n.children {
		if c != nil {
			return true
		}
	}
	return false
}

// ChildExists reports whether child slot i is occupied.
func (n *Node[V]) ChildExists(i uint8) bool { return n.children[i] != nil }

// CreateChild allocates a new, uniquely owned child at slot i, which must
// currently be empty.
func (n *Node[V]) CreateChild(i uint8) *Node[V] {
	debugAssert(n.children[i] == nil, "create_child on occupied slot %d", i)
	var zero V
	child := NewNode[V](zero.Zero())
	n.children[i] = child
	return child
}

// GetConstChild returns child slot i without affecting any refcount. Safe
// for read-only traversal; the returned node must not be mutated.
func (n *Node[V]) GetConstChild(i uint8) *Node[V] { return n.children[i] }

// GetChild returns child slot i after asking cow to make it unique,
// cloning it first if it is shared. Returns nil if the slot is empty.
func (n *Node[V]) GetChild(i uint8, cow cowPolicy[V]) *Node[V] {
	if n.children[i] == nil {
		return nil
	}
	return cow.makeUnique(&n.children[i])
}

// DeleteChild drops the reference to child slot i, letting cow reclaim it
// if it was the last reference, and clears the slot.
func (n *Node[V]) DeleteChild(i uint8, cow cowPolicy[V]) {
	debugAssert(n.children[i] != nil, "delete_child on empty slot %d", i)
	cow.derefChild(n.children[i])
	n.children[i] = nil
}

// collapsedValue reports whether all 8 children exist, are themselves
// leaves, and are mergeable into one value, returning that value.
func (n *Node[V]) collapsedValue() (V, bool) {
	var zero V
	for i := uint8(0); i < 8; i++ {
		c := n.children[i]
		if c == nil || c.HasChildren() {
			return zero, false
		}
	}
	var kids [8]V
	for i := uint8(0); i < 8; i++ {
		kids[i] = n.children[i].Value()
	}
	return kids[0].Mergeable(kids)
}

// Collapsible reports whether Prune would succeed on this node right now.
func (n *Node[V]) Collapsible() bool {
	_, ok := n.collapsedValue()
	return ok
}

// Prune collapses 8 mergeable leaf children into this node's own value,
// dereferencing each child through cow. Reports whether it collapsed
// anything; a false return leaves the node untouched.
func (n *Node[V]) Prune(cow cowPolicy[V]) bool {
	merged, ok := n.collapsedValue()
	if !ok {
		return false
	}
	for i := uint8(0); i < 8; i++ {
		cow.derefChild(n.children[i])
		n.children[i] = nil
	}
	n.value = merged
	return true
}

// Expand is the inverse of Prune: it materializes 8 children from this
// leaf's value via Payload.Split. n must not already have children.
func (n *Node[V]) Expand(cow cowPolicy[V]) {
	debugAssert(!n.HasChildren(), "expand on node that already has children")
	values := n.value.Split()
	for i := uint8(0); i < 8; i++ {
		n.children[i] = NewNode[V](values[i])
	}
}

// UpdateAggregate recomputes this node's value from its current children
// via Payload.Aggregate. Absent children contribute a zero value. A node
// with no children at all is left untouched (it is a leaf; its value is
// authoritative, not derived).
func (n *Node[V]) UpdateAggregate() {
	if !n.HasChildren() {
		return
	}
	var zero V
	var kids [8]V
	for i := uint8(0); i < 8; i++ {
		if n.children[i] != nil {
			kids[i] = n.children[i].Value()
		} else {
			kids[i] = zero.Zero()
		}
	}
	n.value = kids[0].Aggregate(kids)
}

// Refcount returns the node's current reference count. Non-CoW trees
// never advance this past 1.
func (n *Node[V]) Refcount() uint32 { return n.refcount }

// AttachChild installs an already-constructed, uniquely owned child at
// slot i, overwriting whatever was there. Used by deserializers
// (pkg/octreeio) reconstructing a tree from encoded bytes, where every
// node is freshly allocated and CoW concerns do not apply.
func (n *Node[V]) AttachChild(i uint8, child *Node[V]) {
	n.children[i] = child
}
