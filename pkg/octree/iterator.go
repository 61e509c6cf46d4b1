package octree

import (
	"iter"

	"octomap/pkg/morton"
)

// Visit describes one node encountered while walking a Tree: its
// canonical key and depth (together they locate it in space; see
// morton.Coder.KeyToCoordAtDepth) and the node itself.
type Visit[V Payload[V]] struct {
	Key   morton.Key
	Depth uint8
	Node  *Node[V]
}

// NodeIter walks every node in the tree, inner and leaf, in depth-first
// pre-order. It is read-only: descending never calls makeUnique, so
// ranging over a Clone of a CoW tree never forces a divergence.
func (t *Tree[V]) NodeIter() iter.Seq[Visit[V]] {
	return func(yield func(Visit[V]) bool) {
		if t.root == nil {
			return
		}
		t.walkConst(t.root, t.rootKey(), 0, yield)
	}
}

// LeafIter is NodeIter restricted to leaves.
func (t *Tree[V]) LeafIter() iter.Seq[Visit[V]] {
	return func(yield func(Visit[V]) bool) {
		for v := range t.NodeIter() {
			if !v.Node.HasChildren() {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// NodeIterMutable is like NodeIter but calls makeUnique while descending,
// so every visited node is safe to mutate in place through its Node
// pointer — at the cost of diverging any shared subtree it passes
// through, even if the caller only reads.
func (t *Tree[V]) NodeIterMutable() iter.Seq[Visit[V]] {
	return func(yield func(Visit[V]) bool) {
		if t.root == nil {
			return
		}
		t.root = t.cow.makeUnique(&t.root)
		t.walkMutable(t.root, t.rootKey(), 0, yield)
	}
}

// LeafIterMutable is NodeIterMutable restricted to leaves.
func (t *Tree[V]) LeafIterMutable() iter.Seq[Visit[V]] {
	return func(yield func(Visit[V]) bool) {
		for v := range t.NodeIterMutable() {
			if !v.Node.HasChildren() {
				if !yield(v) {
					return
				}
			}
		}
	}
}

func (t *Tree[V]) rootKey() morton.Key {
	max := uint16(t.coder.TreeMaxVal())
	return morton.Key{max, max, max}
}

func (t *Tree[V]) walkConst(n *Node[V], key morton.Key, depth uint8, yield func(Visit[V]) bool) bool {
	if !yield(Visit[V]{Key: key, Depth: depth, Node: n}) {
		return false
	}
	if depth == t.depth {
		return true
	}
	for i := uint8(0); i < 8; i++ {
		child := n.GetConstChild(i)
		if child == nil {
			continue
		}
		childKey := t.coder.ChildKey(key, i, depth)
		if !t.walkConst(child, childKey, depth+1, yield) {
			return false
		}
	}
	return true
}

func (t *Tree[V]) walkMutable(n *Node[V], key morton.Key, depth uint8, yield func(Visit[V]) bool) bool {
	if !yield(Visit[V]{Key: key, Depth: depth, Node: n}) {
		return false
	}
	if depth == t.depth {
		return true
	}
	for i := uint8(0); i < 8; i++ {
		if !n.ChildExists(i) {
			continue
		}
		child := n.GetChild(i, t.cow)
		childKey := t.coder.ChildKey(key, i, depth)
		if !t.walkMutable(child, childKey, depth+1, yield) {
			return false
		}
	}
	return true
}
