package octree

import (
	"github.com/rs/zerolog"

	"octomap/internal/obsutil"
	"octomap/pkg/morton"
)

// Config bundles the parameters fixed for a Tree's lifetime: resolution
// and depth together define the coder used to translate coordinates to
// keys, and CoW chooses the sharing policy. Plain config-by-struct
// construction rather than a builder.
type Config struct {
	Resolution float64
	Depth      uint8 // 0 means "use morton.MaxDepth"
	CoW        bool
	Logger     zerolog.Logger // zero value is zerolog.Nop()
	Budget     *NodeBudget    // nil disables node-count tracking
}

// DefaultConfig returns a Config for a 0.1-unit-resolution, 16-deep tree
// with copy-on-write sharing disabled.
func DefaultConfig() Config {
	return Config{Resolution: 0.1, Depth: morton.MaxDepth, CoW: false}
}

// Tree is a generic, depth-bounded sparse octree over payload type V. It
// performs no internal locking: concurrent mutation of a single Tree from
// multiple goroutines is not supported (see pkg/octreeio for the
// file-level advisory locking used when sharing a serialized tree across
// processes).
type Tree[V Payload[V]] struct {
	root   *Node[V]
	coder  morton.Coder
	cow    cowPolicy[V]
	depth  uint8
	budget *NodeBudget
	logger zerolog.Logger
}

// New constructs an empty Tree per cfg.
func New[V Payload[V]](cfg Config) *Tree[V] {
	depth := cfg.Depth
	if depth == 0 {
		depth = morton.MaxDepth
	}
	var cow cowPolicy[V]
	if cfg.CoW {
		cow = cowEnabledPolicy[V]{}
	} else {
		cow = noCowPolicy[V]{}
	}
	return &Tree[V]{
		coder:  morton.NewCoder(cfg.Resolution, depth),
		cow:    cow,
		depth:  depth,
		budget: cfg.Budget,
		logger: obsutil.ScopedLogger(cfg.Logger, "octree"),
	}
}

// Resolution returns the leaf-voxel edge length.
func (t *Tree[V]) Resolution() float64 { return t.coder.Resolution() }

// Depth returns the tree's maximum depth (root = 0, leaves = Depth).
func (t *Tree[V]) Depth() uint8 { return t.depth }

// Coder exposes the coordinate/key arithmetic this tree was built with,
// so callers (occupancy.Tree, octreeio) can derive keys without
// duplicating resolution/depth bookkeeping.
func (t *Tree[V]) Coder() morton.Coder { return t.coder }

// Root returns the tree's root node, or nil if the tree is empty. Callers
// must treat it as read-only; use UpdateNodeAtKey to mutate.
func (t *Tree[V]) Root() *Node[V] { return t.root }

// SetRoot replaces the tree's root wholesale with an already-constructed,
// uniquely owned node (or nil for an empty tree). Used by deserializers
// (pkg/octreeio) reconstructing a tree from encoded bytes.
func (t *Tree[V]) SetRoot(root *Node[V]) { t.root = root }

// CoW reports whether this tree shares nodes across clones by reference
// count rather than deep-copying on Clone.
func (t *Tree[V]) CoW() bool {
	_, ok := t.cow.(cowEnabledPolicy[V])
	return ok
}

// Search returns the value of the leaf whose volume contains coord: a
// full-depth leaf, or a coarser leaf left behind by pruning. ok is false
// if coord is out of the representable range, the tree is empty, or the
// path reaches an inner node with no child for coord (unobserved space).
func (t *Tree[V]) Search(coord [3]float64) (value V, ok bool) {
	key, inRange := t.coder.CoordToKey(coord)
	if !inRange {
		var zero V
		return zero, false
	}
	return t.SearchKey(key)
}

// SearchKey is like Search but takes an already-computed full-resolution
// key (see morton.Coder.CoordToKey).
func (t *Tree[V]) SearchKey(key morton.Key) (value V, ok bool) {
	if t.root == nil {
		var zero V
		return zero, false
	}
	n := t.root
	for d := uint8(0); d < t.depth; d++ {
		idx := t.coder.ChildIndex(key, d)
		child := n.GetConstChild(idx)
		if child == nil {
			if n.HasChildren() {
				var zero V
				return zero, false
			}
			break
		}
		n = child
	}
	return n.Value(), true
}

// UpdateNodeAtKey descends to the leaf at key, creating any missing path
// nodes, applies update to the leaf's current value, and recomputes every
// ancestor's aggregate value on the way back up. It makes every node
// along the path unique first, so a shared subtree from a Clone diverges
// only as deep as this write actually goes.
func (t *Tree[V]) UpdateNodeAtKey(key morton.Key, update func(V) V) {
	if t.root == nil {
		var zero V
		t.root = NewNode[V](zero.Zero())
	} else {
		t.root = t.cow.makeUnique(&t.root)
	}
	t.updateRecursive(t.root, key, 0, update)
}

func (t *Tree[V]) updateRecursive(n *Node[V], key morton.Key, depth uint8, update func(V) V) {
	if depth == t.depth {
		n.SetValue(update(n.Value()))
		return
	}
	idx := t.coder.ChildIndex(key, depth)
	if !n.ChildExists(idx) {
		n.CreateChild(idx)
		t.trackNodeCreated()
	}
	child := n.GetChild(idx, t.cow)
	t.updateRecursive(child, key, depth+1, update)
	n.UpdateAggregate()
}

// PruneTree collapses every collapsible subtree in the whole tree.
func (t *Tree[V]) PruneTree() {
	if t.root == nil {
		return
	}
	t.root = t.cow.makeUnique(&t.root)
	t.pruneRecursive(t.root, 0)
}

func (t *Tree[V]) pruneRecursive(n *Node[V], depth uint8) {
	if !n.HasChildren() {
		return
	}
	for i := uint8(0); i < 8; i++ {
		if n.ChildExists(i) {
			child := n.GetChild(i, t.cow)
			t.pruneRecursive(child, depth+1)
		}
	}
	if n.Prune(t.cow) {
		t.trackNodesFreed(8)
		t.logger.Debug().Uint8("depth", depth).Msg("pruned subtree")
	}
}

// ExpandTree is the inverse of PruneTree: it materializes every implicit
// leaf down to the tree's full depth.
func (t *Tree[V]) ExpandTree() {
	if t.root == nil {
		return
	}
	t.root = t.cow.makeUnique(&t.root)
	t.expandRecursive(t.root, 0)
}

func (t *Tree[V]) expandRecursive(n *Node[V], depth uint8) {
	if depth == t.depth {
		return
	}
	if !n.HasChildren() {
		n.Expand(t.cow)
		t.trackNodeCreated8()
		t.logger.Debug().Uint8("depth", depth).Msg("expanded leaf")
	}
	for i := uint8(0); i < 8; i++ {
		if !n.ChildExists(i) {
			continue
		}
		child := n.GetChild(i, t.cow)
		t.expandRecursive(child, depth+1)
	}
}

// Clone returns a new Tree sharing structure with t under CoW (an O(1)
// operation that diverges lazily as each tree is mutated), or a fully
// independent deep copy when CoW is disabled.
func (t *Tree[V]) Clone() *Tree[V] {
	clone := &Tree[V]{
		coder:  t.coder,
		cow:    t.cow,
		depth:  t.depth,
		budget: t.budget,
		logger: t.logger,
	}
	if t.root != nil {
		clone.root = t.cow.deepCopy(t.root)
	}
	return clone
}

// NumNodes returns the total number of nodes (inner and leaf) reachable
// from the root.
func (t *Tree[V]) NumNodes() int {
	n, _ := t.countNodes(t.root, false)
	return n
}

// NumLeaves returns the number of leaf nodes reachable from the root.
func (t *Tree[V]) NumLeaves() int {
	_, l := t.countNodes(t.root, false)
	return l
}

// NumUniqueNodes returns the number of reachable nodes this tree is the
// sole owner of (refcount == 1). Always equals NumNodes() when CoW is
// disabled.
func (t *Tree[V]) NumUniqueNodes() int {
	n, _ := t.countNodes(t.root, true)
	return n
}

// NumUniqueLeaves is NumUniqueNodes restricted to leaves.
func (t *Tree[V]) NumUniqueLeaves() int {
	_, l := t.countNodes(t.root, true)
	return l
}

func (t *Tree[V]) countNodes(n *Node[V], uniqueOnly bool) (nodes, leaves int) {
	if n == nil {
		return 0, 0
	}
	if uniqueOnly && n.refcount > 1 {
		return 0, 0
	}
	nodes = 1
	if !n.HasChildren() {
		leaves = 1
		return nodes, leaves
	}
	for i := uint8(0); i < 8; i++ {
		cn, cl := t.countNodes(n.children[i], uniqueOnly)
		nodes += cn
		leaves += cl
	}
	return nodes, leaves
}

func (t *Tree[V]) trackNodeCreated() {
	if t.budget != nil {
		t.budget.Add(1)
	}
}

func (t *Tree[V]) trackNodeCreated8() {
	if t.budget != nil {
		t.budget.Add(8)
	}
}

func (t *Tree[V]) trackNodesFreed(n int64) {
	if t.budget != nil {
		t.budget.Release(n)
	}
}
