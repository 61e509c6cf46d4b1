package octreeio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"octomap/pkg/occupancy"
	"octomap/pkg/octree"
)

// Compact child codes, 2 bits each, 8 children packed into one uint16.
const (
	compactUnknown  = 0
	compactFree     = 1
	compactOccupied = 2
	compactInternal = 3
)

// Compact root markers, replacing the single-byte root-presence flag used
// by the full binary format: a compact tree additionally needs to say
// whether the root itself is a leaf, since the per-node 16-bit scheme only
// describes a node's children, not the node itself.
const (
	compactRootEmpty    = 0
	compactRootLeaf     = 1
	compactRootInternal = 2
)

// WriteCompact encodes tr in the lossy 2-bit-per-child format: every leaf
// is reduced to free/occupied/unknown, discarding the underlying log-odds
// value. tr is pruned in place first, so every written subtree is as
// compact as pruning makes it. Pruning merges only leaves with exactly
// equal log-odds: sibling leaves that differ in raw value but share an
// occupancy classification are still written as separate codes.
func WriteCompact(w io.Writer, tr *occupancy.Tree, typeName string) error {
	tr.PruneTree()
	ot := tr.Octree()
	if err := writeHeader(w, typeName, ot.NumNodes(), tr.Resolution(), ot.Depth()); err != nil {
		return fmt.Errorf("octreeio: write header: %w", err)
	}
	root := ot.Root()
	switch {
	case root == nil:
		_, err := w.Write([]byte{compactRootEmpty})
		return err
	case !root.HasChildren():
		if err := writeCompactLeafRoot(w, tr, root); err != nil {
			return fmt.Errorf("octreeio: write compact leaf root: %w", err)
		}
		return nil
	default:
		if _, err := w.Write([]byte{compactRootInternal}); err != nil {
			return err
		}
		if err := writeCompactNode(w, tr, root); err != nil {
			return fmt.Errorf("octreeio: write compact body: %w", err)
		}
		return nil
	}
}

// writeCompactLeafRoot handles the degenerate case of a fully collapsed
// tree with no children at all: the 16-bit per-node scheme has nothing to
// pack against, so the root's own classification is written directly.
func writeCompactLeafRoot(w io.Writer, tr *occupancy.Tree, root *octree.Node[occupancy.LogOdds]) error {
	code := byte(compactFree)
	if tr.IsOccupied(root.Value()) {
		code = compactOccupied
	}
	_, err := w.Write([]byte{compactRootLeaf, code})
	return err
}

func childCode(tr *occupancy.Tree, child *octree.Node[occupancy.LogOdds]) uint16 {
	switch {
	case child == nil:
		return compactUnknown
	case child.HasChildren():
		return compactInternal
	case tr.IsOccupied(child.Value()):
		return compactOccupied
	default:
		return compactFree
	}
}

func writeCompactNode(w io.Writer, tr *occupancy.Tree, n *octree.Node[occupancy.LogOdds]) error {
	var packed uint16
	for i := uint8(0); i < 8; i++ {
		packed |= childCode(tr, n.GetConstChild(i)) << (2 * i)
	}
	if err := binary.Write(w, binary.LittleEndian, packed); err != nil {
		return err
	}
	for i := uint8(0); i < 8; i++ {
		if code := (packed >> (2 * i)) & 0x3; code == compactInternal {
			if err := writeCompactNode(w, tr, n.GetConstChild(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadCompact decodes a tree previously written by WriteCompact. Free and
// occupied leaves are reconstructed at the clamp bounds of the resulting
// tree's own fusion parameters (occupancy.DefaultParams, since the compact
// format carries no parameters of its own), not the original writer's
// exact log-odds values, which the format never preserved.
func ReadCompact(r io.Reader, reg *Registry) (*occupancy.Tree, error) {
	br := bufio.NewReader(r)
	h, err := parseHeader(br)
	if err != nil {
		return nil, err
	}
	ctor, ok := reg.Lookup(h.id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, h.id)
	}
	tr := ctor(h.res, uint8(h.depth))

	var marker [1]byte
	if _, err := io.ReadFull(br, marker[:]); err != nil {
		return nil, fmt.Errorf("%w: root marker: %v", ErrTruncated, err)
	}
	switch marker[0] {
	case compactRootEmpty:
		return tr, nil
	case compactRootLeaf:
		var code [1]byte
		if _, err := io.ReadFull(br, code[:]); err != nil {
			return nil, fmt.Errorf("%w: leaf root code: %v", ErrTruncated, err)
		}
		tr.Octree().SetRoot(octree.NewNode[occupancy.LogOdds](leafValue(tr, code[0])))
		return tr, nil
	case compactRootInternal:
		root, err := readCompactNode(br, tr, 0, uint8(h.depth))
		if err != nil {
			return nil, err
		}
		tr.Octree().SetRoot(root)
		return tr, nil
	default:
		return nil, fmt.Errorf("%w: unknown root marker %d", ErrMalformed, marker[0])
	}
}

func leafValue(tr *occupancy.Tree, code byte) occupancy.LogOdds {
	if code == compactOccupied {
		return occupancy.LogOdds(tr.Params().ClampMaxLogOdds())
	}
	return occupancy.LogOdds(tr.Params().ClampMinLogOdds())
}

func readCompactNode(r io.Reader, tr *occupancy.Tree, depth, maxDepth uint8) (*octree.Node[occupancy.LogOdds], error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: node at depth %d, tree depth %d", ErrDepthExceeded, depth, maxDepth)
	}
	var packed uint16
	if err := binary.Read(r, binary.LittleEndian, &packed); err != nil {
		return nil, fmt.Errorf("%w: child codes: %v", ErrTruncated, err)
	}
	n := octree.NewNode[occupancy.LogOdds](occupancy.LogOdds(0))
	for i := uint8(0); i < 8; i++ {
		switch code := (packed >> (2 * i)) & 0x3; code {
		case compactUnknown:
			// slot stays nil
		case compactFree, compactOccupied:
			n.AttachChild(i, octree.NewNode[occupancy.LogOdds](leafValue(tr, byte(code))))
		case compactInternal:
			child, err := readCompactNode(r, tr, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			n.AttachChild(i, child)
		}
	}
	n.UpdateAggregate()
	return n, nil
}
