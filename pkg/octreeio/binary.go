package octreeio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"octomap/pkg/occupancy"
	"octomap/pkg/octree"
)

type header struct {
	id    string
	size  int
	res   float64
	depth int
}

func parseHeader(br *bufio.Reader) (header, error) {
	var h header
	for {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return h, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "data" {
			return h, nil
		}
		switch {
		case strings.HasPrefix(line, "id "):
			h.id = strings.TrimPrefix(line, "id ")
		case strings.HasPrefix(line, "size "):
			fmt.Sscanf(line, "size %d", &h.size)
		case strings.HasPrefix(line, "res "):
			fmt.Sscanf(line, "res %g", &h.res)
		case strings.HasPrefix(line, "depth "):
			fmt.Sscanf(line, "depth %d", &h.depth)
		case strings.HasPrefix(line, "#"):
			// comment line, ignore
		}
		if err != nil {
			return h, fmt.Errorf("%w: header ended before \"data\" marker", ErrMalformed)
		}
	}
}

func writeHeader(w io.Writer, id string, size int, res float64, depth uint8) error {
	_, err := fmt.Fprintf(w, "# octomap binary format\nid %s\nsize %d\nres %.17g\ndepth %d\ndata\n", id, size, res, depth)
	return err
}

// Write encodes tr as a text header followed by a depth-first binary
// body under typeName (normally obtained from Registry.TypeNameFor).
func Write(w io.Writer, tr *occupancy.Tree, typeName string) error {
	ot := tr.Octree()
	if err := writeHeader(w, typeName, ot.NumNodes(), tr.Resolution(), ot.Depth()); err != nil {
		return fmt.Errorf("octreeio: write header: %w", err)
	}
	if err := writeBody(w, tr); err != nil {
		return fmt.Errorf("octreeio: write body: %w", err)
	}
	logger.Debug().Str("type", typeName).Int("nodes", ot.NumNodes()).Msg("wrote binary tree")
	return nil
}

// writeBody writes the root-presence byte and, if present, the
// depth-first node stream. Shared by Write and WriteCompressed, which
// differ only in what wraps this body on disk.
func writeBody(w io.Writer, tr *occupancy.Tree) error {
	ot := tr.Octree()
	root := ot.Root()
	if _, err := w.Write([]byte{boolByte(root != nil)}); err != nil {
		return err
	}
	if root != nil {
		return writeNode(w, root, 0, ot.Depth())
	}
	return nil
}

// Read decodes a tree previously written by Write, looking up its
// constructor in reg by the header's id field.
func Read(r io.Reader, reg *Registry) (*occupancy.Tree, error) {
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
	if err := readBody(br, tr, uint8(h.depth)); err != nil {
		return nil, err
	}
	logger.Debug().Str("type", h.id).Int("nodes", tr.Octree().NumNodes()).Msg("read binary tree")
	return tr, nil
}

// readBody is the inverse of writeBody, populating tr's root in place.
func readBody(r io.Reader, tr *occupancy.Tree, maxDepth uint8) error {
	var hasRoot [1]byte
	if _, err := io.ReadFull(r, hasRoot[:]); err != nil {
		return fmt.Errorf("%w: root marker: %v", ErrTruncated, err)
	}
	if hasRoot[0] == 0 {
		return nil
	}
	root, err := readNode(r, 0, maxDepth)
	if err != nil {
		return err
	}
	tr.Octree().SetRoot(root)
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// writeNode writes one node's raw value bytes, then one byte whose low 8
// bits are a child-existence bitmask, then each existing child in index
// order (depth-first, pre-order).
func writeNode(w io.Writer, n *octree.Node[occupancy.LogOdds], depth, maxDepth uint8) error {
	if err := binary.Write(w, binary.LittleEndian, float32(n.Value())); err != nil {
		return err
	}
	var mask byte
	for i := uint8(0); i < 8; i++ {
		if n.ChildExists(i) {
			mask |= 1 << i
		}
	}
	if _, err := w.Write([]byte{mask}); err != nil {
		return err
	}
	for i := uint8(0); i < 8; i++ {
		if n.ChildExists(i) {
			if err := writeNode(w, n.GetConstChild(i), depth+1, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}

func readNode(r io.Reader, depth, maxDepth uint8) (*octree.Node[occupancy.LogOdds], error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: node at depth %d, tree depth %d", ErrDepthExceeded, depth, maxDepth)
	}
	var v float32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return nil, fmt.Errorf("%w: value: %v", ErrTruncated, err)
	}
	var maskBuf [1]byte
	if _, err := io.ReadFull(r, maskBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: child mask: %v", ErrTruncated, err)
	}
	n := octree.NewNode[occupancy.LogOdds](occupancy.LogOdds(v))
	for i := uint8(0); i < 8; i++ {
		if maskBuf[0]&(1<<i) != 0 {
			child, err := readNode(r, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			n.AttachChild(i, child)
		}
	}
	return n, nil
}
