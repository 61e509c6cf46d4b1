// Package morton maps floating-point world coordinates onto the integer
// voxel keys used by the sparse octree in pkg/octree, and derives child
// indices and child keys from a parent key during traversal.
//
// A Key is a triple of unsigned 16-bit integers addressing the smallest
// voxel in a virtual grid of edge length 2^Depth. The grid is centered
// on the key value 2^(Depth-1) along every axis, so the world coordinate
// range representable at a given resolution is symmetric around zero.
package morton

import "math"

// MaxDepth is the largest depth this package supports; Key components are
// 16 bits wide, so a full-resolution key cannot address a finer grid.
const MaxDepth = 16

// Key identifies a voxel at some tree depth by its integer grid coordinate
// on each axis. A Key is only meaningful together with the depth it was
// computed at and the tree's resolution.
type Key [3]uint16

// Axis indices into a Key, matching the child-index bit packing order
// (bitZ<<2)|(bitY<<1)|bitX.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

// Coder converts between world coordinates and voxel keys for a fixed
// resolution and tree depth. It holds no mutable state and is safe for
// concurrent use by multiple readers.
type Coder struct {
	resolution float64
	depth      uint8
	treeMaxVal uint32 // 2^(depth-1)
}

// NewCoder returns a Coder for the given leaf-voxel edge length and tree
// depth. Depth must be in [1, MaxDepth]; resolution must be positive.
func NewCoder(resolution float64, depth uint8) Coder {
	if depth == 0 || depth > MaxDepth {
		panic("morton: depth out of range")
	}
	if resolution <= 0 {
		panic("morton: resolution must be positive")
	}
	return Coder{
		resolution: resolution,
		depth:      depth,
		treeMaxVal: uint32(1) << (depth - 1),
	}
}

// Resolution returns the leaf-voxel edge length.
func (c Coder) Resolution() float64 { return c.resolution }

// Depth returns the tree depth (0 = root, Depth = leaves).
func (c Coder) Depth() uint8 { return c.depth }

// TreeMaxVal returns 2^(Depth-1), the key value at the center of the grid.
func (c Coder) TreeMaxVal() uint32 { return c.treeMaxVal }

// CoordToKey returns the key of the leaf voxel containing coord on each
// axis, or ok=false if any axis falls outside the representable range
// [-resolution*2^(Depth-1), resolution*2^(Depth-1)).
func (c Coder) CoordToKey(coord [3]float64) (key Key, ok bool) {
	for i := 0; i < 3; i++ {
		k, axisOK := c.coordToKeyAxis(coord[i])
		if !axisOK {
			return Key{}, false
		}
		key[i] = k
	}
	return key, true
}

// CoordToKeyAtDepth is like CoordToKey but rounds the result to the
// coarser grid of depth (depth <= c.Depth()): the key of the subvoxel at
// that depth closest to coord, tie-breaking toward larger keys.
func (c Coder) CoordToKeyAtDepth(coord [3]float64, depth uint8) (key Key, ok bool) {
	full, ok := c.CoordToKey(coord)
	if !ok {
		return Key{}, false
	}
	if depth == c.depth {
		return full, true
	}
	for i := 0; i < 3; i++ {
		key[i] = c.AdjustKeyAtDepth(full[i], depth)
	}
	return key, true
}

func (c Coder) coordToKeyAxis(coord float64) (uint16, bool) {
	scaled := math.Floor(coord/c.resolution) + float64(c.treeMaxVal)
	if scaled < 0 || scaled >= float64(2*c.treeMaxVal) {
		return 0, false
	}
	return uint16(scaled), true
}

// AdjustKeyAtDepth rounds a single full-resolution key component to the
// canonical (centered) key of the coarser voxel containing it at depth.
// Depth == c.Depth() returns the component unchanged.
func (c Coder) AdjustKeyAtDepth(component uint16, depth uint8) uint16 {
	diff := c.depth - depth
	if diff == 0 {
		return component
	}
	off := int64(component) - int64(c.treeMaxVal)
	shifted := off >> diff // arithmetic (floor) shift, rounds toward -inf
	adjusted := (shifted << diff) + (int64(1) << (diff - 1)) + int64(c.treeMaxVal)
	return uint16(adjusted)
}

// KeyToCoord returns the metric center of the leaf voxel identified by key.
func (c Coder) KeyToCoord(key Key) [3]float64 {
	return c.KeyToCoordAtDepth(key, c.depth)
}

// KeyToCoordAtDepth returns the metric center of the voxel identified by
// key at the given depth. It is the inverse of CoordToKeyAtDepth modulo
// rounding within a voxel.
func (c Coder) KeyToCoordAtDepth(key Key, depth uint8) [3]float64 {
	blockSize := float64(uint32(1) << (c.depth - depth))
	nodeSize := c.resolution * blockSize
	var coord [3]float64
	for i := 0; i < 3; i++ {
		off := float64(int64(key[i]) - int64(c.treeMaxVal))
		block := math.Floor(off / blockSize)
		coord[i] = (block + 0.5) * nodeSize
	}
	return coord
}

// NodeSize returns the metric edge length of a voxel at depth.
func (c Coder) NodeSize(depth uint8) float64 {
	return c.resolution * float64(uint32(1)<<(c.depth-depth))
}

// ChildIndex returns the 0..7 index, per the bit packing
// (bitZ<<2)|(bitY<<1)|bitX, of the child of the node at depthFromRoot that
// contains key. depthFromRoot must be < c.Depth().
func (c Coder) ChildIndex(key Key, depthFromRoot uint8) uint8 {
	bit := c.depth - 1 - depthFromRoot
	var idx uint8
	for axis := 0; axis < 3; axis++ {
		if (key[axis]>>bit)&1 != 0 {
			idx |= 1 << uint(axis)
		}
	}
	return idx
}

// ChildKey returns the canonical key of child childIdx of a node with key
// parentKey at parentDepth (parentDepth < c.Depth()).
func (c Coder) ChildKey(parentKey Key, childIdx uint8, parentDepth uint8) Key {
	childBlock := uint32(1) << (c.depth - parentDepth - 1)
	var child Key
	for axis := 0; axis < 3; axis++ {
		bit := (childIdx >> uint(axis)) & 1
		child[axis] = childKeyComponent(parentKey[axis], bit, childBlock)
	}
	return child
}

// childKeyComponent computes one axis of a child key given the parent's
// component, the bit selecting the +/- direction on this axis, and the
// child's block size (in key units) at its depth. When the child block
// size is 1 (the child is a leaf), the two children of a depth-(D-1)
// parent are the two adjacent leaf keys, and the "larger" one coincides
// with the parent's own centered key: a deliberate tie-break toward the
// larger of the two adjacent keys.
func childKeyComponent(parent uint16, bit uint8, childBlock uint32) uint16 {
	if childBlock == 1 {
		if bit == 1 {
			return parent
		}
		return parent - 1
	}
	half := uint16(childBlock / 2)
	if bit == 1 {
		return parent + half
	}
	return parent - half
}
