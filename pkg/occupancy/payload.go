package occupancy

// LogOdds is the value stored at every octree node: the log-odds of that
// voxel being occupied. It implements octree.Payload[LogOdds], so the
// generic tree in pkg/octree can prune, expand and aggregate it without
// knowing anything about occupancy mapping.
type LogOdds float32

// Zero is the log-odds of probability 0.5: "unknown," the state of a
// freshly created node before any observation has touched it.
func (l LogOdds) Zero() LogOdds { return 0 }

// Equal compares log-odds values exactly; fused values only ever change
// through the clamped arithmetic in Tree.fuse, so repeated identical
// observations produce bit-identical results.
func (l LogOdds) Equal(other LogOdds) bool { return l == other }

// Mergeable reports whether 8 leaf children carry the same log-odds
// value and, if so, returns it as the value their parent should collapse
// to. Occupancy has no notion of a "close enough" merge: children must
// be exactly equal, since a coarser voxel can only stand in for its
// children if it loses no information.
func (l LogOdds) Mergeable(children [8]LogOdds) (LogOdds, bool) {
	first := children[0]
	for _, c := range children[1:] {
		if c != first {
			return 0, false
		}
	}
	return first, true
}

// Aggregate recomputes an inner node's value from its children as the
// maximum log-odds among them: a parent voxel counts as occupied as soon
// as any of its children does, which is the conservative choice for
// collision checking against a coarse representation of the map.
func (l LogOdds) Aggregate(children [8]LogOdds) LogOdds {
	max := children[0]
	for _, c := range children[1:] {
		if c > max {
			max = c
		}
	}
	return max
}

// Split divides a leaf's value across 8 new children by copying it: there
// is no way to "divide" an occupancy estimate the way a counting payload
// might divide a count, so each child starts out believing exactly what
// the leaf it replaces believed.
func (l LogOdds) Split() [8]LogOdds {
	var out [8]LogOdds
	for i := range out {
		out[i] = l
	}
	return out
}
