// Package occupancy implements a log-odds Bayesian occupancy map on top
// of the generic copy-on-write octree in pkg/octree.
package occupancy

import (
	"errors"

	"github.com/rs/zerolog"

	"octomap/internal/obsutil"
	"octomap/pkg/morton"
	"octomap/pkg/octree"
)

// ErrTreeNotEmpty is returned by SetResolution when the tree already
// holds data: changing the voxel grid under existing nodes would make
// their keys meaningless, so the caller must start a new tree instead.
var ErrTreeNotEmpty = errors.New("occupancy: cannot change resolution on a non-empty tree")

// Tree is a probabilistic occupancy map: a sparse octree of log-odds
// values, updated by Bayesian fusion as sensor observations arrive.
type Tree struct {
	tree   *octree.Tree[LogOdds]
	cfg    octree.Config
	params Params
	logger zerolog.Logger
}

// New constructs an empty occupancy map per cfg and params.
func New(cfg octree.Config, params Params) *Tree {
	return &Tree{
		tree:   octree.New[LogOdds](cfg),
		cfg:    cfg,
		params: params,
		logger: obsutil.ScopedLogger(cfg.Logger, "occupancy"),
	}
}

// Octree exposes the underlying generic tree for callers (octreeio) that
// need to walk or serialize raw nodes rather than occupancy semantics.
func (t *Tree) Octree() *octree.Tree[LogOdds] { return t.tree }

// Params returns the current fusion parameters.
func (t *Tree) Params() Params { return t.params }

// Resolution returns the leaf-voxel edge length.
func (t *Tree) Resolution() float64 { return t.tree.Resolution() }

// CoW reports whether this tree shares nodes across clones.
func (t *Tree) CoW() bool { return t.tree.CoW() }

// SetResolution rebuilds the map at a new resolution. It fails unless the
// tree is currently empty, since existing node keys are meaningless at a
// different resolution.
func (t *Tree) SetResolution(resolution float64) error {
	if t.tree.NumNodes() > 0 {
		return ErrTreeNotEmpty
	}
	t.cfg.Resolution = resolution
	t.tree = octree.New[LogOdds](t.cfg)
	return nil
}

// SetProbHit sets the probability a hit observation assigns a voxel.
func (t *Tree) SetProbHit(p float32) { t.params.ProbHit = p }

// SetProbMiss sets the probability a miss observation assigns a voxel.
func (t *Tree) SetProbMiss(p float32) { t.params.ProbMiss = p }

// SetClampingMin sets the lower clamp bound on occupancy probability.
func (t *Tree) SetClampingMin(p float32) { t.params.ClampingMin = p }

// SetClampingMax sets the upper clamp bound on occupancy probability.
func (t *Tree) SetClampingMax(p float32) { t.params.ClampingMax = p }

// SetOccupancyThreshold sets the probability at or above which a voxel is
// considered occupied.
func (t *Tree) SetOccupancyThreshold(p float32) { t.params.OccupancyThreshold = p }

// IsOccupied reports whether a log-odds value meets the occupancy threshold.
func (t *Tree) IsOccupied(l LogOdds) bool {
	return float32(l) >= t.params.ThresholdLogOdds()
}

// Search returns the log-odds value of the leaf (full-depth or pruned)
// containing coord, or ok=false if coord is out of range, the map is
// empty, or coord lies in unobserved space; see octree.Tree.Search.
func (t *Tree) Search(coord [3]float64) (LogOdds, bool) {
	return t.tree.Search(coord)
}

// PruneTree collapses every collapsible subtree; see octree.Tree.PruneTree.
func (t *Tree) PruneTree() { t.tree.PruneTree() }

// ExpandTree materializes every implicit leaf to full depth; see
// octree.Tree.ExpandTree.
func (t *Tree) ExpandTree() { t.tree.ExpandTree() }

// Clone returns an independent occupancy map sharing structure with t
// under copy-on-write (see octree.Tree.Clone).
func (t *Tree) Clone() *Tree {
	return &Tree{tree: t.tree.Clone(), cfg: t.cfg, params: t.params, logger: t.logger}
}

func (t *Tree) fuse(hit bool) func(LogOdds) LogOdds {
	delta := t.params.MissLogOdds()
	if hit {
		delta = t.params.HitLogOdds()
	}
	min, max := t.params.ClampMinLogOdds(), t.params.ClampMaxLogOdds()
	return func(cur LogOdds) LogOdds {
		next := float32(cur) + delta
		if next < min {
			next = min
		}
		if next > max {
			next = max
		}
		return LogOdds(next)
	}
}

// UpdateNode fuses a single hit or miss observation at coord, returning
// the voxel's new log-odds value. ok is false if coord is out of range.
func (t *Tree) UpdateNode(coord [3]float64, hit bool) (value LogOdds, ok bool) {
	key, inRange := t.tree.Coder().CoordToKey(coord)
	if !inRange {
		return 0, false
	}
	t.tree.UpdateNodeAtKey(key, t.fuse(hit))
	return t.tree.SearchKey(key)
}

// InsertRay fuses one sensor ray: every voxel between origin and end is
// fused as a miss, and end itself (unless maxRange was exceeded, in
// which case the ray is truncated and no hit is registered) is fused as
// a hit. maxRange <= 0 means unlimited.
func (t *Tree) InsertRay(origin, end [3]float64, maxRange float64) {
	keys, hitKey, hit := traverseToPoint(t.tree.Coder(), origin, end, maxRange)
	for _, k := range keys {
		if hit && k == hitKey {
			continue
		}
		t.tree.UpdateNodeAtKey(k, t.fuse(false))
	}
	if hit {
		t.tree.UpdateNodeAtKey(hitKey, t.fuse(true))
	}
}

// InsertPointcloud fuses a full scan in one batch: every voxel any ray in
// the scan passes through is fused as a miss exactly once, regardless of
// how many rays cross it, and every endpoint is then fused as a hit. The
// miss/hit ordering matters: a voxel that is both traversed by one ray
// and hit by another must end up fused as hit.
func (t *Tree) InsertPointcloud(origin [3]float64, points [][3]float64, maxRange float64) {
	missSet := make(map[morton.Key]struct{})
	var hits []morton.Key

	for _, p := range points {
		keys, hitKey, hit := traverseToPoint(t.tree.Coder(), origin, p, maxRange)
		for _, k := range keys {
			if hit && k == hitKey {
				continue
			}
			missSet[k] = struct{}{}
		}
		if hit {
			hits = append(hits, hitKey)
		}
	}
	for _, k := range hits {
		delete(missSet, k)
	}

	for k := range missSet {
		t.tree.UpdateNodeAtKey(k, t.fuse(false))
	}
	for _, k := range hits {
		t.tree.UpdateNodeAtKey(k, t.fuse(true))
	}

	t.logger.Debug().Int("rays", len(points)).Int("misses", len(missSet)).Int("hits", len(hits)).Msg("inserted pointcloud")
}
