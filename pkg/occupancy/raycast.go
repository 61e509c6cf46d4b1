package occupancy

import (
	"math"

	"octomap/pkg/morton"
)

// RaycastReason classifies why Tree.Raycast stopped.
type RaycastReason int

const (
	// ReasonHit means the ray reached an occupied voxel.
	ReasonHit RaycastReason = iota
	// ReasonMaxRangeExceeded means the ray traveled maxRange without
	// crossing an occupied voxel or leaving the map.
	ReasonMaxRangeExceeded
	// ReasonOutOfBounds means the ray left the representable coordinate
	// range before hitting anything or reaching maxRange.
	ReasonOutOfBounds
	// ReasonUnknownVoxel means the ray entered a voxel with no
	// observation yet and the caller asked not to ignore unknown space.
	ReasonUnknownVoxel
)

// RaycastResult is the outcome of a single Tree.Raycast call.
type RaycastResult struct {
	Hit    bool
	Key    morton.Key
	Coord  [3]float64
	Reason RaycastReason
}

// Raycast walks a ray from origin in direction (need not be normalized,
// but must be nonzero) up to maxRange, returning the first occupied
// voxel it crosses. If ignoreUnknown is false, a voxel with no
// observation yet stops the ray with ReasonUnknownVoxel instead of
// passing through it as if it were free.
func (t *Tree) Raycast(origin, direction [3]float64, maxRange float64, ignoreUnknown bool) RaycastResult {
	dir, ok := normalize(direction)
	if !ok {
		return RaycastResult{Reason: ReasonOutOfBounds}
	}

	var hitKey, unknownKey morton.Key
	var hitFound, unknownFound bool

	maxDist := maxRange
	if maxDist <= 0 {
		maxDist = math.Inf(1)
	}

	status := ddaTraverse(t.tree.Coder(), origin, dir, maxDist, func(key morton.Key, dist float64) bool {
		v, known := t.tree.SearchKey(key)
		if !known {
			if ignoreUnknown {
				return true
			}
			unknownKey, unknownFound = key, true
			return false
		}
		if t.IsOccupied(v) {
			hitKey, hitFound = key, true
			return false
		}
		return true
	})

	switch {
	case hitFound:
		return RaycastResult{Hit: true, Key: hitKey, Coord: t.tree.Coder().KeyToCoord(hitKey), Reason: ReasonHit}
	case unknownFound:
		return RaycastResult{Key: unknownKey, Coord: t.tree.Coder().KeyToCoord(unknownKey), Reason: ReasonUnknownVoxel}
	case status == ddaOutOfBounds:
		return RaycastResult{Reason: ReasonOutOfBounds}
	default:
		return RaycastResult{Reason: ReasonMaxRangeExceeded}
	}
}

func normalize(v [3]float64) ([3]float64, bool) {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n == 0 {
		return [3]float64{}, false
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}, true
}

type ddaStatus int

const (
	ddaStoppedByVisitor ddaStatus = iota
	ddaReachedMaxDist
	ddaOutOfBounds
)

// ddaTraverse is a 3D Digital Differential Analyzer (Amanatides & Woo):
// it walks the sequence of leaf voxels a ray crosses between origin and
// origin+dir*maxDist, calling visit for each one in order with the
// distance traveled to reach it. visit returning false stops the walk
// early. Ties between axes with equal tMax always resolve toward the
// smaller axis index (x before y before z).
func ddaTraverse(coder morton.Coder, origin, dir [3]float64, maxDist float64, visit func(key morton.Key, dist float64) bool) ddaStatus {
	key, ok := coder.CoordToKey(origin)
	if !ok {
		return ddaOutOfBounds
	}

	treeMax := int64(coder.TreeMaxVal())
	res := coder.Resolution()
	lowerBound := func(k uint16) float64 {
		return float64(int64(k)-treeMax) * res
	}

	var step [3]int64
	var tMax, tDelta [3]float64
	for axis := 0; axis < 3; axis++ {
		switch {
		case dir[axis] > 0:
			step[axis] = 1
			boundary := lowerBound(key[axis]) + res
			tMax[axis] = (boundary - origin[axis]) / dir[axis]
			tDelta[axis] = res / dir[axis]
		case dir[axis] < 0:
			step[axis] = -1
			boundary := lowerBound(key[axis])
			tMax[axis] = (boundary - origin[axis]) / dir[axis]
			tDelta[axis] = res / -dir[axis]
		default:
			step[axis] = 0
			tMax[axis] = math.Inf(1)
			tDelta[axis] = math.Inf(1)
		}
	}

	dist := 0.0
	for {
		if !visit(key, dist) {
			return ddaStoppedByVisitor
		}

		axis := 0
		for a := 1; a < 3; a++ {
			if tMax[a] < tMax[axis] {
				axis = a
			}
		}
		if tMax[axis] > maxDist {
			return ddaReachedMaxDist
		}
		dist = tMax[axis]

		next := int64(key[axis]) + step[axis]
		if next < 0 || next >= 2*treeMax {
			return ddaOutOfBounds
		}
		key[axis] = uint16(next)
		tMax[axis] += tDelta[axis]
	}
}

// traverseToPoint collects every leaf voxel key from origin to end, in
// order, stopping early (without reaching end) if the ray leaves the
// representable coordinate range or maxRange is exceeded. hit reports
// whether end itself (clipped to maxRange) was reached, in which case it
// is also the last element of keys.
func traverseToPoint(coder morton.Coder, origin, end [3]float64, maxRange float64) (keys []morton.Key, hitKey morton.Key, hit bool) {
	delta := [3]float64{end[0] - origin[0], end[1] - origin[1], end[2] - origin[2]}
	dist := math.Sqrt(delta[0]*delta[0] + delta[1]*delta[1] + delta[2]*delta[2])
	if dist == 0 {
		k, ok := coder.CoordToKey(origin)
		if !ok {
			return nil, morton.Key{}, false
		}
		return []morton.Key{k}, k, true
	}

	dir := [3]float64{delta[0] / dist, delta[1] / dist, delta[2] / dist}
	travelDist := dist
	clipped := false
	if maxRange > 0 && dist > maxRange {
		travelDist = maxRange
		clipped = true
	}

	endKey, endOK := coder.CoordToKey(end)
	var collected []morton.Key
	status := ddaTraverse(coder, origin, dir, travelDist, func(key morton.Key, d float64) bool {
		collected = append(collected, key)
		return !endOK || key != endKey
	})

	if clipped || status != ddaStoppedByVisitor {
		return collected, morton.Key{}, false
	}
	return collected, endKey, true
}
