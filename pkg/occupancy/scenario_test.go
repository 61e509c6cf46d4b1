package occupancy

import (
	"math"
	"testing"

	"octomap/internal/obsutil"
	"octomap/pkg/octree"
)

// TestS1BuildUpdateSearch is the first end-to-end walkthrough: an empty
// map, one hit observation, and a search that reads it back.
func TestS1BuildUpdateSearch(t *testing.T) {
	m := New(octree.Config{Resolution: 0.1, Depth: 16, CoW: false}, DefaultParams())
	coord := [3]float64{0.05, 0.05, 0.05}

	v, ok := m.UpdateNode(coord, true)
	if !ok {
		t.Fatalf("UpdateNode: coordinate unexpectedly out of range")
	}

	want := obsutil.LogOdds(0.7)
	if math.Abs(float64(v)-float64(want)) > 1e-5 {
		t.Errorf("log-odds after one hit = %v, want %v", v, want)
	}
	if !m.IsOccupied(v) {
		t.Errorf("voxel should read occupied after one hit")
	}

	sv, sok := m.Search(coord)
	if !sok || sv != v {
		t.Errorf("Search(%v) = (%v,%v), want (%v,true)", coord, sv, sok, v)
	}
}

// TestS2RepeatedMissesReachClampMin continues S1: twenty misses on the
// same voxel should drive it all the way to the clamp floor.
func TestS2RepeatedMissesReachClampMin(t *testing.T) {
	m := New(octree.Config{Resolution: 0.1, Depth: 16, CoW: false}, DefaultParams())
	coord := [3]float64{0.05, 0.05, 0.05}
	m.UpdateNode(coord, true)

	var v LogOdds
	for i := 0; i < 20; i++ {
		v, _ = m.UpdateNode(coord, false)
	}

	want := LogOdds(m.params.ClampMinLogOdds())
	if v != want {
		t.Errorf("log-odds after 20 misses = %v, want clamp floor %v", v, want)
	}
	if m.IsOccupied(v) {
		t.Errorf("voxel should read free once clamped to the floor")
	}
}

// TestS3FillBlockThenPruneStaysBelowLeafBudget fills a 40x40x40 block
// of voxels with hits, prunes, and checks the tree collapsed well below
// a one-leaf-per-voxel representation while staying correct at read time.
func TestS3FillBlockThenPruneStaysBelowLeafBudget(t *testing.T) {
	m := New(octree.Config{Resolution: 1.0, Depth: 16, CoW: false}, DefaultParams())
	for x := 0; x < 40; x++ {
		for y := 0; y < 40; y++ {
			for z := 0; z < 40; z++ {
				m.UpdateNode([3]float64{float64(x), float64(y), float64(z)}, true)
			}
		}
	}

	m.PruneTree()

	if n := m.tree.NumLeaves(); n >= 64000 {
		t.Errorf("NumLeaves after pruning a uniform 40x40x40 block = %d, want < 64000", n)
	}
	if v, ok := m.Search([3]float64{20, 20, 20}); !ok || !m.IsOccupied(v) {
		t.Errorf("point inside the filled block should still read occupied after pruning")
	}
}

// TestS4CloneThenUpdateUnsharesExactlyDepthPlusOne builds a map, clones
// it, updates a single leaf in the original, and checks both the exact
// unique-node count and that the clone's view of that leaf is untouched.
func TestS4CloneThenUpdateUnsharesExactlyDepthPlusOne(t *testing.T) {
	cfg := octree.Config{Resolution: 1.0, Depth: 4, CoW: true}
	m := New(cfg, DefaultParams())
	coord := [3]float64{0, 0, 0}
	m.UpdateNode(coord, true)

	clone := m.Clone()
	cloneBefore, _ := clone.Search(coord)

	m.UpdateNode(coord, true)

	if got, want := m.tree.NumUniqueNodes(), int(m.tree.Depth())+1; got != want {
		t.Errorf("NumUniqueNodes after a single-leaf update = %d, want depth+1 = %d", got, want)
	}
	cloneAfter, _ := clone.Search(coord)
	if cloneAfter != cloneBefore {
		t.Errorf("clone's leaf changed from %v to %v after updating the original", cloneBefore, cloneAfter)
	}
}

// TestS5RaycastFindsInsertedEndpoint inserts a ray and then casts one
// along the same direction, checking the reported hit coordinate falls
// within the expected voxel.
func TestS5RaycastFindsInsertedEndpoint(t *testing.T) {
	m := New(octree.Config{Resolution: 0.05, Depth: 16, CoW: false}, DefaultParams())
	origin := [3]float64{0, 0, 0}
	m.InsertRay(origin, [3]float64{2.01, 0.01, 0.01}, 0)

	result := m.Raycast(origin, [3]float64{1, 0, 0}, 0, true)
	if !result.Hit {
		t.Fatalf("Raycast = %+v, want a hit", result)
	}
	if result.Coord[0] < 2.0 || result.Coord[0] >= 2.05 {
		t.Errorf("Raycast hit x = %v, want in [2.0, 2.05)", result.Coord[0])
	}
}

// These scenarios compose several operations the way a real mapping
// pipeline would, rather than exercising one method in isolation; they
// supplement the six numbered end-to-end scenarios above (S6 lives in
// pkg/octreeio, since it needs serialization) with additional cases.

// Scan a room's interior wall, then prune; the repeated measurements
// of an unobstructed stretch of floor should collapse into one node
// while the wall itself (a single high-confidence hit) stays distinct.
func TestScenarioScanThenPrune(t *testing.T) {
	m := newTestMap(1.0)
	origin := [3]float64{0, 0, 0}
	for _, y := range []float64{-2, -1, 0, 1, 2} {
		m.InsertRay(origin, [3]float64{10, y, 0}, 0)
	}

	before := m.tree.NumNodes()
	m.PruneTree()
	after := m.tree.NumNodes()
	if after > before {
		t.Fatalf("pruning should never increase node count: before=%d after=%d", before, after)
	}

	wallVal, ok := m.Search([3]float64{10, 0, 0})
	if !ok || !m.IsOccupied(wallVal) {
		t.Fatalf("wall voxel should remain occupied after pruning")
	}
}

// A sensor converges on an estimate as observations accumulate, and
// the estimate never leaves the clamped range no matter how long it runs.
func TestScenarioConvergenceStaysClamped(t *testing.T) {
	m := newTestMap(0.5)
	coord := [3]float64{3, 3, 3}

	var prev LogOdds
	for i := 0; i < 50; i++ {
		v, _ := m.UpdateNode(coord, i%5 != 0) // mostly hits, occasional miss
		if v > LogOdds(m.params.ClampMaxLogOdds()) || v < LogOdds(m.params.ClampMinLogOdds()) {
			t.Fatalf("iteration %d: log-odds %v escaped clamp range", i, v)
		}
		prev = v
	}
	if !m.IsOccupied(prev) {
		t.Fatalf("mostly-hit voxel should converge to occupied")
	}
}

// Expanding a pruned region and re-pruning it is idempotent — the
// map ends up structurally identical to where it started.
func TestScenarioPruneExpandRoundTrip(t *testing.T) {
	m := newTestMap(1.0)
	origin := [3]float64{0, 0, 0}
	m.InsertRay(origin, [3]float64{4, 0, 0}, 0)
	m.PruneTree()
	pruned := m.tree.NumNodes()

	m.ExpandTree()
	m.PruneTree()
	rePruned := m.tree.NumNodes()

	if pruned != rePruned {
		t.Fatalf("prune -> expand -> prune should be idempotent: got %d nodes then %d", pruned, rePruned)
	}
}

// Two independent sensors sharing a common prior (a cloned map) must
// not see each other's updates.
func TestScenarioIndependentSensorsFromSharedPrior(t *testing.T) {
	cfg := octree.Config{Resolution: 1.0, Depth: 8, CoW: true}
	prior := New(cfg, DefaultParams())
	prior.InsertRay([3]float64{0, 0, 0}, [3]float64{3, 0, 0}, 0)

	sensorA := prior.Clone()
	sensorB := prior.Clone()

	sensorA.InsertRay([3]float64{0, 0, 0}, [3]float64{0, 3, 0}, 0)
	sensorB.InsertRay([3]float64{0, 0, 0}, [3]float64{0, -3, 0}, 0)

	if v, ok := sensorB.Search([3]float64{0, 3, 0}); ok && sensorB.IsOccupied(v) {
		t.Fatalf("sensor B must not observe sensor A's hit")
	}
	if v, ok := sensorA.Search([3]float64{0, -3, 0}); ok && sensorA.IsOccupied(v) {
		t.Fatalf("sensor A must not observe sensor B's hit")
	}

	// Both still agree on the shared prior observation.
	for _, s := range []*Tree{sensorA, sensorB} {
		v, ok := s.Search([3]float64{3, 0, 0})
		if !ok || !s.IsOccupied(v) {
			t.Fatalf("shared prior observation should survive independently in both clones")
		}
	}
}

// A ray cast into genuinely empty space (beyond anything ever
// inserted, at the edge of the representable volume) reports out of
// bounds rather than a spurious hit or silent miss.
func TestScenarioRaycastAtWorldEdge(t *testing.T) {
	m := New(octree.Config{Resolution: 1.0, Depth: 4, CoW: false}, DefaultParams())
	result := m.Raycast([3]float64{0, 0, 0}, [3]float64{0, 0, 1}, 1e6, true)
	if result.Reason != ReasonOutOfBounds {
		t.Fatalf("Raycast at the world edge = %+v, want ReasonOutOfBounds", result)
	}
}

// A batch pointcloud insert from a stationary sensor produces the
// same occupied/free classification as inserting each ray one at a time.
func TestScenarioPointcloudMatchesIndividualRays(t *testing.T) {
	origin := [3]float64{0, 0, 0}
	points := [][3]float64{{4, 0, 0}, {0, 4, 0}, {0, 0, 4}}

	batch := newTestMap(1.0)
	batch.InsertPointcloud(origin, points, 0)

	sequential := newTestMap(1.0)
	for _, p := range points {
		sequential.InsertRay(origin, p, 0)
	}

	for _, p := range points {
		bv, bok := batch.Search(p)
		sv, sok := sequential.Search(p)
		if bok != sok || batch.IsOccupied(bv) != sequential.IsOccupied(sv) {
			t.Errorf("endpoint %v: batch=(%v,%v) sequential=(%v,%v) disagree on occupancy", p, bv, bok, sv, sok)
		}
	}
}
