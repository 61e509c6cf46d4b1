package octreeio

import (
	"bytes"
	"testing"

	"octomap/pkg/occupancy"
	"octomap/pkg/octree"
)

func newTestTree(cow bool) *occupancy.Tree {
	cfg := octree.Config{Resolution: 1.0, Depth: 6, CoW: cow}
	return occupancy.New(cfg, occupancy.DefaultParams())
}

func TestWriteReadRoundTrip(t *testing.T) {
	tr := newTestTree(false)
	tr.InsertRay([3]float64{0, 0, 0}, [3]float64{5, 0, 0}, 0)
	tr.InsertRay([3]float64{0, 0, 0}, [3]float64{0, 5, 0}, 0)

	var buf bytes.Buffer
	reg := DefaultRegistry()
	name, ok := reg.TypeNameFor(tr.CoW())
	if !ok {
		t.Fatalf("no registered type name for cow=%v", tr.CoW())
	}
	if err := Write(&buf, tr, name); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf, reg)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	for _, coord := range [][3]float64{{5, 0, 0}, {0, 5, 0}, {2, 0, 0}} {
		want, wantOk := tr.Search(coord)
		have, haveOk := got.Search(coord)
		if wantOk != haveOk || want != have {
			t.Errorf("Search(%v) = (%v,%v), want (%v,%v)", coord, have, haveOk, want, wantOk)
		}
	}
	if got.Resolution() != tr.Resolution() {
		t.Errorf("resolution = %v, want %v", got.Resolution(), tr.Resolution())
	}
}

func TestWriteReadEmptyTree(t *testing.T) {
	tr := newTestTree(false)
	var buf bytes.Buffer
	reg := DefaultRegistry()
	if err := Write(&buf, tr, "OcTree"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf, reg)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if _, ok := got.Search([3]float64{0, 0, 0}); ok {
		t.Errorf("empty tree round-trip should still report no data at origin")
	}
}

func TestReadUnknownTypeFails(t *testing.T) {
	tr := newTestTree(false)
	var buf bytes.Buffer
	if err := Write(&buf, tr, "NotARegisteredType"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Read(&buf, DefaultRegistry()); err == nil {
		t.Errorf("Read with unregistered type id should fail")
	}
}

func TestReadTruncatedStreamFails(t *testing.T) {
	tr := newTestTree(false)
	tr.InsertRay([3]float64{0, 0, 0}, [3]float64{5, 0, 0}, 0)

	var buf bytes.Buffer
	if err := Write(&buf, tr, "OcTree"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-2]
	if _, err := Read(bytes.NewReader(truncated), DefaultRegistry()); err == nil {
		t.Errorf("Read on a truncated stream should fail")
	}
}

func TestWriteReadPreservesCoWFlag(t *testing.T) {
	tr := newTestTree(true)
	tr.InsertRay([3]float64{0, 0, 0}, [3]float64{3, 0, 0}, 0)

	reg := DefaultRegistry()
	name, _ := reg.TypeNameFor(tr.CoW())
	var buf bytes.Buffer
	if err := Write(&buf, tr, name); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf, reg)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !got.CoW() {
		t.Errorf("round-tripped tree should preserve CoW=true")
	}
}
