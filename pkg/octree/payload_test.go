package octree

// testVal is a minimal Payload used to exercise the generic tree without
// pulling in pkg/occupancy's log-odds semantics: Mergeable requires all 8
// children equal, Aggregate takes the max, Split copies (same shape as
// LogOdds, the only payload this module actually ships).
type testVal float64

func (v testVal) Zero() testVal { return 0 }

func (v testVal) Equal(other testVal) bool { return v == other }

func (v testVal) Mergeable(children [8]testVal) (testVal, bool) {
	first := children[0]
	for _, c := range children[1:] {
		if c != first {
			return 0, false
		}
	}
	return first, true
}

func (v testVal) Aggregate(children [8]testVal) testVal {
	max := children[0]
	for _, c := range children[1:] {
		if c > max {
			max = c
		}
	}
	return max
}

func (v testVal) Split() [8]testVal {
	var out [8]testVal
	for i := range out {
		out[i] = v
	}
	return out
}
