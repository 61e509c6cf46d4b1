package obsutil

import (
	"math"
	"testing"
)

func TestLogOddsProbabilityRoundTrip(t *testing.T) {
	for _, p := range []float32{0.1192, 0.4, 0.5, 0.7, 0.971} {
		l := LogOdds(p)
		back := Probability(l)
		if diff := math.Abs(float64(back - p)); diff > 1e-5 {
			t.Errorf("LogOdds/Probability round trip for %v: got %v, diff %v", p, back, diff)
		}
	}
}

func TestLogOddsMonotonic(t *testing.T) {
	if LogOdds(0.7) <= LogOdds(0.5) {
		t.Errorf("LogOdds(0.7) should exceed LogOdds(0.5)")
	}
	if LogOdds(0.4) >= LogOdds(0.5) {
		t.Errorf("LogOdds(0.4) should be below LogOdds(0.5)")
	}
}
