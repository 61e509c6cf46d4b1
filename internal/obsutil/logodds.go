// Package obsutil holds small pieces of math and logging glue shared by
// pkg/occupancy and pkg/octreeio, so neither package has to redefine the
// other's conventions for itself.
package obsutil

import "math"

// LogOdds converts a probability in (0, 1) to its log-odds representation.
func LogOdds(p float32) float32 {
	return float32(math.Log(float64(p) / float64(1-p)))
}

// Probability converts a log-odds value back to a probability in (0, 1).
func Probability(l float32) float32 {
	return float32(1 - 1/(1+math.Exp(float64(l))))
}
