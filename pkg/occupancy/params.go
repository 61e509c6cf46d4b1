package occupancy

import "octomap/internal/obsutil"

// Params holds the Bayesian fusion constants for an occupancy map, all in
// probability space for readability; the log-odds values actually used
// during fusion are derived from them on demand. Plain config-by-struct,
// not a builder or functional options.
type Params struct {
	ProbHit            float32
	ProbMiss           float32
	ClampingMin        float32
	ClampingMax        float32
	OccupancyThreshold float32
}

// DefaultParams returns the commonly used occupancy-mapping defaults:
// a hit adds the log-odds of 0.7, a miss adds the log-odds of 0.4, log-odds
// are clamped to the [0.1192, 0.971] probability range, and a voxel counts
// as occupied once its probability reaches 0.5.
func DefaultParams() Params {
	return Params{
		ProbHit:            0.7,
		ProbMiss:           0.4,
		ClampingMin:        0.1192,
		ClampingMax:        0.971,
		OccupancyThreshold: 0.5,
	}
}

// HitLogOdds is the log-odds increment applied to a voxel observed occupied.
func (p Params) HitLogOdds() float32 { return obsutil.LogOdds(p.ProbHit) }

// MissLogOdds is the log-odds increment (negative) applied to a voxel
// observed free.
func (p Params) MissLogOdds() float32 { return obsutil.LogOdds(p.ProbMiss) }

// ClampMinLogOdds is the lower clamp bound in log-odds space.
func (p Params) ClampMinLogOdds() float32 { return obsutil.LogOdds(p.ClampingMin) }

// ClampMaxLogOdds is the upper clamp bound in log-odds space.
func (p Params) ClampMaxLogOdds() float32 { return obsutil.LogOdds(p.ClampingMax) }

// ThresholdLogOdds is the occupancy decision threshold in log-odds space.
func (p Params) ThresholdLogOdds() float32 { return obsutil.LogOdds(p.OccupancyThreshold) }
