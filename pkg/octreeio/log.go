package octreeio

import (
	"github.com/rs/zerolog"

	"octomap/internal/obsutil"
)

// logger is this package's scoped logger. It defaults to zerolog.Nop();
// SetLogger lets a caller that already has a configured zerolog.Logger
// (the same one passed to occupancy.New/octree.New) route this package's
// debug output through it too.
var logger = obsutil.ScopedLogger(zerolog.Nop(), "octreeio")

// SetLogger replaces this package's logger, scoped under "octreeio".
func SetLogger(base zerolog.Logger) {
	logger = obsutil.ScopedLogger(base, "octreeio")
}
