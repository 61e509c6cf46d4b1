package obsutil

import "github.com/rs/zerolog"

// ScopedLogger returns base with a "subcomponent" field set to name,
// matching the logger-scoping convention used throughout this module.
func ScopedLogger(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("subcomponent", name).Logger()
}
