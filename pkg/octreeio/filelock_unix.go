//go:build !windows

// pkg/octreeio/filelock_unix.go
package octreeio

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile acquires an exclusive advisory lock on the given file.
// Returns ErrFileLocked if another process already holds it.
func lockFile(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		if err == unix.EWOULDBLOCK {
			logger.Debug().Str("path", f.Name()).Msg("map file already locked")
			return ErrFileLocked
		}
		return err
	}
	logger.Debug().Str("path", f.Name()).Msg("locked map file")
	return nil
}

// unlockFile releases the lock on the given file.
func unlockFile(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return err
	}
	logger.Debug().Str("path", f.Name()).Msg("unlocked map file")
	return nil
}
