package octreeio

import (
	"fmt"
	"os"

	"octomap/pkg/occupancy"
)

// WriteFileLocked writes tr to path under an exclusive advisory lock,
// for the common case of a map file shared by multiple cooperating
// processes (for example a mapping process and a viewer polling the same
// file). It is not a substitute for atomic replace: a reader that opens
// path mid-write without also locking will see a partial file.
func WriteFileLocked(path string, tr *occupancy.Tree, typeName string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("octreeio: open %s: %w", path, err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("octreeio: lock %s: %w", path, err)
	}
	defer unlockFile(f)

	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("octreeio: truncate %s: %w", path, err)
	}

	if err := Write(f, tr, typeName); err != nil {
		return err
	}
	return f.Sync()
}

// ReadFileLocked reads a tree from path under the same advisory lock
// WriteFileLocked uses, blocking out a concurrent writer for the duration
// of the read.
func ReadFileLocked(path string, reg *Registry) (*occupancy.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("octreeio: open %s: %w", path, err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return nil, fmt.Errorf("octreeio: lock %s: %w", path, err)
	}
	defer unlockFile(f)

	return Read(f, reg)
}
