// Package snapshot defines the seam to the external point-in-time rollback
// mechanism described in spec §9 Design Notes: the core only calls
// Snapshot, Rollback, and Destroy, and must tolerate their unavailability by
// refusing reorg and surfacing RecoveryFailed rather than guessing at the
// store's internal snapshot format.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrUnavailable is returned by a Facility when the underlying mechanism
// cannot currently serve a request; callers must treat this as
// RecoveryFailed per spec §7, not retry indefinitely.
var ErrUnavailable = errors.New("snapshot: facility unavailable")

// Facility is the external, graph-store-specific point-in-time rollback
// mechanism. The core never inspects a snapshot's internal representation.
type Facility interface {
	// Snapshot records the current state of the graph store under name.
	Snapshot(ctx context.Context, name string) error
	// Rollback restores the graph store to the state recorded under name.
	Rollback(ctx context.Context, name string) error
	// Destroy removes every snapshot and underlying state for prefix.
	Destroy(ctx context.Context, prefix string) error
}

// NameFor builds the canonical snapshot name for a network's checkpoint
// height, so callers never hand-roll the naming convention.
func NameFor(prefix string, blockNum uint64) string {
	return fmt.Sprintf("%s@%d", prefix, blockNum)
}

// FileFacility is a minimal, dependency-free Facility used for local
// development and tests: a "snapshot" is a timestamped marker file under
// dir, and "rollback" only requires that marker to exist. Production
// deployments back Facility with the graph store's own
// point-in-time mechanism; FileFacility exists so the Recovery Subsystem
// has something real to drive without inventing a fake graph database.
type FileFacility struct {
	dir string
}

// NewFileFacility roots a FileFacility at dir, creating it if necessary.
func NewFileFacility(dir string) (*FileFacility, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", ErrUnavailable, dir, err)
	}
	return &FileFacility{dir: dir}, nil
}

func (f *FileFacility) markerPath(name string) string {
	return filepath.Join(f.dir, name+".snapshot")
}

// Snapshot writes a marker file recording that name was taken at this
// instant. It never copies the graph store's actual data: that is the
// external facility's job in production.
func (f *FileFacility) Snapshot(ctx context.Context, name string) error {
	path := f.markerPath(name)
	if err := os.WriteFile(path, []byte(time.Now().UTC().Format(time.RFC3339)), 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

// Rollback verifies a snapshot marker for name exists. A real facility
// would restore the underlying dataset here; FileFacility's contract ends
// at "this snapshot exists and rollback was requested", which is enough to
// exercise the Recovery Subsystem's control flow in tests.
func (f *FileFacility) Rollback(ctx context.Context, name string) error {
	if _, err := os.Stat(f.markerPath(name)); err != nil {
		return fmt.Errorf("%w: no snapshot named %s: %v", ErrUnavailable, name, err)
	}
	return nil
}

// Destroy removes every snapshot marker for prefix.
func (f *FileFacility) Destroy(ctx context.Context, prefix string) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: readdir %s: %v", ErrUnavailable, f.dir, err)
	}
	for _, e := range entries {
		if len(e.Name()) >= len(prefix) && e.Name()[:len(prefix)] == prefix {
			if err := os.Remove(filepath.Join(f.dir, e.Name())); err != nil {
				return fmt.Errorf("%w: remove %s: %v", ErrUnavailable, e.Name(), err)
			}
		}
	}
	return nil
}
