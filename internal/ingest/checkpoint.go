package ingest

import (
	"fmt"
	"sync"
)

// CheckpointMap is one network's map from block number to canonical
// hash described in spec §3. All mutation goes through Accept so the
// "equal-or-absent" invariant can never be bypassed by a caller reaching
// into the map directly (spec §9 Design Notes: own global maps behind a
// single lock, expose operations not the map).
type CheckpointMap struct {
	mu       sync.RWMutex
	byHeight map[uint64]string
}

// NewCheckpointMap constructs an empty CheckpointMap.
func NewCheckpointMap() *CheckpointMap {
	return &CheckpointMap{byHeight: make(map[uint64]string)}
}

// Accept records hash as the canonical checkpoint at height h. Per spec §3:
// accepting requires either no prior entry at h, or an entry equal to hash.
// ok reports whether the call changed or confirmed the canonical entry;
// when ok is false, the existing hash is returned so the caller can raise a
// ForkDetected event (spec §4.6).
func (c *CheckpointMap) Accept(h uint64, hash string) (existing string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, has := c.byHeight[h]; has {
		if cur == hash {
			return cur, true
		}
		return cur, false
	}
	c.byHeight[h] = hash
	return hash, true
}

// Get returns the canonical hash recorded at height h.
func (c *CheckpointMap) Get(h uint64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hash, ok := c.byHeight[h]
	return hash, ok
}

// LatestConfirmedBelow returns the greatest height strictly below h that
// has a confirmed entry, used by Recovery's rollback target search (spec
// §4.6: "Find the greatest block h* < h with a confirmed checkpoint").
func (c *CheckpointMap) LatestConfirmedBelow(h uint64) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var best uint64
	found := false
	for height := range c.byHeight {
		if height < h && (!found || height > best) {
			best = height
			found = true
		}
	}
	return best, found
}

// Forget removes every entry at or above h, used when a rollback discards
// checkpoints beyond the new canonical head.
func (c *CheckpointMap) Forget(aboveOrEqual uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for height := range c.byHeight {
		if height >= aboveOrEqual {
			delete(c.byHeight, height)
		}
	}
}

// Validator enforces the structural rules on checkpoint boundaries from
// spec §4.5.
type Validator struct{}

// Validate reports whether a checkpoint at height h is well-formed against
// candidate fork f:
//  1. f's buffer is non-empty
//  2. f's final operation is a write_marker with blockNum == h-1
//  3. no operation in f's buffer has blockNum >= h
func (Validator) Validate(f *Fork, h uint64) error {
	buf := f.buffer
	if len(buf) == 0 {
		return fmt.Errorf("%w: fork %s has an empty buffer", ErrInvalidBoundary, f.Hash)
	}
	last := buf[len(buf)-1]
	if last.Type != OpWriteMarker {
		return fmt.Errorf("%w: fork %s's final buffered operation is not a write_marker", ErrInvalidBoundary, f.Hash)
	}
	if h == 0 || last.BlockNum != h-1 {
		return fmt.Errorf("%w: fork %s's write_marker blockNum %d != %d-1", ErrInvalidBoundary, f.Hash, last.BlockNum, h)
	}
	for _, op := range buf {
		if op.BlockNum >= h {
			return fmt.Errorf("%w: fork %s has an operation at or beyond blockNum %d", ErrInvalidBoundary, f.Hash, h)
		}
	}
	return nil
}
