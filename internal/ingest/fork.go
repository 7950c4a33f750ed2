package ingest

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ForkState is the Fork Tracker's state machine from spec §4.4:
// OPEN → CLOSED → (CONFIRMED | ORPHANED).
type ForkState int

const (
	ForkOpen ForkState = iota
	ForkClosed
	ForkConfirmed
	ForkOrphaned
)

func (s ForkState) String() string {
	switch s {
	case ForkOpen:
		return "OPEN"
	case ForkClosed:
		return "CLOSED"
	case ForkConfirmed:
		return "CONFIRMED"
	case ForkOrphaned:
		return "ORPHANED"
	default:
		return "UNKNOWN"
	}
}

// Fork is the in-memory record from spec §3: a tentative branch of history
// keyed by its checkpoint hash (or PendingForkHash), holding buffered
// operations until confirmed or orphaned.
type Fork struct {
	Hash       string
	BlockNum   uint64
	CreatedAt  time.Time
	LastUpdate time.Time
	State      ForkState

	members         map[string]bool
	buffer          []Operation
	lastWriteMarker *Operation
}

// Members returns a snapshot of the node ids currently attached to this
// fork.
func (f *Fork) Members() []string {
	out := make([]string, 0, len(f.members))
	for id := range f.members {
		out = append(out, id)
	}
	return out
}

// Buffer returns a snapshot of the fork's buffered operations, in receive
// order.
func (f *Fork) Buffer() []Operation {
	out := make([]Operation, len(f.buffer))
	copy(out, f.buffer)
	return out
}

// LastWriteMarker returns the most recently appended write_marker
// operation, or nil if none has been appended (or it has been evicted).
func (f *Fork) LastWriteMarker() *Operation {
	return f.lastWriteMarker
}

// Tracker is the Fork Tracker from spec §4.4: an in-memory map of active
// forks for one network, keyed by checkpoint hash. Every map access goes
// through Tracker's single lock; callers never see the map itself (spec §9
// Design Notes).
type Tracker struct {
	mu        sync.Mutex
	forks     map[string]*Fork
	bufferCap int
	log       *logrus.Logger
}

// NewTracker constructs a Tracker. bufferCap is the operation-buffer cap
// from spec §3 (default 10,000).
func NewTracker(bufferCap int, log *logrus.Logger) *Tracker {
	if bufferCap <= 0 {
		bufferCap = 10_000
	}
	if log == nil {
		log = logrus.New()
	}
	return &Tracker{forks: make(map[string]*Fork), bufferCap: bufferCap, log: log}
}

// GetOrCreate returns the fork keyed by hash, creating it in OPEN state at
// blockNum if this is the first operation carrying that hash (spec §4.4).
func (t *Tracker) GetOrCreate(hash string, blockNum uint64, now time.Time) *Fork {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.forks[hash]
	if ok {
		return f
	}
	f = &Fork{
		Hash:       hash,
		BlockNum:   blockNum,
		CreatedAt:  now,
		LastUpdate: now,
		State:      ForkOpen,
		members:    make(map[string]bool),
	}
	t.forks[hash] = f
	return f
}

// Get returns the fork keyed by hash, if tracked.
func (t *Tracker) Get(hash string) (*Fork, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.forks[hash]
	return f, ok
}

// AtHeight returns every tracked fork whose BlockNum+1 equals the given
// checkpoint height h (i.e. forks that could close into a checkpoint at h),
// used by Recovery's canonical-selection vote counting.
func (t *Tracker) AtHeight(h uint64) []*Fork {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Fork
	for _, f := range t.forks {
		if f.BlockNum+1 == h {
			out = append(out, f)
		}
	}
	return out
}

// All returns a snapshot of every tracked fork.
func (t *Tracker) All() []*Fork {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Fork, 0, len(t.forks))
	for _, f := range t.forks {
		out = append(out, f)
	}
	return out
}

// Append appends op to the fork's buffer, evicting the oldest entry on
// overflow (spec §4.4 Buffer policy). Appending to a CLOSED, CONFIRMED, or
// ORPHANED fork is rejected: "no further operations may be appended" once
// closed.
func (t *Tracker) Append(hash string, op Operation, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.forks[hash]
	if !ok {
		return ErrForkNotFound
	}
	if f.State != ForkOpen {
		return ErrForkClosed
	}

	if len(f.buffer) >= t.bufferCap {
		evicted := f.buffer[0]
		f.buffer = f.buffer[1:]
		if f.lastWriteMarker != nil && f.lastWriteMarker.Index == evicted.Index {
			f.lastWriteMarker = nil
		}
		t.log.WithFields(logrus.Fields{
			"fork":  hash,
			"index": evicted.Index,
		}).Warn("ingest: fork buffer overflow, evicting oldest operation")
	}
	f.buffer = append(f.buffer, op)
	if op.Type == OpWriteMarker {
		marker := op
		f.lastWriteMarker = &marker
	}
	f.LastUpdate = now
	return nil
}

// AddMember attaches nodeID to the fork, creating the fork lazily at
// blockNum if it does not already exist.
func (t *Tracker) AddMember(hash string, blockNum uint64, nodeID string, now time.Time) {
	t.mu.Lock()
	f, ok := t.forks[hash]
	if !ok {
		f = &Fork{Hash: hash, BlockNum: blockNum, CreatedAt: now, LastUpdate: now, State: ForkOpen, members: make(map[string]bool)}
		t.forks[hash] = f
	}
	f.members[nodeID] = true
	f.LastUpdate = now
	t.mu.Unlock()
}

// RemoveMember detaches nodeID from whatever fork it belongs to.
func (t *Tracker) RemoveMember(hash, nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.forks[hash]; ok {
		delete(f.members, nodeID)
	}
}

// Close transitions a fork from OPEN to CLOSED: no further operations may
// be appended. Per spec §4.4 this happens when a checkpoint whose prevHash
// equals the fork's key is received.
func (t *Tracker) Close(hash string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.forks[hash]
	if !ok {
		return ErrForkNotFound
	}
	if f.State == ForkOpen {
		f.State = ForkClosed
	}
	return nil
}

// Confirm transitions a fork to CONFIRMED: the checkpoint map at its
// closing height now equals this fork's hash and no sibling remains.
func (t *Tracker) Confirm(hash string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.forks[hash]
	if !ok {
		return ErrForkNotFound
	}
	f.State = ForkConfirmed
	return nil
}

// Orphan transitions a fork to ORPHANED and drops its buffer, per spec
// §4.4 and §4.6 Rollback ("Mark every Fork whose blockNum > h* as ORPHANED
// and drop its buffer").
func (t *Tracker) Orphan(hash string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.forks[hash]
	if !ok {
		return ErrForkNotFound
	}
	f.State = ForkOrphaned
	f.buffer = nil
	f.lastWriteMarker = nil
	return nil
}

// Remove deletes a fork entirely (used after successful cleanup or once an
// orphan's buffer has been drained and it is no longer needed for vote
// bookkeeping).
func (t *Tracker) Remove(hash string) {
	t.mu.Lock()
	delete(t.forks, hash)
	t.mu.Unlock()
}

// Cleanup evicts every fork whose LastUpdate is older than retention,
// returning their hashes. Called by the Coordinator's periodic cleanup
// (spec §4.8, default every 5 minutes, retention default 1 hour).
func (t *Tracker) Cleanup(retention time.Duration, now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var evicted []string
	for hash, f := range t.forks {
		if f.Hash == PendingForkHash {
			continue
		}
		if now.Sub(f.LastUpdate) > retention {
			f.State = ForkOrphaned
			delete(t.forks, hash)
			evicted = append(evicted, hash)
		}
	}
	return evicted
}

// ValidateCheckpoint runs v against the fork keyed by hash while holding the
// tracker's lock, so Checkpoint Validator reads never race a concurrent
// Append (spec §5: the buffer is a short, non-blocking critical section).
func (t *Tracker) ValidateCheckpoint(v Validator, hash string, h uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.forks[hash]
	if !ok {
		return ErrForkNotFound
	}
	return v.Validate(f, h)
}

// OrphanOlderThan marks as ORPHANED every fork at or below maxBlockNum that
// isn't the keepHash, used by the Coordinator's checkpoint handler to clean
// up siblings older than h-100 (spec §4.8).
func (t *Tracker) OrphanOlderThan(maxBlockNum uint64, keepHash string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var orphaned []string
	for hash, f := range t.forks {
		if hash == keepHash || hash == PendingForkHash {
			continue
		}
		if f.BlockNum <= maxBlockNum && f.State != ForkConfirmed {
			f.State = ForkOrphaned
			f.buffer = nil
			f.lastWriteMarker = nil
			orphaned = append(orphaned, hash)
		}
	}
	return orphaned
}
