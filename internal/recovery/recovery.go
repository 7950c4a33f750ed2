// Package recovery implements the Recovery Subsystem from spec §4.6: fork
// detection on checkpoint mismatch, canonical selection among the
// conflicting hashes, rollback of the graph store via the external
// snapshot facility, and replay/gap-fill of the operations between the
// rollback point and the current height by fetching checkpoint payloads
// from the content-addressed store.
package recovery

import (
	"context"
	"fmt"
	"time"

	"combgraph/internal/contentstore"
	"combgraph/internal/events"
	"combgraph/internal/ingest"
	"combgraph/internal/snapshot"

	"github.com/sirupsen/logrus"
)

// Applier commits every operation recovery has buffered for one fork in a
// single transaction, mirroring the normal checkpoint-triggered commit path
// (Data Transformer → Graph Client write). The Ingest Coordinator supplies
// the concrete implementation; Recovery only knows it can ask for the
// buffered fork to be committed once replay/gap-fill has finished appending
// to it.
type Applier interface {
	Commit(ctx context.Context, network, forkHash string) error
}

// Engine is the Recovery Subsystem for one network: the Coordinator builds
// one Engine per network prefix, each over that network's own Tracker and
// CheckpointMap.
type Engine struct {
	tracker     *ingest.Tracker
	checkpoints *ingest.CheckpointMap
	content     *contentstore.Client
	snap        snapshot.Facility
	policy      Policy
	bus         *events.Bus
	log         *logrus.Logger
}

// New constructs an Engine. A nil policy defaults to
// MajorityThenLowestHash.
func New(tracker *ingest.Tracker, checkpoints *ingest.CheckpointMap, content *contentstore.Client, snap snapshot.Facility, bus *events.Bus, policy Policy, log *logrus.Logger) *Engine {
	if policy == nil {
		policy = MajorityThenLowestHash{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Engine{tracker: tracker, checkpoints: checkpoints, content: content, snap: snap, policy: policy, bus: bus, log: log}
}

// HandleMismatch runs the full fork-detection → canonical-selection →
// rollback → replay sequence for a checkpoint at height h whose prevHash
// conflicts with what's already recorded. votes maps each reported
// checkpoint hash at height h to the number of connected nodes that
// reported it; totalConnected is the number of nodes currently connected
// to this network. It returns the selected canonical hash.
func (e *Engine) HandleMismatch(ctx context.Context, network string, h uint64, votes map[string]int, totalConnected int, applier Applier) (string, error) {
	canonical := e.policy.Select(votes, totalConnected)
	if canonical == "" {
		return "", fmt.Errorf("recovery: no candidate hashes at height %d", h)
	}

	e.bus.Publish(events.Event{Kind: events.KindForkDetected, Network: network, Payload: map[string]any{
		"height":    h,
		"canonical": canonical,
		"votes":     votes,
	}})

	hStar, ok := e.checkpoints.LatestConfirmedBelow(h)
	if !ok {
		return "", ErrNoConfirmedCheckpoint
	}

	name := snapshot.NameFor(network, hStar)
	if err := e.snap.Rollback(ctx, name); err != nil {
		return "", fmt.Errorf("recovery: rollback to %s: %w", name, err)
	}
	e.checkpoints.Forget(hStar + 1)

	for _, f := range e.tracker.All() {
		if f.BlockNum > hStar && f.Hash != canonical {
			_ = e.tracker.Orphan(f.Hash)
		}
	}

	if err := e.Replay(ctx, network, canonical, applier); err != nil {
		return canonical, fmt.Errorf("recovery: replay from %d to %d: %w", hStar, h, err)
	}

	e.bus.Publish(events.Event{Kind: events.KindRecoveryComplete, Network: network, Payload: map[string]any{
		"height":    h,
		"canonical": canonical,
		"rolledTo":  hStar,
	}})
	return canonical, nil
}

// Replay recovers the operations belonging to the checkpoint identified by
// hash, preferring the still-living fork's own buffer and falling back to
// the content-addressed store, then commits the whole fork through applier
// in one transaction: the fork's buffer is the same one live ingest
// appended into, so when it is already populated there is nothing left to
// do but commit it. This is also the gap-fill path: a batch arriving empty
// with a requestedRange attached has nothing to prefer over the content
// store, so it goes straight to the fetch-and-parse branch.
func (e *Engine) Replay(ctx context.Context, network, hash string, applier Applier) error {
	if f, ok := e.tracker.Get(hash); ok && len(f.Buffer()) > 0 {
		return applier.Commit(ctx, network, hash)
	}
	return e.GapFill(ctx, network, hash, applier)
}

// GapFill fetches the payload for hash from the content-addressed store,
// parses it into operations, reinjects every one into the Fork Tracker's
// buffer for hash exactly as live ingest would via Tracker.Append, and then
// commits the whole fork through applier in a single transaction. Used both
// when a fork's buffer has already been evicted during replay and when a
// batch arrives empty with a requestedRange (spec §4.6 Gap fill).
func (e *Engine) GapFill(ctx context.Context, network, hash string, applier Applier) error {
	payload, err := e.content.Fetch(ctx, hash)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRecoveryFetch, err)
	}
	ops, err := ingest.ParseBatchPayload(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRecoveryFetch, err)
	}

	now := time.Now()
	var blockNum uint64
	if len(ops) > 0 {
		blockNum = ops[0].BlockNum
	}
	e.tracker.GetOrCreate(hash, blockNum, now)

	for _, opm := range ops {
		op := ingest.Operation{
			Type: opm.Type, Path: opm.Path, Data: opm.Data,
			Index: opm.Index, BlockNum: opm.BlockNum, ForkHash: hash,
		}
		if err := e.tracker.Append(hash, op, now); err != nil {
			return fmt.Errorf("%w: reinject %s: %v", ErrRecoveryFetch, hash, err)
		}
	}
	return applier.Commit(ctx, network, hash)
}
