package transform

import (
	"sync"

	"github.com/google/uuid"

	"combgraph/internal/graph"
)

type entity struct {
	tempID string
	fields graph.Mutation
}

// Accumulator is the in-flight entity map scoped to one logical batch
// (spec §4.7): operations referencing the same stable identity (account by
// username, path by full path, contract by id, file by cid, ...) resolve
// to the same temporary id and merge instead of duplicating. It is not
// shared across tasks (spec §5 Shared resources): callers construct one
// per batch and Drain it at the end.
type Accumulator struct {
	mu    sync.Mutex
	byKey map[string]*entity
	order []string

	pathFileCounts map[string]int
}

// NewAccumulator constructs an empty, batch-scoped Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		byKey:          make(map[string]*entity),
		pathFileCounts: make(map[string]int),
	}
}

// Upsert returns the stable temporary id for (kind, identity), creating a
// fresh uuid-backed blank node on first reference and merging fields into
// the existing entity on every subsequent reference. fields may be nil to
// just look up or reserve the id.
func (a *Accumulator) Upsert(kind, identity string, fields graph.Mutation) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := kind + "\x00" + identity
	e, ok := a.byKey[key]
	if !ok {
		e = &entity{
			tempID: "_:" + uuid.New().String(),
			fields: graph.Mutation{"uid": "", "_kind": kind},
		}
		a.byKey[key] = e
		a.order = append(a.order, key)
		e.fields["uid"] = e.tempID
	}
	for k, v := range fields {
		e.fields[k] = v
	}
	return e.tempID
}

// RecordPathFile notes that one file was placed directly under path,
// feeding both the batch's Stats and the Path entity's itemCount field
// (spec §4.7 step 5: "each Path ... carries itemCount = number of files
// directly under it").
func (a *Accumulator) RecordPathFile(path string) {
	a.mu.Lock()
	a.pathFileCounts[path]++
	a.mu.Unlock()
}

// UpsertMaxUint64 behaves like Upsert, except field is only overwritten
// when value is strictly greater than whatever is already stored there.
// Used for "file's Path membership is recomputed to carry the newest
// block number" when the same cid is shared across contracts (spec §4.7
// step 8).
func (a *Accumulator) UpsertMaxUint64(kind, identity, field string, value uint64, fields graph.Mutation) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := kind + "\x00" + identity
	e, ok := a.byKey[key]
	if !ok {
		e = &entity{
			tempID: "_:" + uuid.New().String(),
			fields: graph.Mutation{"uid": "", "_kind": kind},
		}
		a.byKey[key] = e
		a.order = append(a.order, key)
		e.fields["uid"] = e.tempID
	}
	for k, v := range fields {
		e.fields[k] = v
	}
	if existing, ok := e.fields[field].(uint64); ok {
		if value > existing {
			e.fields[field] = value
		}
	} else {
		e.fields[field] = value
	}
	return e.tempID
}

// Drain empties the accumulator, returning every accumulated mutation in
// first-reference order and the batch's Stats. The Accumulator is empty
// and ready for reuse afterward.
func (a *Accumulator) Drain() ([]graph.Mutation, Stats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for path, count := range a.pathFileCounts {
		if e, ok := a.byKey["Path\x00"+path]; ok {
			e.fields["itemCount"] = count
		}
	}
	// ContractFiles sharing a cid all carry the newest membershipBlockNum.
	newest := make(map[string]uint64)
	for _, key := range a.order {
		f := a.byKey[key].fields
		cid, _ := f["cid"].(string)
		if b, ok := f["membershipBlockNum"].(uint64); ok && f["_kind"] == "ContractFile" && b > newest[cid] {
			newest[cid] = b
		}
	}
	for _, key := range a.order {
		f := a.byKey[key].fields
		cid, _ := f["cid"].(string)
		if _, ok := f["membershipBlockNum"].(uint64); ok && f["_kind"] == "ContractFile" {
			f["membershipBlockNum"] = newest[cid]
		}
	}

	muts := make([]graph.Mutation, 0, len(a.order))
	for _, key := range a.order {
		muts = append(muts, a.byKey[key].fields)
	}

	var stats Stats
	stats.TotalPaths = len(a.pathFileCounts)
	for path, count := range a.pathFileCounts {
		stats.TotalFiles += count
		if count > 1 {
			stats.PathsWithMultipleFiles++
		}
		if count > stats.LargestPathFileCount {
			stats.LargestPathFileCount = count
			stats.LargestPath = path
		}
	}

	a.byKey = make(map[string]*entity)
	a.order = nil
	a.pathFileCounts = make(map[string]int)
	return muts, stats
}
