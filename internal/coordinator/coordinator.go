// Package coordinator implements the Ingest Coordinator from spec §4.8: the
// WebSocket listener that accepts consensus-node connections, dispatches
// their messages through the Protocol Adapter, drives the Fork Tracker and
// Checkpoint Validator, hands contested checkpoints to the Recovery
// Subsystem, and schedules committed forks through the Data Transformer onto
// the Graph Client Adapter. It sits above internal/ingest, internal/
// recovery, and internal/transform rather than inside internal/ingest
// itself, since both recovery and transform already import internal/ingest
// and a coordinator living there would import them back.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"combgraph/internal/contentstore"
	"combgraph/internal/events"
	"combgraph/internal/graph"
	"combgraph/internal/ingest"
	"combgraph/internal/metrics"
	"combgraph/internal/recovery"
	"combgraph/internal/registry"
	"combgraph/internal/snapshot"
	"combgraph/internal/transform"
)

// Config controls the Coordinator's connection lifecycle and write
// behavior, per spec §5.
type Config struct {
	IdleTimeout       time.Duration // silence before a liveness probe is sent (default 90s)
	ProbeTimeout      time.Duration // time to wait for a pong before dropping the connection (default 30s)
	ForkBufferCap     int           // per-fork operation buffer cap (default 10,000)
	ForkRetention     time.Duration // Cleanup retention window (default 1h)
	CleanupInterval   time.Duration // Cleanup goroutine period (default 5m)
	OrphanHeightDelta uint64        // sibling forks at or below h-delta are orphaned on checkpoint (default 100)
	WorkerQueueDepth  int           // per-network NetworkPool queue depth (default 256)
	WriteDeadline     time.Duration // per-transaction graph write deadline (default 30s)
	WriteRetries      int           // retries after the first attempt before WriteFailed (default 3)
}

func (c Config) withDefaults() Config {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 90 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 30 * time.Second
	}
	if c.ForkBufferCap <= 0 {
		c.ForkBufferCap = 10_000
	}
	if c.ForkRetention <= 0 {
		c.ForkRetention = time.Hour
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	if c.OrphanHeightDelta <= 0 {
		c.OrphanHeightDelta = 100
	}
	if c.WorkerQueueDepth <= 0 {
		c.WorkerQueueDepth = 256
	}
	if c.WriteDeadline <= 0 {
		c.WriteDeadline = 30 * time.Second
	}
	if c.WriteRetries <= 0 {
		c.WriteRetries = 3
	}
	return c
}

// networkState is the per-network bundle of Coordinator-owned state: one
// Fork Tracker, one Checkpoint Map, and one FIFO worker pool per network
// (spec §3 Ownership: block numbers and hashes are only meaningful within a
// single network's chain, so none of these can be shared process-wide
// despite the data model describing CheckpointMap in those terms).
type networkState struct {
	mu              sync.Mutex
	tracker         *ingest.Tracker
	checkpoints     *ingest.CheckpointMap
	pool            *ingest.NetworkPool
	recovery        *recovery.Engine
	connected       map[string]bool               // nodeID -> true, for vote denominators
	checkpointVotes map[uint64]map[string]string // height -> nodeID -> reported hash
}

func (ns *networkState) recordVote(height uint64, nodeID, hash string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if ns.checkpointVotes[height] == nil {
		ns.checkpointVotes[height] = make(map[string]string)
	}
	ns.checkpointVotes[height][nodeID] = hash
}

func (ns *networkState) voteCounts(height uint64) map[string]int {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	counts := make(map[string]int)
	for _, hash := range ns.checkpointVotes[height] {
		counts[hash]++
	}
	delete(ns.checkpointVotes, height)
	return counts
}

func (ns *networkState) addConnected(nodeID string) {
	ns.mu.Lock()
	ns.connected[nodeID] = true
	ns.mu.Unlock()
}

func (ns *networkState) removeConnected(nodeID string) {
	ns.mu.Lock()
	delete(ns.connected, nodeID)
	ns.mu.Unlock()
}

func (ns *networkState) connectedCount() int {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return len(ns.connected)
}

// connState tracks one live WebSocket connection and the ingest.Connection
// it is identified as, once identify arrives.
type connState struct {
	ws      *websocket.Conn
	wsMu    sync.Mutex // serializes writes to ws; gorilla/websocket forbids concurrent writers
	conn    *ingest.Connection
	network string
	done    chan struct{}
}

// Coordinator is the Ingest Coordinator for every registered network.
type Coordinator struct {
	cfg         Config
	reg         *registry.Registry
	content     *contentstore.Client
	snap        snapshot.Facility
	policy      recovery.Policy
	transformer *transform.Transformer
	bus         *events.Bus
	log         *logrus.Logger
	upgrader    websocket.Upgrader

	rootCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	networks map[string]*networkState
	conns    map[*websocket.Conn]*connState
}

// New constructs a Coordinator. content and snap back the Recovery
// Subsystem; a dedicated recovery.Engine is built per network (spec §3
// Ownership: each network's forks and checkpoints are independent, so a
// single process-wide Engine sharing one Tracker/CheckpointMap across
// networks would conflate unrelated chains). Call Run to start the periodic
// cleanup goroutine and ServeHTTP to handle inbound WebSocket upgrades.
func New(ctx context.Context, cfg Config, reg *registry.Registry, content *contentstore.Client, snap snapshot.Facility, policy recovery.Policy, transformer *transform.Transformer, bus *events.Bus, log *logrus.Logger) *Coordinator {
	if log == nil {
		log = logrus.New()
	}
	rootCtx, cancel := context.WithCancel(ctx)
	return &Coordinator{
		cfg:         cfg.withDefaults(),
		reg:         reg,
		content:     content,
		snap:        snap,
		policy:      policy,
		transformer: transformer,
		bus:         bus,
		log:         log,
		upgrader:    websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		rootCtx:     rootCtx,
		cancel:      cancel,
		networks:    make(map[string]*networkState),
		conns:       make(map[*websocket.Conn]*connState),
	}
}

// Run starts the periodic fork-cleanup goroutine and blocks until ctx (the
// one passed to New) is cancelled.
func (co *Coordinator) Run() {
	ticker := time.NewTicker(co.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-co.rootCtx.Done():
			return
		case <-ticker.C:
			co.runCleanup()
		}
	}
}

// Close stops the cleanup loop and closes every tracked connection and
// per-network worker pool.
func (co *Coordinator) Close() {
	co.cancel()
	co.mu.Lock()
	conns := make([]*connState, 0, len(co.conns))
	for _, cs := range co.conns {
		conns = append(conns, cs)
	}
	pools := make([]*ingest.NetworkPool, 0, len(co.networks))
	for _, ns := range co.networks {
		pools = append(pools, ns.pool)
	}
	co.mu.Unlock()

	for _, cs := range conns {
		_ = cs.ws.Close()
	}
	for _, pool := range pools {
		pool.Close()
	}
}

func (co *Coordinator) runCleanup() {
	co.mu.Lock()
	networks := make(map[string]*networkState, len(co.networks))
	for prefix, ns := range co.networks {
		networks[prefix] = ns
	}
	co.mu.Unlock()

	now := time.Now()
	for prefix, ns := range networks {
		evicted := ns.tracker.Cleanup(co.cfg.ForkRetention, now)
		for _, hash := range evicted {
			metrics.ForksOrphaned.WithLabelValues(prefix, "retention").Inc()
			co.log.WithFields(logrus.Fields{"network": prefix, "fork": hash}).
				Info("coordinator: evicted stale fork")
		}
	}
}

// networkStateFor returns (creating if necessary) the per-network state
// bundle for prefix.
func (co *Coordinator) networkStateFor(prefix string) *networkState {
	co.mu.Lock()
	defer co.mu.Unlock()
	ns, ok := co.networks[prefix]
	if !ok {
		tracker := ingest.NewTracker(co.cfg.ForkBufferCap, co.log)
		checkpoints := ingest.NewCheckpointMap()
		ns = &networkState{
			tracker:         tracker,
			checkpoints:     checkpoints,
			pool:            ingest.NewNetworkPool(co.rootCtx, co.cfg.WorkerQueueDepth),
			recovery:        recovery.New(tracker, checkpoints, co.content, co.snap, co.bus, co.policy, co.log),
			connected:       make(map[string]bool),
			checkpointVotes: make(map[uint64]map[string]string),
		}
		co.networks[prefix] = ns
	}
	return ns
}

// ServeHTTP upgrades an inbound request to a WebSocket and serves one
// consensus-node connection for its lifetime.
func (co *Coordinator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := co.upgrader.Upgrade(w, r, nil)
	if err != nil {
		co.log.WithError(err).Warn("coordinator: websocket upgrade failed")
		return
	}
	now := time.Now()
	cs := &connState{
		ws:   ws,
		conn: ingest.NewConnection(now),
		done: make(chan struct{}),
	}
	co.mu.Lock()
	co.conns[ws] = cs
	co.mu.Unlock()

	go co.monitorIdle(cs)
	co.readLoop(cs)
}

func (co *Coordinator) readLoop(cs *connState) {
	defer co.handleDisconnect(cs)

	ws := cs.ws
	ws.SetReadDeadline(time.Now().Add(co.cfg.IdleTimeout + co.cfg.ProbeTimeout))
	ws.SetPongHandler(func(string) error {
		cs.conn.Touch(time.Now())
		ws.SetReadDeadline(time.Now().Add(co.cfg.IdleTimeout + co.cfg.ProbeTimeout))
		return nil
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		now := time.Now()
		cs.conn.Touch(now)
		co.handleMessage(cs, raw, now)
	}
}

// monitorIdle sends a liveness probe once a connection has been silent for
// IdleTimeout; if no pong refreshes the read deadline within ProbeTimeout,
// the blocked ReadMessage in readLoop errors out and the connection is torn
// down (spec §5).
func (co *Coordinator) monitorIdle(cs *connState) {
	ticker := time.NewTicker(co.cfg.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-cs.done:
			return
		case <-co.rootCtx.Done():
			return
		case <-ticker.C:
			if !cs.conn.Idle(co.cfg.IdleTimeout, time.Now()) {
				continue
			}
			cs.wsMu.Lock()
			err := cs.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(co.cfg.ProbeTimeout))
			cs.wsMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (co *Coordinator) handleDisconnect(cs *connState) {
	cs.conn.MarkDead()
	close(cs.done)

	if cs.network != "" {
		co.mu.Lock()
		ns := co.networks[cs.network]
		co.mu.Unlock()
		if ns != nil {
			ns.tracker.RemoveMember(cs.conn.ActiveFork(), cs.conn.NodeID)
			if cs.conn.NodeID != "" {
				ns.removeConnected(cs.conn.NodeID)
			}
		}
	}

	co.mu.Lock()
	delete(co.conns, cs.ws)
	co.mu.Unlock()
	_ = cs.ws.Close()
}

func (co *Coordinator) handleMessage(cs *connState, raw []byte, now time.Time) {
	kind, msg, err := ingest.Decode(raw)
	if err != nil {
		co.sendError(cs, err.Error())
		return
	}

	switch kind {
	case ingest.KindIdentify:
		co.handleIdentify(cs, msg.(ingest.IdentifyMsg), now)
	case ingest.KindSyncStatus:
		// Informational only; Touch already recorded the activity.
	case ingest.KindOperation:
		co.handleOperation(cs, msg.(ingest.OperationMsg), now)
	case ingest.KindWriteMark:
		co.handleWriteMarker(cs, msg.(ingest.WriteMarkerMsg), now)
	case ingest.KindCheckpoint:
		co.handleCheckpoint(cs, msg.(ingest.CheckpointMsg), now)
	case ingest.KindBatch:
		co.handleBatch(cs, msg.(ingest.BatchMsg), now)
	}
}

func (co *Coordinator) handleIdentify(cs *connState, msg ingest.IdentifyMsg, now time.Time) {
	cs.conn.Identify(msg.NodeID, msg.Network, now)
	cs.network = msg.Network

	ns := co.networkStateFor(msg.Network)
	ns.addConnected(msg.NodeID)
	ns.tracker.AddMember(cs.conn.ActiveFork(), 0, msg.NodeID, now)

	co.sendJSON(cs, map[string]any{"type": "connected", "nodeId": msg.NodeID, "network": msg.Network})
}

func (co *Coordinator) handleOperation(cs *connState, msg ingest.OperationMsg, now time.Time) {
	if cs.network == "" {
		co.sendError(cs, "operation received before identify")
		return
	}
	ns := co.networkStateFor(cs.network)
	forkHash := cs.conn.ActiveFork()

	op := ingest.Operation{
		Type: msg.Type, Path: msg.Path, Data: msg.Data,
		Index: msg.Index, BlockNum: msg.BlockNum, ForkHash: forkHash,
	}
	if err := ns.tracker.Append(forkHash, op, now); err != nil {
		co.log.WithError(err).Warn("coordinator: operation append failed")
		co.sendError(cs, err.Error())
		return
	}

	metrics.OperationsIngested.WithLabelValues(cs.network, string(msg.Type)).Inc()
	co.bus.Publish(events.Event{Kind: events.KindOperation, Network: cs.network, Payload: msg})
}

func (co *Coordinator) handleWriteMarker(cs *connState, msg ingest.WriteMarkerMsg, now time.Time) {
	if cs.network == "" {
		co.sendError(cs, "write_marker received before identify")
		return
	}
	ns := co.networkStateFor(cs.network)
	forkHash := cs.conn.ActiveFork()

	op := ingest.Operation{
		Type: ingest.OpWriteMarker, Index: msg.Index, BlockNum: msg.BlockNum, ForkHash: forkHash,
	}
	if err := ns.tracker.Append(forkHash, op, now); err != nil {
		co.log.WithError(err).Warn("coordinator: write_marker append failed")
		co.sendError(cs, err.Error())
		return
	}
	metrics.OperationsIngested.WithLabelValues(cs.network, string(ingest.OpWriteMarker)).Inc()
}

// handleCheckpoint runs the sequence from spec §4.8: validate the closing
// fork's boundary, commit its buffered writes, accept the checkpoint (or
// hand a mismatch to Recovery), close the old fork and open the new one,
// and orphan siblings older than h-OrphanHeightDelta.
func (co *Coordinator) handleCheckpoint(cs *connState, msg ingest.CheckpointMsg, now time.Time) {
	if cs.network == "" {
		co.sendError(cs, "sendCheckpoint received before identify")
		return
	}
	network := cs.network
	ns := co.networkStateFor(network)

	closingHash := msg.PrevHash
	if closingHash == "" {
		closingHash = ingest.PendingForkHash
	}
	ns.tracker.GetOrCreate(closingHash, 0, now)

	if err := ns.tracker.ValidateCheckpoint(ingest.Validator{}, closingHash, msg.BlockNum); err != nil {
		metrics.InvalidBoundaries.WithLabelValues(network).Inc()
		co.bus.Publish(events.Event{Kind: events.KindInvalidBoundary, Network: network, Payload: err.Error()})
		co.log.WithError(err).Warn("coordinator: checkpoint rejected by validator")
		co.sendError(cs, err.Error())
		return
	}

	co.commitFork(network, closingHash)

	if cs.conn.NodeID != "" {
		ns.recordVote(msg.BlockNum, cs.conn.NodeID, msg.Hash)
	}

	canonical, accepted := ns.checkpoints.Accept(msg.BlockNum, msg.Hash)
	if !accepted {
		votes := ns.voteCounts(msg.BlockNum)
		if len(votes) == 0 {
			votes = map[string]int{msg.Hash: 1, canonical: 1}
		}
		selected, err := ns.recovery.HandleMismatch(co.rootCtx, network, msg.BlockNum, votes, ns.connectedCount(), co.applierFor())
		if err != nil {
			co.log.WithError(err).Error("coordinator: recovery failed")
			co.sendError(cs, "recovery failed: "+err.Error())
			return
		}
		canonical = selected
		// HandleMismatch's rollback forgets every checkpoint entry above h*
		// (including this height's contested one); re-accept the
		// now-resolved canonical hash so later lookups at h see it.
		ns.checkpoints.Accept(msg.BlockNum, canonical)
	}
	metrics.CheckpointsAccepted.WithLabelValues(network).Inc()

	_ = ns.tracker.Close(closingHash)
	ns.tracker.GetOrCreate(canonical, msg.BlockNum, now)
	cs.conn.SetActiveFork(canonical)
	ns.tracker.AddMember(canonical, msg.BlockNum, cs.conn.NodeID, now)

	if msg.BlockNum > co.cfg.OrphanHeightDelta {
		orphaned := ns.tracker.OrphanOlderThan(msg.BlockNum-co.cfg.OrphanHeightDelta, canonical)
		for _, hash := range orphaned {
			metrics.ForksOrphaned.WithLabelValues(network, "superseded").Inc()
			_ = hash
		}
	}

	co.bus.Publish(events.Event{Kind: events.KindCheckpoint, Network: network, Payload: msg})
	co.sendJSON(cs, map[string]any{"type": "checkpoint_ack", "blockNum": msg.BlockNum, "hash": canonical})
}

// commitFork drains the fork's buffer through the Data Transformer and
// submits the resulting mutations to its network's FIFO worker pool.
func (co *Coordinator) commitFork(network, forkHash string) {
	ns := co.networkStateFor(network)
	f, ok := ns.tracker.Get(forkHash)
	if !ok {
		return
	}
	buf := f.Buffer()
	if len(buf) == 0 {
		return
	}

	acc := transform.NewAccumulator()
	for _, op := range buf {
		if op.Type == ingest.OpWriteMarker {
			continue
		}
		opMsg := ingest.OperationMsg{
			Index: op.Index, BlockNum: op.BlockNum, Type: op.Type,
			Path: op.Path, Data: op.Data, ForkHash: op.ForkHash,
		}
		block := transform.BlockInfo{BlockNum: op.BlockNum, Timestamp: op.Timestamp}
		if err := co.transformer.Transform(acc, network, opMsg, block); err != nil {
			co.log.WithError(err).Warn("coordinator: transform failed, dropping operation")
		}
	}

	muts, _ := acc.Drain()
	if len(muts) == 0 {
		return
	}

	client, ok := co.reg.Client(network)
	if !ok {
		co.log.WithField("network", network).Error("coordinator: no graph client registered for network")
		return
	}

	ns.pool.Submit(func(ctx context.Context) {
		_ = co.writeWithRetry(ctx, network, client, muts)
	})
}

// writeWithRetry commits muts under a bounded per-transaction deadline,
// retrying retryable failures with exponential backoff before surfacing
// WriteFailed (spec §5). It always records metrics and publishes
// WriteFailed itself on exhaustion, so every caller can treat the returned
// error as informational (recovery uses it to decide whether to fall back
// to request_missing; the live commit path just ignores it).
func (co *Coordinator) writeWithRetry(ctx context.Context, network string, client *graph.Client, muts []graph.Mutation) error {
	backoff := co.cfg.WriteDeadline / 4
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= co.cfg.WriteRetries; attempt++ {
		wctx, cancel := graph.DeadlineFor(ctx, co.cfg.WriteDeadline)
		err := client.Write(wctx, muts)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.Is(err, graph.ErrRetryable) || attempt == co.cfg.WriteRetries {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
	}

	metrics.WriteFailures.WithLabelValues(network).Inc()
	co.bus.Publish(events.Event{Kind: events.KindWriteFailed, Network: network, Payload: lastErr.Error()})
	co.log.WithError(lastErr).WithField("network", network).Error("coordinator: graph write failed after retries")
	return lastErr
}

// handleBatch either replays a bulk operation delivery or, when it arrives
// empty with a requested range attached, triggers gap-fill recovery (spec
// §4.6 Gap fill).
func (co *Coordinator) handleBatch(cs *connState, msg ingest.BatchMsg, now time.Time) {
	if cs.network == "" {
		co.sendError(cs, "batch received before identify")
		return
	}
	network := cs.network
	ns := co.networkStateFor(network)

	if len(msg.Operations) == 0 && msg.RequestedRange != nil {
		forkHash := cs.conn.ActiveFork()
		if err := ns.recovery.GapFill(co.rootCtx, network, forkHash, co.applierFor()); err != nil {
			co.log.WithError(err).Warn("coordinator: gap fill failed, requesting missing range from upstream")
			co.sendJSON(cs, map[string]any{
				"type": "request_missing",
				"from": msg.RequestedRange.From,
				"to":   msg.RequestedRange.To,
			})
			return
		}
		co.bus.Publish(events.Event{Kind: events.KindIpfsBatchComplete, Network: network, Payload: map[string]any{
			"hash": forkHash,
			"from": msg.RequestedRange.From,
			"to":   msg.RequestedRange.To,
		}})
		return
	}

	forkHash := cs.conn.ActiveFork()
	for _, opm := range msg.Operations {
		op := ingest.Operation{
			Type: opm.Type, Path: opm.Path, Data: opm.Data,
			Index: opm.Index, BlockNum: opm.BlockNum, ForkHash: forkHash,
		}
		if err := ns.tracker.Append(forkHash, op, now); err != nil {
			co.log.WithError(err).Warn("coordinator: batch operation append failed")
			continue
		}
	}
	metrics.OperationsIngested.WithLabelValues(network, "batch").Add(float64(len(msg.Operations)))
}

// coordinatorApplier implements recovery.Applier by committing every
// operation recovery has buffered for one fork through the same path the
// live checkpoint-triggered commit uses: one Accumulator, one Transform
// pass per buffered operation, one Graph Client write. Recovery appends
// recovered operations into the Fork Tracker's buffer itself (the same
// buffer live ingest appends into) and calls Commit once the whole fork is
// buffered, so a recovered fork lands in a single transaction exactly like
// a normally-closed one, instead of one transaction per operation.
type coordinatorApplier struct {
	co *Coordinator
}

func (co *Coordinator) applierFor() recovery.Applier {
	return &coordinatorApplier{co: co}
}

func (a *coordinatorApplier) Commit(ctx context.Context, network, forkHash string) error {
	co := a.co
	ns := co.networkStateFor(network)

	f, ok := ns.tracker.Get(forkHash)
	if !ok {
		return nil
	}
	buf := f.Buffer()

	acc := transform.NewAccumulator()
	for _, op := range buf {
		if op.Type == ingest.OpWriteMarker {
			continue
		}
		opMsg := ingest.OperationMsg{
			Index: op.Index, BlockNum: op.BlockNum, Type: op.Type,
			Path: op.Path, Data: op.Data, ForkHash: op.ForkHash,
		}
		block := transform.BlockInfo{BlockNum: op.BlockNum, Timestamp: op.Timestamp}
		if err := co.transformer.Transform(acc, network, opMsg, block); err != nil {
			co.log.WithError(err).Warn("coordinator: recovery transform failed, dropping operation")
		}
	}
	_ = ns.tracker.Close(forkHash)

	muts, _ := acc.Drain()
	if len(muts) == 0 {
		return nil
	}

	client, ok := co.reg.Client(network)
	if !ok {
		return fmt.Errorf("coordinator: no graph client registered for network %s", network)
	}

	// Routed through the network's FIFO pool, same as the live commit path,
	// so a recovered fork's write is globally ordered with every other
	// write for this network; a buffered channel carries the result back
	// since Commit must report success/failure synchronously to recovery.
	errCh := make(chan error, 1)
	ns.pool.Submit(func(taskCtx context.Context) {
		errCh <- co.writeWithRetry(taskCtx, network, client, muts)
	})
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (co *Coordinator) sendJSON(cs *connState, v any) {
	if cs.ws == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	cs.wsMu.Lock()
	_ = cs.ws.WriteMessage(websocket.TextMessage, data)
	cs.wsMu.Unlock()
}

func (co *Coordinator) sendError(cs *connState, reason string) {
	co.sendJSON(cs, map[string]any{"type": "error", "error": reason})
}
