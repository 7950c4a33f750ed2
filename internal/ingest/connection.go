package ingest

import (
	"sync"
	"time"
)

// Connection is the per-socket state described in spec §3: the node id and
// network prefix a client identified with, its liveness bookkeeping, and
// the fork it is currently attached to (PendingForkHash until the first
// checkpoint closes a fork under it).
type Connection struct {
	mu sync.RWMutex

	NodeID    string
	Network   string
	Connected time.Time

	lastMessage time.Time
	alive       bool
	activeFork  string
}

// NewConnection constructs a Connection in its pre-identify state: no node
// id or network yet, attached to the pending fork.
func NewConnection(now time.Time) *Connection {
	return &Connection{
		Connected:   now,
		lastMessage: now,
		alive:       true,
		activeFork:  PendingForkHash,
	}
}

// Identify records the node id and network declared by an identify message.
// Per spec §4.3 this must be the first message on a connection; callers
// enforce that ordering, Connection just records the result.
func (c *Connection) Identify(nodeID, network string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.NodeID = nodeID
	c.Network = network
	c.lastMessage = now
}

// Touch records activity on the connection, resetting the idle timer.
func (c *Connection) Touch(now time.Time) {
	c.mu.Lock()
	c.lastMessage = now
	c.mu.Unlock()
}

// LastMessage returns the timestamp of the most recent message received on
// this connection (or the connection time, if none yet).
func (c *Connection) LastMessage() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastMessage
}

// Idle reports whether the connection has been silent for at least d,
// measured against now (spec §5 idle timeout, default 90s).
func (c *Connection) Idle(d time.Duration, now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return now.Sub(c.lastMessage) >= d
}

// MarkDead flags the connection as no longer live, e.g. after a failed
// liveness probe or socket close.
func (c *Connection) MarkDead() {
	c.mu.Lock()
	c.alive = false
	c.mu.Unlock()
}

// Alive reports whether the connection is still considered live.
func (c *Connection) Alive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alive
}

// ActiveFork returns the hash of the fork this connection is currently
// attached to.
func (c *Connection) ActiveFork() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeFork
}

// SetActiveFork moves the connection onto a new fork, e.g. when a
// sendCheckpoint closes the current one and opens the next.
func (c *Connection) SetActiveFork(hash string) {
	c.mu.Lock()
	c.activeFork = hash
	c.mu.Unlock()
}
