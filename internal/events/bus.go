// Package events implements the domain event fan-out described in the
// ingest pipeline's design notes: callbacks and a global broadcaster hook
// are replaced with per-instance, bounded channels so a slow subscriber
// cannot block the coordinator and no package-level mutable bus exists.
package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Kind names the domain events the Ingest Coordinator and Recovery
// Subsystem emit.
type Kind string

const (
	KindForkDetected      Kind = "fork:detected"
	KindCheckpoint        Kind = "checkpoint"
	KindOperation         Kind = "operation"
	KindRecoveryComplete  Kind = "recovery:complete"
	KindIpfsBatchComplete Kind = "ipfs:batch:complete"
	KindInvalidBoundary   Kind = "checkpoint:invalid_boundary"
	KindWriteFailed       Kind = "write:failed"
)

// Event is a single domain occurrence. Payload is kind-specific; consumers
// type-assert it based on Kind.
type Event struct {
	Kind    Kind
	Network string
	Payload any
}

// Bus fans events out to bounded per-subscriber channels. It owns no global
// state: callers construct one Bus per coordinator instance.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	cap    int
	log    *logrus.Logger
}

// NewBus creates a Bus whose subscriber channels are buffered to capacity
// entries. A full subscriber channel causes Publish to drop the event for
// that subscriber and log at warn, rather than block the publisher.
func NewBus(capacity int, log *logrus.Logger) *Bus {
	if capacity <= 0 {
		capacity = 64
	}
	if log == nil {
		log = logrus.New()
	}
	return &Bus{subs: make(map[int]chan Event), cap: capacity, log: log}
}

// Subscribe registers a new subscriber and returns its channel and an
// unsubscribe function. The channel is closed when Unsubscribe is called.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.cap)
	b.subs[id] = ch
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
		b.mu.Unlock()
	}
	return ch, unsub
}

// Publish fans out ev to every current subscriber, non-blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.log.WithFields(logrus.Fields{
				"kind":       ev.Kind,
				"network":    ev.Network,
				"subscriber": id,
			}).Warn("events: subscriber channel full, dropping event")
		}
	}
}

// SubscriberCount reports the number of live subscribers, mostly useful for
// tests and metrics.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
