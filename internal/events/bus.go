package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Store defines the interface for persisting events.
// This is a subset of the eventstore API to avoid circular dependencies.
type Store interface {
	Append(ctx context.Context, sessionID string, eventType string, payload []byte) error
}

// Bus is a broadcast channel for build events. The process runner and session
// aggregator are the only publishers; any number of independent receivers may
// subscribe without the publisher depending on their presence or count.
type Bus struct {
	mu         sync.RWMutex
	subs       map[int]chan Event
	nextID     int
	bufferSize int
	store      Store // optional event store for persistence
	dropped    atomic.Int64
}

// NewBus creates a bus with the default per-subscriber buffer.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event), bufferSize: 256}
}

// NewBusWithStore creates a bus that persists events before broadcasting.
func NewBusWithStore(store Store) *Bus {
	b := NewBus()
	b.store = store
	return b
}

// Subscribe registers a receiver and returns its channel plus an unsubscribe
// function. The channel is closed on unsubscribe.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.bufferSize)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish delivers an event to all subscribers. Delivery never blocks the
// publisher: a subscriber whose buffer is full misses the event. If a store
// is configured, the event is persisted before delivery.
func (b *Bus) Publish(e Event) {
	if b.store != nil {
		if err := b.store.Append(context.Background(), e.SessionID, string(e.Type), e.Payload()); err != nil {
			slog.Warn("Failed to persist build event", "type", e.Type, "error", err)
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many events were not delivered to a subscriber
// because its buffer was full.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// Close unsubscribes all receivers.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
