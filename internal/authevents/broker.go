// Package authevents fans out auth state transitions to in-process
// subscribers. Each subscriber owns a buffered channel; a slow subscriber
// loses events rather than blocking the request that published them.
package authevents

import (
	"sync"
	"time"

	"github.com/ErlanBelekov/coach-portal/internal/metrics"
)

type Type string

const (
	SignedIn       Type = "signed_in"
	SignedOut      Type = "signed_out"
	TokenRefreshed Type = "token_refreshed"
)

type Event struct {
	Type   Type
	UserID string
	Email  string
	At     time.Time
}

// Publisher is what use cases depend on.
type Publisher interface {
	Publish(e Event)
}

type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]chan Event)}
}

// Subscribe registers a new subscriber. The returned function removes it and
// closes its channel; calling it more than once is safe. Subscribing to a
// closed broker yields an already-closed channel.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish never blocks.
func (b *Broker) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			metrics.AuthEventsDroppedTotal.Inc()
		}
	}
}

// Close closes every subscriber channel. Later publishes are discarded.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
