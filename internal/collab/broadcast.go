package collab

import (
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// subscriberBuffer is the per-subscriber event buffer size. A subscriber that
// falls this far behind starts losing events and is told how many it missed.
const subscriberBuffer = 256

// Subscription is one connection's handle on a document broadcast channel.
type Subscription struct {
	id     string
	events chan Event
	done   chan struct{}
	missed atomic.Int64
}

// ID identifies the subscription.
func (s *Subscription) ID() string { return s.id }

// Events is the stream of broadcast events. It is never closed; receivers
// must also select on Done.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed when the subscription is removed from its channel.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// TakeMissed returns the number of events dropped since the last call and
// resets the count. A non-zero result means the subscriber should trigger a
// full resync with the document layer.
func (s *Subscription) TakeMissed() int {
	return int(s.missed.Swap(0))
}

// broadcaster fans events out to every subscriber of one document. Publish
// never blocks: a full subscriber buffer drops the event for that subscriber
// and bumps its missed count.
type broadcaster struct {
	mu   sync.Mutex
	subs map[string]*Subscription
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[string]*Subscription)}
}

func (b *broadcaster) subscribe() *Subscription {
	sub := &Subscription{
		id:     xid.New().String(),
		events: make(chan Event, subscriberBuffer),
		done:   make(chan struct{}),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub.id] = sub
	return sub
}

func (b *broadcaster) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.done)
	}
}

// publish delivers ev to all current subscribers and reports how many
// deliveries were dropped.
func (b *broadcaster) publish(ev Event) (delivered, dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.events <- ev:
			delivered++
		default:
			sub.missed.Add(1)
			dropped++
		}
	}
	return delivered, dropped
}

// closeAll tears the channel down with its session. Any event published in
// the gap before the next session is created is lost by construction.
func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.done)
	}
}
