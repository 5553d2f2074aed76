// Package fanout implements the in-process broadcast bus that
// multicasts captured envelopes to every currently-connected
// subscriber.
package fanout

import (
	"context"
	"sync"

	"github.com/Ap3pp3rs94/hookhub/internal/envelope"
)

// Capacity is the fixed size of each subscriber's independent ring.
// A subscriber that falls this far behind is detached rather than
// allowed to block the producer.
const Capacity = 50

// Bus is a single broadcast endpoint, created once per server process.
// Publish is non-blocking and never fails: a slow subscriber is
// detached rather than allowed to apply back-pressure to the
// producer. The bus itself is safe for concurrent Subscribe calls;
// Publish is expected to be called from a single producer, matching
// the public intake handler's single-threaded-per-request nature.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
	next int
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscription is a fresh receiver that observes only envelopes
// published after Subscribe returned. It is not safe for concurrent
// use by multiple goroutines.
type Subscription struct {
	id     int
	ch     chan envelope.Envelope
	bus    *Bus
	closed bool
}

// Subscribe registers a new subscriber and returns its handle. No
// backfill: only envelopes published strictly after this call are
// observed.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	sub := &Subscription{
		id:  b.next,
		ch:  make(chan envelope.Envelope, Capacity),
		bus: b,
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe detaches sub from the bus. Safe to call more than once
// and safe to call from a different goroutine than the one reading
// Recv.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detachLocked(sub)
}

func (b *Bus) detachLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish delivers env to every current subscriber without blocking.
// It returns the number of subscribers the envelope was actually
// delivered to. A subscriber whose ring is full is considered
// lagging and is detached; Publish continues delivering to the rest.
func (b *Bus) Publish(env envelope.Envelope) (delivered int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lagging := make([]*Subscription, 0)
	for sub := range b.subs {
		select {
		case sub.ch <- env:
			delivered++
		default:
			lagging = append(lagging, sub)
		}
	}
	for _, sub := range lagging {
		b.detachLocked(sub)
	}
	return delivered
}

// Chan exposes the subscription's receive channel directly, for
// callers that need to select over it alongside other channels. A
// closed channel (ok == false on receive) means the subscription has
// been detached.
func (s *Subscription) Chan() <-chan envelope.Envelope {
	return s.ch
}

// Recv blocks until the next envelope is available, the subscription
// is detached (lagging or server shutdown), or ctx is cancelled.
// ErrDetached distinguishes a deliberate detach from a bare channel
// close so callers can log accordingly.
func (s *Subscription) Recv(ctx context.Context) (envelope.Envelope, error) {
	select {
	case env, ok := <-s.ch:
		if !ok {
			return envelope.Envelope{}, ErrDetached
		}
		return env, nil
	case <-ctx.Done():
		return envelope.Envelope{}, ctx.Err()
	}
}

// Close detaches the subscription from its bus. Idempotent.
func (s *Subscription) Close() {
	s.bus.Unsubscribe(s)
}
