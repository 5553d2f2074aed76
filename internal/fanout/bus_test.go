package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/Ap3pp3rs94/hookhub/internal/envelope"
)

func testEnvelope(path string) envelope.Envelope {
	return envelope.Envelope{Method: "GET", FullPath: path, Version: envelope.Version11}
}

func TestFanOutDeliversToAllAttachedSubscribers(t *testing.T) {
	bus := New()
	subs := make([]*Subscription, 3)
	for i := range subs {
		subs[i] = bus.Subscribe()
	}

	delivered := bus.Publish(testEnvelope("/a"))
	if delivered != 3 {
		t.Fatalf("Publish delivered=%d, want 3", delivered)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i, sub := range subs {
		env, err := sub.Recv(ctx)
		if err != nil {
			t.Fatalf("subscriber %d Recv: %v", i, err)
		}
		if env.FullPath != "/a" {
			t.Fatalf("subscriber %d got %q, want /a", i, env.FullPath)
		}
	}
}

func TestSubscriberAttachedAfterPublishSeesNothing(t *testing.T) {
	bus := New()
	early := bus.Subscribe()
	bus.Publish(testEnvelope("/before"))
	late := bus.Subscribe()
	bus.Publish(testEnvelope("/after"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	env, err := early.Recv(ctx)
	if err != nil || env.FullPath != "/before" {
		t.Fatalf("early subscriber: env=%+v err=%v, want /before", env, err)
	}
	env, err = early.Recv(ctx)
	if err != nil || env.FullPath != "/after" {
		t.Fatalf("early subscriber second recv: env=%+v err=%v, want /after", env, err)
	}

	env, err = late.Recv(ctx)
	if err != nil || env.FullPath != "/after" {
		t.Fatalf("late subscriber: env=%+v err=%v, want only /after", env, err)
	}
}

func TestLaggingSubscriberIsDetachedWithoutLosingOthers(t *testing.T) {
	bus := New()
	slow := bus.Subscribe()
	healthy := bus.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// The healthy subscriber keeps up with every publish; the slow one
	// never reads.
	received := 0
	for i := 0; i < Capacity+1; i++ {
		bus.Publish(testEnvelope("/x"))
		if _, err := healthy.Recv(ctx); err != nil {
			t.Fatalf("healthy subscriber recv %d: %v", i, err)
		}
		received++
	}

	// The slow subscriber's ring is full (Capacity items); the next
	// publish detaches it. Drain what it did receive, then expect
	// ErrDetached instead of blocking forever.
	for i := 0; i < Capacity; i++ {
		if _, err := slow.Recv(ctx); err != nil {
			t.Fatalf("slow subscriber recv %d: %v", i, err)
		}
	}
	if _, err := slow.Recv(ctx); err != ErrDetached {
		t.Fatalf("slow subscriber final recv: err=%v, want ErrDetached", err)
	}

	if received != Capacity+1 {
		t.Fatalf("healthy subscriber received %d, want %d", received, Capacity+1)
	}

	// Further publishes keep reaching the healthy subscriber.
	bus.Publish(testEnvelope("/more"))
	env, err := healthy.Recv(ctx)
	if err != nil || env.FullPath != "/more" {
		t.Fatalf("healthy subscriber after detach: env=%+v err=%v", env, err)
	}
}

func TestPublishWithZeroSubscribersSucceeds(t *testing.T) {
	bus := New()
	if got := bus.Publish(testEnvelope("/none")); got != 0 {
		t.Fatalf("Publish with no subscribers delivered=%d, want 0", got)
	}
}
