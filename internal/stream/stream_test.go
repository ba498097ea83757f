package stream

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := s.Subscribe(ctx)
	second := s.Subscribe(ctx)
	if s.Subscribers() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", s.Subscribers())
	}

	s.Publish(Event{Type: "shipment.update", Resource: "shipment", ID: "s-1"})

	for _, ch := range []<-chan Event{first, second} {
		select {
		case e := <-ch:
			if e.ID != "s-1" {
				t.Fatalf("unexpected event: %+v", e)
			}
			if e.Timestamp.IsZero() {
				t.Fatal("expected timestamp to be filled in")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	// Overfill the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(Event{Type: "purchase_order.update", ID: "po-1"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
	if len(ch) == 0 {
		t.Fatal("expected buffered events")
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Subscribe(ctx)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				if s.Subscribers() != 0 {
					t.Fatalf("expected 0 subscribers, got %d", s.Subscribers())
				}
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after context cancel")
		}
	}
}
