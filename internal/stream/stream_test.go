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

	a := s.Subscribe(ctx)
	b := s.Subscribe(ctx)

	evt := AccessEvent{EmployeeID: 1, FileName: "handbook.pdf", Action: "view", Timestamp: time.Now()}
	s.Publish(evt)

	for _, ch := range []<-chan AccessEvent{a, b} {
		select {
		case got := <-ch:
			if got.FileName != "handbook.pdf" {
				t.Fatalf("unexpected event %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive the event")
		}
	}
}

func TestSubscribeClosesOnContextCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected a closed channel, got an event")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after cancel")
	}

	// Publishing after unsubscribe must not panic or block.
	s.Publish(AccessEvent{EmployeeID: 1, Action: "view"})
}

func TestPublishDropsWhenSubscriberIsSlow(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)

	// Overfill the buffer; the extra events are dropped, never blocking Publish.
	for i := 0; i < 50; i++ {
		s.Publish(AccessEvent{EmployeeID: int64(i), Action: "view"})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}
	if received == 0 || received > 16 {
		t.Fatalf("expected up to one buffer of events, got %d", received)
	}
}
