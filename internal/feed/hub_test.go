package feed

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(4)
	defer cancel()

	h.Publish(Event{Kind: KindSessionStarted, SessionID: "s1", CompName: "Splash The Cash"})

	select {
	case ev := <-ch:
		if ev.Kind != KindSessionStarted || ev.SessionID != "s1" {
			t.Errorf("event = %+v", ev)
		}
		if ev.At.IsZero() {
			t.Error("At not stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(4)
	cancel()

	h.Publish(Event{Kind: KindOutcome})

	select {
	case ev, ok := <-ch:
		if ok {
			t.Errorf("received %+v after cancel", ev)
		}
	default:
	}
}

// A full subscriber buffer must never block the publisher.
func TestPublishNonBlocking(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(Event{Kind: KindChunkTranscript})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe(1)
	b, cancelB := h.Subscribe(1)
	defer cancelA()
	defer cancelB()

	h.Publish(Event{Kind: KindDelivery})

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.Kind != KindDelivery {
				t.Errorf("%s: kind = %q", name, ev.Kind)
			}
		case <-time.After(time.Second):
			t.Errorf("%s: no event", name)
		}
	}
}
