package eventbus

import (
	"testing"
	"time"
)

func TestPublishFanout(t *testing.T) {
	b := New()
	a, unsubA := b.Subscribe(4)
	c, unsubC := b.Subscribe(4)
	defer unsubA()
	defer unsubC()

	b.Publish(Event{Type: "toast.added", Data: "1"})

	for _, ch := range []<-chan Event{a, c} {
		select {
		case e := <-ch:
			if e.Type != "toast.added" || e.Data != "1" {
				t.Fatalf("unexpected event %+v", e)
			}
			if e.Time.IsZero() {
				t.Fatal("publish should stamp Time")
			}
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestSubscribeFilter(t *testing.T) {
	b := New()
	exact, u1 := b.Subscribe(4, "toast.removed")
	prefix, u2 := b.Subscribe(4, "toast.")
	defer u1()
	defer u2()

	b.Publish(Event{Type: "toast.added"})
	b.Publish(Event{Type: "toast.removed"})
	b.Publish(Event{Type: "config.reloaded"})

	if len(exact) != 1 {
		t.Fatalf("exact subscriber got %d events, want 1", len(exact))
	}
	if e := <-exact; e.Type != "toast.removed" {
		t.Fatalf("exact got %q", e.Type)
	}
	if len(prefix) != 2 {
		t.Fatalf("prefix subscriber got %d events, want 2", len(prefix))
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "x"})
	b.Publish(Event{Type: "x"})
	b.Publish(Event{Type: "x"})
	if got := b.Dropped(); got != 2 {
		t.Fatalf("Dropped = %d, want 2", got)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: "x"})
}
