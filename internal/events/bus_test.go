package events

import (
	"context"
	"testing"
	"time"
)

func TestBus_BroadcastToAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch1, unsub1 := bus.Subscribe()
	ch2, unsub2 := bus.Subscribe()
	defer unsub1()
	defer unsub2()

	e := LogEvent("s1", 0, StreamStdout, "compiling main.c")
	bus.Publish(e)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got.Line != "compiling main.c" {
				t.Errorf("subscriber %d: unexpected line %q", i, got.Line)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: no event received", i)
		}
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch, unsub := bus.Subscribe()
	unsub()
	if _, ok := <-ch; ok {
		t.Error("channel must be closed after unsubscribe")
	}
	// Unsubscribing twice must not panic.
	unsub()
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	_, unsub := bus.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Overflow the subscriber buffer without anyone draining it.
		for i := 0; i < 1000; i++ {
			bus.Publish(LogEvent("s1", 0, StreamStdout, "line"))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	if bus.Dropped() == 0 {
		t.Error("expected dropped events to be counted")
	}
}

func TestBus_StorePersistsBeforeBroadcast(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	bus := NewBusWithStore(store)
	defer bus.Close()

	bus.Publish(LogEvent("session-42", 1, StreamStderr, "undefined reference"))
	bus.Publish(Event{Time: time.Now(), SessionID: "session-42", Type: TypeSessionFinished, Outcome: "failed"})

	stored, err := store.GetBySessionID(context.Background(), "session-42")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored events, got %d", len(stored))
	}

	first, err := stored[0].Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Type != TypeLog || first.Line != "undefined reference" {
		t.Errorf("unexpected first event: %+v", first)
	}
	if stored[1].EventType != string(TypeSessionFinished) {
		t.Errorf("unexpected second event type %q", stored[1].EventType)
	}
}
