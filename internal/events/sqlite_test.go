package events

import (
	"context"
	"testing"
	"time"
)

func TestSQLiteStore_GetRange(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, e := range []Event{
		LogEvent("s1", 0, StreamStdout, "compiling"),
		{Time: time.Now(), SessionID: "s2", Type: TypeSessionStarted},
	} {
		if err := store.Append(ctx, e.SessionID, string(e.Type), e.Payload()); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	now := time.Now()
	stored, err := store.GetRange(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 events in range, got %d", len(stored))
	}
	if stored[0].SessionID != "s1" || stored[1].SessionID != "s2" {
		t.Errorf("events out of insertion order: %+v", stored)
	}

	empty, err := store.GetRange(ctx, now.Add(-2*time.Hour), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no events outside the window, got %d", len(empty))
	}
}
