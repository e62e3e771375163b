package session

import (
	"testing"
	"time"

	"git.home.luguber.info/inful/fwbuilder/internal/events"
)

func TestController_CancelOnIdleIsNoop(t *testing.T) {
	c := NewController(time.Second)
	if c.RequestCancel() {
		t.Error("cancel on an idle controller must be a no-op")
	}
	if c.State() != StateIdle {
		t.Errorf("expected idle, got %s", c.State())
	}
}

func TestController_CancelEnteredAtMostOnce(t *testing.T) {
	c := NewController(time.Second)
	c.Begin()
	if !c.RequestCancel() {
		t.Fatal("first cancel on a running session must succeed")
	}
	if c.RequestCancel() {
		t.Error("second cancel must be a no-op")
	}
	if !c.CancelRequested() {
		t.Error("cancel flag must be observable")
	}
}

func TestController_CancelAfterCompleteIsNoop(t *testing.T) {
	c := NewController(time.Second)
	c.Begin()
	c.Complete()
	if c.RequestCancel() {
		t.Error("cancel after completion must be a silent no-op")
	}
	if c.State() != StateCompleted {
		t.Errorf("expected completed, got %s", c.State())
	}
}

func TestController_FinishEmitsSingleAck(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch, unsub := bus.Subscribe()
	defer unsub()

	c := NewController(time.Second)
	c.Begin()
	c.RequestCancel()
	c.Finish(bus, "s1")
	c.Finish(bus, "s1") // a second settle must not re-emit

	acks := 0
	timeout := time.After(time.Second)
	for acks == 0 {
		select {
		case e := <-ch:
			if e.Type == events.TypeCancelAcknowledged {
				acks++
			}
		case <-timeout:
			t.Fatal("no cancel-acknowledged event received")
		}
	}

	select {
	case e := <-ch:
		if e.Type == events.TypeCancelAcknowledged {
			t.Fatal("cancel-acknowledged emitted more than once")
		}
	case <-time.After(100 * time.Millisecond):
	}
	if c.State() != StateIdle {
		t.Errorf("expected idle after finish, got %s", c.State())
	}
}

func TestController_FinishWithoutCancelEmitsNothing(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch, unsub := bus.Subscribe()
	defer unsub()

	c := NewController(time.Second)
	c.Begin()
	c.Complete()
	c.Finish(bus, "s1")

	select {
	case e := <-ch:
		t.Fatalf("unexpected event after clean completion: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}
