package session

import (
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/fwbuilder/internal/events"
	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
)

// Controller is the cancellation state machine for one build session.
//
// Transitions: Idle → Running → {Completed | CancelRequested → Cancelled} →
// Idle. CancelRequested is entered at most once; cancelling a session that
// has already completed is a silent no-op. The cancellation-acknowledged
// event is emitted exactly once, after the child process tree is confirmed
// gone and the controller is back at Idle.
type Controller struct {
	mu    sync.Mutex
	state State
	grace time.Duration
	proc  Proc // currently running child, nil between combinations

	ackOnce sync.Once
}

// NewController creates a controller with the given termination grace period.
func NewController(grace time.Duration) *Controller {
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Controller{state: StateIdle, grace: grace}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Begin transitions Idle → Running.
func (c *Controller) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateRunning
}

// Attach registers the currently running child so a cancel request can reach
// it. Detach with Attach(nil) once the child has exited.
func (c *Controller) Attach(p Proc) {
	c.mu.Lock()
	proc := p
	requested := c.state == StateCancelRequested
	c.proc = p
	c.mu.Unlock()

	// A cancel that raced an attach still has to stop the new child.
	if requested && proc != nil {
		go c.terminate(proc)
	}
}

// RequestCancel asks the session to stop. The first call on a running session
// transitions to CancelRequested, signals the child's process group and
// returns true. Later calls, or calls on a session that is not running, do
// nothing and return false.
func (c *Controller) RequestCancel() bool {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return false
	}
	c.state = StateCancelRequested
	proc := c.proc
	c.mu.Unlock()

	slog.Info("Cancellation requested")
	if proc != nil {
		go c.terminate(proc)
	}
	return true
}

// CancelRequested reports whether a cancel has been observed. The aggregator
// polls this at combination boundaries.
func (c *Controller) CancelRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateCancelRequested
}

// Terminate stops the given child: cooperative interrupt first, then a hard
// kill of the process group once the grace period elapses. Used both by
// cancellation and by the per-build timeout.
func (c *Controller) Terminate(p Proc) {
	c.terminate(p)
}

func (c *Controller) terminate(p Proc) {
	if err := p.Interrupt(); err != nil {
		slog.Debug("Interrupt failed, escalating", logfields.PID(p.PID()), logfields.Error(err))
	}
	if p.WaitTimeout(c.grace) {
		return
	}
	slog.Warn("Child did not exit within grace period, killing process group",
		logfields.PID(p.PID()), logfields.DurationMS(float64(c.grace.Milliseconds())))
	if err := p.Kill(); err != nil {
		slog.Warn("Kill failed", logfields.PID(p.PID()), logfields.Error(err))
	}
	p.Wait()
}

// Complete transitions Running → Completed. A session already in
// CancelRequested stays there; Finish settles it.
func (c *Controller) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning {
		c.state = StateCompleted
	}
}

// Finish settles the controller back to Idle. If a cancel was requested, the
// session is marked Cancelled and exactly one cancellation-acknowledged event
// is published; by the time Finish runs, every child has been waited on, so
// the tree is known to be gone.
func (c *Controller) Finish(bus *events.Bus, sessionID string) {
	c.mu.Lock()
	wasCancelled := c.state == StateCancelRequested
	if wasCancelled {
		c.state = StateCancelled
	}
	c.proc = nil
	c.state = StateIdle
	c.mu.Unlock()

	if wasCancelled {
		c.ackOnce.Do(func() {
			bus.Publish(events.Event{
				Time:      time.Now(),
				SessionID: sessionID,
				Type:      events.TypeCancelAcknowledged,
				Message:   "build cancelled, process tree terminated",
			})
		})
	}
}
