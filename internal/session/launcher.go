package session

import (
	"io"
	"time"

	"git.home.luguber.info/inful/fwbuilder/internal/events"
	"git.home.luguber.info/inful/fwbuilder/internal/runner"
)

// Proc abstracts a running headless build so tests can substitute a fake
// process for the real IDE.
type Proc interface {
	PID() int
	Stream(bus *events.Bus, sessionID string, comboIndex, tailLimit int, capture io.Writer) []string
	Wait() int
	WaitTimeout(d time.Duration) bool
	Interrupt() error
	Kill() error
}

// Launcher spawns one headless build per combination.
type Launcher interface {
	Start(req runner.Request) (Proc, error)
}

// execLauncher launches the real IDE process.
type execLauncher struct{}

func (execLauncher) Start(req runner.Request) (Proc, error) {
	p, err := runner.Start(req)
	if err != nil {
		return nil, err
	}
	return p, nil
}
