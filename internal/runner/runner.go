package runner

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/events"
	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
)

// DefaultTailLimit bounds how many output lines an attempt result retains.
const DefaultTailLimit = 200

// Proc is a running headless build. It owns the child's process group so the
// whole tree (launcher plus compilers it forks) can be signalled together.
type Proc struct {
	cmd      *exec.Cmd
	pid      int
	lines    chan taggedLine
	waitOnce sync.Once
	waitErr  error
	state    *os.ProcessState

	mu   sync.Mutex
	tail []string
}

type taggedLine struct {
	stream string
	text   string
}

// Start spawns the headless build described by req in its own process group
// and begins scanning stdout and stderr. Launch failures are returned as
// fatal launch errors.
func Start(req Request) (*Proc, error) {
	args := Args(req)
	cmd := exec.Command(req.IDEPath, args...)
	cmd.Dir = req.ProjectDir
	setSysProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, buildererrors.Wrap(err, buildererrors.CategoryLaunch, buildererrors.SeverityFatal,
			"create stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, buildererrors.Wrap(err, buildererrors.CategoryLaunch, buildererrors.SeverityFatal,
			"create stderr pipe")
	}

	slog.Info("Launching headless build", "command", CommandLine(req.IDEPath, args))
	if err := cmd.Start(); err != nil {
		return nil, classifyLaunchError(req.IDEPath, err)
	}

	p := &Proc{cmd: cmd, pid: cmd.Process.Pid, lines: make(chan taggedLine, 64)}

	var readers sync.WaitGroup
	readers.Add(2)
	go p.scan(&readers, events.StreamStdout, stdout)
	go p.scan(&readers, events.StreamStderr, stderr)
	go func() {
		readers.Wait()
		close(p.lines)
	}()

	return p, nil
}

// PID returns the child's process id.
func (p *Proc) PID() int { return p.pid }

func (p *Proc) scan(wg *sync.WaitGroup, stream string, r io.Reader) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.lines <- taggedLine{stream: stream, text: scanner.Text()}
	}
	if err := scanner.Err(); err != nil {
		slog.Debug("Output scan ended with error", "stream", stream, logfields.Error(err))
	}
}

// Stream publishes each output line as a tagged log event on the bus and
// appends it to the capture file if one is open. It returns the bounded tail
// once both streams are drained. Stream must be called exactly once per Proc.
func (p *Proc) Stream(bus *events.Bus, sessionID string, comboIndex, tailLimit int, capture io.Writer) []string {
	if tailLimit <= 0 {
		tailLimit = DefaultTailLimit
	}
	for line := range p.lines {
		tagged := fmt.Sprintf("[%s] %s", line.stream, line.text)
		if capture != nil {
			fmt.Fprintln(capture, tagged)
		}
		bus.Publish(events.LogEvent(sessionID, comboIndex, line.stream, line.text))

		p.mu.Lock()
		p.tail = append(p.tail, tagged)
		if len(p.tail) > tailLimit {
			p.tail = p.tail[len(p.tail)-tailLimit:]
		}
		p.mu.Unlock()
	}
	return p.Tail()
}

// Tail returns a copy of the retained output tail.
func (p *Proc) Tail() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.tail))
	copy(out, p.tail)
	return out
}

// Wait blocks until the child exits and returns its exit code. Safe to call
// from multiple goroutines; the underlying wait happens once.
func (p *Proc) Wait() int {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		p.state = p.cmd.ProcessState
	})
	if p.state != nil {
		return p.state.ExitCode()
	}
	return -1
}

// Interrupt asks the process group to stop cooperatively (SIGINT on unix).
func (p *Proc) Interrupt() error {
	return interruptGroup(p.pid)
}

// Kill forcibly terminates the process group.
func (p *Proc) Kill() error {
	return killGroup(p.pid)
}

// WaitTimeout waits for the child to exit, giving up after d. It reports
// whether the child exited within the window.
func (p *Proc) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
