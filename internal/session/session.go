// Package session runs one batch build end to end: it expands the request
// into combinations, drives the headless IDE once per combination, collects
// per-combination results and owns the cancellation state machine. At most
// one session runs per process.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/fwbuilder/internal/combo"
	"git.home.luguber.info/inful/fwbuilder/internal/config"
	buildererrors "git.home.luguber.info/inful/fwbuilder/internal/errors"
	"git.home.luguber.info/inful/fwbuilder/internal/events"
	"git.home.luguber.info/inful/fwbuilder/internal/expand"
	"git.home.luguber.info/inful/fwbuilder/internal/header"
	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
	"git.home.luguber.info/inful/fwbuilder/internal/metrics"
	"git.home.luguber.info/inful/fwbuilder/internal/observability"
	"git.home.luguber.info/inful/fwbuilder/internal/project"
	"git.home.luguber.info/inful/fwbuilder/internal/runner"
	"git.home.luguber.info/inful/fwbuilder/internal/schema"
	"git.home.luguber.info/inful/fwbuilder/internal/workspace"
)

// ErrSessionActive is returned when a session start races an already running
// session.
var ErrSessionActive = errors.New("a build session is already active")

// binSettleTimeout bounds how long we wait for the IDE to flush the .bin
// after the process exits.
const binSettleTimeout = 2 * time.Second

// Manager serializes build sessions: at most one runs at a time.
type Manager struct {
	bus      *events.Bus
	recorder metrics.Recorder
	launcher Launcher

	mu     sync.Mutex
	active *Controller
}

// NewManager creates a session manager publishing to bus.
func NewManager(bus *events.Bus, recorder metrics.Recorder) *Manager {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Manager{bus: bus, recorder: recorder, launcher: execLauncher{}}
}

// WithLauncher substitutes the process launcher (used by tests).
func (m *Manager) WithLauncher(l Launcher) *Manager {
	m.launcher = l
	return m
}

// Cancel requests cancellation of the active session, if any. Returns false
// when no session is running or a cancel is already in flight.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	ctrl := m.active
	m.mu.Unlock()
	if ctrl == nil {
		return false
	}
	return ctrl.RequestCancel()
}

// Run executes a full build session for the given request. Setup errors
// (schema, validation, explosion, project, workspace) reject the session
// synchronously before any side effect. Returns the summary together with any
// fatal error that aborted the session.
func (m *Manager) Run(ctx context.Context, cfg *config.Config, doc *schema.Document) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, buildererrors.Wrap(err, buildererrors.CategoryValidation, buildererrors.SeverityFatal,
			"invalid build request")
	}

	s, err := m.prepare(cfg, doc)
	if err != nil {
		return nil, err
	}

	ctrl := NewController(cfg.Policy.CancelGracePeriod)
	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	m.active = ctrl
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.active = nil
		m.mu.Unlock()
	}()

	return s.run(ctx, ctrl)
}

// session is the prepared, validated state of one batch build.
type session struct {
	id          string
	cfg         *config.Config
	doc         *schema.Document
	projectName string
	outputDir   string
	headerPath  string
	ldScripts   []string
	combos      []combo.Combination

	bus      *events.Bus
	recorder metrics.Recorder
	launcher Launcher
}

// prepare validates the request and expands it into combinations. Nothing
// here has side effects beyond creating the output directory.
func (m *Manager) prepare(cfg *config.Config, doc *schema.Document) (*session, error) {
	req := &cfg.Request

	if err := workspace.Validate(req.WorkspacePath); err != nil {
		return nil, err
	}
	if info, err := os.Stat(req.ProjectPath); err != nil || !info.IsDir() {
		return nil, buildererrors.New(buildererrors.CategoryProject, buildererrors.SeverityFatal,
			fmt.Sprintf("project directory %q not found", req.ProjectPath))
	}

	projectName := req.ProjectName
	if projectName == "" {
		name, err := project.Name(req.ProjectPath)
		if err != nil {
			return nil, err
		}
		projectName = name
	}
	ok, err := project.HasConfiguration(req.ProjectPath, req.ConfigName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, buildererrors.New(buildererrors.CategoryProject, buildererrors.SeverityFatal,
			fmt.Sprintf("configuration %q not found in .cproject", req.ConfigName))
	}
	ldScripts, err := project.LinkerScripts(req.ProjectPath)
	if err != nil {
		return nil, err
	}

	resolved, err := expand.ResolveAll(doc, req.Settings)
	if err != nil {
		return nil, err
	}
	combos, err := combo.Generate(resolved, cfg.Policy.MaxCombinations)
	if err != nil {
		return nil, err
	}
	if len(combos) == 0 {
		return nil, buildererrors.New(buildererrors.CategoryValidation, buildererrors.SeverityFatal,
			"no build combinations generated, check the build settings")
	}

	if err := os.MkdirAll(req.BuildDir, 0o755); err != nil {
		return nil, buildererrors.Wrap(err, buildererrors.CategoryValidation, buildererrors.SeverityFatal,
			fmt.Sprintf("create build directory %q", req.BuildDir))
	}

	include := runner.DefaultHeaderInclude
	return &session{
		id:          uuid.NewString(),
		cfg:         cfg,
		doc:         doc,
		projectName: projectName,
		outputDir:   req.BuildDir,
		headerPath:  filepath.Join(req.ProjectPath, filepath.FromSlash(include)),
		ldScripts:   ldScripts,
		combos:      combos,
		bus:         m.bus,
		recorder:    m.recorder,
		launcher:    m.launcher,
	}, nil
}

// run is the aggregator loop: strictly sequential, cancellation observed at
// combination boundaries, per-combination failures recorded without aborting.
func (s *session) run(ctx context.Context, ctrl *Controller) (*Summary, error) {
	ctx = observability.WithSessionID(ctx, s.id)
	summary := &Summary{SessionID: s.id, StartedAt: time.Now(), LinkerScripts: s.ldScripts}
	var fatal error
	consecutiveFailures := 0

	ctrl.Begin()
	s.recorder.SetActiveSession(true)
	s.recorder.SetSessionCombinations(len(s.combos))
	s.bus.Publish(events.Event{
		Time:      time.Now(),
		SessionID: s.id,
		Type:      events.TypeSessionStarted,
		Message:   fmt.Sprintf("starting %d build combinations", len(s.combos)),
	})
	observability.InfoContext(ctx, "Build session started",
		logfields.Path(s.cfg.Request.ProjectPath))
	if len(s.ldScripts) > 0 {
		observability.InfoContext(ctx, "Project linker scripts",
			slog.String("scripts", strings.Join(s.ldScripts, ", ")))
	}

	for i, c := range s.combos {
		if ctrl.CancelRequested() {
			summary.Cancelled = true
			s.skipRemaining(summary, s.combos[i:])
			break
		}

		res, err := s.runCombination(observability.WithComboIndex(ctx, c.Index), ctrl, c)
		summary.Results = append(summary.Results, res)
		s.recorder.IncCombinationResult(resultLabel(res.Classification))
		s.recorder.ObserveCombinationDuration(res.FinishedAt.Sub(res.StartedAt),
			resultLabel(res.Classification))

		if err != nil {
			// Launch and header errors are fatal: abort with partial results.
			fatal = err
			summary.Aborted = true
			s.skipRemaining(summary, s.combos[i+1:])
			break
		}

		switch res.Classification {
		case runner.ClassSuccess:
			consecutiveFailures = 0
		case runner.ClassFailure, runner.ClassTimedOut:
			consecutiveFailures++
			if limit := s.cfg.Policy.MaxConsecutiveFailures; limit > 0 && consecutiveFailures >= limit {
				observability.WarnContext(ctx, "Aborting session after consecutive build failures",
					logfields.ComboIndex(c.Index))
				fatal = buildererrors.New(buildererrors.CategoryBuild, buildererrors.SeverityFatal,
					fmt.Sprintf("%d consecutive build failures", consecutiveFailures))
				summary.Aborted = true
				s.skipRemaining(summary, s.combos[i+1:])
			}
		case runner.ClassCancelled:
			summary.Cancelled = true
			s.skipRemaining(summary, s.combos[i+1:])
		}
		if summary.Aborted || summary.Cancelled {
			break
		}
	}

	summary.FinishedAt = time.Now()
	summary.Success = !summary.Aborted && !summary.Cancelled && allSucceeded(summary.Results)

	s.writeSessionLog(summary)

	ctrl.Complete()
	s.recorder.ObserveSessionDuration(summary.FinishedAt.Sub(summary.StartedAt))
	s.recorder.IncSessionOutcome(summary.Outcome())
	s.recorder.SetActiveSession(false)
	s.bus.Publish(events.Event{
		Time:      time.Now(),
		SessionID: s.id,
		Type:      events.TypeSessionFinished,
		Outcome:   summary.Outcome(),
		Message:   fmt.Sprintf("%d of %d combinations succeeded", countSuccesses(summary.Results), len(s.combos)),
	})
	ctrl.Finish(s.bus, s.id)

	observability.InfoContext(ctx, "Build session finished",
		logfields.DurationMS(float64(summary.FinishedAt.Sub(summary.StartedAt).Milliseconds())))
	return summary, fatal
}

// runCombination builds one combination: header emit, spawn, stream, wait,
// classify, collect the binary. The returned error is non-nil only for fatal
// session-aborting conditions; build failures are reported in the result.
func (s *session) runCombination(ctx context.Context, ctrl *Controller, c combo.Combination) (AttemptResult, error) {
	res := AttemptResult{Index: c.Index, Combination: c, StartedAt: time.Now()}
	req := &s.cfg.Request

	s.bus.Publish(events.Event{
		Time:        time.Now(),
		SessionID:   s.id,
		Type:        events.TypeCombinationStarted,
		ComboIndex:  c.Index,
		Combination: c.String(),
	})
	observability.InfoContext(ctx, "Building combination", logfields.Combination(c.String()))

	comboDir := filepath.Join(s.outputDir, project.ComboDirName(c))
	if err := os.MkdirAll(comboDir, 0o755); err != nil {
		res.Classification = runner.ClassFailure
		res.FinishedAt = time.Now()
		return res, buildererrors.Wrap(err, buildererrors.CategorySession, buildererrors.SeverityFatal,
			fmt.Sprintf("create combination directory %q", comboDir))
	}
	base := project.ArtifactBase(s.projectName, req.ConfigName, c)
	binDst := filepath.Join(comboDir, base+".bin")
	if err := removeIfExists(binDst); err != nil {
		res.Classification = runner.ClassFailure
		res.FinishedAt = time.Now()
		return res, buildererrors.Wrap(err, buildererrors.CategorySession, buildererrors.SeverityFatal,
			fmt.Sprintf("remove stale artifact %q", binDst))
	}

	// The combination reaches the compiler only through the managed header.
	if err := header.Emit(s.headerPath, s.doc, c); err != nil {
		res.Classification = runner.ClassFailure
		res.FinishedAt = time.Now()
		return res, err
	}

	proc, err := s.launcher.Start(runner.Request{
		IDEPath:       req.IDEPath,
		ProjectDir:    req.ProjectPath,
		WorkspacePath: req.WorkspacePath,
		BuildTarget:   s.projectName + "/" + req.ConfigName,
		CleanBuild:    req.CleanBuild,
		CustomArgs:    req.CustomArgs,
	})
	if err != nil {
		res.Classification = runner.ClassFailure
		res.FinishedAt = time.Now()
		return res, err
	}
	ctrl.Attach(proc)
	defer ctrl.Attach(nil)

	capture, captureErr := os.Create(filepath.Join(comboDir, base+".txt"))
	if captureErr != nil {
		observability.WarnContext(ctx, "Failed to create combination log file", logfields.Error(captureErr))
	}

	var timedOut atomic.Bool
	var timer *time.Timer
	if d := s.cfg.Policy.BuildTimeout; d > 0 {
		timer = time.AfterFunc(d, func() {
			timedOut.Store(true)
			ctrl.Terminate(proc)
		})
	}

	tailDone := make(chan []string, 1)
	go func() {
		var w io.Writer
		if capture != nil {
			w = capture
		}
		tailDone <- proc.Stream(s.bus, s.id, c.Index, s.cfg.Policy.TailLimit, w)
	}()

	exitCode := proc.Wait()
	res.Tail = <-tailDone
	if timer != nil {
		timer.Stop()
	}
	if capture != nil {
		capture.Close()
	}

	switch {
	case timedOut.Load():
		res.Classification = runner.ClassTimedOut
	case ctrl.CancelRequested():
		res.Classification = runner.ClassCancelled
	default:
		res.Classification = runner.Classify(exitCode, res.Tail)
	}

	if res.Classification == runner.ClassSuccess {
		binSrc := filepath.Join(req.ProjectPath, req.ConfigName,
			strings.ToLower(s.projectName)+".bin")
		if err := collectBinary(binSrc, binDst); err != nil {
			observability.ErrorContext(ctx, "Build produced no binary", logfields.Error(err))
			res.Classification = runner.ClassFailure
		} else {
			res.BinPath = binDst
		}
	}

	res.FinishedAt = time.Now()
	s.bus.Publish(events.Event{
		Time:        time.Now(),
		SessionID:   s.id,
		Type:        events.TypeCombinationFinished,
		ComboIndex:  c.Index,
		Combination: c.String(),
		Outcome:     string(res.Classification),
	})
	observability.InfoContext(ctx, "Combination finished",
		logfields.ExitCode(exitCode),
		logfields.Stage(string(res.Classification)),
		logfields.DurationMS(float64(res.FinishedAt.Sub(res.StartedAt).Milliseconds())))
	return res, nil
}

// skipRemaining records the not-attempted combinations as skipped.
func (s *session) skipRemaining(summary *Summary, remaining []combo.Combination) {
	now := time.Now()
	for _, c := range remaining {
		summary.Results = append(summary.Results, AttemptResult{
			Index:          c.Index,
			Combination:    c,
			Classification: runner.ClassSkipped,
			StartedAt:      now,
			FinishedAt:     now,
		})
	}
}

// writeSessionLog writes the human-readable build_log.txt into the output
// directory.
func (s *session) writeSessionLog(summary *Summary) {
	path := filepath.Join(s.outputDir, "build_log.txt")
	var b strings.Builder
	fmt.Fprintf(&b, "session %s started %s\n", summary.SessionID, summary.StartedAt.Format(time.RFC3339))
	for _, r := range summary.Results {
		fmt.Fprintf(&b, "[%d] %s: %s\n", r.Index, r.Combination.String(), r.Classification)
	}
	fmt.Fprintf(&b, "outcome: %s\n", summary.Outcome())
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		slog.Warn("Failed to write session log", logfields.Path(path), logfields.Error(err))
	}
}

// collectBinary waits briefly for the IDE to flush the built binary, then
// moves it into the combination directory.
func collectBinary(src, dst string) error {
	deadline := time.Now().Add(binSettleTimeout)
	for {
		if _, err := os.Stat(src); err == nil {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("output file %q not found", src)
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move %q: %w", src, err)
	}
	return nil
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// resultLabel maps a build classification onto its metrics label.
func resultLabel(c runner.Classification) metrics.ResultLabel {
	switch c {
	case runner.ClassSuccess:
		return metrics.ResultSuccess
	case runner.ClassTimedOut:
		return metrics.ResultTimedOut
	case runner.ClassCancelled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}

func allSucceeded(results []AttemptResult) bool {
	for _, r := range results {
		if r.Classification != runner.ClassSuccess {
			return false
		}
	}
	return len(results) > 0
}

func countSuccesses(results []AttemptResult) int {
	n := 0
	for _, r := range results {
		if r.Classification == runner.ClassSuccess {
			n++
		}
	}
	return n
}
