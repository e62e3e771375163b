package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/fwbuilder/internal/combo"
	"git.home.luguber.info/inful/fwbuilder/internal/config"
	"git.home.luguber.info/inful/fwbuilder/internal/daemon"
	"git.home.luguber.info/inful/fwbuilder/internal/events"
	"git.home.luguber.info/inful/fwbuilder/internal/expand"
	"git.home.luguber.info/inful/fwbuilder/internal/metrics"
	"git.home.luguber.info/inful/fwbuilder/internal/project"
	"git.home.luguber.info/inful/fwbuilder/internal/schema"
	"git.home.luguber.info/inful/fwbuilder/internal/session"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"fwbuilder.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
	} `cmd:"" help:"Run the batch build for every settings combination"`

	Plan struct {
	} `cmd:"" help:"Expand the settings into combinations without building"`

	Init struct {
		Force bool `help:"Overwrite existing files"`
	} `cmd:"" help:"Initialize a configuration file and settings schema"`

	Validate struct {
		Watch bool `short:"w" help:"Keep watching the schema file and re-validate on change"`
	} `cmd:"" help:"Validate the settings schema and the build request"`

	Daemon struct {
	} `cmd:"" help:"Run scheduled unattended builds"`

	Events struct {
		SessionID string        `arg:"" optional:"" help:"Session id to print; omit with --since"`
		Since     time.Duration `help:"Print events from the last duration instead of one session"`
	} `cmd:"" help:"Print persisted events from the event store"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	var err error
	switch ctx.Command() {
	case "build":
		err = runBuild()
	case "plan":
		err = runPlan()
	case "init":
		err = runInit(CLI.Config, CLI.Init.Force)
	case "validate":
		err = runValidate(CLI.Validate.Watch)
	case "daemon":
		err = runDaemon()
	case "events <session-id>", "events":
		err = runEvents(CLI.Events.SessionID, CLI.Events.Since)
	}
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func loadAll() (*config.Config, *schema.Document, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, nil, err
	}
	doc, err := schema.Load(cfg.Request.SchemaPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, doc, nil
}

// buildStack wires the event bus, persistence, forwarding and metrics from
// the policy section.
func buildStack(cfg *config.Config) (*events.Bus, metrics.Recorder, *prom.Registry, func(), error) {
	var closers []func()

	var bus *events.Bus
	if cfg.Policy.EventStorePath != "" {
		store, err := events.NewSQLiteStore(cfg.Policy.EventStorePath)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		closers = append(closers, func() { _ = store.Close() })
		bus = events.NewBusWithStore(store)
	} else {
		bus = events.NewBus()
	}

	forwarderCtx, stopForwarder := context.WithCancel(context.Background())
	if cfg.Policy.NATS.Enabled {
		fwd, err := events.NewForwarder(cfg.Policy.NATS)
		if err != nil {
			stopForwarder()
			for _, c := range closers {
				c()
			}
			return nil, nil, nil, nil, err
		}
		go fwd.Run(forwarderCtx, bus)
		closers = append(closers, func() { _ = fwd.Close() })
	}

	registry := prom.NewRegistry()
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Policy.MetricsListen != "" {
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	cleanup := func() {
		stopForwarder()
		bus.Close()
		for _, c := range closers {
			c()
		}
	}
	return bus, recorder, registry, cleanup, nil
}

func runBuild() error {
	cfg, doc, err := loadAll()
	if err != nil {
		return err
	}

	bus, recorder, _, cleanup, err := buildStack(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	manager := session.NewManager(bus, recorder)

	// Print the event stream to stdout while the session runs.
	sub, unsubscribe := bus.Subscribe()
	printerDone := make(chan struct{})
	go func() {
		defer close(printerDone)
		for e := range sub {
			switch e.Type {
			case events.TypeLog:
				fmt.Printf("[%s] %s\n", e.Stream, e.Line)
			case events.TypeCombinationStarted:
				fmt.Printf("--- combination %d: %s\n", e.ComboIndex, e.Combination)
			case events.TypeCombinationFinished:
				fmt.Printf("--- combination %d: %s\n", e.ComboIndex, e.Outcome)
			case events.TypeCancelAcknowledged:
				fmt.Println("--- build cancelled")
			case events.TypeSessionFinished:
				fmt.Printf("=== session finished: %s (%s)\n", e.Outcome, e.Message)
			}
		}
	}()

	// First SIGINT cancels cooperatively, second one exits hard.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		slog.Info("Interrupt received, cancelling build session")
		manager.Cancel()
		<-sigCh
		slog.Error("Second interrupt, exiting immediately")
		os.Exit(130)
	}()

	summary, err := manager.Run(context.Background(), cfg, doc)
	unsubscribe()
	<-printerDone
	if err != nil {
		return err
	}
	if !summary.Success {
		return fmt.Errorf("session %s finished with outcome %s", summary.SessionID, summary.Outcome())
	}
	return nil
}

func runPlan() error {
	cfg, doc, err := loadAll()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	resolved, err := expand.ResolveAll(doc, cfg.Request.Settings)
	if err != nil {
		return err
	}
	combos, err := combo.Generate(resolved, cfg.Policy.MaxCombinations)
	if err != nil {
		return err
	}

	fmt.Printf("%d combinations:\n", len(combos))
	for _, c := range combos {
		fmt.Printf("  [%d] %s\n", c.Index, c.String())
	}
	if scripts, err := project.LinkerScripts(cfg.Request.ProjectPath); err == nil && len(scripts) > 0 {
		fmt.Printf("linker scripts: %s\n", strings.Join(scripts, ", "))
	}
	return nil
}

func runInit(configPath string, force bool) error {
	slog.Info("Initializing configuration", "path", configPath, "force", force)
	if err := config.Init(configPath, force); err != nil {
		return err
	}
	return schema.Init("build_settings.yaml", force)
}

func runValidate(watch bool) error {
	cfg, doc, err := loadAll()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := expand.ResolveAll(doc, cfg.Request.Settings); err != nil {
		return err
	}
	fmt.Println("configuration and schema are valid")

	if !watch {
		return nil
	}

	watcher, err := schema.NewWatcher(cfg.Request.SchemaPath, func(doc *schema.Document, err error) {
		if err != nil {
			slog.Error("Schema invalid", "error", err)
			return
		}
		if _, err := expand.ResolveAll(doc, cfg.Request.Settings); err != nil {
			slog.Error("Request invalid against reloaded schema", "error", err)
			return
		}
		slog.Info("Schema reloaded and valid")
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	<-ctx.Done()
	return nil
}

// runEvents replays persisted events from the store: everything one session
// emitted, or everything within the trailing --since window.
func runEvents(sessionID string, since time.Duration) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if cfg.Policy.EventStorePath == "" {
		return fmt.Errorf("no event store configured (policy.event_store_path)")
	}

	store, err := events.NewSQLiteStore(cfg.Policy.EventStorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	var stored []events.StoredEvent
	switch {
	case sessionID != "":
		stored, err = store.GetBySessionID(context.Background(), sessionID)
	case since > 0:
		now := time.Now()
		stored, err = store.GetRange(context.Background(), now.Add(-since), now)
	default:
		return fmt.Errorf("provide a session id or --since")
	}
	if err != nil {
		return err
	}

	for _, se := range stored {
		e, derr := se.Decode()
		if derr != nil {
			fmt.Printf("%s %s (undecodable: %v)\n", se.Timestamp.Format(time.RFC3339), se.EventType, derr)
			continue
		}
		switch e.Type {
		case events.TypeLog:
			fmt.Printf("%s %s [%s] %s\n", e.Time.Format(time.RFC3339), e.SessionID, e.Stream, e.Line)
		default:
			fmt.Printf("%s %s %s %s %s\n", e.Time.Format(time.RFC3339), e.SessionID, e.Type, e.Outcome, e.Message)
		}
	}
	return nil
}

func runDaemon() error {
	cfg, _, err := loadAll()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	bus, recorder, registry, cleanup, err := buildStack(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	manager := session.NewManager(bus, recorder)
	d, err := daemon.New(cfg, manager, registry)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return d.Run(ctx)
}
