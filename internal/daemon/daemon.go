// Package daemon runs the engine unattended: scheduled batch builds via cron
// expressions plus an HTTP endpoint exposing Prometheus metrics.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/fwbuilder/internal/config"
	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
	"git.home.luguber.info/inful/fwbuilder/internal/metrics"
	"git.home.luguber.info/inful/fwbuilder/internal/schema"
	"git.home.luguber.info/inful/fwbuilder/internal/session"
)

// Daemon owns the scheduler and the metrics HTTP server.
type Daemon struct {
	cfg       *config.Config
	manager   *session.Manager
	registry  *prom.Registry
	scheduler gocron.Scheduler
	server    *http.Server
}

// New creates a daemon for the given configuration.
func New(cfg *config.Config, manager *session.Manager, registry *prom.Registry) (*Daemon, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Daemon{cfg: cfg, manager: manager, registry: registry, scheduler: s}, nil
}

// Run schedules the cron build job, starts the metrics server and blocks
// until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	_, err := d.scheduler.NewJob(
		gocron.CronJob(d.cfg.Daemon.Schedule, false),
		gocron.NewTask(d.executeBuild, ctx),
		gocron.WithName("scheduled-build"),
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduled build job: %w", err)
	}

	slog.Info("Starting scheduler", "schedule", d.cfg.Daemon.Schedule)
	d.scheduler.Start()

	if addr := d.cfg.Policy.MetricsListen; addr != "" {
		d.serveMetrics(addr)
	}

	<-ctx.Done()
	return d.Stop()
}

// executeBuild is called by gocron to run one scheduled session. A session
// already in flight (a long build overrunning the schedule) skips the tick.
func (d *Daemon) executeBuild(ctx context.Context) {
	doc, err := schema.Load(d.cfg.Request.SchemaPath)
	if err != nil {
		slog.Error("Scheduled build: failed to load schema", logfields.Error(err))
		return
	}

	slog.Info("Executing scheduled build")
	summary, err := d.manager.Run(ctx, d.cfg, doc)
	if errors.Is(err, session.ErrSessionActive) {
		slog.Warn("Scheduled build skipped, a session is already active")
		return
	}
	if err != nil {
		slog.Error("Scheduled build aborted", logfields.Error(err))
		return
	}
	slog.Info("Scheduled build finished",
		logfields.SessionID(summary.SessionID),
		slog.String("outcome", summary.Outcome()))
}

// serveMetrics starts the Prometheus exposition endpoint in the background.
func (d *Daemon) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(d.registry))

	d.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("Metrics server listening", "addr", addr)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()
}

// Stop shuts the scheduler and metrics server down gracefully.
func (d *Daemon) Stop() error {
	slog.Info("Stopping scheduler")
	err := d.scheduler.Shutdown()
	if d.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := d.server.Shutdown(shutdownCtx); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}
