package schema

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
)

// ReloadFunc receives the freshly parsed document (or the parse error) each
// time the watched schema file changes.
type ReloadFunc func(doc *Document, err error)

// Watcher monitors a schema file for changes and triggers debounced reloads.
type Watcher struct {
	schemaPath   string
	onReload     ReloadFunc
	watcher      *fsnotify.Watcher
	mu           sync.RWMutex
	stopChan     chan struct{}
	reloadChan   chan struct{}
	debounceTime time.Duration
}

// NewWatcher creates a new schema file watcher.
func NewWatcher(schemaPath string, onReload ReloadFunc) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Resolve absolute path for consistent watching
	absPath, err := filepath.Abs(schemaPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve schema path: %w", err)
	}

	return &Watcher{
		schemaPath:   absPath,
		onReload:     onReload,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second, // Debounce rapid editor saves
	}, nil
}

// Start begins monitoring the schema file.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Watch the directory containing the schema file (more reliable than watching the file directly)
	schemaDir := filepath.Dir(w.schemaPath)
	if err := w.watcher.Add(schemaDir); err != nil {
		return fmt.Errorf("failed to watch schema directory %s: %w", schemaDir, err)
	}

	slog.Info("Starting schema watcher", logfields.Path(w.schemaPath))

	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)

	return nil
}

// Stop stops the schema watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	slog.Info("Stopping schema watcher")
	close(w.stopChan)

	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}
	return nil
}

// watchLoop monitors file system events.
func (w *Watcher) watchLoop(ctx context.Context) {
	schemaFile := filepath.Base(w.schemaPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only process events for our schema file
			if filepath.Base(event.Name) != schemaFile {
				continue
			}

			switch {
			case event.Op&fsnotify.Write == fsnotify.Write,
				event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				slog.Debug("Schema file change detected", "file", event.Name, "op", event.Op.String())
				w.triggerReload()
			case event.Op&fsnotify.Remove == fsnotify.Remove:
				slog.Warn("Schema file removed", "file", event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Schema watcher error", logfields.Error(err))
		}
	}
}

// reloadLoop handles debounced schema reloads.
func (w *Watcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-w.stopChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return
		case <-w.reloadChan:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(w.debounceTime, func() {
				doc, err := Load(w.schemaPath)
				if err != nil {
					slog.Error("Failed to reload schema", logfields.Error(err))
				} else {
					slog.Info("Schema reloaded", "settings", len(doc.BuildSettings))
				}
				if w.onReload != nil {
					w.onReload(doc, err)
				}
			})
		}
	}
}

// triggerReload triggers a debounced schema reload.
func (w *Watcher) triggerReload() {
	select {
	case w.reloadChan <- struct{}{}:
	default:
		// Reload already pending
	}
}
