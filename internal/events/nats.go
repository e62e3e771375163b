package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/fwbuilder/internal/logfields"
)

// ForwarderConfig configures remote event forwarding.
type ForwarderConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Forwarder publishes build events to NATS JetStream so remote observers
// (CI dashboards, notification services) can follow a build session without
// attaching to the local process.
type Forwarder struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewForwarder connects to NATS and prepares a JetStream publisher.
func NewForwarder(cfg ForwarderConfig) (*Forwarder, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("event forwarding is disabled")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("event forwarding subject is required")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Info("NATS event forwarder initialized", "url", cfg.URL, "subject", cfg.Subject)

	return &Forwarder{conn: conn, js: js, subject: cfg.Subject}, nil
}

// Run consumes the bus subscription until the context is cancelled or the
// channel closes, publishing every event to the configured subject.
func (f *Forwarder) Run(ctx context.Context, bus *Bus) {
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := f.publish(e); err != nil {
				slog.Warn("Failed to forward build event", "type", e.Type, logfields.Error(err))
			}
		}
	}
}

func (f *Forwarder) publish(e Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data := e.Payload()
	if data == nil {
		return fmt.Errorf("failed to marshal event")
	}
	if _, err := f.js.Publish(ctx, f.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the NATS connection.
func (f *Forwarder) Close() error {
	if f.conn != nil {
		f.conn.Close()
	}
	return nil
}
