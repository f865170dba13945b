// Package shell publishes reading progress to the native shell so widgets
// and lock-screen complications can render it. The channel is write-only
// and fire-and-forget: a broken bus never blocks or fails a position
// update.
package shell

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

// Snapshot is what the shell gets to see: overall position and whether a
// goal is active. Nothing else leaves the engine through this channel.
type Snapshot struct {
	BookID  string
	Percent int // 0-100, already clamped
	HasGoal bool
}

// Publisher pushes progress snapshots to the native shell.
type Publisher interface {
	Publish(snapshot Snapshot)
	Close() error
}

// D-Bus identifiers for the progress signal.
const (
	busPath        = "/app/pageturn/Engine"
	busInterface   = "app.pageturn.Engine"
	signalMember   = "ProgressChanged"
	signalFullName = busInterface + "." + signalMember
)

// DBusPublisher emits ProgressChanged signals on the session bus.
type DBusPublisher struct {
	logger *slog.Logger

	mu   sync.Mutex
	conn *dbus.Conn
}

// NewDBusPublisher connects to the session bus. Returns an error if no bus
// is available; callers fall back to NewNoopPublisher.
func NewDBusPublisher(logger *slog.Logger) (*DBusPublisher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	logger.Info("shell publisher connected", "interface", busInterface)
	return &DBusPublisher{
		logger: logger,
		conn:   conn,
	}, nil
}

// Publish emits one ProgressChanged signal. Emission errors are logged and
// swallowed; widget updates are best-effort.
func (p *DBusPublisher) Publish(snapshot Snapshot) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		return
	}

	err := conn.Emit(
		dbus.ObjectPath(busPath),
		signalFullName,
		snapshot.BookID,
		int32(snapshot.Percent),
		snapshot.HasGoal,
	)
	if err != nil {
		p.logger.Warn("failed to publish shell snapshot",
			"book_id", snapshot.BookID,
			"error", err)
	}
}

// Close disconnects from the bus.
func (p *DBusPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// NoopPublisher drops every snapshot. Used headless and in tests.
type NoopPublisher struct{}

// NewNoopPublisher returns a Publisher that does nothing.
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

// Publish discards the snapshot.
func (*NoopPublisher) Publish(Snapshot) {}

// Close is a no-op.
func (*NoopPublisher) Close() error { return nil }
