// Package shellwatch detects desktop shell restarts on the session bus.
// A shell that re-acquires its well-known bus name has restarted and has
// dropped every dock strut and work-area override.
package shellwatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

const (
	busInterface     = "org.freedesktop.DBus"
	nameOwnerChanged = busInterface + ".NameOwnerChanged"
)

// DefaultBusNames are the well-known names of common shells.
var DefaultBusNames = []string{
	"org.gnome.Shell",
	"org.kde.plasmashell",
	"org.xfce.Panel",
}

// Watcher reports shell restarts.
type Watcher struct {
	names     map[string]bool
	onRestart func(name string)
	logger    *slog.Logger
}

// New creates a watcher for names. onRestart is called from the watcher's
// goroutine.
func New(names []string, onRestart func(name string), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = true
		}
	}
	return &Watcher{names: set, onRestart: onRestart, logger: logger}
}

// Run connects to the session bus and blocks until ctx is cancelled or the
// connection drops.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.names) == 0 {
		<-ctx.Done()
		return nil
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	defer conn.Close()

	for name := range w.names {
		if err := conn.AddMatchSignalContext(ctx,
			dbus.WithMatchInterface(busInterface),
			dbus.WithMatchMember("NameOwnerChanged"),
			dbus.WithMatchArg(0, name),
		); err != nil {
			return fmt.Errorf("watch %s: %w", name, err)
		}
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	w.logger.Info("shellwatch: watching session bus", "names", len(w.names))
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return fmt.Errorf("session bus connection closed")
			}
			if name, restarted := w.restarted(sig); restarted {
				w.logger.Info("shellwatch: shell restarted", "name", name)
				w.onRestart(name)
			}
		}
	}
}

// restarted reports whether sig announces a watched name gaining an owner.
func (w *Watcher) restarted(sig *dbus.Signal) (string, bool) {
	if sig == nil || sig.Name != nameOwnerChanged || len(sig.Body) != 3 {
		return "", false
	}
	name, ok1 := sig.Body[0].(string)
	newOwner, ok2 := sig.Body[2].(string)
	if !ok1 || !ok2 || !w.names[name] {
		return "", false
	}
	return name, newOwner != ""
}
