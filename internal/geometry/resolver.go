// Package geometry resolves the full and usable rectangles of the monitor
// that owns the main window.
package geometry

import (
	"log/slog"

	"github.com/1broseidon/deskshell/internal/platform"
)

// Source names the step of the fallback chain that produced a MonitorRects.
type Source string

const (
	SourceWindow  Source = "window"
	SourcePrimary Source = "primary"
	SourceScreen  Source = "screen"
	SourceNone    Source = "none"
)

// MonitorRects is the full and usable bounds of one monitor in device pixels.
// It is recomputed on every call and never cached.
type MonitorRects struct {
	Full   platform.Rect
	Work   platform.Rect
	Source Source
}

// Resolver answers GetMonitorRects. It never fails.
type Resolver struct {
	displays platform.DisplayQuerier
	logger   *slog.Logger
}

// NewResolver creates a resolver over displays. A nil logger uses slog.Default.
func NewResolver(displays platform.DisplayQuerier, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{displays: displays, logger: logger}
}

// MonitorRects resolves the monitor for owner, falling back to the primary
// display and then to the primary screen size.
func (r *Resolver) MonitorRects(owner platform.WindowID) MonitorRects {
	if owner != 0 {
		d, err := r.displays.MonitorForWindow(owner)
		if err == nil && usable(d) {
			return fromDisplay(d, SourceWindow)
		}
		r.logger.Debug("monitor lookup for window failed", "window", owner, "error", err)
	}

	d, err := r.displays.PrimaryDisplay()
	if err == nil && usable(d) {
		return fromDisplay(d, SourcePrimary)
	}
	r.logger.Debug("primary display lookup failed", "error", err)

	w, h, err := r.displays.PrimaryScreenSize()
	if err == nil && w > 0 && h > 0 {
		screen := platform.Rect{Width: w, Height: h}
		return MonitorRects{Full: screen, Work: screen, Source: SourceScreen}
	}
	r.logger.Warn("no monitor geometry available", "error", err)
	return MonitorRects{Source: SourceNone}
}

func usable(d platform.Display) bool {
	return !d.Bounds.Empty()
}

func fromDisplay(d platform.Display, src Source) MonitorRects {
	work := d.Usable
	if work.Empty() {
		work = d.Bounds
	}
	return MonitorRects{Full: d.Bounds, Work: work, Source: src}
}
