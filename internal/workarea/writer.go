// Package workarea overwrites the OS-wide usable desktop rectangle. It is
// only used when this process is the shell.
package workarea

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/deskshell/internal/platform"
)

// ScreenSizer reports the primary screen size.
type ScreenSizer interface {
	PrimaryScreenSize() (width, height int, err error)
}

// Writer applies and restores the global work area.
type Writer struct {
	setter platform.WorkAreaSetter
	screen ScreenSizer
	logger *slog.Logger

	applied   bool
	attempted bool
	last      platform.Rect
}

// NewWriter creates a writer. A nil logger uses slog.Default.
func NewWriter(setter platform.WorkAreaSetter, screen ScreenSizer, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{setter: setter, screen: screen, logger: logger}
}

// ApplyShellWorkArea sets the work area to {0,0,screenWidth,screenHeight-h}.
// Repeating it with an unchanged target does not touch the OS again.
func (w *Writer) ApplyShellWorkArea(taskbarHeight int) error {
	sw, sh, err := w.screen.PrimaryScreenSize()
	if err != nil {
		return fmt.Errorf("screen size: %w", err)
	}
	if taskbarHeight < 0 {
		taskbarHeight = 0
	}
	if taskbarHeight > sh {
		taskbarHeight = sh
	}
	target := platform.RectFromEdges(0, 0, sw, sh-taskbarHeight)
	if w.applied && target == w.last {
		return nil
	}

	w.attempted = true
	if err := w.setter.SetWorkArea(target); err != nil {
		w.applied = false
		return fmt.Errorf("set work area %v: %w", target, err)
	}
	w.applied = true
	w.last = target
	w.logger.Info("work area reduced for shell taskbar", "rect", target.String(), "taskbar_height", taskbarHeight)
	return nil
}

// RestoreFullWorkArea resets the work area to the full primary screen. It
// writes whenever an apply was attempted, even a failed one.
func (w *Writer) RestoreFullWorkArea() error {
	if !w.attempted && !w.applied {
		return nil
	}
	sw, sh, err := w.screen.PrimaryScreenSize()
	if err != nil {
		return fmt.Errorf("screen size: %w", err)
	}
	full := platform.Rect{Width: sw, Height: sh}
	if err := w.setter.SetWorkArea(full); err != nil {
		return fmt.Errorf("restore work area %v: %w", full, err)
	}
	w.applied = false
	w.attempted = false
	w.last = platform.Rect{}
	w.logger.Info("work area restored", "rect", full.String())
	return nil
}

// Invalidate forgets the applied state so the next apply writes again. Used
// after the shell restarted and reset the work area behind our back.
func (w *Writer) Invalidate() {
	if w.applied {
		w.applied = false
		w.attempted = true
	}
}

// Active reports whether an override is believed to be in effect.
func (w *Writer) Active() bool {
	return w.applied
}

// Owed reports whether a restore is still required.
func (w *Writer) Owed() bool {
	return w.applied || w.attempted
}

// Current returns the last rectangle written by ApplyShellWorkArea.
func (w *Writer) Current() platform.Rect {
	return w.last
}
