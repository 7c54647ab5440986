// Package hotkeys implements the shell keyboard intercept: while this
// process is the shell, the show-desktop chord refocuses the main window
// instead of running the OS default.
package hotkeys

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/deskshell/internal/platform"
)

// DefaultChord is the conventional show-desktop chord.
const DefaultChord = "Mod4-d"

// Config configures an Intercept.
type Config struct {
	Chord string
	// Post runs fn on the owning loop. The key filter calls back from the
	// backend's own thread; nil runs fn inline.
	Post   func(fn func())
	Logger *slog.Logger
}

// Intercept owns the global key filter. It is installed at most once.
type Intercept struct {
	hook   platform.KeyboardHook
	host   platform.WindowHost
	window func() platform.WindowID
	post   func(fn func())
	logger *slog.Logger

	chord     string
	installed bool
	presses   int
}

// NewIntercept creates an intercept that focuses window() on the chord.
func NewIntercept(cfg Config, hook platform.KeyboardHook, host platform.WindowHost, window func() platform.WindowID) *Intercept {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chord := cfg.Chord
	if chord == "" {
		chord = DefaultChord
	}
	post := cfg.Post
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Intercept{
		hook:   hook,
		host:   host,
		window: window,
		post:   post,
		logger: logger,
		chord:  chord,
	}
}

// Install installs the filter when shell is true. Repeated calls are no-ops.
func (i *Intercept) Install(shell bool) error {
	if !shell || i.installed {
		return nil
	}
	if _, err := platform.ParseChord(i.chord); err != nil {
		return fmt.Errorf("show desktop hotkey: %w", err)
	}
	if err := i.hook.InstallKeyFilter(i.chord, i.onChord); err != nil {
		return fmt.Errorf("install key filter %s: %w", i.chord, err)
	}
	i.installed = true
	i.logger.Info("hotkeys: show-desktop intercept installed", "chord", i.chord)
	return nil
}

// Remove uninstalls the filter if installed.
func (i *Intercept) Remove() error {
	if !i.installed {
		return nil
	}
	i.installed = false
	if err := i.hook.RemoveKeyFilter(); err != nil {
		return fmt.Errorf("remove key filter: %w", err)
	}
	i.logger.Info("hotkeys: show-desktop intercept removed")
	return nil
}

// Reconfigure applies a new chord and shell flag, reinstalling as needed.
func (i *Intercept) Reconfigure(chord string, shell bool) error {
	if chord == "" {
		chord = DefaultChord
	}
	if chord != i.chord || !shell {
		if err := i.Remove(); err != nil {
			return err
		}
	}
	i.chord = chord
	return i.Install(shell)
}

// Active reports whether the filter is installed.
func (i *Intercept) Active() bool {
	return i.installed
}

// Chord returns the configured chord.
func (i *Intercept) Chord() string {
	return i.chord
}

// Presses returns how many chords were handled.
func (i *Intercept) Presses() int {
	return i.presses
}

func (i *Intercept) onChord() {
	i.post(func() {
		i.presses++
		id := i.window()
		if id == 0 {
			return
		}
		if err := i.host.BringToFront(id); err != nil {
			i.logger.Warn("hotkeys: bring to front failed", "window", id, "error", err)
		}
	})
}
