// Package reservation decides which screen reservation is owed and drives
// the cooperative registrar or the legacy work-area writer accordingly.
package reservation

import (
	"log/slog"

	"github.com/1broseidon/deskshell/internal/appbar"
	"github.com/1broseidon/deskshell/internal/journal"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/winstate"
	"github.com/1broseidon/deskshell/internal/workarea"
)

// Chrome is the measured geometry of the window's reserved chrome, in
// device pixels.
type Chrome struct {
	// SidebarRight is the sidebar's right edge relative to the monitor's
	// left edge. It is the Left reservation width.
	SidebarRight int
	// TitlebarHeight is the Top reservation height.
	TitlebarHeight int
}

// ChromeFunc measures the chrome at call time.
type ChromeFunc func() Chrome

// PlacementFunc reports the window placement.
type PlacementFunc func() winstate.Placement

// Config configures a Coordinator.
type Config struct {
	// Shell is true when this process is the shell replacement.
	Shell bool
	// TaskbarHeight is the bottom strip cut in shell mode.
	TaskbarHeight int
	Retry         RetryConfig
	Logger        *slog.Logger
	Journal       journal.Recorder
}

// Coordinator is the reservation orchestrator. All methods must be called
// from the loop that also runs Scheduler callbacks.
type Coordinator struct {
	shell         bool
	taskbarHeight int

	registrar *appbar.Registrar
	writer    *workarea.Writer
	chrome    ChromeFunc
	placement PlacementFunc
	sched     Scheduler
	logger    *slog.Logger
	journal   journal.Recorder

	held   Mode
	budget RetryBudget
}

// New creates a coordinator.
func New(cfg Config, registrar *appbar.Registrar, writer *workarea.Writer, chrome ChromeFunc, placement PlacementFunc, sched Scheduler) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = DefaultRetry().MaxAttempts
	}
	if retry.Interval <= 0 {
		retry.Interval = DefaultRetry().Interval
	}
	return &Coordinator{
		shell:         cfg.Shell,
		taskbarHeight: cfg.TaskbarHeight,
		registrar:     registrar,
		writer:        writer,
		chrome:        chrome,
		placement:     placement,
		sched:         sched,
		logger:        logger,
		journal:       cfg.Journal,
		budget:        RetryBudget{cfg: retry},
	}
}

// Reconfigure updates shell mode, taskbar height and retry bounds. The new
// values take effect on the next settle, which it triggers.
func (c *Coordinator) Reconfigure(shell bool, taskbarHeight int, retry RetryConfig) {
	if retry.MaxAttempts > 0 {
		c.budget.cfg.MaxAttempts = retry.MaxAttempts
	}
	if retry.Interval > 0 {
		c.budget.cfg.Interval = retry.Interval
	}
	if c.taskbarHeight != taskbarHeight {
		c.taskbarHeight = taskbarHeight
		c.writer.Invalidate()
	}
	c.shell = shell
	c.OnLayoutSettled()
}

// Mode derives the reservation owed right now.
func (c *Coordinator) Mode() Mode {
	if c.shell {
		return ModeLegacyShell
	}
	switch c.placement() {
	case winstate.OsMaximized, winstate.ManualMaximized:
		return ModeCooperative
	default:
		return ModeNone
	}
}

// Held returns the mechanism currently holding a claim.
func (c *Coordinator) Held() Mode {
	return c.held
}

// OnLayoutSettled re-evaluates and applies the owed reservation. It resets
// the retry budget.
func (c *Coordinator) OnLayoutSettled() {
	c.settle(false)
}

func (c *Coordinator) tick() {
	c.budget.timer = nil
	c.settle(true)
}

func (c *Coordinator) settle(fromTick bool) {
	mode := c.Mode()
	if c.held != ModeNone && c.held != mode {
		c.release("mode change to " + mode.String())
	}

	switch mode {
	case ModeNone:
		c.budget.reset()
		c.clearLegacy()
	case ModeLegacyShell:
		c.budget.reset()
		c.applyLegacy()
	case ModeCooperative:
		if !fromTick {
			c.budget.reset()
		}
		// Bars are never acquired while a legacy override is still in effect.
		if !c.clearLegacy() {
			c.retryBlocked(fromTick)
			return
		}
		applied := c.applyCooperative()
		if fromTick {
			c.afterTick(applied)
		} else {
			c.schedule()
		}
	}
}

func (c *Coordinator) applyLegacy() {
	// Held even on failure: the exit path must still restore.
	if c.held != ModeLegacyShell {
		c.held = ModeLegacyShell
		c.record(journal.KindModeChange, map[string]any{"mode": ModeLegacyShell.String()})
	}
	if err := c.writer.ApplyShellWorkArea(c.taskbarHeight); err != nil {
		c.logger.Warn("reservation: shell work area write failed", "error", err)
		c.record(journal.KindFailure, map[string]any{"op": "apply-work-area", "error": err.Error()})
		return
	}
	c.record(journal.KindAcquire, map[string]any{"mode": "legacy-shell", "rect": c.writer.Current().String()})
}

// clearLegacy retries an owed work-area restore left by a failed release. It
// reports whether no override remains.
func (c *Coordinator) clearLegacy() bool {
	if !c.writer.Owed() {
		return true
	}
	if err := c.writer.RestoreFullWorkArea(); err != nil {
		c.logger.Warn("reservation: restore work area failed", "error", err)
		c.record(journal.KindFailure, map[string]any{"op": "restore-work-area", "error": err.Error()})
		return false
	}
	c.record(journal.KindRelease, map[string]any{"mode": ModeLegacyShell.String(), "reason": "restore retried"})
	return true
}

// retryBlocked keeps the budget ticking while the cooperative claim waits on
// a restore. Blocked ticks count against the cap.
func (c *Coordinator) retryBlocked(fromTick bool) {
	if fromTick {
		c.budget.attempts++
		c.budget.haveLast = false
		if c.budget.attempts >= c.budget.cfg.MaxAttempts {
			c.logger.Warn("reservation: retry budget exhausted with work area still reduced", "attempts", c.budget.attempts)
			return
		}
	}
	c.schedule()
}

func (c *Coordinator) applyCooperative() sample {
	ch := c.chrome()
	before := sample{c.registrar.Size(platform.EdgeLeft), c.registrar.Size(platform.EdgeTop)}

	c.registrar.EnsureOrUpdate(platform.EdgeLeft, ch.SidebarRight)
	c.registrar.EnsureOrUpdate(platform.EdgeTop, ch.TitlebarHeight)

	after := sample{c.registrar.Size(platform.EdgeLeft), c.registrar.Size(platform.EdgeTop)}
	if c.registrar.Held() {
		if c.held != ModeCooperative {
			c.record(journal.KindModeChange, map[string]any{"mode": ModeCooperative.String()})
		}
		c.held = ModeCooperative
	} else {
		c.held = ModeNone
	}
	if after != before {
		c.record(journal.KindAcquire, map[string]any{"mode": "cooperative", "left": after.left, "top": after.top})
	}
	return after
}

func (c *Coordinator) schedule() {
	if c.sched == nil {
		return
	}
	c.budget.stop()
	c.budget.timer = c.sched.AfterFunc(c.budget.cfg.Interval, c.tick)
}

func (c *Coordinator) afterTick(applied sample) {
	more, converged := c.budget.observe(applied)
	c.record(journal.KindRetry, map[string]any{"attempt": c.budget.attempts, "left": applied.left, "top": applied.top})
	switch {
	case converged:
		c.logger.Debug("reservation: converged", "attempts", c.budget.attempts, "left", applied.left, "top", applied.top)
	case !more:
		c.logger.Debug("reservation: retry budget exhausted", "attempts", c.budget.attempts)
	default:
		c.schedule()
	}
}

// ReleaseIfHeld undoes every claim. It is idempotent and safe on every exit
// path; a failed legacy restore is retried by the next call.
func (c *Coordinator) ReleaseIfHeld() {
	c.budget.reset()
	c.release("release requested")
}

func (c *Coordinator) release(reason string) {
	if c.held == ModeNone && !c.writer.Owed() && !c.registrar.Held() {
		return
	}
	prev := c.held
	c.held = ModeNone

	if c.writer.Owed() {
		if err := c.writer.RestoreFullWorkArea(); err != nil {
			c.logger.Warn("reservation: restore work area failed", "error", err)
			c.record(journal.KindFailure, map[string]any{"op": "restore-work-area", "error": err.Error()})
		}
	}
	if c.registrar.Held() {
		c.registrar.RemoveAll()
	}
	c.logger.Info("reservation: released", "mode", prev, "reason", reason)
	c.record(journal.KindRelease, map[string]any{"mode": prev.String(), "reason": reason})
}

func (c *Coordinator) record(kind journal.Kind, details map[string]any) {
	if c.journal != nil {
		c.journal.Record(kind, details)
	}
}
