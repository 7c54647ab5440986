// Package winstate tracks the main window's placement and substitutes a
// manual full-screen fill for the OS maximize while edges are reserved.
package winstate

import (
	"log/slog"
	"time"

	"github.com/1broseidon/deskshell/internal/geometry"
	"github.com/1broseidon/deskshell/internal/journal"
	"github.com/1broseidon/deskshell/internal/platform"
)

// Placement is the window placement state.
type Placement int

const (
	Normal Placement = iota
	OsMaximized
	ManualMaximized
	ShellFullScreen
)

func (p Placement) String() string {
	switch p {
	case Normal:
		return "normal"
	case OsMaximized:
		return "os-maximized"
	case ManualMaximized:
		return "manual-maximized"
	case ShellFullScreen:
		return "shell-fullscreen"
	default:
		return "unknown"
	}
}

// Reserver is notified of every placement change.
type Reserver interface {
	OnLayoutSettled()
	ReleaseIfHeld()
}

// MonitorFunc returns the rectangles of the window's monitor.
type MonitorFunc func() geometry.MonitorRects

// echoWindow bounds how long an expected OS echo of our own transition is
// waited for before it is forgotten.
const echoWindow = 750 * time.Millisecond

// Config configures a Machine.
type Config struct {
	// Shell is true when this process is the shell replacement.
	Shell bool
	// ManualMaximize enables interception of the OS maximize.
	ManualMaximize bool
	Logger         *slog.Logger
	Journal        journal.Recorder
}

type echo struct {
	state platform.WindowState
	until time.Time
}

// Machine is the window placement state machine. It must be driven from a
// single loop.
type Machine struct {
	host     platform.WindowHost
	monitor  MonitorFunc
	reserver Reserver
	logger   *slog.Logger
	journal  journal.Recorder
	now      func() time.Time

	shell  bool
	manual bool

	window    platform.WindowID
	placement Placement
	restore   platform.Rect

	// inTransition and echoes form the self-transition guard: state events
	// raised while the machine applies its own transition, or matching an
	// echo it expects from the OS shortly after, are ignored.
	inTransition bool
	echoes       []echo
}

// New creates a machine. The reserver is usually the reservation coordinator.
func New(cfg Config, host platform.WindowHost, monitor MonitorFunc, reserver Reserver) *Machine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Machine{
		host:     host,
		monitor:  monitor,
		reserver: reserver,
		logger:   logger,
		journal:  cfg.Journal,
		now:      time.Now,
		shell:    cfg.Shell,
		manual:   cfg.ManualMaximize,
	}
	if m.shell {
		m.placement = ShellFullScreen
	}
	return m
}

// SetReserver replaces the reserver. Used when the reserver is built after
// the machine.
func (m *Machine) SetReserver(r Reserver) {
	m.reserver = r
}

// Attach binds the machine to window and remembers its current bounds as
// the normal bounds.
//
// A new window starts Normal; an OS maximize it already carries is reported
// by the state watch that follows.
func (m *Machine) Attach(window platform.WindowID) {
	m.window = window
	m.echoes = nil
	m.inTransition = false
	m.restore = platform.Rect{}
	if b, err := m.host.WindowBounds(window); err == nil && !b.Empty() {
		m.restore = b
	}
	if m.shell {
		m.set(ShellFullScreen, "attach")
		m.fill(m.monitor().Work)
		return
	}
	m.set(Normal, "attach")
}

// Window returns the attached window, or zero.
func (m *Machine) Window() platform.WindowID {
	return m.window
}

// Placement returns the current placement.
func (m *Machine) Placement() Placement {
	return m.placement
}

// RestoreBounds returns the remembered normal bounds.
func (m *Machine) RestoreBounds() platform.Rect {
	return m.restore
}

// Reconfigure applies new shell and manual-maximize settings.
func (m *Machine) Reconfigure(shell, manual bool) {
	m.manual = manual
	if shell == m.shell {
		return
	}
	m.shell = shell
	if shell {
		m.set(ShellFullScreen, "shell mode on")
		m.fill(m.monitor().Work)
	} else {
		m.set(Normal, "shell mode off")
		m.placeRestore()
	}
	m.reserver.OnLayoutSettled()
}

// OnStateChanged handles an OS show-state change of the attached window.
func (m *Machine) OnStateChanged(state platform.WindowState) {
	if m.window == 0 {
		return
	}
	if m.inTransition || m.consumeEcho(state) {
		m.logger.Debug("winstate: ignoring own transition", "state", state)
		return
	}

	switch state {
	case platform.WindowMinimized:
		return
	case platform.WindowMaximized:
		m.onMaximized()
	case platform.WindowNormal:
		m.onNormal()
	}
}

func (m *Machine) onMaximized() {
	switch {
	case m.shell:
		// The OS maximize sizes the window to the work area; keep it there.
		m.fill(m.monitor().Work)
		m.reserver.OnLayoutSettled()
	case m.placement == ManualMaximized:
	case !m.manual:
		m.set(OsMaximized, "os maximize")
		m.reserver.OnLayoutSettled()
	default:
		m.manualFill("os maximize intercepted", true)
	}
}

func (m *Machine) onNormal() {
	switch m.placement {
	case OsMaximized:
		m.set(Normal, "os restore")
		m.reserver.OnLayoutSettled()
	case ManualMaximized, ShellFullScreen, Normal:
		// The manual fill is a normal OS state; a restore event here is
		// either our own echo or meaningless.
	}
}

// ToggleMaximize is the maximize button.
func (m *Machine) ToggleMaximize() {
	if m.window == 0 || m.shell {
		return
	}
	switch m.placement {
	case ManualMaximized:
		m.reserver.ReleaseIfHeld()
		m.set(Normal, "toggle")
		m.placeRestore()
	case OsMaximized:
		m.ownTransition([]platform.WindowState{platform.WindowNormal}, func() {
			if err := m.host.RestoreWindow(m.window); err != nil {
				m.logger.Warn("winstate: restore failed", "error", err)
			}
		})
		m.set(Normal, "toggle")
		m.placeRestore()
		m.reserver.OnLayoutSettled()
	default:
		m.manualFill("toggle", false)
	}
}

// LayoutPass runs on every layout settle. In Normal it remembers the bounds;
// otherwise it clamps the window into the allowed rectangle.
func (m *Machine) LayoutPass() {
	if m.window == 0 {
		return
	}
	bounds, err := m.host.WindowBounds(m.window)
	if err != nil {
		m.logger.Debug("winstate: bounds unavailable", "error", err)
		return
	}
	if m.placement == Normal {
		if !bounds.Empty() {
			m.restore = bounds
		}
		return
	}

	allowed := m.allowed()
	if allowed.Empty() {
		return
	}
	clamped := Clamp(bounds, allowed)
	if clamped == bounds {
		return
	}
	m.ownTransition(nil, func() {
		if err := m.host.SetWindowBounds(m.window, clamped); err != nil {
			m.logger.Warn("winstate: clamp failed", "error", err)
		}
	})
	m.logger.Debug("winstate: clamped", "from", bounds.String(), "to", clamped.String())
}

func (m *Machine) allowed() platform.Rect {
	mr := m.monitor()
	switch m.placement {
	case ManualMaximized:
		return ManualFillRect(mr)
	default:
		return mr.Work
	}
}

// ManualFillRect is the rectangle of a manual maximize: the monitor's full
// width from its origin, down to the bottom of the usable area.
func ManualFillRect(mr geometry.MonitorRects) platform.Rect {
	return platform.Rect{
		X:      mr.Full.X,
		Y:      mr.Full.Y,
		Width:  mr.Full.Width,
		Height: mr.Work.Bottom() - mr.Full.Y,
	}
}

// Clamp fits r inside allowed, shrinking it if needed and then moving it.
func Clamp(r, allowed platform.Rect) platform.Rect {
	r.Width = min(r.Width, allowed.Width)
	r.Height = min(r.Height, allowed.Height)
	r.X = max(allowed.X, min(r.X, allowed.Right()-r.Width))
	r.Y = max(allowed.Y, min(r.Y, allowed.Bottom()-r.Height))
	return r
}

func (m *Machine) manualFill(reason string, fromOS bool) {
	fill := ManualFillRect(m.monitor())
	var expect []platform.WindowState
	if fromOS {
		expect = append(expect, platform.WindowNormal)
	}
	m.ownTransition(expect, func() {
		if fromOS {
			if err := m.host.RestoreWindow(m.window); err != nil {
				m.logger.Warn("winstate: revert os maximize failed", "error", err)
			}
		}
		if err := m.host.SetWindowBounds(m.window, fill); err != nil {
			m.logger.Warn("winstate: manual fill failed", "error", err)
		}
	})
	m.set(ManualMaximized, reason)
	m.reserver.OnLayoutSettled()
}

func (m *Machine) fill(r platform.Rect) {
	if r.Empty() {
		return
	}
	m.ownTransition(nil, func() {
		if err := m.host.SetWindowBounds(m.window, r); err != nil {
			m.logger.Warn("winstate: fill failed", "error", err)
		}
	})
}

func (m *Machine) placeRestore() {
	if m.restore.Empty() {
		return
	}
	m.ownTransition(nil, func() {
		if err := m.host.SetWindowBounds(m.window, m.restore); err != nil {
			m.logger.Warn("winstate: restore bounds failed", "error", err)
		}
	})
}

// ownTransition runs fn with the guard raised. expect lists OS states fn is
// known to cause asynchronously; one event of each is swallowed when it
// arrives within echoWindow.
func (m *Machine) ownTransition(expect []platform.WindowState, fn func()) {
	until := m.now().Add(echoWindow)
	for _, s := range expect {
		m.echoes = append(m.echoes, echo{state: s, until: until})
	}
	m.inTransition = true
	defer func() { m.inTransition = false }()
	fn()
}

func (m *Machine) consumeEcho(state platform.WindowState) bool {
	now := m.now()
	live := m.echoes[:0]
	hit := false
	for _, e := range m.echoes {
		if now.After(e.until) {
			continue
		}
		if !hit && e.state == state {
			hit = true
			continue
		}
		live = append(live, e)
	}
	m.echoes = live
	return hit
}

func (m *Machine) set(p Placement, reason string) {
	if p == m.placement {
		return
	}
	m.logger.Info("winstate: placement changed", "from", m.placement, "to", p, "reason", reason)
	if m.journal != nil {
		m.journal.Record(journal.KindPlacement, map[string]any{
			"from":   m.placement.String(),
			"to":     p.String(),
			"reason": reason,
		})
	}
	m.placement = p
}
