package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskshell/internal/config"
	"github.com/1broseidon/deskshell/internal/platform"
)

// SettingsTab edits the daemon configuration.
type SettingsTab struct {
	cfg *config.Config

	width  int
	height int

	editing bool
	form    *huh.Form

	// Form-bound values (strings for huh, converted on submit)
	fLogLevel       string
	fHotkey         string
	fManualMaximize bool
	fShellMode      string
	fTaskbarHeight  string
	fRetryAttempts  string
	fRetryInterval  string
	fReconcile      string
}

// NewSettingsTab creates a SettingsTab over cfg.
func NewSettingsTab(cfg *config.Config) SettingsTab {
	return SettingsTab{cfg: cfg}
}

func (g SettingsTab) Update(msg tea.Msg) (SettingsTab, tea.Cmd) {
	if g.editing {
		return g.updateEditing(msg)
	}
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "e" {
			g.startEditing()
			return g, g.form.Init()
		}
	case tea.WindowSizeMsg:
		g.width = msg.Width
		g.height = msg.Height
	}
	return g, nil
}

func (g SettingsTab) updateEditing(msg tea.Msg) (SettingsTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			g.editing = false
			g.form = nil
			return g, nil
		}
	case tea.WindowSizeMsg:
		g.width = msg.Width
		g.height = msg.Height
	}

	form, cmd := g.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		g.form = f
	}
	if g.form.State == huh.StateCompleted {
		g.applyForm()
		g.editing = false
		g.form = nil
		return g, nil
	}
	return g, cmd
}

func (g *SettingsTab) loadFields() {
	cfg := g.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	g.fLogLevel = cfg.LogLevel
	g.fHotkey = cfg.ShowDesktopHotkey
	g.fManualMaximize = cfg.ManualMaximize
	g.fShellMode = string(cfg.Shell.Mode)
	g.fTaskbarHeight = strconv.Itoa(cfg.Shell.TaskbarHeight)
	g.fRetryAttempts = strconv.Itoa(cfg.Reservation.Retry.MaxAttempts)
	g.fRetryInterval = strconv.Itoa(cfg.Reservation.Retry.IntervalMS)
	g.fReconcile = strconv.Itoa(cfg.Reservation.ReconcileIntervalSeconds)
}

func (g *SettingsTab) startEditing() {
	g.loadFields()

	w := g.width - 4
	if w < 40 {
		w = 40
	}

	g.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("log_level").
				Title("Log Level").
				Options(huh.NewOptions("debug", "info", "warning", "error")...).
				Value(&g.fLogLevel),

			huh.NewInput().
				Key("show_desktop_hotkey").
				Title("Show-Desktop Hotkey").
				Description("Chord that raises the main window, e.g. Mod4-d").
				Validate(validateChord).
				Value(&g.fHotkey),

			huh.NewConfirm().
				Key("manual_maximize").
				Title("Manual Maximize").
				Description("Fill the monitor minus reserved edges instead of an OS maximize").
				Value(&g.fManualMaximize),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("shell_mode").
				Title("Shell Mode").
				Options(
					huh.NewOption("auto (compare registered shell)", string(config.ShellModeAuto)),
					huh.NewOption("always", string(config.ShellModeAlways)),
					huh.NewOption("never", string(config.ShellModeNever)),
				).
				Value(&g.fShellMode),

			huh.NewInput().
				Key("taskbar_height").
				Title("Taskbar Height").
				Description("Pixels cut from the bottom of the work area in shell mode").
				Validate(validateInt(0)).
				Value(&g.fTaskbarHeight),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("retry_max_attempts").
				Title("Retry Attempts").
				Validate(validateInt(1)).
				Value(&g.fRetryAttempts),
			huh.NewInput().
				Key("retry_interval_ms").
				Title("Retry Interval (ms)").
				Validate(validateInt(10)).
				Value(&g.fRetryInterval),
			huh.NewInput().
				Key("reconcile_interval_seconds").
				Title("Reconcile Interval (s)").
				Description("0 disables the periodic reapply").
				Validate(validateInt(0)).
				Value(&g.fReconcile),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)

	g.editing = true
}

func validateChord(s string) error {
	_, err := platform.ParseChord(strings.TrimSpace(s))
	return err
}

func validateInt(floor int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		if v < floor {
			return fmt.Errorf("must be >= %d", floor)
		}
		return nil
	}
}

// applyForm copies the form values into the config. Values that fail to
// parse leave the config field untouched.
func (g *SettingsTab) applyForm() {
	if g.cfg == nil {
		return
	}
	if g.fLogLevel != "" {
		g.cfg.LogLevel = g.fLogLevel
	}
	if hk := strings.TrimSpace(g.fHotkey); hk != "" && validateChord(hk) == nil {
		g.cfg.ShowDesktopHotkey = hk
	}
	g.cfg.ManualMaximize = g.fManualMaximize
	if g.fShellMode != "" {
		g.cfg.Shell.Mode = config.ShellMode(g.fShellMode)
	}
	if v, err := strconv.Atoi(strings.TrimSpace(g.fTaskbarHeight)); err == nil && v >= 0 {
		g.cfg.Shell.TaskbarHeight = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(g.fRetryAttempts)); err == nil && v >= 1 {
		g.cfg.Reservation.Retry.MaxAttempts = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(g.fRetryInterval)); err == nil && v >= 10 {
		g.cfg.Reservation.Retry.IntervalMS = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(g.fReconcile)); err == nil && v >= 0 {
		g.cfg.Reservation.ReconcileIntervalSeconds = v
	}
}

func (g SettingsTab) View() string {
	if g.editing && g.form != nil {
		header := lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true).Render("Editing Settings") +
			dimStyle.Render("  (esc to cancel)")
		return lipgloss.NewStyle().Width(g.width).Height(g.height).Padding(1, 2).
			Render(header + "\n\n" + g.form.View())
	}

	cfg := g.cfg
	if cfg == nil {
		return lipgloss.NewStyle().
			Width(g.width).
			Height(g.height).
			Foreground(lipgloss.Color("241")).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No config loaded")
	}

	reconcile := "disabled"
	if cfg.Reservation.ReconcileIntervalSeconds > 0 {
		reconcile = fmt.Sprintf("every %ds", cfg.Reservation.ReconcileIntervalSeconds)
	}
	lines := []string{
		"",
		row("Log Level", cfg.LogLevel),
		row("Show-Desktop Hotkey", cfg.ShowDesktopHotkey),
		row("Manual Maximize", yesNo(cfg.ManualMaximize)),
		"",
		row("Shell Mode", string(cfg.Shell.Mode)),
		row("Registered Path", displayOrDefault(cfg.Shell.RegisteredPath, "(none)")),
		row("Taskbar Height", fmt.Sprintf("%d px", cfg.Shell.TaskbarHeight)),
		"",
		row("Retry", fmt.Sprintf("%d x %dms", cfg.Reservation.Retry.MaxAttempts, cfg.Reservation.Retry.IntervalMS)),
		row("Reconcile", reconcile),
		"",
		dimStyle.Render("  Press 'e' to edit settings"),
	}
	return lipgloss.NewStyle().Width(g.width).Height(g.height).Padding(1, 2).
		Render(strings.Join(lines, "\n"))
}

func displayOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
