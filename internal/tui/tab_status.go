package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/deskshell/internal/ipc"
)

const refreshInterval = 2 * time.Second

// statusMsg carries a fresh status snapshot, or the error fetching it.
type statusMsg struct {
	status *ipc.StatusData
	err    error
}

// actionMsg is sent after an IPC action completes.
type actionMsg struct {
	text string
}

type clearActionMsg struct{}

type refreshTickMsg struct{}

// StatusTab shows what the daemon currently holds.
type StatusTab struct {
	daemon Daemon

	status *ipc.StatusData
	err    error

	actionText string

	width  int
	height int
}

// NewStatusTab creates a StatusTab polling d.
func NewStatusTab(d Daemon) StatusTab {
	return StatusTab{daemon: d}
}

func (s StatusTab) Init() tea.Cmd {
	return tea.Batch(s.fetch(), scheduleRefresh())
}

func (s StatusTab) fetch() tea.Cmd {
	d := s.daemon
	return func() tea.Msg {
		st, err := d.GetStatus()
		return statusMsg{status: st, err: err}
	}
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func clearActionLater() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg { return clearActionMsg{} })
}

func actionCmd(name string, action func() error) tea.Cmd {
	return func() tea.Msg {
		if err := action(); err != nil {
			return actionMsg{text: fmt.Sprintf("%s failed: %v", name, err)}
		}
		return actionMsg{text: name + " done"}
	}
}

// run performs an action and reports the outcome, then refreshes.
func (s StatusTab) run(name string, action func() error) tea.Cmd {
	return tea.Sequence(actionCmd(name, action), s.fetch())
}

func (s StatusTab) Update(msg tea.Msg) (StatusTab, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		s.status = msg.status
		s.err = msg.err
		return s, nil
	case refreshTickMsg:
		return s, tea.Batch(s.fetch(), scheduleRefresh())
	case actionMsg:
		s.actionText = msg.text
		return s, clearActionLater()
	case clearActionMsg:
		s.actionText = ""
		return s, nil
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return s, s.fetch()
		case "x":
			return s, s.run("release", s.daemon.Release)
		case "m":
			return s, s.run("toggle maximize", s.daemon.ToggleMaximize)
		case "l":
			return s, s.run("reload", s.daemon.Reload)
		}
	}
	return s, nil
}

// Connected reports whether the last fetch reached the daemon.
func (s StatusTab) Connected() bool {
	return s.err == nil && s.status != nil
}

func (s StatusTab) View() string {
	style := lipgloss.NewStyle().Width(s.width).Height(s.height).Padding(1, 2)
	if s.err != nil {
		return style.Render(dimStyle.Render("Daemon unreachable: " + s.err.Error()))
	}
	if s.status == nil {
		return style.Render(dimStyle.Render("Loading..."))
	}

	lines := statusLines(s.status)
	if s.actionText != "" {
		lines = append(lines, "", warnStyle.Render("  "+s.actionText))
	}
	return style.Render(strings.Join(lines, "\n"))
}

func statusLines(st *ipc.StatusData) []string {
	role := "cooperating with the running shell"
	if st.Shell {
		role = "acting as the shell"
	}
	window := "(none)"
	if st.Window != 0 {
		window = fmt.Sprintf("0x%x", st.Window)
	}

	held := st.HeldMode
	if st.DesiredMode != st.HeldMode {
		held += warnStyle.Render(" (owed " + st.DesiredMode + ")")
	}

	lines := []string{
		row("Instance", st.InstanceID),
		row("Uptime", (time.Duration(st.UptimeSeconds) * time.Second).String()),
		row("Role", role),
		"",
		row("Window", window),
		row("Placement", st.Placement),
		row("Reservation", held),
		row("Manual maximize", yesNo(st.ManualMaximize)),
	}

	if len(st.Bars) > 0 {
		lines = append(lines, "")
		for _, bar := range st.Bars {
			value := fmt.Sprintf("%d px  %s", bar.Size, bar.Rect.String())
			if !bar.Registered {
				value += dimStyle.Render("  (not registered)")
			}
			lines = append(lines, row("Bar "+bar.Edge, value))
		}
	}

	if st.LegacyActive && st.LegacyRect != nil {
		lines = append(lines, "", row("Work area override", st.LegacyRect.String()))
	}

	retry := "idle"
	if st.RetryActive {
		retry = fmt.Sprintf("attempt %d/%d", st.RetryAttempt, st.RetryMax)
	}
	hotkey := "inactive"
	if st.HotkeyActive {
		hotkey = fmt.Sprintf("%s (%d presses)", st.HotkeyChord, st.HotkeyPresses)
	}
	lines = append(lines,
		"",
		row("Retry", retry),
		row("Show-desktop hotkey", hotkey),
		row("Shell restarts", fmt.Sprintf("%d", st.ShellRestarts)),
	)
	return lines
}
