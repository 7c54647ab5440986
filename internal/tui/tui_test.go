package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/deskshell/internal/config"
	"github.com/1broseidon/deskshell/internal/ipc"
)

type fakeDaemon struct {
	status   ipc.StatusData
	monitors ipc.MonitorsData
	err      error
	releases int
	reloads  int
}

func (d *fakeDaemon) Ping() error { return d.err }

func (d *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if d.err != nil {
		return nil, d.err
	}
	st := d.status
	return &st, nil
}

func (d *fakeDaemon) GetMonitors() (*ipc.MonitorsData, error) {
	if d.err != nil {
		return nil, d.err
	}
	m := d.monitors
	return &m, nil
}

func (d *fakeDaemon) Release() error {
	d.releases++
	return d.err
}

func (d *fakeDaemon) ToggleMaximize() error { return d.err }

func (d *fakeDaemon) Reload() error {
	d.reloads++
	return d.err
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStatusLines(t *testing.T) {
	lines := statusLines(&ipc.StatusData{
		Window:      0x2a,
		Placement:   "manual-maximized",
		DesiredMode: "cooperative",
		HeldMode:    "none",
		Bars: []ipc.BarInfo{
			{Edge: "left", Size: 220, Registered: true, Rect: ipc.RectData{Width: 220, Height: 1040}},
		},
		RetryActive:  true,
		RetryAttempt: 3,
		RetryMax:     8,
	})
	out := strings.Join(lines, "\n")
	for _, want := range []string{"0x2a", "manual-maximized", "owed cooperative", "220 px", "attempt 3/8", "inactive"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status view missing %q:\n%s", want, out)
		}
	}
}

func TestStatusTabActions(t *testing.T) {
	d := &fakeDaemon{status: ipc.StatusData{HeldMode: "cooperative"}}
	s := NewStatusTab(d)

	s, _ = s.Update(statusMsg{status: &d.status})
	if !s.Connected() {
		t.Fatalf("tab not connected after status")
	}

	_, cmd := s.Update(key("x"))
	if cmd == nil {
		t.Fatalf("release key produced no command")
	}
	if d.releases != 0 {
		t.Fatalf("release ran before its command")
	}

	s, _ = s.Update(statusMsg{err: errors.New("failed to connect to daemon")})
	if s.Connected() {
		t.Fatalf("tab connected after error")
	}
	if !strings.Contains(s.View(), "Daemon unreachable") {
		t.Fatalf("view = %q", s.View())
	}
}

func TestRunReportsOutcome(t *testing.T) {
	d := &fakeDaemon{}
	s := NewStatusTab(d)

	s, _ = s.Update(actionCmd("release", d.Release)())
	if s.actionText != "release done" || d.releases != 1 {
		t.Fatalf("actionText = %q, releases = %d", s.actionText, d.releases)
	}

	d.err = errors.New("no reservation held")
	s, _ = s.Update(actionCmd("reload", d.Reload)())
	if s.actionText != "reload failed: no reservation held" {
		t.Fatalf("actionText = %q", s.actionText)
	}
	s, _ = s.Update(clearActionMsg{})
	if s.actionText != "" {
		t.Fatalf("action text not cleared")
	}
}

func TestBuildMonitorItemsMarksOwner(t *testing.T) {
	full := ipc.RectData{X: 1920, Width: 2560, Height: 1440}
	items := buildMonitorItems(&ipc.MonitorsData{
		Full: full,
		Monitors: []ipc.MonitorInfo{
			{ID: 0, Name: "DP-1", Bounds: ipc.RectData{Width: 1920, Height: 1080}},
			{ID: 1, Bounds: full},
		},
	})
	if len(items) != 2 {
		t.Fatalf("items = %d", len(items))
	}
	first := items[0].(monitorItem)
	second := items[1].(monitorItem)
	if first.owner || !second.owner {
		t.Fatalf("owner flags = %v, %v", first.owner, second.owner)
	}
	if second.Title() != "* monitor 1" {
		t.Fatalf("title = %q", second.Title())
	}
	if buildMonitorItems(nil) != nil {
		t.Fatalf("nil data produced items")
	}
}

func TestSettingsApplyForm(t *testing.T) {
	cfg := config.DefaultConfig()
	tab := NewSettingsTab(cfg)
	tab.loadFields()

	tab.fLogLevel = "debug"
	tab.fHotkey = "not a chord!!"
	tab.fManualMaximize = false
	tab.fShellMode = "always"
	tab.fTaskbarHeight = "48"
	tab.fRetryAttempts = "0"
	tab.fRetryInterval = "250"
	tab.fReconcile = "x"
	tab.applyForm()

	if cfg.LogLevel != "debug" || cfg.ManualMaximize || cfg.Shell.Mode != config.ShellModeAlways {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.ShowDesktopHotkey != "Mod4-d" {
		t.Fatalf("invalid hotkey applied: %q", cfg.ShowDesktopHotkey)
	}
	if cfg.Shell.TaskbarHeight != 48 || cfg.Reservation.Retry.IntervalMS != 250 {
		t.Fatalf("numeric fields = %+v", cfg.Reservation)
	}
	if cfg.Reservation.Retry.MaxAttempts != 8 || cfg.Reservation.ReconcileIntervalSeconds != 30 {
		t.Fatalf("out-of-range values applied: %+v", cfg.Reservation)
	}
}

func TestValidateInt(t *testing.T) {
	tests := []struct {
		in    string
		floor int
		ok    bool
	}{
		{"10", 10, true},
		{" 12 ", 10, true},
		{"9", 10, false},
		{"abc", 0, false},
		{"0", 0, true},
	}
	for _, tt := range tests {
		err := validateInt(tt.floor)(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("validateInt(%d)(%q) = %v", tt.floor, tt.in, err)
		}
	}
}

func TestConfigDiff(t *testing.T) {
	a := config.DefaultConfig()
	if lines := configDiff(a, cloneConfig(a)); lines != nil {
		t.Fatalf("identical configs diffed: %+v", lines)
	}

	b := cloneConfig(a)
	b.Shell.TaskbarHeight = 48
	lines := configDiff(a, b)

	var added, removed int
	for _, l := range lines {
		switch l.kind {
		case diffAdded:
			added++
			if !strings.Contains(l.text, "48") {
				t.Fatalf("added line = %q", l.text)
			}
		case diffRemoved:
			removed++
		}
	}
	if added != 1 || removed != 1 {
		t.Fatalf("diff = %+v", lines)
	}
}

func TestSaveOverlayWritesAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	orig := config.DefaultConfig()
	cfg := cloneConfig(orig)
	cfg.Shell.TaskbarHeight = 52
	d := &fakeDaemon{}

	var s SaveOverlay
	s.Show(orig, cfg)
	if s.phase != savePreview {
		t.Fatalf("phase = %v", s.phase)
	}
	s = s.Update(tea.KeyMsg{Type: tea.KeyEnter}, cfg, path, d, true)
	if !s.Saved() || !s.reloaded || d.reloads != 1 {
		t.Fatalf("overlay = %+v, reloads = %d", s, d.reloads)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	if !strings.Contains(string(data), "taskbar_height: 52") {
		t.Fatalf("saved config:\n%s", data)
	}

	s = s.Update(key("z"), cfg, path, d, true)
	if s.Active() {
		t.Fatalf("overlay still active after dismiss")
	}
}

func TestSaveOverlayNoChanges(t *testing.T) {
	cfg := config.DefaultConfig()
	var s SaveOverlay
	s.Show(cfg, cloneConfig(cfg))
	if s.phase != saveResult || s.err == nil {
		t.Fatalf("overlay = %+v", s)
	}
}

func TestModelRoutesBackgroundMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.DefaultConfig().SaveTo(path); err != nil {
		t.Fatal(err)
	}
	d := &fakeDaemon{status: ipc.StatusData{HeldMode: "legacy-shell", Placement: "shell-fullscreen"}}
	m := newModel(path, d)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(model)
	next, _ = m.Update(key("3"))
	m = next.(model)
	if m.activeTab != TabSettings {
		t.Fatalf("activeTab = %v", m.activeTab)
	}

	// A status result arriving while another tab shows still lands.
	next, _ = m.Update(statusMsg{status: &d.status})
	m = next.(model)
	if !m.statusTab.Connected() {
		t.Fatalf("status message not routed")
	}
	if !strings.Contains(m.View(), "holding:legacy-shell") {
		t.Fatalf("status bar missing held mode")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(model)
	if m.activeTab != TabStatus {
		t.Fatalf("tab wrap = %v", m.activeTab)
	}
}
