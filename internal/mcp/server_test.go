package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/1broseidon/deskshell/internal/ipc"
)

type fakeDaemon struct {
	status   ipc.StatusData
	monitors ipc.MonitorsData
	layouts  []ipc.LayoutSettledPayload
	states   []string
	toggles  int
	releases int
	reloads  int
	err      error
}

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
	d.status.HeldMode = "none"
	d.status.Bars = nil
	return d.err
}

func (d *fakeDaemon) LayoutSettled(p ipc.LayoutSettledPayload) error {
	d.layouts = append(d.layouts, p)
	return d.err
}

func (d *fakeDaemon) WindowState(state string) error {
	d.states = append(d.states, state)
	if state == "maximized" {
		d.status.Placement = "manual-maximized"
		d.status.HeldMode = "cooperative"
	}
	return d.err
}

func (d *fakeDaemon) ToggleMaximize() error {
	d.toggles++
	return d.err
}

func (d *fakeDaemon) Reload() error {
	d.reloads++
	return d.err
}

func cooperativeStatus() ipc.StatusData {
	return ipc.StatusData{
		Placement:   "manual-maximized",
		DesiredMode: "cooperative",
		HeldMode:    "cooperative",
		Bars: []ipc.BarInfo{
			{Edge: "left", Size: 220, Registered: true},
			{Edge: "top", Size: 32, Registered: true},
		},
		RetryActive:  true,
		RetryAttempt: 2,
		RetryMax:     8,
	}
}

func TestGetStatusSummary(t *testing.T) {
	d := &fakeDaemon{status: cooperativeStatus()}
	s := NewServerWith(d)

	_, out, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("handleGetStatus: %v", err)
	}
	want := "cooperating, placement manual-maximized, holding cooperative, left=220, top=32, retry 2/8"
	if out.Summary != want {
		t.Fatalf("summary = %q, want %q", out.Summary, want)
	}
}

func TestSummarizeShell(t *testing.T) {
	rect := ipc.RectData{Width: 1920, Height: 1040}
	got := Summarize(&ipc.StatusData{
		Shell:        true,
		Placement:    "shell-fullscreen",
		DesiredMode:  "legacy-shell",
		HeldMode:     "legacy-shell",
		LegacyActive: true,
		LegacyRect:   &rect,
	})
	if !strings.Contains(got, "shell, ") || !strings.Contains(got, "work area {0,0,1920,1040}") {
		t.Fatalf("summary = %q", got)
	}
}

func TestReleaseReportsPreviousMode(t *testing.T) {
	d := &fakeDaemon{status: cooperativeStatus()}
	s := NewServerWith(d)

	_, out, err := s.handleRelease(context.Background(), nil, ReleaseInput{})
	if err != nil {
		t.Fatalf("handleRelease: %v", err)
	}
	if !out.Released || out.PreviousMode != "cooperative" || out.HeldMode != "none" {
		t.Fatalf("out = %+v", out)
	}
	if d.releases != 1 {
		t.Fatalf("releases = %d", d.releases)
	}

	_, out, _ = s.handleRelease(context.Background(), nil, ReleaseInput{})
	if out.Released {
		t.Fatalf("second release reported a release")
	}
}

func TestReportLayout(t *testing.T) {
	d := &fakeDaemon{status: cooperativeStatus()}
	s := NewServerWith(d)

	_, out, err := s.handleReportLayout(context.Background(), nil, ReportLayoutInput{SidebarRight: 260, TitlebarHeight: 32, DPI: 144})
	if err != nil {
		t.Fatalf("handleReportLayout: %v", err)
	}
	if len(d.layouts) != 1 || d.layouts[0].SidebarRight != 260 || d.layouts[0].DPI != 144 {
		t.Fatalf("layouts = %+v", d.layouts)
	}
	if out.HeldMode != "cooperative" || len(out.Bars) != 2 {
		t.Fatalf("out = %+v", out)
	}

	if _, _, err := s.handleReportLayout(context.Background(), nil, ReportLayoutInput{SidebarRight: -5}); err == nil {
		t.Fatalf("negative sidebar accepted")
	}
	if len(d.layouts) != 1 {
		t.Fatalf("invalid layout forwarded")
	}
}

func TestSetWindowState(t *testing.T) {
	d := &fakeDaemon{status: ipc.StatusData{Placement: "normal", HeldMode: "none"}}
	s := NewServerWith(d)

	if _, _, err := s.handleSetWindowState(context.Background(), nil, SetWindowStateInput{State: "  "}); err == nil {
		t.Fatalf("empty state accepted")
	}
	_, out, err := s.handleSetWindowState(context.Background(), nil, SetWindowStateInput{State: "maximized"})
	if err != nil {
		t.Fatalf("handleSetWindowState: %v", err)
	}
	if out.Placement != "manual-maximized" || out.HeldMode != "cooperative" {
		t.Fatalf("out = %+v", out)
	}
}

func TestToolsWrapDaemonErrors(t *testing.T) {
	d := &fakeDaemon{err: errors.New("failed to connect to daemon")}
	s := NewServerWith(d)

	_, _, err := s.handleToggleMaximize(context.Background(), nil, ToggleMaximizeInput{})
	if err == nil || !strings.HasPrefix(err.Error(), "toggle_maximize:") {
		t.Fatalf("err = %v", err)
	}
	_, _, err = s.handleListMonitors(context.Background(), nil, ListMonitorsInput{})
	if err == nil || !strings.HasPrefix(err.Error(), "list_monitors:") {
		t.Fatalf("err = %v", err)
	}
	_, _, err = s.handleReload(context.Background(), nil, ReloadInput{})
	if err == nil || !strings.HasPrefix(err.Error(), "reload_config:") {
		t.Fatalf("err = %v", err)
	}
}

func TestListMonitors(t *testing.T) {
	d := &fakeDaemon{monitors: ipc.MonitorsData{
		Full:   ipc.RectData{Width: 2560, Height: 1440},
		Work:   ipc.RectData{Width: 2560, Height: 1400},
		Source: "window",
		Monitors: []ipc.MonitorInfo{
			{ID: 0, Name: "DP-1"},
			{ID: 1, Name: "HDMI-1"},
		},
	}}
	s := NewServerWith(d)

	_, out, err := s.handleListMonitors(context.Background(), nil, ListMonitorsInput{})
	if err != nil {
		t.Fatalf("handleListMonitors: %v", err)
	}
	if out.Owner.Source != "window" || out.Owner.Work.Height != 1400 || len(out.Monitors) != 2 {
		t.Fatalf("out = %+v", out)
	}
}
