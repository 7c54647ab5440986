package winstate

import (
	"testing"
	"time"

	"github.com/1broseidon/deskshell/internal/geometry"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/platform/platformtest"
)

const testWindow platform.WindowID = 7

type recordingReserver struct {
	m        *Machine
	settled  int
	released int
	// placements seen at release time
	atRelease []Placement
}

func (r *recordingReserver) OnLayoutSettled() { r.settled++ }

func (r *recordingReserver) ReleaseIfHeld() {
	r.released++
	r.atRelease = append(r.atRelease, r.m.Placement())
}

type harness struct {
	m    *Machine
	host *platformtest.Backend
	res  *recordingReserver
	mr   geometry.MonitorRects
	now  time.Time
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		host: platformtest.New(1920, 1080),
		mr: geometry.MonitorRects{
			Full: platform.Rect{Width: 1920, Height: 1080},
			Work: platform.Rect{Width: 1920, Height: 1040},
		},
		now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	h.host.AddWindow(testWindow, platform.Rect{X: 100, Y: 100, Width: 800, Height: 600})
	h.res = &recordingReserver{}
	h.m = New(cfg, h.host, func() geometry.MonitorRects { return h.mr }, h.res)
	h.m.now = func() time.Time { return h.now }
	h.res.m = h.m
	h.m.Attach(testWindow)
	return h
}

func (h *harness) bounds(t *testing.T) platform.Rect {
	t.Helper()
	b, err := h.host.WindowBounds(testWindow)
	if err != nil {
		t.Fatalf("WindowBounds: %v", err)
	}
	return b
}

func TestOsMaximizeIsReplacedByManualFill(t *testing.T) {
	h := newHarness(t, Config{ManualMaximize: true})

	h.m.OnStateChanged(platform.WindowMaximized)

	if got := h.m.Placement(); got != ManualMaximized {
		t.Fatalf("placement = %v, want %v", got, ManualMaximized)
	}
	if want := (platform.Rect{Width: 1920, Height: 1040}); h.bounds(t) != want {
		t.Fatalf("bounds = %v, want %v", h.bounds(t), want)
	}
	if h.host.Count("RestoreWindow") != 1 {
		t.Fatalf("OS maximize was not reverted: %v", h.host.Calls())
	}
	if h.res.settled != 1 {
		t.Fatalf("settled = %d, want 1", h.res.settled)
	}

	// The OS echoes the revert as a restore; it must not leave the fill.
	h.m.OnStateChanged(platform.WindowNormal)
	if got := h.m.Placement(); got != ManualMaximized {
		t.Fatalf("placement after echo = %v", got)
	}
}

func TestManualFillIgnoresWorkAreaLeftOffset(t *testing.T) {
	h := newHarness(t, Config{ManualMaximize: true})
	h.mr.Work = platform.RectFromEdges(220, 32, 1920, 1040)

	h.m.OnStateChanged(platform.WindowMaximized)

	if want := platform.RectFromEdges(0, 0, 1920, 1040); h.bounds(t) != want {
		t.Fatalf("bounds = %v, want %v", h.bounds(t), want)
	}
}

func TestManualMaximizeDisabledKeepsOsMaximized(t *testing.T) {
	h := newHarness(t, Config{ManualMaximize: false})

	h.m.OnStateChanged(platform.WindowMaximized)
	if got := h.m.Placement(); got != OsMaximized {
		t.Fatalf("placement = %v, want %v", got, OsMaximized)
	}
	if h.host.Count("SetWindowBounds") != 0 {
		t.Fatalf("window moved while interception is disabled")
	}

	h.m.OnStateChanged(platform.WindowNormal)
	if got := h.m.Placement(); got != Normal {
		t.Fatalf("placement = %v, want %v", got, Normal)
	}
	if h.res.settled != 2 {
		t.Fatalf("settled = %d, want 2", h.res.settled)
	}
}

func TestToggleFromManualReleasesFirst(t *testing.T) {
	h := newHarness(t, Config{ManualMaximize: true})
	h.m.ToggleMaximize()
	if got := h.m.Placement(); got != ManualMaximized {
		t.Fatalf("placement = %v, want %v", got, ManualMaximized)
	}
	if h.host.Count("RestoreWindow") != 0 {
		t.Fatalf("toggle from normal should not touch the OS state")
	}

	h.m.ToggleMaximize()

	if got := h.m.Placement(); got != Normal {
		t.Fatalf("placement = %v, want %v", got, Normal)
	}
	if len(h.res.atRelease) != 1 || h.res.atRelease[0] != ManualMaximized {
		t.Fatalf("release order = %v, want release while still manual", h.res.atRelease)
	}
	if want := (platform.Rect{X: 100, Y: 100, Width: 800, Height: 600}); h.bounds(t) != want {
		t.Fatalf("bounds = %v, want %v", h.bounds(t), want)
	}
}

func TestAttachNewWindowStartsNormal(t *testing.T) {
	h := newHarness(t, Config{ManualMaximize: true})
	h.m.OnStateChanged(platform.WindowMaximized)
	if got := h.m.Placement(); got != ManualMaximized {
		t.Fatalf("placement = %v, want %v", got, ManualMaximized)
	}

	const other platform.WindowID = 9
	h.host.AddWindow(other, platform.Rect{X: 300, Y: 200, Width: 640, Height: 480})
	h.m.Attach(other)

	if got := h.m.Placement(); got != Normal {
		t.Fatalf("placement = %v, want %v", got, Normal)
	}
	if want := (platform.Rect{X: 300, Y: 200, Width: 640, Height: 480}); h.m.RestoreBounds() != want {
		t.Fatalf("restore bounds = %v, want %v", h.m.RestoreBounds(), want)
	}

	h.m.OnStateChanged(platform.WindowMaximized)
	if got := h.m.Placement(); got != ManualMaximized {
		t.Fatalf("maximize after attach: placement = %v", got)
	}
}

func TestToggleFromOsMaximized(t *testing.T) {
	h := newHarness(t, Config{ManualMaximize: false})
	h.m.OnStateChanged(platform.WindowMaximized)

	h.m.ToggleMaximize()

	if got := h.m.Placement(); got != Normal {
		t.Fatalf("placement = %v, want %v", got, Normal)
	}
	if h.host.Count("RestoreWindow") != 1 {
		t.Fatalf("expected RestoreWindow, calls = %v", h.host.Calls())
	}
	// Echo of the restore is swallowed.
	h.m.OnStateChanged(platform.WindowNormal)
	if h.res.settled != 2 {
		t.Fatalf("settled = %d, want 2", h.res.settled)
	}
}

type reentrantHost struct {
	*platformtest.Backend
	m *Machine
}

func (r *reentrantHost) RestoreWindow(id platform.WindowID) error {
	if err := r.Backend.RestoreWindow(id); err != nil {
		return err
	}
	r.m.OnStateChanged(platform.WindowNormal)
	r.m.OnStateChanged(platform.WindowMaximized)
	return nil
}

func TestGuardIgnoresSynchronousOwnEvents(t *testing.T) {
	fake := platformtest.New(1920, 1080)
	fake.AddWindow(testWindow, platform.Rect{X: 10, Y: 10, Width: 400, Height: 300})
	host := &reentrantHost{Backend: fake}
	res := &recordingReserver{}
	mr := geometry.MonitorRects{Full: platform.Rect{Width: 1920, Height: 1080}, Work: platform.Rect{Width: 1920, Height: 1040}}
	m := New(Config{ManualMaximize: true}, host, func() geometry.MonitorRects { return mr }, res)
	res.m = m
	host.m = m
	m.Attach(testWindow)

	m.OnStateChanged(platform.WindowMaximized)

	if got := m.Placement(); got != ManualMaximized {
		t.Fatalf("placement = %v, want %v", got, ManualMaximized)
	}
	if fake.Count("RestoreWindow") != 1 {
		t.Fatalf("RestoreWindow calls = %d, want 1", fake.Count("RestoreWindow"))
	}
	if res.settled != 1 {
		t.Fatalf("settled = %d, want 1", res.settled)
	}
}

func TestStaleEchoExpires(t *testing.T) {
	h := newHarness(t, Config{ManualMaximize: true})
	h.m.OnStateChanged(platform.WindowMaximized) // echo for Normal now pending
	h.m.ToggleMaximize()
	h.m.Reconfigure(false, false)

	h.m.OnStateChanged(platform.WindowMaximized)
	if got := h.m.Placement(); got != OsMaximized {
		t.Fatalf("placement = %v, want %v", got, OsMaximized)
	}

	h.now = h.now.Add(2 * echoWindow)
	h.m.OnStateChanged(platform.WindowNormal)
	if got := h.m.Placement(); got != Normal {
		t.Fatalf("stale echo swallowed a real restore, placement = %v", got)
	}
}

func TestMinimizeIsIgnored(t *testing.T) {
	h := newHarness(t, Config{ManualMaximize: true})
	h.m.OnStateChanged(platform.WindowMaximized)

	h.m.OnStateChanged(platform.WindowMinimized)

	if got := h.m.Placement(); got != ManualMaximized {
		t.Fatalf("placement = %v, want %v", got, ManualMaximized)
	}
	if h.res.settled != 1 {
		t.Fatalf("settled = %d, want 1", h.res.settled)
	}
}

func TestLayoutPassRemembersNormalBounds(t *testing.T) {
	h := newHarness(t, Config{ManualMaximize: true})
	moved := platform.Rect{X: 300, Y: 200, Width: 640, Height: 480}
	if err := h.host.SetWindowBounds(testWindow, moved); err != nil {
		t.Fatalf("SetWindowBounds: %v", err)
	}

	h.m.LayoutPass()

	if got := h.m.RestoreBounds(); got != moved {
		t.Fatalf("restore bounds = %v, want %v", got, moved)
	}
}

func TestLayoutPassClampsAfterMonitorChange(t *testing.T) {
	h := newHarness(t, Config{ManualMaximize: true})
	h.m.OnStateChanged(platform.WindowMaximized)

	h.mr = geometry.MonitorRects{
		Full: platform.Rect{Width: 1280, Height: 720},
		Work: platform.Rect{Width: 1280, Height: 680},
	}
	h.m.LayoutPass()

	if want := (platform.Rect{Width: 1280, Height: 680}); h.bounds(t) != want {
		t.Fatalf("bounds = %v, want %v", h.bounds(t), want)
	}
}

func TestShellModeStaysFullScreen(t *testing.T) {
	h := newHarness(t, Config{Shell: true, ManualMaximize: true})
	work := platform.Rect{Width: 1920, Height: 1040}

	if got := h.m.Placement(); got != ShellFullScreen {
		t.Fatalf("placement = %v, want %v", got, ShellFullScreen)
	}
	if h.bounds(t) != work {
		t.Fatalf("attach bounds = %v, want %v", h.bounds(t), work)
	}

	h.m.OnStateChanged(platform.WindowMaximized)
	h.m.ToggleMaximize()
	if got := h.m.Placement(); got != ShellFullScreen {
		t.Fatalf("placement = %v, want %v", got, ShellFullScreen)
	}
	if h.host.Count("RestoreWindow") != 0 {
		t.Fatalf("shell mode reverted the OS maximize")
	}

	if err := h.host.SetWindowBounds(testWindow, platform.Rect{X: 1800, Y: 900, Width: 600, Height: 400}); err != nil {
		t.Fatalf("SetWindowBounds: %v", err)
	}
	h.m.LayoutPass()
	if want := (platform.Rect{X: 1320, Y: 640, Width: 600, Height: 400}); h.bounds(t) != want {
		t.Fatalf("clamped bounds = %v, want %v", h.bounds(t), want)
	}
}

func TestClamp(t *testing.T) {
	allowed := platform.Rect{Width: 1920, Height: 1040}
	tests := []struct {
		name string
		in   platform.Rect
		want platform.Rect
	}{
		{"inside", platform.Rect{X: 10, Y: 10, Width: 100, Height: 100}, platform.Rect{X: 10, Y: 10, Width: 100, Height: 100}},
		{"too large", platform.Rect{X: -50, Y: -50, Width: 4000, Height: 3000}, allowed},
		{"off right", platform.Rect{X: 1900, Y: 0, Width: 100, Height: 100}, platform.Rect{X: 1820, Y: 0, Width: 100, Height: 100}},
		{"off top", platform.Rect{X: 0, Y: -20, Width: 100, Height: 100}, platform.Rect{X: 0, Y: 0, Width: 100, Height: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.in, allowed); got != tt.want {
				t.Fatalf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
