package reservation

import (
	"testing"
	"time"

	"github.com/1broseidon/deskshell/internal/appbar"
	"github.com/1broseidon/deskshell/internal/geometry"
	"github.com/1broseidon/deskshell/internal/platform"
	"github.com/1broseidon/deskshell/internal/platform/platformtest"
	"github.com/1broseidon/deskshell/internal/winstate"
	"github.com/1broseidon/deskshell/internal/workarea"
)

type manualTimer struct {
	s       *manualScheduler
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualScheduler struct {
	pending []*manualTimer
	delays  []time.Duration
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{s: s, f: f}
	s.pending = append(s.pending, t)
	s.delays = append(s.delays, d)
	return t
}

// fire runs the next live timer. It reports false when none is pending.
func (s *manualScheduler) fire() bool {
	for len(s.pending) > 0 {
		t := s.pending[0]
		s.pending = s.pending[1:]
		if t.stopped {
			continue
		}
		t.stopped = true
		t.f()
		return true
	}
	return false
}

func (s *manualScheduler) drain(limit int) int {
	n := 0
	for n < limit && s.fire() {
		n++
	}
	return n
}

const mainWindow platform.WindowID = 42

type fixture struct {
	fake    *platformtest.Backend
	sched   *manualScheduler
	machine *winstate.Machine
	coord   *Coordinator
	reg     *appbar.Registrar
	writer  *workarea.Writer
	chrome  Chrome
}

func newFixture(t *testing.T, shell bool) *fixture {
	t.Helper()
	f := &fixture{
		fake:   platformtest.New(1920, 1080),
		sched:  &manualScheduler{},
		chrome: Chrome{SidebarRight: 220, TitlebarHeight: 32},
	}
	f.fake.Primary.Usable = platform.RectFromEdges(0, 0, 1920, 1040)
	f.fake.AddWindow(mainWindow, platform.Rect{X: 200, Y: 150, Width: 1024, Height: 700})

	resolver := geometry.NewResolver(f.fake, nil)
	monitor := func() geometry.MonitorRects { return resolver.MonitorRects(mainWindow) }

	f.reg = appbar.NewRegistrar(f.fake, monitor, nil)
	f.writer = workarea.NewWriter(f.fake, f.fake, nil)
	f.machine = winstate.New(winstate.Config{Shell: shell, ManualMaximize: true}, f.fake, monitor, nil)
	f.coord = New(Config{Shell: shell, TaskbarHeight: 40, Retry: RetryConfig{MaxAttempts: 5, Interval: 100 * time.Millisecond}},
		f.reg, f.writer, func() Chrome { return f.chrome }, f.machine.Placement, f.sched)
	f.machine.SetReserver(f.coord)
	f.machine.Attach(mainWindow)
	return f
}

// exclusive fails the test if both mechanisms hold a claim.
func (f *fixture) exclusive(t *testing.T) {
	t.Helper()
	if f.writer.Active() && len(f.fake.RegisteredBars()) > 0 {
		t.Fatalf("legacy override and cooperative bars held at once")
	}
}

func TestManualMaximizeReservesChrome(t *testing.T) {
	f := newFixture(t, false)

	f.machine.OnStateChanged(platform.WindowMaximized)

	if got := f.machine.Placement(); got != winstate.ManualMaximized {
		t.Fatalf("placement = %v", got)
	}
	bounds, _ := f.fake.WindowBounds(mainWindow)
	if want := (platform.Rect{Width: 1920, Height: 1040}); bounds != want {
		t.Fatalf("window bounds = %v, want %v", bounds, want)
	}
	if got := f.reg.Size(platform.EdgeLeft); got != 220 {
		t.Fatalf("left = %d, want 220", got)
	}
	if got := f.reg.Size(platform.EdgeTop); got != 32 {
		t.Fatalf("top = %d, want 32", got)
	}
	if f.coord.Held() != ModeCooperative {
		t.Fatalf("held = %v", f.coord.Held())
	}
}

func TestShellModeCutsTaskbarStrip(t *testing.T) {
	f := newFixture(t, true)

	f.coord.OnLayoutSettled()
	if want := platform.RectFromEdges(0, 0, 1920, 1040); f.fake.Area != want {
		t.Fatalf("work area = %v, want %v", f.fake.Area, want)
	}
	if f.reg.Held() {
		t.Fatalf("cooperative bars registered in shell mode")
	}

	f.coord.ReleaseIfHeld()
	if want := platform.RectFromEdges(0, 0, 1920, 1080); f.fake.Area != want {
		t.Fatalf("work area = %v, want %v", f.fake.Area, want)
	}
}

func TestShellRestartReappliesFromChrome(t *testing.T) {
	f := newFixture(t, false)
	f.machine.OnStateChanged(platform.WindowMaximized)
	f.sched.drain(10)

	f.fake.ShellRestart()
	if len(f.fake.RegisteredBars()) != 0 {
		t.Fatalf("fake shell kept bars across restart")
	}
	f.coord.OnShellRestarted()

	bars := f.fake.RegisteredBars()
	if len(bars) != 2 {
		t.Fatalf("registered bars = %d, want 2", len(bars))
	}
	for _, b := range bars {
		switch b.Edge {
		case platform.EdgeLeft:
			if b.Rect.Width != 220 {
				t.Fatalf("left width = %d, want 220", b.Rect.Width)
			}
		case platform.EdgeTop:
			if b.Rect.Height != 32 {
				t.Fatalf("top height = %d, want 32", b.Rect.Height)
			}
		}
	}
}

func TestSidebarResizeUpdatesHandleInPlace(t *testing.T) {
	f := newFixture(t, false)
	f.machine.OnStateChanged(platform.WindowMaximized)
	before, _ := f.reg.Handle(platform.EdgeLeft)

	f.chrome.SidebarRight = 260
	f.coord.OnLayoutSettled()

	after, _ := f.reg.Handle(platform.EdgeLeft)
	if after.Size != 260 {
		t.Fatalf("left size = %d, want 260", after.Size)
	}
	if after.Surface != before.Surface || f.fake.Count("DestroyBarSurface") != 0 {
		t.Fatalf("handle was recreated")
	}
}

func TestRetryConvergesWithinCap(t *testing.T) {
	f := newFixture(t, false)
	f.machine.OnStateChanged(platform.WindowMaximized)
	f.fake.ResetCalls()

	ticks := f.sched.drain(100)

	if ticks > 5 {
		t.Fatalf("ticks = %d, exceeds cap 5", ticks)
	}
	if ticks != 2 {
		t.Fatalf("ticks = %d, want 2 for stable geometry", ticks)
	}
	if got := f.fake.Count("SetBarPos"); got != 0 {
		t.Fatalf("stable ticks re-committed %d times", got)
	}
	if f.coord.Status().RetryActive {
		t.Fatalf("budget still active after convergence")
	}
}

func TestRetryTracksStaleMeasurement(t *testing.T) {
	f := newFixture(t, false)
	// The first measurement after the transition is one layout pass behind.
	f.chrome = Chrome{SidebarRight: 200, TitlebarHeight: 24}
	f.machine.OnStateChanged(platform.WindowMaximized)
	f.chrome = Chrome{SidebarRight: 220, TitlebarHeight: 32}

	ticks := f.sched.drain(100)

	if ticks != 2 {
		t.Fatalf("ticks = %d, want 2", ticks)
	}
	if f.reg.Size(platform.EdgeLeft) != 220 || f.reg.Size(platform.EdgeTop) != 32 {
		t.Fatalf("sizes = %d/%d, want 220/32", f.reg.Size(platform.EdgeLeft), f.reg.Size(platform.EdgeTop))
	}
}

func TestRetryStopsAtCap(t *testing.T) {
	f := newFixture(t, false)
	f.machine.OnStateChanged(platform.WindowMaximized)
	n := 0
	orig := f.coord.chrome
	f.coord.chrome = func() Chrome {
		n++
		c := orig()
		c.SidebarRight += n
		return c
	}

	ticks := f.sched.drain(100)

	if ticks != 5 {
		t.Fatalf("ticks = %d, want 5", ticks)
	}
}

func TestRetryStopsWhenLeavingCooperative(t *testing.T) {
	f := newFixture(t, false)
	f.machine.OnStateChanged(platform.WindowMaximized)

	f.machine.ToggleMaximize()

	if ticks := f.sched.drain(100); ticks != 0 {
		t.Fatalf("ticks after release = %d, want 0", ticks)
	}
	if f.reg.Held() {
		t.Fatalf("bars held after leaving cooperative")
	}
}

func TestFullReleaseInvariant(t *testing.T) {
	sequences := [][]func(f *fixture){
		{
			func(f *fixture) { f.machine.OnStateChanged(platform.WindowMaximized) },
			func(f *fixture) { f.machine.ToggleMaximize() },
		},
		{
			func(f *fixture) { f.machine.ToggleMaximize() },
			func(f *fixture) { f.sched.drain(3) },
			func(f *fixture) { f.machine.ToggleMaximize() },
		},
		{
			func(f *fixture) { f.machine.Reconfigure(false, false) },
			func(f *fixture) { f.machine.OnStateChanged(platform.WindowMaximized) },
			func(f *fixture) { f.coord.OnShellRestarted() },
			func(f *fixture) { f.machine.OnStateChanged(platform.WindowNormal) },
		},
		{
			func(f *fixture) { f.machine.OnStateChanged(platform.WindowMaximized) },
			func(f *fixture) { f.machine.OnStateChanged(platform.WindowMinimized) },
			func(f *fixture) { f.chrome.SidebarRight = 300; f.coord.OnLayoutSettled() },
			func(f *fixture) { f.machine.ToggleMaximize() },
		},
	}
	for i, seq := range sequences {
		f := newFixture(t, false)
		for _, step := range seq {
			step(f)
			f.exclusive(t)
		}
		f.sched.drain(100)
		if got := f.machine.Placement(); got != winstate.Normal {
			t.Fatalf("sequence %d: placement = %v, want normal", i, got)
		}
		if f.reg.Held() || len(f.fake.RegisteredBars()) != 0 {
			t.Fatalf("sequence %d: bars remain: %+v", i, f.reg.Handles())
		}
	}
}

func TestModeSwitchReleasesBeforeAcquire(t *testing.T) {
	f := newFixture(t, false)
	f.machine.OnStateChanged(platform.WindowMaximized)
	f.fake.ResetCalls()

	f.coord.Reconfigure(true, 40, RetryConfig{})
	f.exclusive(t)

	calls := f.fake.Calls()
	firstSet, lastRemove := -1, -1
	for i, c := range calls {
		if c == "SetWorkArea" && firstSet < 0 {
			firstSet = i
		}
		if c == "RemoveBar" {
			lastRemove = i
		}
	}
	if firstSet < 0 || lastRemove < 0 || lastRemove > firstSet {
		t.Fatalf("calls out of order: %v", calls)
	}
	if f.coord.Held() != ModeLegacyShell {
		t.Fatalf("held = %v", f.coord.Held())
	}

	f.coord.Reconfigure(false, 40, RetryConfig{})
	f.exclusive(t)
	if f.writer.Active() {
		t.Fatalf("legacy override still active")
	}
}

func TestFailedRestoreBlocksCooperativeBars(t *testing.T) {
	f := newFixture(t, false)
	f.machine.OnStateChanged(platform.WindowMaximized)
	f.coord.Reconfigure(true, 40, RetryConfig{})
	if !f.writer.Active() {
		t.Fatalf("legacy override not applied")
	}

	// Both the release and the immediate retry fail.
	f.fake.FailNext("SetWorkArea", 2)
	f.coord.Reconfigure(false, 40, RetryConfig{})
	f.exclusive(t)
	if f.reg.Held() || len(f.fake.RegisteredBars()) != 0 {
		t.Fatalf("bars registered while work area still reduced")
	}
	if !f.writer.Owed() {
		t.Fatalf("restore no longer owed after failure")
	}

	f.sched.drain(10)
	f.exclusive(t)
	if f.writer.Owed() {
		t.Fatalf("restore still owed after retry tick")
	}
	if want := platform.RectFromEdges(0, 0, 1920, 1080); f.fake.Area != want {
		t.Fatalf("work area = %v, want %v", f.fake.Area, want)
	}
	if f.coord.Held() != ModeCooperative || len(f.fake.RegisteredBars()) != 2 {
		t.Fatalf("held = %v bars = %d, want cooperative with 2", f.coord.Held(), len(f.fake.RegisteredBars()))
	}
}

func TestLegacyFailureStillRestoredOnExit(t *testing.T) {
	f := newFixture(t, true)
	f.fake.FailNext("SetWorkArea", 1)

	f.coord.OnLayoutSettled()
	if f.coord.Held() != ModeLegacyShell {
		t.Fatalf("held = %v, want legacy-shell", f.coord.Held())
	}
	f.coord.ReleaseIfHeld()

	if got := f.fake.Count("SetWorkArea"); got != 2 {
		t.Fatalf("SetWorkArea calls = %d, want 2", got)
	}
	if want := platform.RectFromEdges(0, 0, 1920, 1080); f.fake.Area != want {
		t.Fatalf("work area = %v, want %v", f.fake.Area, want)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := newFixture(t, false)
	f.machine.OnStateChanged(platform.WindowMaximized)

	f.coord.ReleaseIfHeld()
	f.fake.ResetCalls()
	f.coord.ReleaseIfHeld()

	if calls := f.fake.Calls(); len(calls) != 0 {
		t.Fatalf("second release made calls: %v", calls)
	}
}

func TestBarPositionEventRenegotiates(t *testing.T) {
	f := newFixture(t, false)
	f.machine.OnStateChanged(platform.WindowMaximized)
	f.sched.drain(10)
	f.fake.Adjust = func(edge platform.Edge, p platform.Rect) platform.Rect {
		if edge == platform.EdgeLeft {
			p.Y, p.Height = 40, p.Height-40
		}
		return p
	}

	f.coord.HandleEvent(platform.Event{Kind: platform.EventBarPositionChanged})

	h, _ := f.reg.Handle(platform.EdgeLeft)
	if h.Rect.Y != 40 || h.Rect.Width != 220 {
		t.Fatalf("left rect = %v", h.Rect)
	}
}
