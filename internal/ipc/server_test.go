package ipc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/1broseidon/deskshell/internal/platform"
)

type fakeHandler struct {
	mu       sync.Mutex
	attached platform.WindowID
	layouts  []LayoutSettledPayload
	states   []platform.WindowState
	toggles  int
	releases int
	reloads  int
	failWith error
}

type handlerCalls struct {
	attached platform.WindowID
	layouts  []LayoutSettledPayload
	states   []platform.WindowState
	toggles  int
	releases int
	reloads  int
}

func (h *fakeHandler) snapshot() handlerCalls {
	h.mu.Lock()
	defer h.mu.Unlock()
	return handlerCalls{
		attached: h.attached,
		layouts:  append([]LayoutSettledPayload(nil), h.layouts...),
		states:   append([]platform.WindowState(nil), h.states...),
		toggles:  h.toggles,
		releases: h.releases,
		reloads:  h.reloads,
	}
}

func (h *fakeHandler) Attach(w platform.WindowID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attached = w
	return h.failWith
}

func (h *fakeHandler) LayoutSettled(p LayoutSettledPayload) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layouts = append(h.layouts, p)
	return h.failWith
}

func (h *fakeHandler) WindowState(s platform.WindowState) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, s)
	return h.failWith
}

func (h *fakeHandler) ToggleMaximize() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.toggles++
	return h.failWith
}

func (h *fakeHandler) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releases++
	return h.failWith
}

func (h *fakeHandler) Reload() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloads++
	return h.failWith
}

func (h *fakeHandler) Status() (StatusData, error) {
	return StatusData{
		InstanceID:  "abc",
		Placement:   "manual-maximized",
		DesiredMode: "cooperative",
		HeldMode:    "cooperative",
		Bars: []BarInfo{
			{Edge: "left", Size: 220, Registered: true, Rect: RectData{Width: 220, Height: 1040}},
		},
	}, nil
}

func (h *fakeHandler) Monitors() (MonitorsData, error) {
	return MonitorsData{
		Full:   RectData{Width: 1920, Height: 1080},
		Work:   RectData{Width: 1920, Height: 1040},
		Source: "window",
	}, nil
}

func startServer(t *testing.T, h Handler) *Client {
	t.Helper()
	// Keep the path short; sun_path is limited to ~108 bytes.
	dir, err := os.MkdirTemp("", "ds")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	srv := NewServerAt(filepath.Join(dir, "s.sock"), h, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return NewClientAt(srv.SocketPath())
}

func TestClientServerRoundTrip(t *testing.T) {
	h := &fakeHandler{}
	c := startServer(t, h)

	if err := c.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := c.Attach(0x2a00004); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if got := h.snapshot(); got.attached != 0x2a00004 {
		t.Fatalf("attached = %#x", got.attached)
	}

	if err := c.LayoutSettled(LayoutSettledPayload{SidebarRight: 220, TitlebarHeight: 32, DPI: 96}); err != nil {
		t.Fatalf("LayoutSettled: %v", err)
	}
	if got := h.snapshot(); len(got.layouts) != 1 || got.layouts[0].SidebarRight != 220 || got.layouts[0].TitlebarHeight != 32 {
		t.Fatalf("layouts = %+v", got.layouts)
	}

	if err := c.WindowState("maximized"); err != nil {
		t.Fatalf("WindowState: %v", err)
	}
	if got := h.snapshot(); len(got.states) != 1 || got.states[0] != platform.WindowMaximized {
		t.Fatalf("states = %v", got.states)
	}

	if err := c.ToggleMaximize(); err != nil {
		t.Fatalf("ToggleMaximize: %v", err)
	}
	if err := c.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := h.snapshot(); got.toggles != 1 || got.releases != 1 || got.reloads != 1 {
		t.Fatalf("toggles=%d releases=%d reloads=%d", got.toggles, got.releases, got.reloads)
	}

	status, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.InstanceID != "abc" || len(status.Bars) != 1 || status.Bars[0].Size != 220 {
		t.Fatalf("status = %+v", status)
	}

	monitors, err := c.GetMonitors()
	if err != nil {
		t.Fatalf("GetMonitors: %v", err)
	}
	if monitors.Work.Height != 1040 || monitors.Source != "window" {
		t.Fatalf("monitors = %+v", monitors)
	}
}

func TestServerRejectsBadPayloads(t *testing.T) {
	h := &fakeHandler{}
	c := startServer(t, h)

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"zero window", func() error { return c.Attach(0) }, "window_id is required"},
		{"bad state", func() error { return c.WindowState("fullscreen") }, "unknown window state"},
		{"negative sidebar", func() error { return c.LayoutSettled(LayoutSettledPayload{SidebarRight: -1}) }, "must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
	if got := h.snapshot(); len(got.states) != 0 || len(got.layouts) != 0 || got.attached != 0 {
		t.Fatalf("handler invoked for invalid requests: %+v", got)
	}
}

func TestServerSurfacesHandlerErrors(t *testing.T) {
	h := &fakeHandler{failWith: errors.New("no window attached")}
	c := startServer(t, h)

	err := c.ToggleMaximize()
	if err == nil || !strings.Contains(err.Error(), "no window attached") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseRequestRequiresCommand(t *testing.T) {
	if _, err := ParseRequest([]byte(`{"payload":{}}`)); err == nil {
		t.Fatalf("expected error for missing command")
	}
	req, err := ParseRequest([]byte(`{"command":"PING"}`))
	if err != nil || req.Command != CommandPing {
		t.Fatalf("req=%+v err=%v", req, err)
	}
}

func TestClientWithoutDaemon(t *testing.T) {
	c := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	err := c.Ping()
	if err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("err = %v", err)
	}
}
