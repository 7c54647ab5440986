//go:build linux

package platform

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/1broseidon/deskshell/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// LinuxBackend implements Backend on X11 with EWMH docks and struts.
type LinuxBackend struct {
	conn *x11.Connection

	mu        sync.Mutex
	sink      EventSink
	surfaces  map[SurfaceID]xproto.Window
	chord     string
	wmCheck   xproto.Window
	workArea  Rect
	subscribe sync.Once
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{
		conn:     conn,
		surfaces: make(map[SurfaceID]xproto.Window),
	}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay(display string) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn), nil
}

// Open returns the backend for the current platform.
func Open(display string) (Backend, error) {
	return NewLinuxBackendFromDisplay(display)
}

// Disconnect stops the event loop and closes the X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// Subscribe starts watching the root window and forwards events to sink.
func (b *LinuxBackend) Subscribe(sink EventSink) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()

	b.subscribe.Do(func() {
		if wm, err := b.conn.SupportingWM(); err == nil {
			b.wmCheck = wm
		}
		if wa, err := b.WorkArea(); err == nil {
			b.workArea = wa
		}
		if err := b.conn.OnRootPropertyChange(b.onRootProperty); err != nil {
			slog.Warn("x11: root property events unavailable, shell restarts and bar moves will be missed", "error", err)
		}
		if err := b.conn.OnScreenChange(func() {
			b.emit(Event{Kind: EventDisplayChanged})
		}); err != nil {
			slog.Warn("x11: screen change events unavailable", "error", err)
		}
	})
}

func (b *LinuxBackend) onRootProperty(prop x11.RootProperty) {
	switch prop {
	case x11.RootSupportingWM:
		wm, err := b.conn.SupportingWM()
		if err != nil || wm == 0 {
			return
		}
		b.mu.Lock()
		restarted := b.wmCheck != 0 && wm != b.wmCheck
		b.wmCheck = wm
		b.mu.Unlock()
		if restarted {
			b.emit(Event{Kind: EventShellRestarted})
		}
	case x11.RootWorkArea:
		wa, err := b.WorkArea()
		if err != nil {
			return
		}
		b.mu.Lock()
		changed := wa != b.workArea
		b.workArea = wa
		b.mu.Unlock()
		if changed {
			b.emit(Event{Kind: EventBarPositionChanged})
		}
	}
}

func (b *LinuxBackend) emit(ev Event) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

// WatchWindow reports _NET_WM_STATE changes of windowID as events.
func (b *LinuxBackend) WatchWindow(windowID WindowID) error {
	return b.conn.OnWindowStateChange(xproto.Window(windowID), func(state x11.ShowState) {
		b.emit(Event{
			Kind:   EventWindowStateChanged,
			Window: windowID,
			State:  windowStateFromShow(state),
		})
	})
}

func windowStateFromShow(s x11.ShowState) WindowState {
	switch s {
	case x11.ShowMaximized:
		return WindowMaximized
	case x11.ShowMinimized:
		return WindowMinimized
	default:
		return WindowNormal
	}
}

// Displays returns all active displays.
func (b *LinuxBackend) Displays() ([]Display, error) {
	monitors, err := b.conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, b.displayFromMonitor(m))
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return displays, nil
}

// MonitorForWindow returns the display holding the centre of windowID.
func (b *LinuxBackend) MonitorForWindow(windowID WindowID) (Display, error) {
	if windowID == 0 {
		return Display{}, fmt.Errorf("no window attached")
	}
	mon, err := b.conn.MonitorForWindow(xproto.Window(windowID))
	if err != nil {
		return Display{}, err
	}
	return b.displayFromMonitor(*mon), nil
}

// PrimaryDisplay returns the RandR primary display.
func (b *LinuxBackend) PrimaryDisplay() (Display, error) {
	mon, err := b.conn.PrimaryMonitor()
	if err != nil {
		return Display{}, err
	}
	return b.displayFromMonitor(*mon), nil
}

// PrimaryScreenSize returns the root window size.
func (b *LinuxBackend) PrimaryScreenSize() (int, int, error) {
	w, h := b.conn.ScreenSize()
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("root window has no size")
	}
	return w, h, nil
}

// WorkArea returns _NET_WORKAREA for the current desktop.
func (b *LinuxBackend) WorkArea() (Rect, error) {
	x, y, w, h, err := b.conn.WorkArea()
	if err != nil {
		return Rect{}, err
	}
	return Rect{X: x, Y: y, Width: w, Height: h}, nil
}

// SetWorkArea overwrites _NET_WORKAREA on every desktop.
func (b *LinuxBackend) SetWorkArea(r Rect) error {
	return b.conn.SetWorkArea(r.X, r.Y, r.Width, r.Height)
}

// CreateBarSurface creates a mapped 1x1 dock window for edge.
func (b *LinuxBackend) CreateBarSurface(edge Edge) (SurfaceID, error) {
	win, err := b.conn.CreateDockSurface("deskshell-bar-" + edge.String())
	if err != nil {
		return 0, err
	}
	id := SurfaceID(win)
	b.mu.Lock()
	b.surfaces[id] = win
	b.mu.Unlock()
	return id, nil
}

// DestroyBarSurface destroys a dock surface.
func (b *LinuxBackend) DestroyBarSurface(id SurfaceID) error {
	win, err := b.surface(id)
	if err != nil {
		return err
	}
	b.conn.DestroyDockSurface(win)
	b.mu.Lock()
	delete(b.surfaces, id)
	b.mu.Unlock()
	return nil
}

// RegisterBar has nothing to negotiate under EWMH: a mapped dock window is
// registered as soon as it publishes struts.
func (b *LinuxBackend) RegisterBar(id SurfaceID) error {
	_, err := b.surface(id)
	return err
}

// QueryBarPos moves proposed clear of struts published by other docks on
// the same monitor, the way a shell adjusts a bar during negotiation.
func (b *LinuxBackend) QueryBarPos(id SurfaceID, edge Edge, proposed Rect) (Rect, error) {
	win, err := b.surface(id)
	if err != nil {
		return Rect{}, err
	}
	mon, err := b.monitorContaining(proposed)
	if err != nil {
		return Rect{}, err
	}

	struts, _ := b.conn.DockStruts(mon, win)
	monRect := Rect{X: mon.X, Y: mon.Y, Width: mon.Width, Height: mon.Height}

	out := proposed
	switch edge {
	case EdgeLeft:
		left := max(proposed.Left(), monRect.Left()+struts.Left)
		top := max(proposed.Top(), monRect.Top()+struts.Top)
		bottom := min(proposed.Bottom(), monRect.Bottom()-struts.Bottom)
		out = RectFromEdges(left, top, left+proposed.Width, bottom)
	case EdgeTop:
		top := max(proposed.Top(), monRect.Top()+struts.Top)
		out = RectFromEdges(proposed.Left(), top, proposed.Right(), top+proposed.Height)
	default:
		return Rect{}, fmt.Errorf("unsupported edge %v", edge)
	}
	if out.Empty() {
		return Rect{}, fmt.Errorf("no room on %v edge for %v", edge, proposed)
	}
	return out, nil
}

// SetBarPos publishes the strut for rect.
func (b *LinuxBackend) SetBarPos(id SurfaceID, edge Edge, rect Rect) (Rect, error) {
	win, err := b.surface(id)
	if err != nil {
		return Rect{}, err
	}
	dockEdge := x11.DockLeft
	if edge == EdgeTop {
		dockEdge = x11.DockTop
	}
	if err := b.conn.SetDockStrut(win, dockEdge, rect.X, rect.Y, rect.Width, rect.Height); err != nil {
		return Rect{}, err
	}
	return rect, nil
}

// BarWindowPosChanged is implicit under EWMH: the window manager watches
// strut properties itself.
func (b *LinuxBackend) BarWindowPosChanged(id SurfaceID) error {
	_, err := b.surface(id)
	return err
}

// ActivateBar raises the dock surface.
func (b *LinuxBackend) ActivateBar(id SurfaceID) error {
	win, err := b.surface(id)
	if err != nil {
		return err
	}
	return b.conn.RaiseDock(win)
}

// RemoveBar withdraws the struts of a dock surface.
func (b *LinuxBackend) RemoveBar(id SurfaceID) error {
	win, err := b.surface(id)
	if err != nil {
		return err
	}
	return b.conn.ClearDockStrut(win)
}

// InstallKeyFilter grabs chord on the root window.
func (b *LinuxBackend) InstallKeyFilter(chord string, onChord func()) error {
	b.mu.Lock()
	installed := b.chord
	b.mu.Unlock()
	if installed != "" {
		return fmt.Errorf("key filter already installed for %q", installed)
	}
	if err := b.conn.GrabChord(chord, onChord); err != nil {
		return fmt.Errorf("grab %q: %w", chord, err)
	}
	b.mu.Lock()
	b.chord = chord
	b.mu.Unlock()
	return nil
}

// RemoveKeyFilter releases the chord grab.
func (b *LinuxBackend) RemoveKeyFilter() error {
	b.mu.Lock()
	chord := b.chord
	b.chord = ""
	b.mu.Unlock()
	if chord == "" {
		return nil
	}
	return b.conn.UngrabChord(chord)
}

// WindowBounds returns the root-relative geometry of windowID.
func (b *LinuxBackend) WindowBounds(windowID WindowID) (Rect, error) {
	x, y, w, h, err := b.conn.WindowGeometry(xproto.Window(windowID))
	if err != nil {
		return Rect{}, err
	}
	return Rect{X: x, Y: y, Width: w, Height: h}, nil
}

// SetWindowBounds moves and resizes windowID.
func (b *LinuxBackend) SetWindowBounds(windowID WindowID, bounds Rect) error {
	return b.conn.MoveResizeWindow(xproto.Window(windowID), bounds.X, bounds.Y, bounds.Width, bounds.Height)
}

// RestoreWindow drops maximized/hidden states.
func (b *LinuxBackend) RestoreWindow(windowID WindowID) error {
	return b.conn.RestoreWindow(xproto.Window(windowID))
}

// BringToFront restores windowID if needed and activates it.
func (b *LinuxBackend) BringToFront(windowID WindowID) error {
	win := xproto.Window(windowID)
	if state, err := b.conn.WindowShowState(win); err == nil && state == x11.ShowMinimized {
		if err := b.conn.RestoreWindow(win); err != nil {
			return err
		}
	}
	return b.conn.FocusWindow(win)
}

func (b *LinuxBackend) surface(id SurfaceID) (xproto.Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	win, ok := b.surfaces[id]
	if !ok {
		return 0, fmt.Errorf("unknown bar surface %d", id)
	}
	return win, nil
}

func (b *LinuxBackend) monitorContaining(r Rect) (x11.Monitor, error) {
	monitors, err := b.conn.GetMonitors()
	if err != nil {
		return x11.Monitor{}, err
	}
	for _, m := range monitors {
		if r.X >= m.X && r.X < m.X+m.Width && r.Y >= m.Y && r.Y < m.Y+m.Height {
			return m, nil
		}
	}
	if len(monitors) == 0 {
		return x11.Monitor{}, fmt.Errorf("no monitors found")
	}
	return monitors[0], nil
}

func (b *LinuxBackend) displayFromMonitor(m x11.Monitor) Display {
	usable := b.conn.UsableArea(m)
	return Display{
		ID:     m.ID,
		Name:   m.Name,
		Bounds: Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
		Usable: Rect{X: usable.X, Y: usable.Y, Width: usable.Width, Height: usable.Height},
	}
}
