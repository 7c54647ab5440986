package platform

import (
	"fmt"
	"strings"
)

// WindowID is a platform-neutral window identifier.
type WindowID uint64

// SurfaceID identifies a hidden bar host surface owned by this process.
type SurfaceID uint64

// Rect describes a rectangular region in screen coordinates (device pixels).
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RectFromEdges builds a Rect from left/top/right/bottom edges.
func RectFromEdges(left, top, right, bottom int) Rect {
	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

func (r Rect) Left() int   { return r.X }
func (r Rect) Top() int    { return r.Y }
func (r Rect) Right() int  { return r.X + r.Width }
func (r Rect) Bottom() int { return r.Y + r.Height }

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Rect) String() string {
	return fmt.Sprintf("{%d,%d,%d,%d}", r.Left(), r.Top(), r.Right(), r.Bottom())
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
	Usable Rect
}

// Edge is a screen edge a cooperative bar can claim.
type Edge int

const (
	EdgeLeft Edge = iota
	EdgeTop
)

func (e Edge) String() string {
	switch e {
	case EdgeLeft:
		return "left"
	case EdgeTop:
		return "top"
	default:
		return "unknown"
	}
}

// WindowState is the OS-level show state of a top-level window.
type WindowState int

const (
	WindowNormal WindowState = iota
	WindowMaximized
	WindowMinimized
)

func (s WindowState) String() string {
	switch s {
	case WindowNormal:
		return "normal"
	case WindowMaximized:
		return "maximized"
	case WindowMinimized:
		return "minimized"
	default:
		return "unknown"
	}
}

// ParseWindowState parses the textual form used on the IPC wire.
func ParseWindowState(s string) (WindowState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "restored":
		return WindowNormal, nil
	case "maximized", "maximised":
		return WindowMaximized, nil
	case "minimized", "minimised", "iconic":
		return WindowMinimized, nil
	default:
		return WindowNormal, fmt.Errorf("unknown window state %q", s)
	}
}

// EventKind classifies notifications raised by the window system.
type EventKind int

const (
	// EventBarPositionChanged is the shell's unsolicited broadcast that some
	// bar's layout changed. Surface is the receiving bar, or zero when unknown.
	EventBarPositionChanged EventKind = iota
	// EventShellRestarted means the shell process came back and dropped
	// every bar and work-area override.
	EventShellRestarted
	// EventWindowStateChanged carries a new OS show state for Window.
	EventWindowStateChanged
	// EventDisplayChanged signals a monitor, resolution or DPI change.
	EventDisplayChanged
)

func (k EventKind) String() string {
	switch k {
	case EventBarPositionChanged:
		return "bar-position-changed"
	case EventShellRestarted:
		return "shell-restarted"
	case EventWindowStateChanged:
		return "window-state-changed"
	case EventDisplayChanged:
		return "display-changed"
	default:
		return "unknown"
	}
}

// Event is a notification from the window system. Payload fields are hints
// only; handlers re-derive geometry from their own state.
type Event struct {
	Kind    EventKind
	Surface SurfaceID
	Window  WindowID
	State   WindowState
}

// EventSink receives events. Backends call it from their own goroutine or
// thread; receivers are expected to marshal onto their event loop.
type EventSink func(Event)

// DisplayQuerier answers monitor geometry questions.
type DisplayQuerier interface {
	Displays() ([]Display, error)
	MonitorForWindow(windowID WindowID) (Display, error)
	PrimaryDisplay() (Display, error)
	PrimaryScreenSize() (width, height int, err error)
}

// WorkAreaSetter reads and overwrites the OS-wide usable desktop rectangle.
type WorkAreaSetter interface {
	WorkArea() (Rect, error)
	SetWorkArea(r Rect) error
}

// BarProtocol is the shell's edge-reservation negotiation protocol.
type BarProtocol interface {
	// CreateBarSurface creates a hidden, non-activating, click-through
	// surface that receives shell callbacks for one bar.
	CreateBarSurface(edge Edge) (SurfaceID, error)
	DestroyBarSurface(id SurfaceID) error

	RegisterBar(id SurfaceID) error
	QueryBarPos(id SurfaceID, edge Edge, proposed Rect) (Rect, error)
	SetBarPos(id SurfaceID, edge Edge, rect Rect) (Rect, error)
	BarWindowPosChanged(id SurfaceID) error
	ActivateBar(id SurfaceID) error
	RemoveBar(id SurfaceID) error
}

// KeyboardHook is a global, low-level keyboard filter.
type KeyboardHook interface {
	// InstallKeyFilter swallows chord system-wide and calls onChord for it.
	// All other key events pass through.
	InstallKeyFilter(chord string, onChord func()) error
	RemoveKeyFilter() error
}

// WindowHost manipulates the main application window.
type WindowHost interface {
	WindowBounds(windowID WindowID) (Rect, error)
	SetWindowBounds(windowID WindowID, bounds Rect) error
	// RestoreWindow returns a maximized or minimized window to the normal
	// show state without changing its remembered normal bounds.
	RestoreWindow(windowID WindowID) error
	BringToFront(windowID WindowID) error
}

// Backend abstracts window-system operations across platforms.
type Backend interface {
	DisplayQuerier
	WorkAreaSetter
	BarProtocol
	KeyboardHook
	WindowHost

	// Subscribe registers the sink for window-system events.
	Subscribe(sink EventSink)
	// WatchWindow starts reporting state changes for windowID.
	WatchWindow(windowID WindowID) error
	// EventLoop runs the native event loop and blocks until Disconnect.
	EventLoop()
	Disconnect()
}
