// Package platformtest provides an in-memory Backend for tests.
package platformtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/1broseidon/deskshell/internal/platform"
)

// ErrInjected is returned by operations scheduled to fail with FailNext.
var ErrInjected = errors.New("injected failure")

// Bar is the fake shell's view of one bar surface.
type Bar struct {
	Edge       platform.Edge
	Registered bool
	Rect       platform.Rect
	Activated  int
}

// Window is a fake top-level window.
type Window struct {
	Bounds platform.Rect
	State  platform.WindowState
	Front  bool
}

// Backend is a fake platform.Backend. The zero value is not usable; use New.
type Backend struct {
	mu sync.Mutex

	// Primary is the primary display. Screen size is taken from its bounds.
	Primary platform.Display
	// Others are additional displays.
	Others []platform.Display
	// WindowDisplay maps a window to the display it is on. Windows not listed
	// fail MonitorForWindow.
	WindowDisplay map[platform.WindowID]platform.Display

	// Area is the global work area.
	Area platform.Rect

	// Adjust, when set, lets tests play the shell and move a proposed bar.
	Adjust func(edge platform.Edge, proposed platform.Rect) platform.Rect

	Bars    map[platform.SurfaceID]*Bar
	Windows map[platform.WindowID]*Window

	Chord     string
	onChord   func()
	Installed int
	Removed   int

	calls   []string
	fail    map[string]int
	next    platform.SurfaceID
	sink    platform.EventSink
	watched map[platform.WindowID]bool
}

// New returns a fake with a single primary display of the given size and a
// work area equal to the full screen.
func New(width, height int) *Backend {
	full := platform.Rect{Width: width, Height: height}
	return &Backend{
		Primary:       platform.Display{ID: 0, Name: "primary", Bounds: full, Usable: full},
		WindowDisplay: make(map[platform.WindowID]platform.Display),
		Area:          full,
		Bars:          make(map[platform.SurfaceID]*Bar),
		Windows:       make(map[platform.WindowID]*Window),
		fail:          make(map[string]int),
		watched:       make(map[platform.WindowID]bool),
	}
}

// AddWindow creates a window on the primary display.
func (b *Backend) AddWindow(id platform.WindowID, bounds platform.Rect) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Windows[id] = &Window{Bounds: bounds}
	b.WindowDisplay[id] = b.Primary
}

// FailNext makes the next n calls of op return ErrInjected.
func (b *Backend) FailNext(op string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[op] = n
}

// Calls returns the operations invoked so far, in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// Count returns how many times op was invoked.
func (b *Backend) Count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// RegisteredBars returns bars currently registered with the fake shell.
func (b *Backend) RegisteredBars() []Bar {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Bar
	for _, bar := range b.Bars {
		if bar.Registered {
			out = append(out, *bar)
		}
	}
	return out
}

// Emit delivers ev to the subscribed sink.
func (b *Backend) Emit(ev platform.Event) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

// PressChord simulates the installed chord being pressed. It reports
// whether the filter swallowed it.
func (b *Backend) PressChord() bool {
	b.mu.Lock()
	fn := b.onChord
	b.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// ShellRestart drops every registration, resets the work area and emits
// EventShellRestarted.
func (b *Backend) ShellRestart() {
	b.mu.Lock()
	for _, bar := range b.Bars {
		bar.Registered = false
		bar.Rect = platform.Rect{}
	}
	b.Area = b.Primary.Bounds
	b.mu.Unlock()
	b.Emit(platform.Event{Kind: platform.EventShellRestarted})
}

func (b *Backend) record(op string) error {
	b.calls = append(b.calls, op)
	if n := b.fail[op]; n > 0 {
		b.fail[op] = n - 1
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}
	return nil
}

func (b *Backend) Displays() ([]platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("Displays"); err != nil {
		return nil, err
	}
	return append([]platform.Display{b.Primary}, b.Others...), nil
}

func (b *Backend) MonitorForWindow(id platform.WindowID) (platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("MonitorForWindow"); err != nil {
		return platform.Display{}, err
	}
	d, ok := b.WindowDisplay[id]
	if !ok {
		return platform.Display{}, fmt.Errorf("window %d not found", id)
	}
	return d, nil
}

func (b *Backend) PrimaryDisplay() (platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("PrimaryDisplay"); err != nil {
		return platform.Display{}, err
	}
	return b.Primary, nil
}

func (b *Backend) PrimaryScreenSize() (int, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("PrimaryScreenSize"); err != nil {
		return 0, 0, err
	}
	return b.Primary.Bounds.Width, b.Primary.Bounds.Height, nil
}

func (b *Backend) WorkArea() (platform.Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("WorkArea"); err != nil {
		return platform.Rect{}, err
	}
	return b.Area, nil
}

func (b *Backend) SetWorkArea(r platform.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("SetWorkArea"); err != nil {
		return err
	}
	b.Area = r
	return nil
}

func (b *Backend) CreateBarSurface(edge platform.Edge) (platform.SurfaceID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("CreateBarSurface"); err != nil {
		return 0, err
	}
	b.next++
	b.Bars[b.next] = &Bar{Edge: edge}
	return b.next, nil
}

func (b *Backend) DestroyBarSurface(id platform.SurfaceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("DestroyBarSurface"); err != nil {
		return err
	}
	delete(b.Bars, id)
	return nil
}

func (b *Backend) bar(id platform.SurfaceID) (*Bar, error) {
	bar, ok := b.Bars[id]
	if !ok {
		return nil, fmt.Errorf("surface %d not found", id)
	}
	return bar, nil
}

func (b *Backend) RegisterBar(id platform.SurfaceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("RegisterBar"); err != nil {
		return err
	}
	bar, err := b.bar(id)
	if err != nil {
		return err
	}
	if bar.Registered {
		return fmt.Errorf("surface %d already registered", id)
	}
	bar.Registered = true
	return nil
}

func (b *Backend) QueryBarPos(id platform.SurfaceID, edge platform.Edge, proposed platform.Rect) (platform.Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("QueryBarPos"); err != nil {
		return platform.Rect{}, err
	}
	bar, err := b.bar(id)
	if err != nil {
		return platform.Rect{}, err
	}
	if !bar.Registered {
		return platform.Rect{}, fmt.Errorf("surface %d not registered", id)
	}
	if b.Adjust != nil {
		return b.Adjust(edge, proposed), nil
	}
	return proposed, nil
}

func (b *Backend) SetBarPos(id platform.SurfaceID, edge platform.Edge, r platform.Rect) (platform.Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("SetBarPos"); err != nil {
		return platform.Rect{}, err
	}
	bar, err := b.bar(id)
	if err != nil {
		return platform.Rect{}, err
	}
	if !bar.Registered {
		return platform.Rect{}, fmt.Errorf("surface %d not registered", id)
	}
	bar.Rect = r
	return r, nil
}

func (b *Backend) BarWindowPosChanged(id platform.SurfaceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.record("BarWindowPosChanged")
}

func (b *Backend) ActivateBar(id platform.SurfaceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("ActivateBar"); err != nil {
		return err
	}
	if bar, ok := b.Bars[id]; ok {
		bar.Activated++
	}
	return nil
}

func (b *Backend) RemoveBar(id platform.SurfaceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("RemoveBar"); err != nil {
		return err
	}
	if bar, ok := b.Bars[id]; ok {
		bar.Registered = false
		bar.Rect = platform.Rect{}
	}
	return nil
}

func (b *Backend) InstallKeyFilter(chord string, onChord func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("InstallKeyFilter"); err != nil {
		return err
	}
	b.Chord = chord
	b.onChord = onChord
	b.Installed++
	return nil
}

func (b *Backend) RemoveKeyFilter() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("RemoveKeyFilter"); err != nil {
		return err
	}
	b.onChord = nil
	b.Removed++
	return nil
}

func (b *Backend) window(id platform.WindowID) (*Window, error) {
	w, ok := b.Windows[id]
	if !ok {
		return nil, fmt.Errorf("window %d not found", id)
	}
	return w, nil
}

func (b *Backend) WindowBounds(id platform.WindowID) (platform.Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("WindowBounds"); err != nil {
		return platform.Rect{}, err
	}
	w, err := b.window(id)
	if err != nil {
		return platform.Rect{}, err
	}
	return w.Bounds, nil
}

func (b *Backend) SetWindowBounds(id platform.WindowID, r platform.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("SetWindowBounds"); err != nil {
		return err
	}
	w, err := b.window(id)
	if err != nil {
		return err
	}
	w.Bounds = r
	return nil
}

func (b *Backend) RestoreWindow(id platform.WindowID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("RestoreWindow"); err != nil {
		return err
	}
	w, err := b.window(id)
	if err != nil {
		return err
	}
	w.State = platform.WindowNormal
	return nil
}

func (b *Backend) BringToFront(id platform.WindowID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("BringToFront"); err != nil {
		return err
	}
	w, err := b.window(id)
	if err != nil {
		return err
	}
	if w.State == platform.WindowMinimized {
		w.State = platform.WindowNormal
	}
	w.Front = true
	return nil
}

func (b *Backend) Subscribe(sink platform.EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
}

func (b *Backend) WatchWindow(id platform.WindowID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("WatchWindow"); err != nil {
		return err
	}
	b.watched[id] = true
	return nil
}

// Watched reports whether WatchWindow was called for id.
func (b *Backend) Watched(id platform.WindowID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.watched[id]
}

func (b *Backend) EventLoop()  {}
func (b *Backend) Disconnect() {}

var _ platform.Backend = (*Backend)(nil)
