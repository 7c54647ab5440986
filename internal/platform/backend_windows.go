//go:build windows

package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var errBackendClosed = errors.New("windows backend closed")

var (
	wndProcCallback     = windows.NewCallback(wndProc)
	keyboardCallback    = windows.NewCallback(lowLevelKeyboardProc)
	winEventCallback    = windows.NewCallback(winEventProc)
	monitorEnumCallback = windows.NewCallback(monitorEnumProc)

	currentMu sync.Mutex
	current   *WindowsBackend

	enumMu       sync.Mutex
	enumMonitors []uintptr
)

// WindowsBackend implements Backend with the AppBar protocol, the
// SPI_SETWORKAREA work area and a WH_KEYBOARD_LL hook. Every window and hook
// is owned by one locked OS thread running the message loop.
type WindowsBackend struct {
	mu   sync.Mutex
	sink EventSink

	hInstance      uintptr
	threadID       uint32
	listener       windows.HWND
	taskbarCreated uint32
	surfaces       map[SurfaceID]windows.HWND
	calls          chan func()

	keyHook uintptr
	chordVK uint32
	chord   Chord
	onChord func()

	winEventHook uintptr
	watched      windows.HWND
	lastState    WindowState

	done chan struct{}
}

var _ Backend = (*WindowsBackend)(nil)

// Open starts the message thread and returns the backend. display is
// ignored on Windows.
func Open(display string) (Backend, error) {
	b := &WindowsBackend{
		surfaces: make(map[SurfaceID]windows.HWND),
		calls:    make(chan func(), 64),
		done:     make(chan struct{}),
	}

	currentMu.Lock()
	if current != nil {
		currentMu.Unlock()
		return nil, fmt.Errorf("windows backend already open")
	}
	current = b
	currentMu.Unlock()

	ready := make(chan error, 1)
	go b.run(ready)
	if err := <-ready; err != nil {
		currentMu.Lock()
		current = nil
		currentMu.Unlock()
		return nil, err
	}
	return b, nil
}

func currentBackend() *WindowsBackend {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}

func (b *WindowsBackend) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(b.done)

	b.threadID = windows.GetCurrentThreadId()
	hInstance, _, _ := procGetModuleHandleW.Call(0)
	b.hInstance = hInstance

	className, _ := windows.UTF16PtrFromString("DeskshellSurface")
	wc := wndClassEx{
		lpfnWndProc:   wndProcCallback,
		hInstance:     windows.Handle(hInstance),
		lpszClassName: className,
	}
	wc.cbSize = uint32(unsafe.Sizeof(wc))
	if atom, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); atom == 0 {
		ready <- fmt.Errorf("RegisterClassExW: %w", err)
		return
	}

	listener, err := b.createSurfaceWindow("deskshell-listener")
	if err != nil {
		ready <- err
		return
	}
	b.listener = listener

	name, _ := windows.UTF16PtrFromString("TaskbarCreated")
	msg, _, _ := procRegisterWindowMessageW.Call(uintptr(unsafe.Pointer(name)))
	b.taskbarCreated = uint32(msg)

	ready <- nil

	var m win32Msg
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

// createSurfaceWindow creates a hidden, non-activating, click-through
// top-level window. Top-level is required for broadcast messages.
func (b *WindowsBackend) createSurfaceWindow(title string) (windows.HWND, error) {
	className, _ := windows.UTF16PtrFromString("DeskshellSurface")
	windowName, _ := windows.UTF16PtrFromString(title)
	hwnd, _, err := procCreateWindowExW.Call(
		wsExToolWindow|wsExNoActivate|wsExTransparent|wsExLayered,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(windowName)),
		wsPopup,
		0, 0, 0, 0,
		0, 0, b.hInstance, 0,
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowExW: %w", err)
	}
	return windows.HWND(hwnd), nil
}

func wndProc(hwnd windows.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	if b := currentBackend(); b != nil {
		if ret, handled := b.handleMessage(hwnd, msg, wParam); handled {
			return ret
		}
	}
	r, _, _ := procDefWindowProcW.Call(uintptr(hwnd), uintptr(msg), wParam, lParam)
	return r
}

func (b *WindowsBackend) handleMessage(hwnd windows.HWND, msg uint32, wParam uintptr) (uintptr, bool) {
	switch {
	case b.taskbarCreated != 0 && msg == b.taskbarCreated:
		if hwnd == b.listener {
			b.emit(Event{Kind: EventShellRestarted})
		}
		return 0, true
	case msg == wmAppBarCallback:
		if wParam == abnPosChanged {
			b.emit(Event{Kind: EventBarPositionChanged, Surface: SurfaceID(hwnd)})
		}
		return 0, true
	case msg == wmInvoke:
		b.drainCalls()
		return 0, true
	case msg == wmDisplayChange:
		if hwnd == b.listener {
			b.emit(Event{Kind: EventDisplayChanged})
		}
		return 0, false
	case msg == wmNCHitTest:
		return htTransparent, true
	}
	return 0, false
}

func (b *WindowsBackend) drainCalls() {
	for {
		select {
		case fn := <-b.calls:
			fn()
		default:
			return
		}
	}
}

// invoke runs fn on the message thread and waits for it.
func (b *WindowsBackend) invoke(fn func()) error {
	if windows.GetCurrentThreadId() == b.threadID {
		fn()
		return nil
	}
	finished := make(chan struct{})
	select {
	case b.calls <- func() { fn(); close(finished) }:
	case <-b.done:
		return errBackendClosed
	}
	procPostMessageW.Call(uintptr(b.listener), wmInvoke, 0, 0)
	select {
	case <-finished:
		return nil
	case <-b.done:
		return errBackendClosed
	}
}

func (b *WindowsBackend) emit(ev Event) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

// Subscribe registers sink for shell and window events.
func (b *WindowsBackend) Subscribe(sink EventSink) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// EventLoop blocks until the message thread exits.
func (b *WindowsBackend) EventLoop() {
	<-b.done
}

// Disconnect removes hooks, destroys surfaces and stops the message thread.
func (b *WindowsBackend) Disconnect() {
	_ = b.RemoveKeyFilter()
	_ = b.invoke(func() {
		if b.winEventHook != 0 {
			procUnhookWinEvent.Call(b.winEventHook)
			b.winEventHook = 0
		}
		b.mu.Lock()
		for id, hwnd := range b.surfaces {
			procDestroyWindow.Call(uintptr(hwnd))
			delete(b.surfaces, id)
		}
		b.mu.Unlock()
		procDestroyWindow.Call(uintptr(b.listener))
		procPostQuitMessage.Call(0)
	})
	<-b.done

	currentMu.Lock()
	if current == b {
		current = nil
	}
	currentMu.Unlock()
}

// WatchWindow reports maximize/minimize/restore of windowID via a
// location-change WinEvent hook.
func (b *WindowsBackend) WatchWindow(windowID WindowID) error {
	hwnd := windows.HWND(windowID)
	var pid uint32
	tid, _, _ := procGetWindowThreadProcessId.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pid)))
	if tid == 0 {
		return fmt.Errorf("window %#x does not exist", windowID)
	}

	var hookErr error
	err := b.invoke(func() {
		if b.winEventHook != 0 {
			procUnhookWinEvent.Call(b.winEventHook)
			b.winEventHook = 0
		}
		hook, _, callErr := procSetWinEventHook.Call(
			eventObjectLocationChange, eventObjectLocationChange,
			0, winEventCallback,
			uintptr(pid), tid,
			winEventOutOfContext,
		)
		if hook == 0 {
			hookErr = fmt.Errorf("SetWinEventHook: %w", callErr)
			return
		}
		b.winEventHook = hook
		b.mu.Lock()
		b.watched = hwnd
		b.lastState = windowStateOf(hwnd)
		b.mu.Unlock()
	})
	if err != nil {
		return err
	}
	return hookErr
}

func winEventProc(hook uintptr, event uint32, hwnd windows.HWND, idObject int32, idChild int32, thread uint32, eventTime uint32) uintptr {
	b := currentBackend()
	if b == nil || idObject != objIDWindow {
		return 0
	}
	b.mu.Lock()
	if hwnd != b.watched {
		b.mu.Unlock()
		return 0
	}
	state := windowStateOf(hwnd)
	changed := state != b.lastState
	b.lastState = state
	b.mu.Unlock()

	if changed {
		b.emit(Event{Kind: EventWindowStateChanged, Window: WindowID(hwnd), State: state})
	}
	return 0
}

func windowStateOf(hwnd windows.HWND) WindowState {
	if r, _, _ := procIsIconic.Call(uintptr(hwnd)); r != 0 {
		return WindowMinimized
	}
	if r, _, _ := procIsZoomed.Call(uintptr(hwnd)); r != 0 {
		return WindowMaximized
	}
	return WindowNormal
}

func monitorEnumProc(hmon, hdc, rect, lparam uintptr) uintptr {
	enumMonitors = append(enumMonitors, hmon)
	return 1
}

// Displays enumerates every attached monitor.
func (b *WindowsBackend) Displays() ([]Display, error) {
	enumMu.Lock()
	enumMonitors = enumMonitors[:0]
	r, _, err := procEnumDisplayMonitors.Call(0, 0, monitorEnumCallback, 0)
	handles := append([]uintptr(nil), enumMonitors...)
	enumMu.Unlock()
	if r == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}

	displays := make([]Display, 0, len(handles))
	for i, hmon := range handles {
		d, err := displayFromMonitor(hmon, i)
		if err != nil {
			continue
		}
		displays = append(displays, d)
	}
	return displays, nil
}

// MonitorForWindow resolves the monitor that holds most of windowID.
func (b *WindowsBackend) MonitorForWindow(windowID WindowID) (Display, error) {
	if windowID == 0 {
		return Display{}, fmt.Errorf("no window attached")
	}
	hmon, _, _ := procMonitorFromWindow.Call(uintptr(windowID), monitorDefaultToNull)
	if hmon == 0 {
		return Display{}, fmt.Errorf("window %#x is not on any monitor", windowID)
	}
	return displayFromMonitor(hmon, 0)
}

// PrimaryDisplay returns the primary monitor.
func (b *WindowsBackend) PrimaryDisplay() (Display, error) {
	desktop, _, _ := procGetDesktopWindow.Call()
	hmon, _, _ := procMonitorFromWindow.Call(desktop, monitorDefaultToPrimary)
	if hmon == 0 {
		return Display{}, fmt.Errorf("no primary monitor")
	}
	return displayFromMonitor(hmon, 0)
}

// PrimaryScreenSize returns SM_CXSCREEN x SM_CYSCREEN.
func (b *WindowsBackend) PrimaryScreenSize() (int, int, error) {
	w, _, _ := procGetSystemMetrics.Call(smCXScreen)
	h, _, _ := procGetSystemMetrics.Call(smCYScreen)
	if int32(w) <= 0 || int32(h) <= 0 {
		return 0, 0, fmt.Errorf("GetSystemMetrics returned %dx%d", int32(w), int32(h))
	}
	return int(int32(w)), int(int32(h)), nil
}

func displayFromMonitor(hmon uintptr, id int) (Display, error) {
	var info monitorInfoEx
	info.cbSize = uint32(unsafe.Sizeof(info))
	if r, _, err := procGetMonitorInfoW.Call(hmon, uintptr(unsafe.Pointer(&info))); r == 0 {
		return Display{}, fmt.Errorf("GetMonitorInfoW: %w", err)
	}
	name := windows.UTF16ToString(info.szDevice[:])
	if info.dwFlags&monitorInfoFPrimary != 0 {
		name += " (primary)"
	}
	return Display{
		ID:     id,
		Name:   name,
		Bounds: info.rcMonitor.toRect(),
		Usable: info.rcWork.toRect(),
	}, nil
}

// WorkArea reads SPI_GETWORKAREA.
func (b *WindowsBackend) WorkArea() (Rect, error) {
	var rc win32Rect
	if r, _, err := procSystemParametersInfoW.Call(spiGetWorkArea, 0, uintptr(unsafe.Pointer(&rc)), 0); r == 0 {
		return Rect{}, fmt.Errorf("SPI_GETWORKAREA: %w", err)
	}
	return rc.toRect(), nil
}

// SetWorkArea writes SPI_SETWORKAREA and broadcasts the change.
func (b *WindowsBackend) SetWorkArea(r Rect) error {
	rc := win32RectFrom(r)
	if ret, _, err := procSystemParametersInfoW.Call(spiSetWorkArea, 0, uintptr(unsafe.Pointer(&rc)), spifSendWinIniChng); ret == 0 {
		return fmt.Errorf("SPI_SETWORKAREA: %w", err)
	}
	return nil
}

// CreateBarSurface creates the hidden window that owns one AppBar.
func (b *WindowsBackend) CreateBarSurface(edge Edge) (SurfaceID, error) {
	var (
		hwnd      windows.HWND
		createErr error
	)
	if err := b.invoke(func() {
		hwnd, createErr = b.createSurfaceWindow("deskshell-bar-" + edge.String())
	}); err != nil {
		return 0, err
	}
	if createErr != nil {
		return 0, createErr
	}
	id := SurfaceID(hwnd)
	b.mu.Lock()
	b.surfaces[id] = hwnd
	b.mu.Unlock()
	return id, nil
}

// DestroyBarSurface destroys a surface on its owning thread.
func (b *WindowsBackend) DestroyBarSurface(id SurfaceID) error {
	hwnd, err := b.surface(id)
	if err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.surfaces, id)
	b.mu.Unlock()
	return b.invoke(func() {
		procDestroyWindow.Call(uintptr(hwnd))
	})
}

func appBarMessage(msg uint32, data *appBarData) uintptr {
	data.cbSize = uint32(unsafe.Sizeof(*data))
	r, _, _ := procSHAppBarMessage.Call(uintptr(msg), uintptr(unsafe.Pointer(data)))
	return r
}

func appBarEdge(edge Edge) (uint32, error) {
	switch edge {
	case EdgeLeft:
		return abeLeft, nil
	case EdgeTop:
		return abeTop, nil
	default:
		return 0, fmt.Errorf("unsupported edge %v", edge)
	}
}

// RegisterBar sends ABM_NEW.
func (b *WindowsBackend) RegisterBar(id SurfaceID) error {
	hwnd, err := b.surface(id)
	if err != nil {
		return err
	}
	data := appBarData{hWnd: hwnd, uCallbackMessage: wmAppBarCallback}
	if appBarMessage(abmNew, &data) == 0 {
		return fmt.Errorf("ABM_NEW refused for surface %#x", id)
	}
	return nil
}

// QueryBarPos sends ABM_QUERYPOS and returns the shell-adjusted rectangle.
func (b *WindowsBackend) QueryBarPos(id SurfaceID, edge Edge, proposed Rect) (Rect, error) {
	return b.positionBar(abmQueryPos, id, edge, proposed)
}

// SetBarPos sends ABM_SETPOS and moves the surface onto the granted rect.
func (b *WindowsBackend) SetBarPos(id SurfaceID, edge Edge, rect Rect) (Rect, error) {
	granted, err := b.positionBar(abmSetPos, id, edge, rect)
	if err != nil {
		return Rect{}, err
	}
	hwnd, _ := b.surface(id)
	procMoveWindow.Call(uintptr(hwnd),
		uintptr(granted.X), uintptr(granted.Y),
		uintptr(granted.Width), uintptr(granted.Height), 0)
	return granted, nil
}

func (b *WindowsBackend) positionBar(msg uint32, id SurfaceID, edge Edge, rect Rect) (Rect, error) {
	hwnd, err := b.surface(id)
	if err != nil {
		return Rect{}, err
	}
	abe, err := appBarEdge(edge)
	if err != nil {
		return Rect{}, err
	}
	data := appBarData{hWnd: hwnd, uEdge: abe, rc: win32RectFrom(rect)}
	appBarMessage(msg, &data)
	out := data.rc.toRect()
	if out.Empty() {
		return Rect{}, fmt.Errorf("shell returned unusable rect %v", out)
	}
	return out, nil
}

// BarWindowPosChanged sends ABM_WINDOWPOSCHANGED.
func (b *WindowsBackend) BarWindowPosChanged(id SurfaceID) error {
	hwnd, err := b.surface(id)
	if err != nil {
		return err
	}
	data := appBarData{hWnd: hwnd}
	appBarMessage(abmWindowPosChanged, &data)
	return nil
}

// ActivateBar sends ABM_ACTIVATE.
func (b *WindowsBackend) ActivateBar(id SurfaceID) error {
	hwnd, err := b.surface(id)
	if err != nil {
		return err
	}
	data := appBarData{hWnd: hwnd, lParam: 1}
	appBarMessage(abmActivate, &data)
	return nil
}

// RemoveBar sends ABM_REMOVE.
func (b *WindowsBackend) RemoveBar(id SurfaceID) error {
	hwnd, err := b.surface(id)
	if err != nil {
		return err
	}
	data := appBarData{hWnd: hwnd}
	appBarMessage(abmRemove, &data)
	return nil
}

func (b *WindowsBackend) surface(id SurfaceID) (windows.HWND, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hwnd, ok := b.surfaces[id]
	if !ok {
		return 0, fmt.Errorf("unknown bar surface %#x", id)
	}
	return hwnd, nil
}

// InstallKeyFilter installs the WH_KEYBOARD_LL hook for chord.
func (b *WindowsBackend) InstallKeyFilter(chord string, onChord func()) error {
	parsed, err := ParseChord(chord)
	if err != nil {
		return err
	}
	vk, err := virtualKey(parsed.Key)
	if err != nil {
		return err
	}

	var hookErr error
	err = b.invoke(func() {
		if b.keyHook != 0 {
			hookErr = fmt.Errorf("key filter already installed for %q", b.chord)
			return
		}
		hook, _, callErr := procSetWindowsHookExW.Call(whKeyboardLL, keyboardCallback, b.hInstance, 0)
		if hook == 0 {
			hookErr = fmt.Errorf("SetWindowsHookExW: %w", callErr)
			return
		}
		b.mu.Lock()
		b.keyHook = hook
		b.chord = parsed
		b.chordVK = vk
		b.onChord = onChord
		b.mu.Unlock()
	})
	if err != nil {
		return err
	}
	return hookErr
}

// RemoveKeyFilter unhooks the keyboard filter.
func (b *WindowsBackend) RemoveKeyFilter() error {
	return b.invoke(func() {
		b.mu.Lock()
		hook := b.keyHook
		b.keyHook = 0
		b.chordVK = 0
		b.onChord = nil
		b.mu.Unlock()
		if hook != 0 {
			procUnhookWindowsHookEx.Call(hook)
		}
	})
}

func lowLevelKeyboardProc(nCode int32, wParam, lParam uintptr) uintptr {
	if b := currentBackend(); b != nil && nCode == hcAction {
		if b.filterKey(wParam, lParam) {
			return 1
		}
	}
	r, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return r
}

// filterKey reports whether the event belongs to the chord and must be
// swallowed. The chord fires on key down; the matching key up is swallowed
// too so the shell never sees half of it.
func (b *WindowsBackend) filterKey(wParam, lParam uintptr) bool {
	kb := (*kbdLLHookStruct)(unsafe.Pointer(lParam))

	b.mu.Lock()
	vk, chord, onChord := b.chordVK, b.chord, b.onChord
	b.mu.Unlock()
	if vk == 0 || kb.vkCode != vk || !modifiersHeld(chord) {
		return false
	}

	switch wParam {
	case wmKeyDown, wmSysKeyDown:
		if onChord != nil {
			onChord()
		}
		return true
	case wmKeyUp, wmSysKeyUp:
		return true
	}
	return false
}

func modifiersHeld(c Chord) bool {
	if c.Super && !keyDown(vkLWin) && !keyDown(vkRWin) {
		return false
	}
	if c.Control && !keyDown(vkControl) {
		return false
	}
	if c.Alt && !keyDown(vkMenu) {
		return false
	}
	if c.Shift && !keyDown(vkShift) {
		return false
	}
	return true
}

func keyDown(vk uintptr) bool {
	r, _, _ := procGetAsyncKeyState.Call(vk)
	return r&0x8000 != 0
}

// virtualKey maps an xgbutil key name to a Windows virtual-key code.
func virtualKey(key string) (uint32, error) {
	if len(key) == 1 {
		c := strings.ToUpper(key)[0]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			return uint32(c), nil
		}
	}
	upper := strings.ToUpper(key)
	if strings.HasPrefix(upper, "F") && len(upper) <= 3 {
		var n int
		if _, err := fmt.Sscanf(upper[1:], "%d", &n); err == nil && n >= 1 && n <= 24 {
			return uint32(0x70 + n - 1), nil
		}
	}
	named := map[string]uint32{
		"ESCAPE": 0x1B,
		"SPACE":  0x20,
		"TAB":    0x09,
		"RETURN": 0x0D,
		"DELETE": 0x2E,
		"HOME":   0x24,
		"END":    0x23,
	}
	if vk, ok := named[upper]; ok {
		return vk, nil
	}
	return 0, fmt.Errorf("unsupported key %q", key)
}

// WindowBounds returns GetWindowRect.
func (b *WindowsBackend) WindowBounds(windowID WindowID) (Rect, error) {
	var rc win32Rect
	if r, _, err := procGetWindowRect.Call(uintptr(windowID), uintptr(unsafe.Pointer(&rc))); r == 0 {
		return Rect{}, fmt.Errorf("GetWindowRect: %w", err)
	}
	return rc.toRect(), nil
}

// SetWindowBounds moves and resizes without activating.
func (b *WindowsBackend) SetWindowBounds(windowID WindowID, bounds Rect) error {
	r, _, err := procSetWindowPos.Call(uintptr(windowID), 0,
		uintptr(bounds.X), uintptr(bounds.Y),
		uintptr(bounds.Width), uintptr(bounds.Height),
		swpNoZOrder|swpNoActivate)
	if r == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}

// RestoreWindow issues SW_RESTORE when the window is maximized or minimized.
func (b *WindowsBackend) RestoreWindow(windowID WindowID) error {
	if windowStateOf(windows.HWND(windowID)) == WindowNormal {
		return nil
	}
	procShowWindow.Call(uintptr(windowID), swRestore)
	return nil
}

// BringToFront restores a minimized window and makes it foreground.
func (b *WindowsBackend) BringToFront(windowID WindowID) error {
	if windowStateOf(windows.HWND(windowID)) == WindowMinimized {
		procShowWindow.Call(uintptr(windowID), swRestore)
	}
	if r, _, err := procSetForegroundWindow.Call(uintptr(windowID)); r == 0 {
		return fmt.Errorf("SetForegroundWindow: %w", err)
	}
	return nil
}
