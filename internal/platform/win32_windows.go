//go:build windows

package platform

import (
	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	kernel32                     = windows.NewLazySystemDLL("kernel32.dll")
	shell32                      = windows.NewLazySystemDLL("shell32.dll")
	procSHAppBarMessage          = shell32.NewProc("SHAppBarMessage")
	procGetModuleHandleW         = kernel32.NewProc("GetModuleHandleW")
	procRegisterClassExW         = user32.NewProc("RegisterClassExW")
	procCreateWindowExW          = user32.NewProc("CreateWindowExW")
	procDestroyWindow            = user32.NewProc("DestroyWindow")
	procDefWindowProcW           = user32.NewProc("DefWindowProcW")
	procGetMessageW              = user32.NewProc("GetMessageW")
	procTranslateMessage         = user32.NewProc("TranslateMessage")
	procDispatchMessageW         = user32.NewProc("DispatchMessageW")
	procPostMessageW             = user32.NewProc("PostMessageW")
	procPostQuitMessage          = user32.NewProc("PostQuitMessage")
	procRegisterWindowMessageW   = user32.NewProc("RegisterWindowMessageW")
	procSystemParametersInfoW    = user32.NewProc("SystemParametersInfoW")
	procGetSystemMetrics         = user32.NewProc("GetSystemMetrics")
	procMonitorFromWindow        = user32.NewProc("MonitorFromWindow")
	procGetMonitorInfoW          = user32.NewProc("GetMonitorInfoW")
	procEnumDisplayMonitors      = user32.NewProc("EnumDisplayMonitors")
	procGetDesktopWindow         = user32.NewProc("GetDesktopWindow")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procMoveWindow               = user32.NewProc("MoveWindow")
	procShowWindow               = user32.NewProc("ShowWindow")
	procIsZoomed                 = user32.NewProc("IsZoomed")
	procIsIconic                 = user32.NewProc("IsIconic")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procSetWindowsHookExW        = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx      = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx           = user32.NewProc("CallNextHookEx")
	procGetAsyncKeyState         = user32.NewProc("GetAsyncKeyState")
	procSetWinEventHook          = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent           = user32.NewProc("UnhookWinEvent")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
)

const (
	abmNew              = 0x00
	abmRemove           = 0x01
	abmQueryPos         = 0x02
	abmSetPos           = 0x03
	abmActivate         = 0x06
	abmWindowPosChanged = 0x09

	abeLeft = 0
	abeTop  = 1

	abnPosChanged = 0x01

	spiGetWorkArea     = 0x0030
	spiSetWorkArea     = 0x002F
	spifSendWinIniChng = 0x0002

	smCXScreen = 0
	smCYScreen = 1

	monitorDefaultToNull    = 0
	monitorDefaultToPrimary = 1
	monitorInfoFPrimary     = 1

	wsPopup          = 0x80000000
	wsExToolWindow   = 0x00000080
	wsExTransparent  = 0x00000020
	wsExNoActivate   = 0x08000000
	wsExLayered      = 0x00080000
	wmDestroy        = 0x0002
	wmDisplayChange  = 0x007E
	wmNCHitTest      = 0x0084
	wmKeyDown        = 0x0100
	wmKeyUp          = 0x0101
	wmSysKeyDown     = 0x0104
	wmSysKeyUp       = 0x0105
	wmApp            = 0x8000
	wmAppBarCallback = wmApp + 1
	wmInvoke         = wmApp + 2
	htTransparent    = ^uintptr(0) // -1

	swpNoZOrder   = 0x0004
	swpNoActivate = 0x0010
	swRestore     = 9

	whKeyboardLL = 13
	hcAction     = 0

	eventObjectLocationChange = 0x800B
	objIDWindow               = 0
	winEventOutOfContext      = 0x0000

	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12
	vkLWin    = 0x5B
	vkRWin    = 0x5C
)

type win32Rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

func (r win32Rect) toRect() Rect {
	return RectFromEdges(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom))
}

func win32RectFrom(r Rect) win32Rect {
	return win32Rect{
		Left:   int32(r.Left()),
		Top:    int32(r.Top()),
		Right:  int32(r.Right()),
		Bottom: int32(r.Bottom()),
	}
}

type appBarData struct {
	cbSize           uint32
	hWnd             windows.HWND
	uCallbackMessage uint32
	uEdge            uint32
	rc               win32Rect
	lParam           uintptr
}

type monitorInfoEx struct {
	cbSize    uint32
	rcMonitor win32Rect
	rcWork    win32Rect
	dwFlags   uint32
	szDevice  [32]uint16
}

type wndClassEx struct {
	cbSize        uint32
	style         uint32
	lpfnWndProc   uintptr
	cbClsExtra    int32
	cbWndExtra    int32
	hInstance     windows.Handle
	hIcon         windows.Handle
	hCursor       windows.Handle
	hbrBackground windows.Handle
	lpszMenuName  *uint16
	lpszClassName *uint16
	hIconSm       windows.Handle
}

type win32Point struct {
	X int32
	Y int32
}

type win32Msg struct {
	hwnd    windows.HWND
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      win32Point
	private uint32
}

type kbdLLHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}
