package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display
type Monitor struct {
	ID      int
	Name    string
	Primary bool
	X       int
	Y       int
	Width   int
	Height  int
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var primaryOutput randr.Output
	if reply, err := randr.GetOutputPrimary(c.XUtil.Conn(), c.Root).Reply(); err == nil {
		primaryOutput = reply.Output
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		primary := false
		for _, out := range crtcInfo.Outputs {
			if primaryOutput != 0 && out == primaryOutput {
				primary = true
			}
		}

		monitors = append(monitors, Monitor{
			ID:      i,
			Name:    outputName,
			Primary: primary,
			X:       int(crtcInfo.X),
			Y:       int(crtcInfo.Y),
			Width:   int(crtcInfo.Width),
			Height:  int(crtcInfo.Height),
		})
	}

	return monitors, nil
}

// MonitorForWindow returns the monitor containing the centre of windowID.
func (c *Connection) MonitorForWindow(windowID xproto.Window) (*Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}
	if mon := findMonitorForWindow(c, monitors, windowID); mon != nil {
		return mon, nil
	}
	return nil, fmt.Errorf("window 0x%x is not on any monitor", windowID)
}

// PrimaryMonitor returns the RandR primary monitor, or the first active one.
func (c *Connection) PrimaryMonitor() (*Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}
	for i := range monitors {
		if monitors[i].Primary {
			return &monitors[i], nil
		}
	}
	return &monitors[0], nil
}

// UsableArea returns monitor with every dock strut subtracted. Docks in skip
// are ignored, which lets a bar ask where it would sit among the others.
// When no dock publishes struts the EWMH work area is intersected instead.
func (c *Connection) UsableArea(monitor Monitor, skip ...xproto.Window) Monitor {
	usable := monitor
	struts, ok := c.DockStruts(monitor, skip...)
	if ok {
		usable.X += struts.Left
		usable.Y += struts.Top
		usable.Width -= struts.Left + struts.Right
		usable.Height -= struts.Top + struts.Bottom
		if usable.Width < 1 {
			usable.Width = 1
		}
		if usable.Height < 1 {
			usable.Height = 1
		}
		return usable
	}
	if len(skip) > 0 {
		// The EWMH work area already includes our own bars.
		return usable
	}

	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return usable
	}
	desktopIndex := 0
	if currentDesktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil {
		if int(currentDesktop) >= 0 && int(currentDesktop) < len(workArea) {
			desktopIndex = int(currentDesktop)
		}
	}
	wa := workArea[desktopIndex]

	x1 := max(monitor.X, int(wa.X))
	y1 := max(monitor.Y, int(wa.Y))
	x2 := min(monitor.X+monitor.Width, int(wa.X)+int(wa.Width))
	y2 := min(monitor.Y+monitor.Height, int(wa.Y)+int(wa.Height))
	if x2 > x1 && y2 > y1 {
		usable.X = x1
		usable.Y = y1
		usable.Width = x2 - x1
		usable.Height = y2 - y1
	}
	return usable
}

// Struts is the thickness reserved on each edge of a monitor.
type Struts struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// DockStruts accumulates the struts every mapped dock reserves on monitor.
// ok is false when no dock reserves anything there.
func (c *Connection) DockStruts(monitor Monitor, skip ...xproto.Window) (Struts, bool) {
	rootWidth, rootHeight := c.ScreenSize()

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return Struts{}, false
	}

	var struts Struts
	for _, windowID := range clients {
		if containsWindow(skip, windowID) {
			continue
		}
		if !c.isDock(windowID) {
			continue
		}

		if sp, err := ewmh.WmStrutPartialGet(c.XUtil, windowID); err == nil {
			updateStrutsForMonitor(&monitor, rootWidth, rootHeight, sp, &struts)
			continue
		}

		// Some docks only set _NET_WM_STRUT (no partial ranges).
		if s, err := ewmh.WmStrutGet(c.XUtil, windowID); err == nil {
			sp := &ewmh.WmStrutPartial{
				Left:       s.Left,
				Right:      s.Right,
				Top:        s.Top,
				Bottom:     s.Bottom,
				LeftEndY:   uint(rootHeight - 1),
				RightEndY:  uint(rootHeight - 1),
				TopEndX:    uint(rootWidth - 1),
				BottomEndX: uint(rootWidth - 1),
			}
			updateStrutsForMonitor(&monitor, rootWidth, rootHeight, sp, &struts)
		}
	}

	if struts == (Struts{}) {
		return struts, false
	}
	return struts, true
}

func (c *Connection) isDock(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			return true
		}
	}
	return false
}

func containsWindow(list []xproto.Window, w xproto.Window) bool {
	for _, candidate := range list {
		if candidate == w {
			return true
		}
	}
	return false
}

func updateStrutsForMonitor(monitor *Monitor, rootWidth, rootHeight int, sp *ewmh.WmStrutPartial, acc *Struts) {
	monX1 := monitor.X
	monY1 := monitor.Y
	monX2 := monitor.X + monitor.Width
	monY2 := monitor.Y + monitor.Height

	// Top strut: y=[0,Top), x=[TopStartX,TopEndX]
	if sp.Top > 0 {
		x1 := int(sp.TopStartX)
		x2 := int(sp.TopEndX) + 1
		y1 := 0
		y2 := int(sp.Top)
		if intersects(monX1, monY1, monX2, monY2, x1, y1, x2, y2) {
			acc.Top = max(acc.Top, intersectionSize(monX1, monY1, monX2, monY2, x1, y1, x2, y2).h)
		}
	}

	// Bottom strut: y=[rootHeight-Bottom,rootHeight), x=[BottomStartX,BottomEndX]
	if sp.Bottom > 0 {
		x1 := int(sp.BottomStartX)
		x2 := int(sp.BottomEndX) + 1
		y2 := rootHeight
		y1 := rootHeight - int(sp.Bottom)
		if intersects(monX1, monY1, monX2, monY2, x1, y1, x2, y2) {
			acc.Bottom = max(acc.Bottom, intersectionSize(monX1, monY1, monX2, monY2, x1, y1, x2, y2).h)
		}
	}

	// Left strut: x=[0,Left), y=[LeftStartY,LeftEndY]
	if sp.Left > 0 {
		x1 := 0
		x2 := int(sp.Left)
		y1 := int(sp.LeftStartY)
		y2 := int(sp.LeftEndY) + 1
		if intersects(monX1, monY1, monX2, monY2, x1, y1, x2, y2) {
			acc.Left = max(acc.Left, intersectionSize(monX1, monY1, monX2, monY2, x1, y1, x2, y2).w)
		}
	}

	// Right strut: x=[rootWidth-Right,rootWidth), y=[RightStartY,RightEndY]
	if sp.Right > 0 {
		x2 := rootWidth
		x1 := rootWidth - int(sp.Right)
		y1 := int(sp.RightStartY)
		y2 := int(sp.RightEndY) + 1
		if intersects(monX1, monY1, monX2, monY2, x1, y1, x2, y2) {
			acc.Right = max(acc.Right, intersectionSize(monX1, monY1, monX2, monY2, x1, y1, x2, y2).w)
		}
	}
}

type intersection struct {
	w int
	h int
}

func intersectionSize(ax1, ay1, ax2, ay2, bx1, by1, bx2, by2 int) intersection {
	x1 := max(ax1, bx1)
	y1 := max(ay1, by1)
	x2 := min(ax2, bx2)
	y2 := min(ay2, by2)

	if x2 <= x1 || y2 <= y1 {
		return intersection{}
	}
	return intersection{w: x2 - x1, h: y2 - y1}
}

func intersects(ax1, ay1, ax2, ay2, bx1, by1, bx2, by2 int) bool {
	isect := intersectionSize(ax1, ay1, ax2, ay2, bx1, by1, bx2, by2)
	return isect.w > 0 && isect.h > 0
}

func findMonitorForWindow(c *Connection, monitors []Monitor, windowID xproto.Window) *Monitor {
	x, y, w, h, err := c.WindowGeometry(windowID)
	if err != nil {
		return nil
	}
	winCenterX := x + w/2
	winCenterY := y + h/2

	for i := range monitors {
		mon := &monitors[i]
		if winCenterX >= mon.X && winCenterX < mon.X+mon.Width &&
			winCenterY >= mon.Y && winCenterY < mon.Y+mon.Height {
			return mon
		}
	}
	return nil
}
