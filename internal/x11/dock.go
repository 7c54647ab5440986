package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// DockEdge selects which strut a dock surface publishes.
type DockEdge int

const (
	DockLeft DockEdge = iota
	DockTop
)

// CreateDockSurface creates and maps a 1x1, input-transparent dock window
// that never takes focus. Struts set on it reserve screen space.
func (c *Connection) CreateDockSurface(name string) (xproto.Window, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate window id: %w", err)
	}

	err = win.CreateChecked(c.Root, 0, 0, 1, 1,
		xproto.CwBackPixmap|xproto.CwEventMask,
		0, // None
		xproto.EventMaskStructureNotify|xproto.EventMaskPropertyChange,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create dock window: %w", err)
	}

	if err := ewmh.WmWindowTypeSet(c.XUtil, win.Id, []string{"_NET_WM_WINDOW_TYPE_DOCK"}); err != nil {
		win.Destroy()
		return 0, fmt.Errorf("failed to set dock type: %w", err)
	}
	_ = ewmh.WmStateSet(c.XUtil, win.Id, []string{stateSkipTask, stateSkipPage, stateSticky, stateBelow})
	_ = ewmh.WmNameSet(c.XUtil, win.Id, name)
	_ = icccm.WmNameSet(c.XUtil, win.Id, name)
	_ = icccm.WmClassSet(c.XUtil, win.Id, &icccm.WmClass{Instance: name, Class: "Deskshell"})
	_ = icccm.WmHintsSet(c.XUtil, win.Id, &icccm.Hints{
		Flags: icccm.HintInput,
		Input: 0,
	})

	c.makeClickThrough(win.Id)
	win.Map()
	return win.Id, nil
}

// makeClickThrough empties the input region so pointer events fall through.
// Servers without SHAPE keep the 1x1 window, which is harmless.
func (c *Connection) makeClickThrough(windowID xproto.Window) {
	if err := shape.Init(c.XUtil.Conn()); err != nil {
		return
	}
	shape.Rectangles(c.XUtil.Conn(), shape.SoSet, shape.SkInput, xproto.ClipOrderingUnsorted,
		windowID, 0, 0, nil)
}

// SetDockStrut publishes _NET_WM_STRUT_PARTIAL and _NET_WM_STRUT so the
// window manager keeps rect free, and parks the surface at rect's origin.
func (c *Connection) SetDockStrut(windowID xproto.Window, edge DockEdge, x, y, width, height int) error {
	var partial ewmh.WmStrutPartial
	switch edge {
	case DockLeft:
		partial.Left = uint(x + width)
		partial.LeftStartY = uint(y)
		partial.LeftEndY = uint(y + height - 1)
	case DockTop:
		partial.Top = uint(y + height)
		partial.TopStartX = uint(x)
		partial.TopEndX = uint(x + width - 1)
	default:
		return fmt.Errorf("unsupported dock edge %d", edge)
	}

	if err := ewmh.WmStrutPartialSet(c.XUtil, windowID, &partial); err != nil {
		return fmt.Errorf("failed to set _NET_WM_STRUT_PARTIAL: %w", err)
	}
	strut := ewmh.WmStrut{
		Left: partial.Left,
		Top:  partial.Top,
	}
	if err := ewmh.WmStrutSet(c.XUtil, windowID, &strut); err != nil {
		return fmt.Errorf("failed to set _NET_WM_STRUT: %w", err)
	}

	xwindow.New(c.XUtil, windowID).Move(x, y)
	return nil
}

// ClearDockStrut withdraws the reservation without destroying the surface.
func (c *Connection) ClearDockStrut(windowID xproto.Window) error {
	for _, name := range []string{"_NET_WM_STRUT_PARTIAL", "_NET_WM_STRUT"} {
		atom, err := xprop.Atm(c.XUtil, name)
		if err != nil {
			return fmt.Errorf("failed to intern %s: %w", name, err)
		}
		if err := xproto.DeletePropertyChecked(c.XUtil.Conn(), windowID, atom).Check(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
	}
	return nil
}

// RaiseDock restacks the dock above its siblings.
func (c *Connection) RaiseDock(windowID xproto.Window) error {
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), windowID,
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}).Check()
}

// DestroyDockSurface unmaps and destroys a surface made by CreateDockSurface.
func (c *Connection) DestroyDockSurface(windowID xproto.Window) {
	xwindow.New(c.XUtil, windowID).Destroy()
}
