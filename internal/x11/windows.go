package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

const (
	stateMaxHorz  = "_NET_WM_STATE_MAXIMIZED_HORZ"
	stateMaxVert  = "_NET_WM_STATE_MAXIMIZED_VERT"
	stateHidden   = "_NET_WM_STATE_HIDDEN"
	stateSkipTask = "_NET_WM_STATE_SKIP_TASKBAR"
	stateSkipPage = "_NET_WM_STATE_SKIP_PAGER"
	stateSticky   = "_NET_WM_STATE_STICKY"
	stateBelow    = "_NET_WM_STATE_BELOW"
)

// ShowState is the EWMH view of a window's maximize/minimize state.
type ShowState int

const (
	ShowNormal ShowState = iota
	ShowMaximized
	ShowMinimized
)

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// Use EWMH MoveResize for better WM compatibility
	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

// WindowGeometry returns the root-relative geometry of windowID.
func (c *Connection) WindowGeometry(windowID xproto.Window) (x, y, width, height int, err error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("get geometry 0x%x: %w", windowID, err)
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("translate coordinates 0x%x: %w", windowID, err)
	}

	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), nil
}

// WindowShowState reads _NET_WM_STATE (and WM_STATE for iconic windows).
func (c *Connection) WindowShowState(windowID xproto.Window) (ShowState, error) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return ShowNormal, err
	}

	hasMaxH := false
	hasMaxV := false
	for _, state := range states {
		switch state {
		case stateMaxHorz:
			hasMaxH = true
		case stateMaxVert:
			hasMaxV = true
		case stateHidden:
			return ShowMinimized, nil
		}
	}
	if wmState, err := icccm.WmStateGet(c.XUtil, windowID); err == nil && wmState.State == icccm.StateIconic {
		return ShowMinimized, nil
	}
	if hasMaxH && hasMaxV {
		return ShowMaximized, nil
	}
	return ShowNormal, nil
}

// RestoreWindow drops maximized and hidden states and maps the window.
func (c *Connection) RestoreWindow(windowID xproto.Window) error {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return err
	}

	for _, state := range states {
		switch state {
		case stateMaxHorz, stateMaxVert, stateHidden:
			if err := ewmh.WmStateReq(c.XUtil, windowID, ewmh.StateRemove, state); err != nil {
				return fmt.Errorf("remove %s: %w", state, err)
			}
		}
	}

	return xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// WatchWindow selects property and structure events on windowID so state
// changes reach xevent callbacks.
func (c *Connection) WatchWindow(windowID xproto.Window) error {
	return xwindow.New(c.XUtil, windowID).Listen(
		xproto.EventMaskPropertyChange,
		xproto.EventMaskStructureNotify,
	)
}
