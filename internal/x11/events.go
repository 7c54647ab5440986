package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
)

// RootProperty is a root window property the backend reacts to.
type RootProperty int

const (
	RootWorkArea RootProperty = iota
	RootSupportingWM
)

// OnRootPropertyChange calls fn whenever _NET_WORKAREA or
// _NET_SUPPORTING_WM_CHECK change on the root window.
func (c *Connection) OnRootPropertyChange(fn func(RootProperty)) error {
	if err := c.listenRoot(); err != nil {
		return err
	}
	watched := map[string]RootProperty{
		"_NET_WORKAREA":            RootWorkArea,
		"_NET_SUPPORTING_WM_CHECK": RootSupportingWM,
	}
	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop.AtomName(xu, ev.Atom)
		if err != nil {
			return
		}
		if prop, ok := watched[name]; ok {
			fn(prop)
		}
	}).Connect(c.XUtil, c.Root)
	return nil
}

// OnWindowStateChange calls fn with the new show state whenever the
// _NET_WM_STATE or WM_STATE property of windowID changes.
func (c *Connection) OnWindowStateChange(windowID xproto.Window, fn func(ShowState)) error {
	if err := c.WatchWindow(windowID); err != nil {
		return err
	}
	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop.AtomName(xu, ev.Atom)
		if err != nil || (name != "_NET_WM_STATE" && name != "WM_STATE") {
			return
		}
		state, err := c.WindowShowState(windowID)
		if err != nil {
			return
		}
		fn(state)
	}).Connect(c.XUtil, windowID)
	return nil
}

// OnScreenChange calls fn after RandR reports a configuration change.
func (c *Connection) OnScreenChange(fn func()) error {
	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		if ev.Window == c.Root {
			fn()
		}
	}).Connect(c.XUtil, c.Root)
	return nil
}

func (c *Connection) listenRoot() error {
	return xproto.ChangeWindowAttributesChecked(c.XUtil.Conn(), c.Root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange | xproto.EventMaskStructureNotify}).Check()
}
