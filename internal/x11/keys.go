package x11

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

var ignoreModsOnce sync.Once

// GrabChord grabs keySequence (xgbutil notation, e.g. "Mod4-d") on the root
// window. The grab keeps the event from reaching any other client.
func (c *Connection) GrabChord(keySequence string, callback func()) error {
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(c.XUtil)
	})

	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(c.XUtil, c.Root, keySequence, true)
}

// UngrabChord releases a grab made by GrabChord and drops its callbacks.
func (c *Connection) UngrabChord(keySequence string) error {
	mods, keycodes, err := keybind.ParseString(c.XUtil, keySequence)
	if err != nil {
		return fmt.Errorf("parse %q: %w", keySequence, err)
	}
	for _, kc := range keycodes {
		keybind.Ungrab(c.XUtil, c.Root, mods, kc)
	}
	keybind.Detach(c.XUtil, c.Root)
	return nil
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)
	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}
	add(0)

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
