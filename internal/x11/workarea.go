package x11

import (
	"fmt"

	"github.com/BurntSushi/xgbutil/ewmh"
)

// WorkArea returns the _NET_WORKAREA entry of the current desktop.
func (c *Connection) WorkArea() (x, y, width, height int, err error) {
	areas, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("failed to read _NET_WORKAREA: %w", err)
	}
	if len(areas) == 0 {
		return 0, 0, 0, 0, fmt.Errorf("_NET_WORKAREA is empty")
	}
	index := 0
	if current, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(current) < len(areas) {
		index = int(current)
	}
	wa := areas[index]
	return int(wa.X), int(wa.Y), int(wa.Width), int(wa.Height), nil
}

// SetWorkArea overwrites _NET_WORKAREA with the same rectangle for every
// desktop. Only meaningful when no other window manager owns the property.
func (c *Connection) SetWorkArea(x, y, width, height int) error {
	count := 1
	if n, err := ewmh.NumberOfDesktopsGet(c.XUtil); err == nil && n > 0 {
		count = int(n)
	}

	areas := make([]ewmh.Workarea, count)
	for i := range areas {
		areas[i] = ewmh.Workarea{
			X:      x,
			Y:      y,
			Width:  uint(width),
			Height: uint(height),
		}
	}
	if err := ewmh.WorkareaSet(c.XUtil, areas); err != nil {
		return fmt.Errorf("failed to write _NET_WORKAREA: %w", err)
	}
	return nil
}
