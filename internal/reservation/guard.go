package reservation

import (
	"github.com/1broseidon/deskshell/internal/journal"
	"github.com/1broseidon/deskshell/internal/platform"
)

// OnShellRestarted reapplies whatever should be held now. The restarted
// shell has dropped every bar and reset the work area, so cached state is
// discarded before the settle.
func (c *Coordinator) OnShellRestarted() {
	c.logger.Info("reservation: shell restarted, reapplying", "held", c.held)
	c.record(journal.KindShellRestart, map[string]any{"held": c.held.String()})
	c.registrar.Invalidate()
	c.writer.Invalidate()
	c.OnLayoutSettled()
}

// HandleEvent routes a window-system event. Window state events are not
// handled here.
func (c *Coordinator) HandleEvent(ev platform.Event) {
	switch ev.Kind {
	case platform.EventShellRestarted:
		c.OnShellRestarted()
	case platform.EventBarPositionChanged:
		if c.held == ModeCooperative {
			c.registrar.HandlePositionChanged(ev.Surface)
		}
	case platform.EventDisplayChanged:
		c.writer.Invalidate()
		c.OnLayoutSettled()
		if c.held == ModeCooperative {
			c.registrar.HandlePositionChanged(0)
		}
	}
}
