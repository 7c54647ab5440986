package reservation

import (
	"github.com/1broseidon/deskshell/internal/appbar"
	"github.com/1broseidon/deskshell/internal/platform"
)

// Status is a snapshot of the coordinator.
type Status struct {
	Shell        bool
	Desired      Mode
	Held         Mode
	Bars         []appbar.BarHandle
	LegacyActive bool
	LegacyRect   platform.Rect
	RetryActive  bool
	RetryAttempt int
	RetryMax     int
}

// Status returns a snapshot.
func (c *Coordinator) Status() Status {
	return Status{
		Shell:        c.shell,
		Desired:      c.Mode(),
		Held:         c.held,
		Bars:         c.registrar.Handles(),
		LegacyActive: c.writer.Active(),
		LegacyRect:   c.writer.Current(),
		RetryActive:  c.budget.Active(),
		RetryAttempt: c.budget.Attempts(),
		RetryMax:     c.budget.cfg.MaxAttempts,
	}
}
