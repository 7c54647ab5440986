package reservation

import "time"

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d on the coordinator's loop.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RetryConfig bounds the convergence loop.
type RetryConfig struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultRetry returns the default retry bounds.
func DefaultRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 8, Interval: 120 * time.Millisecond}
}

type sample struct {
	left, top int
}

// RetryBudget is the bounded timer that re-runs a settle until the applied
// sizes stop changing.
type RetryBudget struct {
	cfg      RetryConfig
	attempts int
	last     sample
	haveLast bool
	timer    Timer
}

// Active reports whether a tick is pending.
func (b *RetryBudget) Active() bool {
	return b.timer != nil
}

// Attempts returns the ticks run since the last reset.
func (b *RetryBudget) Attempts() int {
	return b.attempts
}

func (b *RetryBudget) reset() {
	b.stop()
	b.attempts = 0
	b.haveLast = false
}

func (b *RetryBudget) stop() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// observe records the sizes applied by one tick and reports whether the loop
// should continue.
func (b *RetryBudget) observe(s sample) (more bool, converged bool) {
	b.attempts++
	if b.haveLast && s == b.last {
		return false, true
	}
	b.last = s
	b.haveLast = true
	return b.attempts < b.cfg.MaxAttempts, false
}
