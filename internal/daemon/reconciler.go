package daemon

import (
	"context"
	"log/slog"
	"time"
)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	// Interval between passes. Zero or negative disables the reconciler
	// until Reset is called with a positive value.
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically re-runs a layout settle so claims dropped by a
// shell that restarted silently are reapplied.
type Reconciler struct {
	interval time.Duration
	settle   func()
	logger   *slog.Logger
	reset    chan time.Duration
	passes   int
}

// NewReconciler creates a reconciler that calls settle on every pass.
// settle is called from the reconciler goroutine and must post its work
// onto the event loop.
func NewReconciler(cfg ReconcilerConfig, settle func()) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		interval: cfg.Interval,
		settle:   settle,
		logger:   logger,
		reset:    make(chan time.Duration, 1),
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	var ticker *time.Ticker
	var tick <-chan time.Time
	start := func(d time.Duration) {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		r.interval = d
		if d > 0 {
			ticker = time.NewTicker(d)
			tick = ticker.C
		}
	}
	start(r.interval)
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped", "passes", r.passes)
			return
		case d := <-r.reset:
			if d != r.interval {
				r.logger.Info("reconciler interval changed", "interval", d)
				start(d)
			}
		case <-tick:
			r.reconcile()
		}
	}
}

// Reset changes the interval of a running reconciler.
func (r *Reconciler) Reset(d time.Duration) {
	select {
	case r.reset <- d:
	default:
		// Replace a pending value with the newest one.
		select {
		case <-r.reset:
		default:
		}
		r.reset <- d
	}
}

func (r *Reconciler) reconcile() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()
	r.passes++
	r.logger.Debug("reconciler: settling", "pass", r.passes)
	r.settle()
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() {
	r.reconcile()
}
