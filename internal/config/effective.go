package config

import (
	"fmt"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig overlays raw onto DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.ShowDesktopHotkey != nil {
		cfg.ShowDesktopHotkey = *raw.ShowDesktopHotkey
	}
	if raw.ManualMaximize != nil {
		cfg.ManualMaximize = *raw.ManualMaximize
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.XAuthority != nil {
		cfg.XAuthority = *raw.XAuthority
	}

	if s := raw.Shell; s != nil {
		if s.Mode != nil {
			cfg.Shell.Mode = *s.Mode
		}
		if s.RegisteredPath != nil {
			cfg.Shell.RegisteredPath = *s.RegisteredPath
		}
		if s.TaskbarHeight != nil {
			cfg.Shell.TaskbarHeight = *s.TaskbarHeight
		}
		if s.WatchBusNames != nil {
			cfg.Shell.WatchBusNames = append([]string(nil), s.WatchBusNames...)
		}
	}

	if r := raw.Reservation; r != nil {
		if r.Retry != nil {
			if r.Retry.MaxAttempts != nil {
				cfg.Reservation.Retry.MaxAttempts = *r.Retry.MaxAttempts
			}
			if r.Retry.IntervalMS != nil {
				cfg.Reservation.Retry.IntervalMS = *r.Retry.IntervalMS
			}
		}
		if r.ReconcileIntervalSeconds != nil {
			cfg.Reservation.ReconcileIntervalSeconds = *r.ReconcileIntervalSeconds
		}
	}

	if l := raw.Logging; l != nil {
		if l.Enabled != nil {
			cfg.Logging.Enabled = *l.Enabled
		}
		if l.Level != nil {
			cfg.Logging.Level = *l.Level
		}
		if l.File != nil {
			cfg.Logging.File = *l.File
		}
		if l.MaxSizeMB != nil {
			cfg.Logging.MaxSizeMB = *l.MaxSizeMB
		}
		if l.MaxFiles != nil {
			cfg.Logging.MaxFiles = *l.MaxFiles
		}
	}

	return cfg, nil
}
