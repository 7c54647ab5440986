package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	log_level
//	show_desktop_hotkey
//	manual_maximize
//	display
//	shell.mode
//	shell.taskbar_height
//	reservation.retry.max_attempts
//	reservation.reconcile_interval_seconds
//	logging.file
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	leaf := func(v any) (any, error) {
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return v, nil
	}

	switch parts[0] {
	case "log_level":
		return leaf(cfg.LogLevel)
	case "show_desktop_hotkey":
		return leaf(cfg.ShowDesktopHotkey)
	case "manual_maximize":
		return leaf(cfg.ManualMaximize)
	case "display":
		return leaf(cfg.Display)
	case "xauthority":
		return leaf(cfg.XAuthority)
	case "shell":
		if len(parts) == 1 {
			return cfg.Shell, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[1] {
		case "mode":
			return cfg.Shell.Mode, nil
		case "registered_path":
			return cfg.Shell.RegisteredPath, nil
		case "taskbar_height":
			return cfg.Shell.TaskbarHeight, nil
		case "watch_bus_names":
			return cfg.Shell.WatchBusNames, nil
		}
	case "reservation":
		if len(parts) == 1 {
			return cfg.Reservation, nil
		}
		switch {
		case len(parts) == 2 && parts[1] == "reconcile_interval_seconds":
			return cfg.Reservation.ReconcileIntervalSeconds, nil
		case len(parts) == 2 && parts[1] == "retry":
			return cfg.Reservation.Retry, nil
		case len(parts) == 3 && parts[1] == "retry":
			switch parts[2] {
			case "max_attempts":
				return cfg.Reservation.Retry.MaxAttempts, nil
			case "interval_ms":
				return cfg.Reservation.Retry.IntervalMS, nil
			}
		}
	case "logging":
		if len(parts) == 1 {
			return cfg.Logging, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[1] {
		case "enabled":
			return cfg.Logging.Enabled, nil
		case "level":
			return cfg.Logging.Level, nil
		case "file":
			return cfg.Logging.File, nil
		case "max_size_mb":
			return cfg.Logging.MaxSizeMB, nil
		case "max_files":
			return cfg.Logging.MaxFiles, nil
		}
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
