package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawShellConfig struct {
	Mode           *ShellMode `yaml:"mode"`
	RegisteredPath *string    `yaml:"registered_path"`
	TaskbarHeight  *int       `yaml:"taskbar_height"`
	WatchBusNames  []string   `yaml:"watch_bus_names"`
}

type RawRetryConfig struct {
	MaxAttempts *int `yaml:"max_attempts"`
	IntervalMS  *int `yaml:"interval_ms"`
}

type RawReservationConfig struct {
	Retry                    *RawRetryConfig `yaml:"retry"`
	ReconcileIntervalSeconds *int            `yaml:"reconcile_interval_seconds"`
}

type RawLoggingConfig struct {
	Enabled   *bool   `yaml:"enabled"`
	Level     *string `yaml:"level"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

// RawConfig is one YAML file. Nil fields were not set by that file.
type RawConfig struct {
	Include IncludeList `yaml:"include"`

	LogLevel          *string               `yaml:"log_level"`
	ShowDesktopHotkey *string               `yaml:"show_desktop_hotkey"`
	ManualMaximize    *bool                 `yaml:"manual_maximize"`
	Display           *string               `yaml:"display"`
	XAuthority        *string               `yaml:"xauthority"`
	Shell             *RawShellConfig       `yaml:"shell"`
	Reservation       *RawReservationConfig `yaml:"reservation"`
	Logging           *RawLoggingConfig     `yaml:"logging"`
}

// merge returns c with every field set in overlay replaced.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c
	out.Include = nil

	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.ShowDesktopHotkey != nil {
		out.ShowDesktopHotkey = overlay.ShowDesktopHotkey
	}
	if overlay.ManualMaximize != nil {
		out.ManualMaximize = overlay.ManualMaximize
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.XAuthority != nil {
		out.XAuthority = overlay.XAuthority
	}
	if overlay.Shell != nil {
		merged := mergeRawShell(out.Shell, *overlay.Shell)
		out.Shell = &merged
	}
	if overlay.Reservation != nil {
		merged := mergeRawReservation(out.Reservation, *overlay.Reservation)
		out.Reservation = &merged
	}
	if overlay.Logging != nil {
		merged := mergeRawLogging(out.Logging, *overlay.Logging)
		out.Logging = &merged
	}
	return out
}

func mergeRawShell(base *RawShellConfig, overlay RawShellConfig) RawShellConfig {
	out := RawShellConfig{}
	if base != nil {
		out = *base
	}
	if overlay.Mode != nil {
		out.Mode = overlay.Mode
	}
	if overlay.RegisteredPath != nil {
		out.RegisteredPath = overlay.RegisteredPath
	}
	if overlay.TaskbarHeight != nil {
		out.TaskbarHeight = overlay.TaskbarHeight
	}
	if overlay.WatchBusNames != nil {
		out.WatchBusNames = overlay.WatchBusNames
	}
	return out
}

func mergeRawReservation(base *RawReservationConfig, overlay RawReservationConfig) RawReservationConfig {
	out := RawReservationConfig{}
	if base != nil {
		out = *base
	}
	if overlay.Retry != nil {
		retry := RawRetryConfig{}
		if out.Retry != nil {
			retry = *out.Retry
		}
		if overlay.Retry.MaxAttempts != nil {
			retry.MaxAttempts = overlay.Retry.MaxAttempts
		}
		if overlay.Retry.IntervalMS != nil {
			retry.IntervalMS = overlay.Retry.IntervalMS
		}
		out.Retry = &retry
	}
	if overlay.ReconcileIntervalSeconds != nil {
		out.ReconcileIntervalSeconds = overlay.ReconcileIntervalSeconds
	}
	return out
}

func mergeRawLogging(base *RawLoggingConfig, overlay RawLoggingConfig) RawLoggingConfig {
	out := RawLoggingConfig{}
	if base != nil {
		out = *base
	}
	if overlay.Enabled != nil {
		out.Enabled = overlay.Enabled
	}
	if overlay.Level != nil {
		out.Level = overlay.Level
	}
	if overlay.File != nil {
		out.File = overlay.File
	}
	if overlay.MaxSizeMB != nil {
		out.MaxSizeMB = overlay.MaxSizeMB
	}
	if overlay.MaxFiles != nil {
		out.MaxFiles = overlay.MaxFiles
	}
	return out
}
