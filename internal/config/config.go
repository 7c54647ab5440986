package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/1broseidon/deskshell/internal/platform"
	"gopkg.in/yaml.v3"
)

// ShellMode selects how the "is this process the shell" fact is decided.
type ShellMode string

const (
	ShellModeAuto   ShellMode = "auto"   // Compare the registered shell with our executable.
	ShellModeAlways ShellMode = "always" // Treat this process as the shell.
	ShellModeNever  ShellMode = "never"  // Always cooperate with the running shell.
)

// ShellConfig configures shell-replacement behavior.
type ShellConfig struct {
	Mode ShellMode `yaml:"mode"`
	// RegisteredPath is the persisted shell command line on platforms
	// without a registry value to read.
	RegisteredPath string `yaml:"registered_path,omitempty"`
	// TaskbarHeight is the bottom strip cut from the work area in shell mode.
	TaskbarHeight int `yaml:"taskbar_height"`
	// WatchBusNames are session bus names whose re-acquisition means the
	// shell restarted.
	WatchBusNames []string `yaml:"watch_bus_names,omitempty"`
}

// RetryConfig bounds the reservation convergence loop.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	IntervalMS  int `yaml:"interval_ms"`
}

// ReservationConfig tunes the reservation coordinator.
type ReservationConfig struct {
	Retry RetryConfig `yaml:"retry"`
	// ReconcileIntervalSeconds re-runs a layout settle periodically; 0 disables.
	ReconcileIntervalSeconds int `yaml:"reconcile_interval_seconds"`
}

// LoggingConfig configures the reservation journal.
type LoggingConfig struct {
	// Enabled turns the journal on/off
	Enabled bool `yaml:"enabled,omitempty"`
	// Level controls journal verbosity: debug, info, warn
	Level string `yaml:"level,omitempty"`
	// File is the journal path (default: ~/.local/share/deskshell/reservations.log)
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum file size before rotation (default: 10)
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3)
	MaxFiles int `yaml:"max_files,omitempty"`
}

// Config holds the application configuration.
type Config struct {
	LogLevel          string            `yaml:"log_level"`
	ShowDesktopHotkey string            `yaml:"show_desktop_hotkey"`
	ManualMaximize    bool              `yaml:"manual_maximize"`
	Display           string            `yaml:"display,omitempty"`
	XAuthority        string            `yaml:"xauthority,omitempty"`
	Shell             ShellConfig       `yaml:"shell"`
	Reservation       ReservationConfig `yaml:"reservation"`
	Logging           LoggingConfig     `yaml:"logging,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		ShowDesktopHotkey: "Mod4-d",
		ManualMaximize:    true,
		Shell: ShellConfig{
			Mode:          ShellModeAuto,
			TaskbarHeight: 40,
		},
		Reservation: ReservationConfig{
			Retry: RetryConfig{
				MaxAttempts: 8,
				IntervalMS:  120,
			},
			ReconcileIntervalSeconds: 30,
		},
	}
}

// RetryInterval returns the convergence tick interval.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.Reservation.Retry.IntervalMS) * time.Millisecond
}

// ReconcileInterval returns the reconcile period, or zero when disabled.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Reservation.ReconcileIntervalSeconds) * time.Second
}

// GetLoggingConfig returns the journal config with defaults filled in.
func (c *Config) GetLoggingConfig() LoggingConfig {
	if c == nil {
		return LoggingConfig{}
	}
	cfg := c.Logging
	if cfg.File == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			home = os.Getenv("HOME")
		}
		if home == "" {
			home = "."
		}
		cfg.File = filepath.Join(home, ".local/share/deskshell/reservations.log")
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = 3
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	return cfg
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if strings.TrimSpace(c.ShowDesktopHotkey) == "" {
		return &ValidationError{Path: "show_desktop_hotkey", Err: fmt.Errorf("show_desktop_hotkey is required")}
	}
	if _, err := platform.ParseChord(c.ShowDesktopHotkey); err != nil {
		return &ValidationError{Path: "show_desktop_hotkey", Err: err}
	}

	switch c.Shell.Mode {
	case ShellModeAuto, ShellModeAlways, ShellModeNever:
	default:
		return &ValidationError{Path: "shell.mode", Err: fmt.Errorf("shell.mode must be one of: auto, always, never")}
	}
	if c.Shell.TaskbarHeight < 0 {
		return &ValidationError{Path: "shell.taskbar_height", Err: fmt.Errorf("taskbar_height must be >= 0")}
	}
	for i, name := range c.Shell.WatchBusNames {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Path: "shell.watch_bus_names", Err: fmt.Errorf("entry %d is empty", i)}
		}
	}

	if c.Reservation.Retry.MaxAttempts < 1 {
		return &ValidationError{Path: "reservation.retry.max_attempts", Err: fmt.Errorf("max_attempts must be >= 1")}
	}
	if c.Reservation.Retry.IntervalMS < 10 {
		return &ValidationError{Path: "reservation.retry.interval_ms", Err: fmt.Errorf("interval_ms must be >= 10")}
	}
	if c.Reservation.ReconcileIntervalSeconds < 0 {
		return &ValidationError{Path: "reservation.reconcile_interval_seconds", Err: fmt.Errorf("reconcile_interval_seconds must be >= 0")}
	}

	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("logging.level must be one of: debug, info, warn")}
	}

	if warnings := c.validationWarnings(); len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
	}
	return nil
}

func (c *Config) validationWarnings() []string {
	var warnings []string
	if c.Shell.Mode == ShellModeAlways && c.Shell.TaskbarHeight == 0 {
		warnings = append(warnings, "shell.mode is always but taskbar_height is 0; the work area will not be reduced")
	}
	if c.Shell.RegisteredPath != "" && c.Shell.Mode != ShellModeAuto {
		warnings = append(warnings, fmt.Sprintf("shell.registered_path is ignored when shell.mode is %s", c.Shell.Mode))
	}
	return warnings
}
