package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Reservation.Retry.MaxAttempts != 8 || cfg.RetryInterval() != 120*time.Millisecond {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Reservation.Retry)
	}
	if cfg.ReconcileInterval() != 30*time.Second {
		t.Fatalf("reconcile interval = %v", cfg.ReconcileInterval())
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Shell.Mode != ShellModeAuto {
		t.Fatalf("shell.mode = %q", res.Config.Shell.Mode)
	}
	if len(res.Files) != 0 {
		t.Fatalf("files = %v", res.Files)
	}
}

func TestLoadFromPath_OverridesAndSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"manual_maximize: false",
		"shell:",
		"  mode: always",
		"  taskbar_height: 48",
		"reservation:",
		"  retry:",
		"    max_attempts: 3",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.ManualMaximize {
		t.Fatalf("expected manual_maximize false")
	}
	if cfg.Shell.Mode != ShellModeAlways || cfg.Shell.TaskbarHeight != 48 {
		t.Fatalf("shell = %+v", cfg.Shell)
	}
	if cfg.Reservation.Retry.MaxAttempts != 3 || cfg.Reservation.Retry.IntervalMS != 120 {
		t.Fatalf("retry = %+v", cfg.Reservation.Retry)
	}

	val, src, err := Explain(res, "shell.taskbar_height")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val.(int) != 48 || src.Kind != SourceFile || src.Line != 4 {
		t.Fatalf("explain = %v %+v", val, src)
	}
	_, src, err = Explain(res, "reservation.retry.interval_ms")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if src.Kind != SourceDefault {
		t.Fatalf("expected default source, got %+v", src)
	}
}

func TestLoadFromPath_UnknownKeyRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "shell:\n  taskbar: 40\n")

	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected strict decode error")
	}
}

func TestLoadFromPath_ValidationErrorHasSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "log_level: info\nshell:\n  mode: sometimes\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "shell.mode" || verr.Source.Line != 3 {
		t.Fatalf("validation error = %+v", verr)
	}
	if !strings.Contains(err.Error(), "config.yaml:3:") {
		t.Fatalf("error lacks location: %v", err)
	}
}

func TestLoadFromPath_IncludesMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "conf.d", "10-shell.yaml"), "shell:\n  taskbar_height: 32\n  mode: never\n")
	writeFile(t, filepath.Join(dir, "conf.d", "20-retry.yaml"), "reservation:\n  retry:\n    interval_ms: 200\n")
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "include: conf.d\nshell:\n  mode: auto\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Shell.Mode != ShellModeAuto {
		t.Fatalf("main file should win: mode = %q", cfg.Shell.Mode)
	}
	if cfg.Shell.TaskbarHeight != 32 {
		t.Fatalf("taskbar_height = %d, want 32", cfg.Shell.TaskbarHeight)
	}
	if cfg.RetryInterval() != 200*time.Millisecond {
		t.Fatalf("retry interval = %v", cfg.RetryInterval())
	}
	if len(res.Files) != 3 {
		t.Fatalf("files = %v", res.Files)
	}
}

func TestLoadFromPath_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "include: b.yaml\n")
	writeFile(t, filepath.Join(dir, "b.yaml"), "include: a.yaml\n")

	_, err := LoadFromPath(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"hotkey empty", func(c *Config) { c.ShowDesktopHotkey = "" }, "show_desktop_hotkey"},
		{"hotkey without modifier", func(c *Config) { c.ShowDesktopHotkey = "d" }, "show_desktop_hotkey"},
		{"taskbar negative", func(c *Config) { c.Shell.TaskbarHeight = -1 }, "shell.taskbar_height"},
		{"bus name empty", func(c *Config) { c.Shell.WatchBusNames = []string{" "} }, "shell.watch_bus_names"},
		{"attempts", func(c *Config) { c.Reservation.Retry.MaxAttempts = 0 }, "reservation.retry.max_attempts"},
		{"interval", func(c *Config) { c.Reservation.Retry.IntervalMS = 1 }, "reservation.retry.interval_ms"},
		{"reconcile", func(c *Config) { c.Reservation.ReconcileIntervalSeconds = -1 }, "reservation.reconcile_interval_seconds"},
		{"journal level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Shell.TaskbarHeight = 56
	cfg.Shell.WatchBusNames = []string{"org.kde.plasmashell"}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Shell.TaskbarHeight != 56 || len(res.Config.Shell.WatchBusNames) != 1 {
		t.Fatalf("shell = %+v", res.Config.Shell)
	}
}

func TestGetLoggingConfigDefaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	cfg := DefaultConfig()
	lc := cfg.GetLoggingConfig()
	if lc.File != filepath.Join("/home/tester", ".local/share/deskshell/reservations.log") {
		t.Fatalf("file = %q", lc.File)
	}
	if lc.MaxSizeMB != 10 || lc.MaxFiles != 3 || lc.Level != "info" {
		t.Fatalf("defaults = %+v", lc)
	}
}

func TestExplainUnknownPath(t *testing.T) {
	res := &LoadResult{Config: DefaultConfig()}
	if _, _, err := Explain(res, "shell.nope"); err == nil {
		t.Fatalf("expected error for unknown path")
	}
	if _, _, err := Explain(res, "log_level.extra"); err == nil {
		t.Fatalf("expected error for nested leaf")
	}
}
