// Package shellreg answers whether this process is the registered desktop
// shell.
package shellreg

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Mode overrides detection.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeAlways Mode = "always"
	ModeNever  Mode = "never"
)

// Source reads the persisted shell command line. Found is false when no
// value is configured.
type Source interface {
	RegisteredShell() (value string, found bool, err error)
}

// StaticSource is a fixed value, typically from config.
type StaticSource string

func (s StaticSource) RegisteredShell() (string, bool, error) {
	v := strings.TrimSpace(string(s))
	return v, v != "", nil
}

// Detect resolves the shell fact for the running executable.
func Detect(mode Mode, src Source) (bool, error) {
	switch mode {
	case ModeAlways:
		return true, nil
	case ModeNever:
		return false, nil
	}
	persisted, found, err := src.RegisteredShell()
	if err != nil || !found {
		return false, err
	}
	exe, err := os.Executable()
	if err != nil {
		return false, err
	}
	return IsRegisteredShell(persisted, exe), nil
}

// IsRegisteredShell compares a persisted shell command line against an
// executable path. The command line may be quoted and carry arguments.
func IsRegisteredShell(persisted, exe string) bool {
	cmd := commandPath(persisted)
	if cmd == "" || exe == "" {
		return false
	}
	return normalize(cmd) == normalize(exe)
}

func commandPath(cmdline string) string {
	s := strings.TrimSpace(cmdline)
	if s == "" {
		return ""
	}
	if s[0] == '"' {
		if end := strings.IndexByte(s[1:], '"'); end >= 0 {
			return s[1 : end+1]
		}
		return strings.Trim(s, `"`)
	}
	// Unquoted paths with spaces are ambiguous; prefer the longest prefix
	// that exists, then fall back to the first field.
	fields := strings.Fields(s)
	for i := len(fields); i > 1; i-- {
		candidate := strings.Join(fields[:i], " ")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return fields[0]
}

func normalize(p string) string {
	p = os.ExpandEnv(p)
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	p = filepath.Clean(p)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(strings.ReplaceAll(p, "/", `\`))
		p = strings.TrimSuffix(p, ".exe")
	}
	return p
}
