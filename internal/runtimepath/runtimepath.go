package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Dir returns the runtime directory used by deskshell state and IPC socket
// lookups. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) <tmp>/deskshell-runtime-<uid> (created)
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	if runtime.GOOS != "windows" {
		runUserDir := fmt.Sprintf("/run/user/%d", uid)
		if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
			return runUserDir, nil
		}
	}

	name := fmt.Sprintf("deskshell-runtime-%d", uid)
	if uid < 0 {
		name = "deskshell-runtime"
	}
	tmpDir := filepath.Join(os.TempDir(), name)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SocketPath returns the daemon IPC socket path.
func SocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "deskshell.sock"), nil
}

// LeasePath returns the file recording which reservations the running
// daemon holds, used to undo them after a crash.
func LeasePath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "deskshell-lease.json"), nil
}
