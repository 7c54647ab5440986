package shellreg

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestIsRegisteredShell(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "deskshell")
	if err := os.WriteFile(exe, nil, 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	spaced := filepath.Join(dir, "my apps", "deskshell")
	if err := os.MkdirAll(filepath.Dir(spaced), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(spaced, nil, 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name      string
		persisted string
		exe       string
		want      bool
	}{
		{"exact", exe, exe, true},
		{"quoted with args", `"` + exe + `" --shell`, exe, true},
		{"unquoted with args", exe + " --shell", exe, true},
		{"unquoted with spaces", spaced + " --shell", spaced, true},
		{"other program", "explorer.exe", exe, false},
		{"empty", "", exe, false},
		{"unclean path", filepath.Join(dir, ".", "deskshell"), exe, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRegisteredShell(tt.persisted, tt.exe); got != tt.want {
				t.Fatalf("IsRegisteredShell(%q, %q) = %v, want %v", tt.persisted, tt.exe, got, tt.want)
			}
		})
	}
}

func TestSymlinkedExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	exe := filepath.Join(dir, "deskshell")
	if err := os.WriteFile(exe, nil, 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	link := filepath.Join(dir, "shell")
	if err := os.Symlink(exe, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	if !IsRegisteredShell(link, exe) {
		t.Fatalf("symlink not resolved")
	}
}

func TestDetectModes(t *testing.T) {
	got, err := Detect(ModeAlways, StaticSource(""))
	if err != nil || !got {
		t.Fatalf("always = %v, %v", got, err)
	}
	got, err = Detect(ModeNever, StaticSource("/anything"))
	if err != nil || got {
		t.Fatalf("never = %v, %v", got, err)
	}
	got, err = Detect(ModeAuto, StaticSource(""))
	if err != nil || got {
		t.Fatalf("auto with no value = %v, %v", got, err)
	}

	exe, err := os.Executable()
	if err != nil {
		t.Skipf("no executable path: %v", err)
	}
	got, err = Detect(ModeAuto, StaticSource(exe))
	if err != nil || !got {
		t.Fatalf("auto with own path = %v, %v", got, err)
	}
}
