package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecordFormatsSortedDetails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "deskshell.log")
	j, err := Open(Config{Enabled: true, Level: LevelInfo, FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	j.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	j.Record(KindAcquire, map[string]any{"size": 220, "edge": "left"})
	j.Record(KindRetry, map[string]any{"attempt": 1})
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "2026-03-01 09:30:00 [ACQUIRE] edge=\"left\" size=220\n"
	if string(data) != want {
		t.Fatalf("journal = %q, want %q", data, want)
	}
}

func TestDisabledAndNilJournalDiscard(t *testing.T) {
	j, err := Open(Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	j.Record(KindRelease, nil)

	var nilJournal *Journal
	nilJournal.Record(KindRelease, nil)
	if err := nilJournal.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deskshell.log")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 1024*1024)), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	j, err := Open(Config{Enabled: true, FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	j.Record(KindRelease, map[string]any{"reason": "exit"})

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatalf("rotated file missing: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "[RELEASE] reason=\"exit\"") {
		t.Fatalf("new journal = %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
