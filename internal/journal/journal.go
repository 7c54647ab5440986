// Package journal appends reservation events to a size-rotated text file so
// claims can be audited after the fact.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Kind classifies a journal entry.
type Kind string

const (
	KindAcquire      Kind = "ACQUIRE"
	KindRelease      Kind = "RELEASE"
	KindModeChange   Kind = "MODE"
	KindShellRestart Kind = "SHELL-RESTART"
	KindRetry        Kind = "RETRY"
	KindPlacement    Kind = "PLACEMENT"
	KindFailure      Kind = "FAILURE"
)

// Level is the verbosity threshold for entries.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
)

func kindLevel(k Kind) Level {
	switch k {
	case KindRetry, KindPlacement:
		return LevelDebug
	case KindFailure:
		return LevelWarn
	default:
		return LevelInfo
	}
}

// ParseLevel converts a string to a Level. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning", "error":
		return LevelWarn
	default:
		return LevelInfo
	}
}

// Config controls the journal file.
type Config struct {
	Enabled   bool
	Level     Level
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

// Recorder is the subset used by reservation components.
type Recorder interface {
	Record(kind Kind, details map[string]any)
}

// Journal writes entries with rotation. A nil *Journal discards everything.
type Journal struct {
	mu   sync.Mutex
	cfg  Config
	file *os.File
	size int64
	now  func() time.Time
}

// Open creates the journal. When disabled it returns a journal that drops
// every entry.
func Open(cfg Config) (*Journal, error) {
	j := &Journal{cfg: cfg, now: time.Now}
	if !cfg.Enabled {
		return j, nil
	}
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("journal file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", cfg.FilePath, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat journal: %w", err)
	}
	j.file = f
	j.size = st.Size()
	return j, nil
}

// Record appends one line: timestamp, kind, then details as sorted key=value
// pairs. Write errors go to stderr and never reach the caller.
func (j *Journal) Record(kind Kind, details map[string]any) {
	if j == nil || !j.cfg.Enabled {
		return
	}
	if kindLevel(kind) < j.cfg.Level {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return
	}

	if limit := int64(j.cfg.MaxSizeMB) * 1024 * 1024; limit > 0 && j.size >= limit {
		if err := j.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "journal rotation failed: %v\n", err)
		}
		if j.file == nil {
			return
		}
	}

	n, err := j.file.WriteString(formatEntry(j.now(), kind, details))
	if err != nil {
		fmt.Fprintf(os.Stderr, "journal write failed: %v\n", err)
		return
	}
	j.size += int64(n)
}

func formatEntry(ts time.Time, kind Kind, details map[string]any) string {
	var sb strings.Builder
	sb.WriteString(ts.Format("2006-01-02 15:04:05"))
	sb.WriteString(" [")
	sb.WriteString(string(kind))
	sb.WriteString("]")

	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := details[k].(type) {
		case string:
			fmt.Fprintf(&sb, " %s=%q", k, v)
		case fmt.Stringer:
			fmt.Fprintf(&sb, " %s=%s", k, v.String())
		default:
			fmt.Fprintf(&sb, " %s=%v", k, v)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// Close flushes and closes the file.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// rotate shifts deskshell.log.N to .N+1, dropping the oldest, and reopens.
func (j *Journal) rotate() error {
	if j.file != nil {
		j.file.Close()
		j.file = nil
	}

	base := j.cfg.FilePath
	keep := j.cfg.MaxFiles
	if keep < 1 {
		keep = 1
	}
	os.Remove(fmt.Sprintf("%s.%d", base, keep))
	for i := keep - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", base, i), fmt.Sprintf("%s.%d", base, i+1))
	}
	if err := os.Rename(base, base+".1"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotate journal: %w", err)
	}

	f, err := os.OpenFile(base, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("reopen journal: %w", err)
	}
	j.file = f
	j.size = 0
	return nil
}
