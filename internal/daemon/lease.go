package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/1broseidon/deskshell/internal/ipc"
)

// Lease records a global work-area override so a later process can undo it
// if this one dies without restoring. Cooperative bars need no lease: the
// window system drops them with the process.
type Lease struct {
	InstanceID string       `json:"instance_id"`
	PID        int          `json:"pid"`
	Mode       string       `json:"mode"`
	Applied    ipc.RectData `json:"applied"`
	Restore    ipc.RectData `json:"restore"`
	AcquiredAt time.Time    `json:"acquired_at"`
}

// ReadLease loads the lease at path. A missing file is (nil, nil).
func ReadLease(path string) (*Lease, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read lease: %w", err)
	}
	var l Lease
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse lease %s: %w", path, err)
	}
	return &l, nil
}

// WriteLease stores l at path atomically.
func WriteLease(path string, l Lease) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lease: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create lease dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write lease: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit lease: %w", err)
	}
	return nil
}

// RemoveLease deletes the lease file if present.
func RemoveLease(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lease: %w", err)
	}
	return nil
}
