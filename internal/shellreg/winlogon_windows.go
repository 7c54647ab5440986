//go:build windows

package shellreg

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const winlogonKey = `SOFTWARE\Microsoft\Windows NT\CurrentVersion\Winlogon`

// Winlogon reads the Shell value, preferring the per-user override.
type Winlogon struct{}

func (Winlogon) RegisteredShell() (string, bool, error) {
	for _, root := range []registry.Key{registry.CURRENT_USER, registry.LOCAL_MACHINE} {
		v, err := readShell(root)
		if errors.Is(err, registry.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		if v != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}

func readShell(root registry.Key) (string, error) {
	k, err := registry.OpenKey(root, winlogonKey, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer k.Close()
	v, _, err := k.GetStringValue("Shell")
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", err
		}
		return "", fmt.Errorf("read Winlogon Shell: %w", err)
	}
	return v, nil
}

// DefaultSource returns the registry source; configured is ignored because
// the OS value is authoritative.
func DefaultSource(configured string) Source {
	return Winlogon{}
}
