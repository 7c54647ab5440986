//go:build !linux && !windows

package platform

import (
	"fmt"
	"runtime"
)

// Open reports that no backend exists for this platform.
func Open(display string) (Backend, error) {
	return nil, fmt.Errorf("no window-system backend for %s", runtime.GOOS)
}
