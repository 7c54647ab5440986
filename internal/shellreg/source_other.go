//go:build !windows

package shellreg

// DefaultSource returns the configured shell.registered_path.
func DefaultSource(configured string) Source {
	return StaticSource(configured)
}
