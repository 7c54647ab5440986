package platform

import (
	"fmt"
	"strings"
)

// Chord is a parsed key combination in xgbutil notation, such as
// "Mod4-d" or "Control-Mod1-Delete".
type Chord struct {
	Super   bool
	Control bool
	Alt     bool
	Shift   bool
	Key     string
}

// ParseChord parses a dash-separated chord. Modifier names follow the X11
// convention (Mod4 is Super, Mod1 is Alt); "Super", "Win", "Ctrl" and "Alt"
// are accepted as aliases.
func ParseChord(s string) (Chord, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Chord{}, fmt.Errorf("chord is empty")
	}

	parts := strings.Split(s, "-")
	var c Chord
	for i, part := range parts {
		if part == "" {
			return Chord{}, fmt.Errorf("chord %q has an empty component", s)
		}
		if i == len(parts)-1 {
			c.Key = part
			break
		}
		switch strings.ToLower(part) {
		case "mod4", "super", "win":
			c.Super = true
		case "control", "ctrl":
			c.Control = true
		case "mod1", "alt":
			c.Alt = true
		case "shift":
			c.Shift = true
		default:
			return Chord{}, fmt.Errorf("chord %q: unknown modifier %q", s, part)
		}
	}
	if !c.Super && !c.Control && !c.Alt && !c.Shift {
		return Chord{}, fmt.Errorf("chord %q needs at least one modifier", s)
	}
	return c, nil
}

func (c Chord) String() string {
	var parts []string
	if c.Control {
		parts = append(parts, "Control")
	}
	if c.Shift {
		parts = append(parts, "Shift")
	}
	if c.Alt {
		parts = append(parts, "Mod1")
	}
	if c.Super {
		parts = append(parts, "Mod4")
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "-")
}
