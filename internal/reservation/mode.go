package reservation

// Mode is which reservation mechanism is in use. Exactly one mechanism may
// hold a claim at a time.
type Mode int

const (
	ModeNone Mode = iota
	ModeCooperative
	ModeLegacyShell
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeCooperative:
		return "cooperative"
	case ModeLegacyShell:
		return "legacy-shell"
	default:
		return "unknown"
	}
}
