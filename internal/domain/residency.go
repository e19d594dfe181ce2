package domain

import "fmt"

// Residency identifies which of the two document stores holds the
// authoritative copy of a board. It is carried explicitly alongside the
// board value so callers never have to infer origin from which fields
// happen to be set.
type Residency int

const (
	// ResidencyLocal means the board lives only in the on-device store.
	ResidencyLocal Residency = iota
	// ResidencyRemote means the authoritative copy lives in the cloud store.
	ResidencyRemote
)

// String returns the string representation of the residency.
func (r Residency) String() string {
	switch r {
	case ResidencyLocal:
		return "local"
	case ResidencyRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so residencies serialize
// as their names rather than bare integers.
func (r Residency) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Residency) UnmarshalText(text []byte) error {
	parsed, ok := ParseResidency(string(text))
	if !ok {
		return fmt.Errorf("unknown residency %q", string(text))
	}
	*r = parsed
	return nil
}

// ParseResidency converts a string to Residency.
func ParseResidency(s string) (Residency, bool) {
	switch s {
	case "local":
		return ResidencyLocal, true
	case "remote":
		return ResidencyRemote, true
	default:
		return ResidencyLocal, false
	}
}
