package classifier

import (
	"fmt"
	"strings"
)

// Label is the discrete classification outcome.
type Label int

const (
	// Healthy is class index 0.
	Healthy Label = iota
	// Damaged is class index 1.
	Damaged
	// Unavailable is the sentinel returned when no model is loaded.
	Unavailable Label = -1
)

// classOrder maps softmax indices to labels.
var classOrder = [...]Label{Healthy, Damaged}

func (l Label) String() string {
	switch l {
	case Healthy:
		return "Healthy"
	case Damaged:
		return "Damaged"
	case Unavailable:
		return "Unavailable"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// MarshalText renders the label name for JSON and templates.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts the names produced by String, case-insensitively.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLabel is the inverse of String.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "healthy":
		return Healthy, nil
	case "damaged":
		return Damaged, nil
	case "unavailable":
		return Unavailable, nil
	}
	return Unavailable, fmt.Errorf("unknown label %q", s)
}
