// internal/phase/phase.go
package phase

import "fmt"

// Phase is a light-phase instruction sent to one intersection.
type Phase int

const (
	Green Phase = iota + 1
	Red
)

func (p Phase) String() string {
	switch p {
	case Green:
		return "start-green"
	case Red:
		return "start-red"
	default:
		return "unknown"
	}
}

// Wire returns the firmware command string for p.
func (p Phase) Wire() string {
	switch p {
	case Green:
		return WireGreen
	case Red:
		return WireRed
	default:
		return ""
	}
}

// Code returns the register code for p.
func (p Phase) Code() uint16 {
	switch p {
	case Green:
		return CodeGreen
	case Red:
		return CodeRed
	default:
		return CodeUnknown
	}
}

// Label is the short human form used in intersection status strings.
func (p Phase) Label() string {
	switch p {
	case Green:
		return "GREEN"
	case Red:
		return "RED"
	default:
		return "UNKNOWN"
	}
}

// Command is exactly what a controller is asked to do.
// It contains no transport detail.
type Command struct {
	Phase   Phase
	Seconds int
}

// Describe renders the status string recorded after a successful send,
// e.g. "GREEN (10s)".
func (c Command) Describe() string {
	return fmt.Sprintf("%s (%ds)", c.Phase.Label(), c.Seconds)
}
