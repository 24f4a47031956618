// internal/rotation/types.go
package rotation

import (
	"time"

	"github.com/tamzrod/signal-rotator/internal/dispatch"
	"github.com/tamzrod/signal-rotator/internal/registry"
)

// State is the lifecycle state of the rotation worker.
type State string

const (
	StateIdle     State = "idle"
	StateActive   State = "active"
	StateStopping State = "stopping"
)

// Timing is every delay the loop uses. Phase lengths are whole seconds;
// Unit is the wall-clock length of one such second (tests shrink it).
type Timing struct {
	YellowBuffer int
	RedHold      int
	Backoff      int

	// Tick is how often a running wait re-checks for stop and reports
	// progress. It bounds stop latency during waits.
	Tick time.Duration
	Unit time.Duration
}

// DefaultTiming is the reference deployment: 3s yellow, 30s hold, 5s backoff.
func DefaultTiming() Timing {
	return Timing{
		YellowBuffer: 3,
		RedHold:      30,
		Backoff:      5,
		Tick:         time.Second,
		Unit:         time.Second,
	}
}

func (t Timing) dispatch() dispatch.Timing {
	return dispatch.Timing{YellowBuffer: t.YellowBuffer, RedHold: t.RedHold}
}

func (t Timing) seconds(n int) time.Duration {
	return time.Duration(n) * t.Unit
}

// StepResult describes one rotation iteration.
type StepResult struct {
	ID           string
	Slot         int
	Intersection string

	// CaptureErr is set when the frame fetch failed; nothing was dispatched.
	CaptureErr error
	// CountErr is set when inference failed; the count was taken as zero.
	CountErr error
	// Abandoned is set when a stop arrived before dispatch; no command was
	// sent and the pointer stays on this slot.
	Abandoned bool
	// Fault is set when the iteration panicked.
	Fault any

	VehicleCount int
	Green        int

	Plan     dispatch.Plan
	Outcomes []dispatch.Outcome

	// Interrupted is set when a stop arrived during the wait or backoff.
	Interrupted bool
}

// Info is echoed by start and status.
type Info struct {
	Policy    string
	DebugMode bool
	LogFile   string
}

// StartReport is returned by Controller.Start.
type StartReport struct {
	Status         string `json:"status"`
	State          State  `json:"state"`
	AlreadyRunning bool   `json:"already_running"`
	Policy         string `json:"policy"`
	DebugMode      bool   `json:"debug_mode"`
	LogFile        string `json:"log_file"`
}

// StopReport is returned by Controller.Stop.
type StopReport struct {
	Status string `json:"status"`
	State  State  `json:"state"`
}

// StatusReport is a point-in-time view of the rotation.
// Fields are read independently; they may be torn by one step.
type StatusReport struct {
	Status              string                  `json:"status"`
	Active              bool                    `json:"active"`
	State               State                   `json:"state"`
	CurrentIntersection string                  `json:"current_intersection"`
	Pointer             int                     `json:"pointer"`
	Intersections       []registry.Intersection `json:"intersections"`
	Policy              string                  `json:"policy"`
	DebugMode           bool                    `json:"debug_mode"`
	Timestamp           time.Time               `json:"timestamp"`
}
