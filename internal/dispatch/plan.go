// internal/dispatch/plan.go
package dispatch

import (
	"github.com/tamzrod/signal-rotator/internal/phase"
	"github.com/tamzrod/signal-rotator/internal/registry"
)

// Timing holds the fixed phase lengths around a green grant, in seconds.
type Timing struct {
	YellowBuffer int // added to the next intersection's red
	RedHold      int // red for every intersection beyond next
}

// DefaultTiming is the reference deployment.
func DefaultTiming() Timing {
	return Timing{YellowBuffer: 3, RedHold: 30}
}

// Target is one command addressed to one registry slot.
type Target struct {
	Slot    int
	ID      string
	Address string
	Command phase.Command
}

// Plan is the full command set for one rotation step.
type Plan struct {
	ActiveSlot int
	Green      int

	// SkipActive is set when the policy granted no green. The active
	// intersection receives no command; its neighbours still go red.
	SkipActive bool

	Targets []Target
}

// BuildPlan derives the commands for the step whose active slot is pointer.
//
//	active      <- green for `green` seconds (omitted when green == 0)
//	pointer+1   <- red for green + yellow buffer
//	every other <- red for the long hold
func BuildPlan(snap []registry.Intersection, pointer, green int, t Timing) Plan {
	n := len(snap)
	p := Plan{
		ActiveSlot: wrap(pointer, n),
		Green:      green,
		SkipActive: green <= 0,
	}
	if n == 0 {
		return p
	}

	if !p.SkipActive {
		p.Targets = append(p.Targets, target(snap, p.ActiveSlot, phase.Green, green))
	}

	for k := 1; k < n; k++ {
		slot := wrap(p.ActiveSlot+k, n)
		secs := t.RedHold
		if k == 1 {
			secs = green + t.YellowBuffer
		}
		p.Targets = append(p.Targets, target(snap, slot, phase.Red, secs))
	}

	return p
}

// Wait is how long the active phase runs before the rotation moves on.
func (p Plan) Wait(t Timing) int {
	return p.Green + t.YellowBuffer
}

func target(snap []registry.Intersection, slot int, ph phase.Phase, secs int) Target {
	return Target{
		Slot:    slot,
		ID:      snap[slot].ID,
		Address: snap[slot].Address,
		Command: phase.Command{Phase: ph, Seconds: secs},
	}
}

func wrap(i, n int) int {
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}
