// internal/policy/policy.go
package policy

import "fmt"

// Func maps a vehicle count to a green-phase duration in whole seconds.
// Implementations are pure and total.
type Func func(count int) int

const (
	NameTiered = "tiered"
	NameLinear = "linear"

	// Default is the policy used when a deployment does not name one.
	Default = NameTiered
)

// Tiered grants no green on an empty approach and caps at 15s.
//
//	0 -> 0 (skip), 1 -> 5, 2 -> 10, >=3 -> 15
//
// Negative counts fall through to 30s.
func Tiered(count int) int {
	switch {
	case count == 0:
		return 0
	case count == 1:
		return 5
	case count == 2:
		return 10
	case count >= 3:
		return 15
	default:
		return 30
	}
}

// Linear grants 3s per vehicle with a 5s floor. It never skips.
func Linear(count int) int {
	return max(5, count*3)
}

// ByName resolves a configured policy name.
func ByName(name string) (Func, error) {
	switch name {
	case "", NameTiered:
		return Tiered, nil
	case NameLinear:
		return Linear, nil
	default:
		return nil, fmt.Errorf("policy: unknown policy %q", name)
	}
}
