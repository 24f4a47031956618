// internal/registry/registry.go
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// StatusUnknown is the status of an intersection before first contact.
const StatusUnknown = "unknown"

// Intersection is one managed camera + traffic-light unit.
type Intersection struct {
	ID          string     `json:"id"`
	Address     string     `json:"address"`
	LastCapture *time.Time `json:"last_capture"`
	Status      string     `json:"status"`
}

// Registry is the fixed, ordered set of intersections.
// Size is set at construction and never changes.
// Records are written by the rotation worker only; every read goes through
// the lock so status and diagnostics can run concurrently.
type Registry struct {
	mu    sync.RWMutex
	items []Intersection
}

var ErrTooSmall = errors.New("registry: at least two intersections required")

// New builds a registry. Every record starts with status "unknown" and no
// capture time.
func New(entries []Intersection) (*Registry, error) {
	if len(entries) < 2 {
		return nil, ErrTooSmall
	}

	seen := make(map[string]struct{}, len(entries))
	items := make([]Intersection, len(entries))

	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("registry: slot %d has no id", i)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate id %q", e.ID)
		}
		seen[e.ID] = struct{}{}

		items[i] = Intersection{
			ID:      e.ID,
			Address: e.Address,
			Status:  StatusUnknown,
		}
	}

	return &Registry{items: items}, nil
}

// Len is the fixed registry size.
func (r *Registry) Len() int {
	return len(r.items)
}

// At returns a copy of the record in slot i (wrapped modulo Len).
func (r *Registry) At(i int) Intersection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.items[r.wrap(i)].clone()
}

// IndexOf returns the slot of id, or -1.
func (r *Registry) IndexOf(id string) int {
	for i := range r.items {
		// ids are immutable after New
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

// MarkCaptured records a capture attempt on slot i.
func (r *Registry) MarkCaptured(i int, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := at
	r.items[r.wrap(i)].LastCapture = &t
}

// SetStatus records the last commanded phase summary on slot i.
func (r *Registry) SetStatus(i int, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.wrap(i)].Status = status
}

// Snapshot returns a deep copy of every record in rotation order.
func (r *Registry) Snapshot() []Intersection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Intersection, len(r.items))
	for i := range r.items {
		out[i] = r.items[i].clone()
	}
	return out
}

func (r *Registry) wrap(i int) int {
	n := len(r.items)
	return ((i % n) + n) % n
}

func (in Intersection) clone() Intersection {
	out := in
	if in.LastCapture != nil {
		t := *in.LastCapture
		out.LastCapture = &t
	}
	return out
}
