// internal/device/router.go
package device

import (
	"context"

	"github.com/tamzrod/signal-rotator/internal/phase"
)

// Router picks a Commander per device address.
// Addresses without an explicit route use the fallback (normally HTTP).
type Router struct {
	routes   map[string]Commander
	fallback Commander
}

func NewRouter(fallback Commander) *Router {
	return &Router{
		routes:   make(map[string]Commander),
		fallback: fallback,
	}
}

// Route binds address to c. Not safe for use after the rotation starts.
func (r *Router) Route(address string, c Commander) {
	r.routes[address] = c
}

func (r *Router) SendPhase(ctx context.Context, address string, cmd phase.Command) error {
	if c, ok := r.routes[address]; ok {
		return c.SendPhase(ctx, address, cmd)
	}
	if r.fallback == nil {
		return ErrNoRoute
	}
	return r.fallback.SendPhase(ctx, address, cmd)
}
