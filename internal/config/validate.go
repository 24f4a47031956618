// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/tamzrod/signal-rotator/internal/policy"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ------------------------------------------------------------
	// INTERSECTIONS
	// ------------------------------------------------------------

	if len(cfg.Intersections) < 2 {
		return fmt.Errorf("intersections: at least 2 required, got %d", len(cfg.Intersections))
	}

	seen := make(map[string]int, len(cfg.Intersections))

	for i, in := range cfg.Intersections {
		if strings.TrimSpace(in.ID) == "" {
			return fmt.Errorf("intersections[%d]: id is required", i)
		}
		if prev, dup := seen[in.ID]; dup {
			return fmt.Errorf(
				"intersections[%d]: duplicate id %q (first at intersections[%d])",
				i,
				in.ID,
				prev,
			)
		}
		seen[in.ID] = i

		if strings.TrimSpace(in.Address) == "" {
			return fmt.Errorf("intersection %q: address is required", in.ID)
		}

		switch in.Controller.Driver {
		case "", DriverHTTP:
		case DriverModbus:
			if in.Controller.Endpoint == "" {
				return fmt.Errorf("intersection %q: modbus controller requires endpoint", in.ID)
			}
		default:
			return fmt.Errorf("intersection %q: unknown controller driver %q", in.ID, in.Controller.Driver)
		}
	}

	// ------------------------------------------------------------
	// ROTATION
	// ------------------------------------------------------------

	r := cfg.Rotation

	if _, err := policy.ByName(r.Policy); err != nil {
		return fmt.Errorf("rotation: %w", err)
	}

	if r.StartIndex < 0 || r.StartIndex >= len(cfg.Intersections) {
		return fmt.Errorf(
			"rotation: start_index %d out of range [0,%d)",
			r.StartIndex,
			len(cfg.Intersections),
		)
	}

	for name, v := range map[string]*int{
		"yellow_buffer_s": r.YellowBuffer,
		"red_hold_s":      r.RedHold,
		"backoff_s":       r.Backoff,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("rotation: %s must be >= 0, got %d", name, *v)
		}
	}
	if r.TickMs < 0 {
		return fmt.Errorf("rotation: tick_ms must be >= 0, got %d", r.TickMs)
	}

	// ------------------------------------------------------------
	// VISION
	// ------------------------------------------------------------

	if strings.TrimSpace(cfg.Vision.Endpoint) == "" {
		return fmt.Errorf("vision: endpoint is required")
	}
	if c := cfg.Vision.Confidence; c != nil && (*c < 0 || *c > 1) {
		return fmt.Errorf("vision: confidence must be within [0,1], got %g", *c)
	}
	if cfg.Vision.TimeoutMs < 0 {
		return fmt.Errorf("vision: timeout_ms must be >= 0, got %d", cfg.Vision.TimeoutMs)
	}

	// ------------------------------------------------------------
	// TIMEOUTS
	// ------------------------------------------------------------

	for name, v := range map[string]int{
		"device.frame_timeout_ms":   cfg.Device.FrameTimeoutMs,
		"device.command_timeout_ms": cfg.Device.CommandTimeoutMs,
		"device.probe_timeout_ms":   cfg.Device.ProbeTimeoutMs,
		"server.read_timeout_ms":    cfg.Server.ReadTimeoutMs,
		"server.write_timeout_ms":   cfg.Server.WriteTimeoutMs,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", name, v)
		}
	}

	if w := cfg.Server.WriteTimeoutMs; w != 0 && w < HandlerBudgetMs(cfg) {
		return fmt.Errorf(
			"server.write_timeout_ms %d is below the handler budget %d (frame + inference + one command per intersection)",
			w,
			HandlerBudgetMs(cfg),
		)
	}

	// ------------------------------------------------------------
	// CAPTURE
	// ------------------------------------------------------------

	if id := cfg.Capture.Intersection; id != "" {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("capture: intersection %q is not configured", id)
		}
	}

	return nil
}
