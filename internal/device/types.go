// internal/device/types.go
package device

import (
	"context"
	"time"

	"github.com/tamzrod/signal-rotator/internal/phase"
)

// Frame is one decoded-and-validated camera still.
type Frame struct {
	Data   []byte
	Format string // as reported by image.DecodeConfig, e.g. "jpeg"
	Width  int
	Height int
	At     time.Time
}

// FrameSource fetches the latest still from the camera at address.
type FrameSource interface {
	FetchFrame(ctx context.Context, address string) (Frame, error)
}

// Commander sends one phase command to the controller at address.
type Commander interface {
	SendPhase(ctx context.Context, address string, cmd phase.Command) error
}

// Prober performs a lightweight reachability query against address.
type Prober interface {
	Probe(ctx context.Context, address string) (ProbeResponse, error)
}

// ProbeResponse is what a reachable device reported.
type ProbeResponse struct {
	Latency time.Duration
	Body    map[string]any
}

// Timeouts bound every outbound device call.
type Timeouts struct {
	Frame   time.Duration
	Command time.Duration
	Probe   time.Duration
}

// DefaultTimeouts are the reference values for camera/controller units.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Frame:   3 * time.Second,
		Command: 3 * time.Second,
		Probe:   3 * time.Second,
	}
}
