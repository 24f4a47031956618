// internal/diagnostics/prober.go
package diagnostics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/signal-rotator/internal/device"
	"github.com/tamzrod/signal-rotator/internal/registry"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	// DefaultTimeout bounds one probe.
	DefaultTimeout = 3 * time.Second
)

// Result is the outcome of probing one intersection.
type Result struct {
	ID        string         `json:"id"`
	Address   string         `json:"address"`
	Status    string         `json:"status"`
	Reachable bool           `json:"reachable"`
	LatencyMS float64        `json:"latency_ms,omitempty"`
	Ping      string         `json:"ping,omitempty"`
	Response  map[string]any `json:"response,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Prober sweeps every registry member for reachability.
// It only reads registry snapshots.
type Prober struct {
	reg     *registry.Registry
	dev     device.Prober
	timeout time.Duration
	log     zerolog.Logger
}

func New(reg *registry.Registry, dev device.Prober, timeout time.Duration, log zerolog.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{reg: reg, dev: dev, timeout: timeout, log: log}
}

// Sweep probes all members concurrently and returns results in registry
// order. A failed probe is reported in its Result, never as an error.
func (p *Prober) Sweep(ctx context.Context) []Result {
	snap := p.reg.Snapshot()
	out := make([]Result, len(snap))

	g, gctx := errgroup.WithContext(ctx)
	for i, in := range snap {
		i, in := i, in
		g.Go(func() error {
			out[i] = p.probe(gctx, in)
			return nil
		})
	}
	_ = g.Wait()

	online := 0
	for _, r := range out {
		if r.Reachable {
			online++
		}
	}
	p.log.Info().Int("online", online).Int("total", len(out)).Msg("diagnostics sweep complete")

	return out
}

func (p *Prober) probe(ctx context.Context, in registry.Intersection) Result {
	res := Result{ID: in.ID, Address: in.Address, Status: StatusOffline}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	began := time.Now()
	resp, err := p.dev.Probe(ctx, in.Address)
	if err != nil {
		res.Error = err.Error()
		p.log.Debug().Str("intersection", in.ID).Err(err).Msg("probe failed")
		return res
	}

	lat := resp.Latency
	if lat <= 0 {
		lat = time.Since(began)
	}

	res.Status = StatusOnline
	res.Reachable = true
	res.LatencyMS = float64(lat.Microseconds()) / 1000
	res.Ping = fmt.Sprintf("%.2fms", res.LatencyMS)
	res.Response = resp.Body

	return res
}
