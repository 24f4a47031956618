// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/signal-rotator/internal/device"
	"github.com/tamzrod/signal-rotator/internal/registry"
)

// Outcome is the result of one command send.
type Outcome struct {
	Target Target
	Err    error
	Took   time.Duration
}

// Dispatcher sends a Plan target by target.
// A failure on one device never prevents sends to the others.
type Dispatcher struct {
	cmd device.Commander
	reg *registry.Registry
	log zerolog.Logger
}

func New(cmd device.Commander, reg *registry.Registry, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{cmd: cmd, reg: reg, log: log}
}

// Send delivers every target in plan order. A successful send updates the
// target's registry status. The returned error aggregates every failure.
func (d *Dispatcher) Send(ctx context.Context, plan Plan) ([]Outcome, error) {
	out := make([]Outcome, 0, len(plan.Targets))
	var errs []string

	for _, tgt := range plan.Targets {
		start := time.Now()
		err := d.cmd.SendPhase(ctx, tgt.Address, tgt.Command)
		o := Outcome{Target: tgt, Err: err, Took: time.Since(start)}
		out = append(out, o)

		if err != nil {
			errs = append(errs, fmt.Sprintf(
				"dispatch: id=%s addr=%s phase=%s err=%v",
				tgt.ID, tgt.Address, tgt.Command.Phase, err,
			))
			d.log.Error().
				Err(err).
				Str("intersection", tgt.ID).
				Str("phase", tgt.Command.Phase.String()).
				Int("seconds", tgt.Command.Seconds).
				Msg("phase command failed")
			continue
		}

		d.reg.SetStatus(tgt.Slot, tgt.Command.Describe())
		d.log.Info().
			Str("intersection", tgt.ID).
			Str("phase", tgt.Command.Phase.String()).
			Int("seconds", tgt.Command.Seconds).
			Dur("took", o.Took).
			Msg("phase command sent")
	}

	if len(errs) > 0 {
		return out, errors.New(strings.Join(errs, " | "))
	}
	return out, nil
}
