// internal/rotation/runner.go
package rotation

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// progressEvery is how many ticks pass between wait progress logs.
const progressEvery = 5

// Run loops Iterate until ctx is cancelled.
// One goroutine per controller. No overlap.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Int("pointer", s.Pointer()).Msg("rotation started")
	defer s.log.Info().Int("pointer", s.Pointer()).Msg("rotation stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.Iterate(ctx)
	}
}

// Iterate performs exactly one rotation iteration, including its wait:
//
//   - capture failed: advance, then back off
//   - fault (panic):  advance, then back off
//   - stopped before dispatch: return at once, pointer unchanged
//   - otherwise:      wait green + yellow, then advance
//
// A fault is contained here; it never escapes to the caller.
func (s *Scheduler) Iterate(ctx context.Context) (res StepResult) {
	res.Slot = s.Pointer()
	res.Intersection = s.reg.At(res.Slot).ID

	defer func() {
		if r := recover(); r != nil {
			res.Fault = r
			s.log.Error().
				Str("intersection", res.Intersection).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("rotation iteration fault, backing off")

			s.advance()
			res.Interrupted = !s.sleep(ctx, s.timing.seconds(s.timing.Backoff), "backoff")
		}
	}()

	res = s.step(ctx)

	if res.Abandoned {
		res.Interrupted = true
		return res
	}

	if res.CaptureErr != nil {
		s.advance()
		res.Interrupted = !s.sleep(ctx, s.timing.seconds(s.timing.Backoff), "backoff")
		return res
	}

	wait := res.Plan.Wait(s.timing.dispatch())
	s.log.Info().Int("seconds", wait).Msg("waiting before switching")

	res.Interrupted = !s.sleep(ctx, s.timing.seconds(wait), "phase")
	s.advance()

	return res
}

// sleep waits for d or until ctx is cancelled, checking every tick.
// It reports whether the full duration elapsed.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration, what string) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	deadline := time.NewTimer(d)
	defer deadline.Stop()

	tick := time.NewTicker(s.timing.Tick)
	defer tick.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Str("wait", what).Int("ticks", ticks).Msg("wait interrupted by stop")
			return false
		case <-deadline.C:
			return true
		case <-tick.C:
			ticks++
			if ticks%progressEvery == 0 {
				s.log.Debug().
					Str("wait", what).
					Dur("elapsed", time.Duration(ticks)*s.timing.Tick).
					Dur("total", d).
					Msg("waiting")
			}
		}
	}
}
