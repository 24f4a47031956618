// internal/rotation/controller.go
package rotation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Controller owns the rotation worker and the shared active flag.
//
// Start and Stop are safe from any goroutine. Status never takes the
// worker's lock and never waits on it.
type Controller struct {
	sched *Scheduler
	info  Info
	log   zerolog.Logger

	active  atomic.Bool
	state   atomic.Value // State
	workers atomic.Int32

	// mu serializes Start/Stop; it is never held by the worker.
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(sched *Scheduler, info Info, log zerolog.Logger) *Controller {
	c := &Controller{
		sched: sched,
		info:  info,
		log:   log,
	}
	c.state.Store(StateIdle)
	return c
}

// Start raises the active flag and makes sure exactly one worker runs.
// A worker that is still stopping is waited for before a new one starts.
func (c *Controller) Start() StartReport {
	c.active.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()

	already := false

	if c.done != nil {
		select {
		case <-c.done:
			// previous worker has exited
		default:
			if c.cancel != nil {
				already = true
			} else {
				// stopping: let it finish its in-flight call
				<-c.done
			}
		}
	}

	if !already {
		c.spawn()
		c.log.Info().Msg("system started")
	} else {
		c.log.Debug().Msg("start requested while running, no new worker")
	}

	return StartReport{
		Status:         "started",
		State:          c.State(),
		AlreadyRunning: already,
		Policy:         c.info.Policy,
		DebugMode:      c.info.DebugMode,
		LogFile:        c.info.LogFile,
	}
}

func (c *Controller) spawn() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.cancel = cancel
	c.done = done
	c.state.Store(StateActive)
	c.workers.Add(1)

	go func() {
		defer func() {
			c.workers.Add(-1)
			c.state.Store(StateIdle)
			close(done)
		}()

		c.sched.Run(ctx)
	}()
}

// Stop clears the active flag and signals the worker. It returns without
// waiting; the worker exits at its next check point.
func (c *Controller) Stop() StopReport {
	c.active.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		// a worker that already exited stays idle
		c.state.CompareAndSwap(StateActive, StateStopping)
		c.cancel()
		c.cancel = nil
	}

	c.log.Info().Msg("system stopped")

	return StopReport{Status: "stopped", State: c.State()}
}

// Shutdown stops the worker and waits for it to exit or ctx to expire.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.Stop()

	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active reports the system-active flag.
func (c *Controller) Active() bool {
	return c.active.Load()
}

// State reports the worker lifecycle state.
func (c *Controller) State() State {
	return c.state.Load().(State)
}

// Workers is the number of live worker goroutines (0 or 1).
func (c *Controller) Workers() int {
	return int(c.workers.Load())
}

// Status reads shared state without blocking the worker.
func (c *Controller) Status() StatusReport {
	return StatusReport{
		Status:              "ok",
		Active:              c.Active(),
		State:               c.State(),
		CurrentIntersection: c.sched.Current(),
		Pointer:             c.sched.Pointer(),
		Intersections:       c.sched.reg.Snapshot(),
		Policy:              c.info.Policy,
		DebugMode:           c.info.DebugMode,
		Timestamp:           time.Now(),
	}
}
