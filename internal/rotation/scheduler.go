// internal/rotation/scheduler.go
package rotation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tamzrod/signal-rotator/internal/detection"
	"github.com/tamzrod/signal-rotator/internal/device"
	"github.com/tamzrod/signal-rotator/internal/dispatch"
	"github.com/tamzrod/signal-rotator/internal/policy"
	"github.com/tamzrod/signal-rotator/internal/registry"
	"github.com/tamzrod/signal-rotator/internal/vision"
)

// Config wires the scheduler to its collaborators.
type Config struct {
	Registry  *registry.Registry
	Frames    device.FrameSource
	Counter   vision.Counter
	Commander device.Commander
	Sink      detection.Sink

	Policy     policy.Func
	PolicyName string
	Timing     Timing
	StartIndex int

	// DebugDir, when set, receives a copy of every frame that was counted.
	DebugDir string

	Log zerolog.Logger
	Now func() time.Time
}

// Scheduler is the round-robin control loop.
// The pointer and registry records are written only by the goroutine
// running Run/Iterate; Pointer and the registry may be read from anywhere.
type Scheduler struct {
	reg        *registry.Registry
	frames     device.FrameSource
	counter    vision.Counter
	dispatcher *dispatch.Dispatcher
	sink       detection.Sink

	policy     policy.Func
	policyName string
	timing     Timing
	debugDir   string

	log zerolog.Logger
	now func() time.Time

	pointer atomic.Int64
}

var (
	ErrNoRegistry = errors.New("rotation: registry required")
	ErrNoFrames   = errors.New("rotation: frame source required")
	ErrNoCounter  = errors.New("rotation: counter required")
	ErrNoCommands = errors.New("rotation: commander required")
)

func NewScheduler(cfg Config) (*Scheduler, error) {
	switch {
	case cfg.Registry == nil:
		return nil, ErrNoRegistry
	case cfg.Frames == nil:
		return nil, ErrNoFrames
	case cfg.Counter == nil:
		return nil, ErrNoCounter
	case cfg.Commander == nil:
		return nil, ErrNoCommands
	}

	if cfg.Policy == nil {
		cfg.Policy = policy.Tiered
		cfg.PolicyName = policy.NameTiered
	}
	if cfg.Sink == nil {
		cfg.Sink = detection.Discard{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	def := DefaultTiming()
	if cfg.Timing.Unit <= 0 {
		cfg.Timing.Unit = def.Unit
	}
	if cfg.Timing.Tick <= 0 {
		cfg.Timing.Tick = def.Tick
	}

	s := &Scheduler{
		reg:        cfg.Registry,
		frames:     cfg.Frames,
		counter:    cfg.Counter,
		dispatcher: dispatch.New(cfg.Commander, cfg.Registry, cfg.Log),
		sink:       cfg.Sink,
		policy:     cfg.Policy,
		policyName: cfg.PolicyName,
		timing:     cfg.Timing,
		debugDir:   cfg.DebugDir,
		log:        cfg.Log,
		now:        cfg.Now,
	}

	if cfg.DebugDir != "" {
		if err := os.MkdirAll(cfg.DebugDir, 0o755); err != nil {
			return nil, fmt.Errorf("rotation: debug dir: %w", err)
		}
	}

	n := int64(cfg.Registry.Len())
	s.pointer.Store(((int64(cfg.StartIndex) % n) + n) % n)

	return s, nil
}

// Pointer is the slot currently being processed or about to leave green.
func (s *Scheduler) Pointer() int {
	return int(s.pointer.Load())
}

// Current is the id of the intersection at the pointer.
func (s *Scheduler) Current() string {
	return s.reg.At(s.Pointer()).ID
}

func (s *Scheduler) advance() {
	n := int64(s.reg.Len())
	s.pointer.Store((s.pointer.Load() + 1) % n)
}

// step runs capture, count, policy and dispatch for the active slot.
// Device calls run on a context detached from ctx's cancellation so a stop
// never cuts a call off halfway; each call is bounded by its own timeout.
// A stop seen after the capture or the count abandons the step before
// anything is dispatched. A dispatch that has begun always completes.
func (s *Scheduler) step(ctx context.Context) StepResult {
	slot := s.Pointer()
	active := s.reg.At(slot)

	res := StepResult{
		ID:           uuid.NewString(),
		Slot:         slot,
		Intersection: active.ID,
	}

	log := s.log.With().
		Str("step", res.ID).
		Str("intersection", active.ID).
		Str("address", active.Address).
		Logger()

	log.Info().Int("slot", slot).Msg("processing intersection")

	callCtx := context.WithoutCancel(ctx)

	// ---- 1. capture ----
	frame, err := s.frames.FetchFrame(callCtx, active.Address)
	s.reg.MarkCaptured(slot, s.now())
	if err != nil {
		res.CaptureErr = err
		log.Warn().Err(err).Msg("frame capture failed, moving to next intersection")
		return res
	}

	if ctx.Err() != nil {
		res.Abandoned = true
		log.Info().Msg("stop requested after capture, step abandoned")
		return res
	}

	// ---- 2. count ----
	count, err := s.counter.Count(callCtx, frame)
	if err != nil {
		res.CountErr = err
		count = 0
		log.Error().Err(err).Msg("vehicle detection failed, treating as zero vehicles")
	}
	res.VehicleCount = count

	// ---- 3. policy ----
	res.Green = s.policy(count)

	log.Info().
		Int("vehicle_count", count).
		Int("green_seconds", res.Green).
		Str("policy", s.policyName).
		Msg("detection result")

	if res.CountErr == nil {
		s.emit(callCtx, log, res)
		s.saveDebugFrame(log, res, frame)
	}

	if ctx.Err() != nil {
		res.Abandoned = true
		log.Info().Msg("stop requested before dispatch, step abandoned")
		return res
	}

	// ---- 4. dispatch ----
	res.Plan = dispatch.BuildPlan(s.reg.Snapshot(), slot, res.Green, s.timing.dispatch())
	if res.Plan.SkipActive {
		log.Info().Msg("no green granted, intersection skipped this rotation")
	}

	outcomes, err := s.dispatcher.Send(callCtx, res.Plan)
	res.Outcomes = outcomes
	if err != nil {
		log.Warn().Err(err).Msg("some phase commands failed")
	}

	return res
}

func (s *Scheduler) emit(ctx context.Context, log zerolog.Logger, res StepResult) {
	rec := detection.Record{
		ID:           res.ID,
		Source:       detection.SourceRotation,
		Intersection: res.Intersection,
		VehicleCount: res.VehicleCount,
		GreenSeconds: res.Green,
		Policy:       s.policyName,
		Time:         s.now(),
	}
	if err := s.sink.Emit(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("detection record not delivered")
	}
}

// saveDebugFrame keeps the counted frame as debug/detection_<intersection>_<stamp>.jpg.
func (s *Scheduler) saveDebugFrame(log zerolog.Logger, res StepResult, f device.Frame) {
	if s.debugDir == "" {
		return
	}

	ext := ".jpg"
	if f.Format != "" && f.Format != "jpeg" {
		ext = "." + f.Format
	}
	name := filepath.Join(s.debugDir, fmt.Sprintf(
		"detection_%s_%s%s",
		res.Intersection,
		s.now().Format("20060102_150405"),
		ext,
	))

	if err := os.WriteFile(name, f.Data, 0o644); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("debug frame not saved")
		return
	}
	log.Debug().Str("file", name).Msg("debug frame saved")
}
