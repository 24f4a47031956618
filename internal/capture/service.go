// internal/capture/service.go
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tamzrod/signal-rotator/internal/detection"
	"github.com/tamzrod/signal-rotator/internal/device"
	"github.com/tamzrod/signal-rotator/internal/phase"
	"github.com/tamzrod/signal-rotator/internal/policy"
	"github.com/tamzrod/signal-rotator/internal/registry"
	"github.com/tamzrod/signal-rotator/internal/vision"
)

// StampLayout names snapshot files and stamps responses.
const StampLayout = "20060102_150405"

var (
	ErrUnknownIntersection = errors.New("capture: intersection not in registry")

	// ErrFrame wraps a failed frame fetch.
	ErrFrame = errors.New("capture: frame fetch failed")
	// ErrDetect wraps a failed inference call.
	ErrDetect = errors.New("capture: vehicle detection failed")
)

// Result is the outcome of one triggered capture.
type Result struct {
	Status       string `json:"status"`
	Intersection string `json:"intersection"`
	VehicleCount int    `json:"vehicle_count"`
	Duration     int    `json:"duration"`
	Filename     string `json:"filename,omitempty"`
	CommandSent  bool   `json:"command_sent"`
	Timestamp    string `json:"timestamp"`
}

type Config struct {
	Registry     *registry.Registry
	Frames       device.FrameSource
	Counter      vision.Counter
	Commander    device.Commander
	Sink         detection.Sink
	Intersection string // empty: first registry member
	SnapshotDir  string // empty: frames are not saved

	Log zerolog.Logger
	Now func() time.Time
}

// Service runs single-shot captures outside the rotation.
// It never touches the rotation pointer or registry records.
type Service struct {
	cfg  Config
	slot int
}

func New(cfg Config) (*Service, error) {
	if cfg.Registry == nil || cfg.Frames == nil || cfg.Counter == nil || cfg.Commander == nil {
		return nil, errors.New("capture: registry, frames, counter and commander are required")
	}

	slot := 0
	if cfg.Intersection != "" {
		slot = cfg.Registry.IndexOf(cfg.Intersection)
		if slot < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownIntersection, cfg.Intersection)
		}
	}

	if cfg.Sink == nil {
		cfg.Sink = detection.Discard{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.SnapshotDir != "" {
		if err := os.MkdirAll(cfg.SnapshotDir, 0o755); err != nil {
			return nil, fmt.Errorf("capture: snapshot dir: %w", err)
		}
	}

	return &Service{cfg: cfg, slot: slot}, nil
}

// Trigger captures one frame, counts vehicles, and sends a tiered green
// command to the capture intersection. A failed command is logged and
// reported in the result, not returned as an error.
func (s *Service) Trigger(ctx context.Context) (Result, error) {
	in := s.cfg.Registry.At(s.slot)
	now := s.cfg.Now()
	stamp := now.Format(StampLayout)

	log := s.cfg.Log.With().Str("intersection", in.ID).Logger()

	frame, err := s.cfg.Frames.FetchFrame(ctx, in.Address)
	if err != nil {
		log.Warn().Err(err).Msg("capture: frame fetch failed")
		return Result{}, fmt.Errorf("%w: %v", ErrFrame, err)
	}

	count, err := s.cfg.Counter.Count(ctx, frame)
	if err != nil {
		log.Error().Err(err).Msg("capture: detection failed")
		return Result{}, fmt.Errorf("%w: %v", ErrDetect, err)
	}

	duration := policy.Tiered(count)

	res := Result{
		Status:       "success",
		Intersection: in.ID,
		VehicleCount: count,
		Duration:     duration,
		Timestamp:    stamp,
	}

	if s.cfg.SnapshotDir != "" {
		name := filepath.Join(s.cfg.SnapshotDir, "capture_"+stamp+ext(frame.Format))
		if err := os.WriteFile(name, frame.Data, 0o644); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("capture: snapshot not saved")
		} else {
			res.Filename = name
		}
	}

	cmd := phase.Command{Phase: phase.Green, Seconds: duration}
	if err := s.cfg.Commander.SendPhase(ctx, in.Address, cmd); err != nil {
		log.Warn().Err(err).Str("command", cmd.Describe()).Msg("capture: command not delivered")
	} else {
		res.CommandSent = true
	}

	rec := detection.Record{
		ID:           uuid.NewString(),
		Source:       detection.SourceCapture,
		Intersection: in.ID,
		VehicleCount: count,
		GreenSeconds: duration,
		Policy:       policy.NameTiered,
		Time:         now,
	}
	if err := s.cfg.Sink.Emit(ctx, rec); err != nil {
		log.Warn().Err(err).Msg("capture: detection record not delivered")
	}

	log.Info().
		Int("vehicle_count", count).
		Int("duration", duration).
		Str("file", res.Filename).
		Msg("capture complete")

	return res, nil
}

func ext(format string) string {
	switch format {
	case "", "jpeg":
		return ".jpg"
	default:
		return "." + format
	}
}
