// internal/config/normalize.go
package config

import (
	"github.com/tamzrod/signal-rotator/internal/detection"
	"github.com/tamzrod/signal-rotator/internal/policy"
)

const (
	DefaultListen         = ":5000"
	DefaultServerTimeout  = 10000
	DefaultLogFile        = "traffic_debug.log"
	DefaultDetectionsFile = "detections.log"
	DefaultYellowBuffer   = 3
	DefaultRedHold        = 30
	DefaultBackoff        = 5
	DefaultTickMs         = 1000
	DefaultDebugDir       = "debug"
	DefaultVisionTimeout  = 10000
	DefaultConfidence     = 0.25
	DefaultDeviceTimeout  = 3000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ---- server ----
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	defaultInt(&cfg.Server.ReadTimeoutMs, DefaultServerTimeout)
	if cfg.Server.WriteTimeoutMs == 0 {
		cfg.Server.WriteTimeoutMs = max(DefaultServerTimeout, HandlerBudgetMs(cfg)+WriteTimeoutMarginMs)
	}

	// ---- logging ----
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = DefaultLogFile
	}

	// ---- detections ----
	if cfg.Detections.LogFile == "" {
		cfg.Detections.LogFile = DefaultDetectionsFile
	}
	if cfg.Detections.NATSSubject == "" {
		cfg.Detections.NATSSubject = detection.DefaultSubject
	}

	// ---- rotation ----
	if cfg.Rotation.Policy == "" {
		cfg.Rotation.Policy = policy.Default
	}
	defaultPtr(&cfg.Rotation.YellowBuffer, DefaultYellowBuffer)
	defaultPtr(&cfg.Rotation.RedHold, DefaultRedHold)
	defaultPtr(&cfg.Rotation.Backoff, DefaultBackoff)
	defaultInt(&cfg.Rotation.TickMs, DefaultTickMs)
	if cfg.Rotation.DebugDir == "" {
		cfg.Rotation.DebugDir = DefaultDebugDir
	}

	// ---- vision ----
	if len(cfg.Vision.VehicleClasses) == 0 {
		cfg.Vision.VehicleClasses = []int{0}
	}
	if cfg.Vision.Confidence == nil {
		c := DefaultConfidence
		cfg.Vision.Confidence = &c
	}
	defaultInt(&cfg.Vision.TimeoutMs, DefaultVisionTimeout)

	// ---- capture ----
	if cfg.Capture.Intersection == "" && len(cfg.Intersections) > 0 {
		cfg.Capture.Intersection = cfg.Intersections[0].ID
	}

	// ---- device ----
	defaultInt(&cfg.Device.FrameTimeoutMs, DefaultDeviceTimeout)
	defaultInt(&cfg.Device.CommandTimeoutMs, DefaultDeviceTimeout)
	defaultInt(&cfg.Device.ProbeTimeoutMs, DefaultDeviceTimeout)

	// ---- intersections ----
	for i := range cfg.Intersections {
		c := &cfg.Intersections[i].Controller
		if c.Driver == "" {
			c.Driver = DriverHTTP
		}
	}
}

func defaultInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func defaultPtr(v **int, def int) {
	if *v == nil {
		d := def
		*v = &d
	}
}
