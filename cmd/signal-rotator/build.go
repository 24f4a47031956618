// cmd/signal-rotator/build.go
package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/signal-rotator/internal/capture"
	"github.com/tamzrod/signal-rotator/internal/config"
	"github.com/tamzrod/signal-rotator/internal/detection"
	"github.com/tamzrod/signal-rotator/internal/device"
	devmodbus "github.com/tamzrod/signal-rotator/internal/device/modbus"
	"github.com/tamzrod/signal-rotator/internal/diagnostics"
	"github.com/tamzrod/signal-rotator/internal/logger"
	"github.com/tamzrod/signal-rotator/internal/policy"
	"github.com/tamzrod/signal-rotator/internal/registry"
	"github.com/tamzrod/signal-rotator/internal/rotation"
	"github.com/tamzrod/signal-rotator/internal/vision"
)

type app struct {
	controller *rotation.Controller
	prober     *diagnostics.Prober
	capture    *capture.Service

	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// build wires every component from a validated, normalized config.
func build(cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{}

	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	// ---- registry ----
	entries := make([]registry.Intersection, len(cfg.Intersections))
	for i, in := range cfg.Intersections {
		entries[i] = registry.Intersection{ID: in.ID, Address: in.Address}
	}
	reg, err := registry.New(entries)
	if err != nil {
		return fail(err)
	}

	// ---- devices ----
	timeouts := device.Timeouts{
		Frame:   ms(cfg.Device.FrameTimeoutMs),
		Command: ms(cfg.Device.CommandTimeoutMs),
		Probe:   ms(cfg.Device.ProbeTimeoutMs),
	}
	httpDev := device.NewHTTPClient(timeouts, logger.WithComponent(log, "device"))

	router := device.NewRouter(httpDev)
	for _, in := range cfg.Intersections {
		if in.Controller.Driver != config.DriverModbus {
			continue
		}

		mc, err := devmodbus.New(devmodbus.Config{
			Endpoint:     in.Controller.Endpoint,
			UnitID:       in.Controller.UnitID,
			BaseRegister: in.Controller.BaseRegister,
			Timeout:      timeouts.Command,
		})
		if err != nil {
			return fail(fmt.Errorf("controller build failed (intersection=%s): %w", in.ID, err))
		}
		a.closers = append(a.closers, mc.Close)
		router.Route(in.Address, mc)
	}

	// ---- vision ----
	counter, err := vision.NewHTTPCounter(vision.Config{
		Endpoint:       cfg.Vision.Endpoint,
		VehicleClasses: cfg.Vision.VehicleClasses,
		Confidence:     *cfg.Vision.Confidence,
		Timeout:        ms(cfg.Vision.TimeoutMs),
	}, logger.WithComponent(log, "vision"))
	if err != nil {
		return fail(err)
	}

	// ---- detection sinks ----
	fileSink, err := detection.OpenLogSink(cfg.Detections.LogFile)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, fileSink.Close)

	sinks := detection.Multi{fileSink}
	if cfg.Detections.NATSURL != "" {
		ns, err := detection.DialNATS(cfg.Detections.NATSURL, cfg.Detections.NATSSubject, logger.WithComponent(log, "nats"))
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() error { ns.Close(); return nil })
		sinks = append(sinks, ns)
	}

	// ---- rotation ----
	pol, err := policy.ByName(cfg.Rotation.Policy)
	if err != nil {
		return fail(err)
	}

	debugDir := ""
	if cfg.Logging.Debug {
		debugDir = cfg.Rotation.DebugDir
	}

	sched, err := rotation.NewScheduler(rotation.Config{
		Registry:   reg,
		Frames:     httpDev,
		Counter:    counter,
		Commander:  router,
		Sink:       sinks,
		Policy:     pol,
		PolicyName: cfg.Rotation.Policy,
		Timing: rotation.Timing{
			YellowBuffer: *cfg.Rotation.YellowBuffer,
			RedHold:      *cfg.Rotation.RedHold,
			Backoff:      *cfg.Rotation.Backoff,
			Tick:         ms(cfg.Rotation.TickMs),
			Unit:         time.Second,
		},
		StartIndex: cfg.Rotation.StartIndex,
		DebugDir:   debugDir,
		Log:        logger.WithComponent(log, "rotation"),
	})
	if err != nil {
		return fail(err)
	}

	a.controller = rotation.NewController(sched, rotation.Info{
		Policy:    cfg.Rotation.Policy,
		DebugMode: cfg.Logging.Debug,
		LogFile:   cfg.Logging.File,
	}, logger.WithComponent(log, "controller"))

	// ---- diagnostics ----
	a.prober = diagnostics.New(reg, httpDev, timeouts.Probe, logger.WithComponent(log, "diagnostics"))

	// ---- capture ----
	a.capture, err = capture.New(capture.Config{
		Registry:     reg,
		Frames:       httpDev,
		Counter:      counter,
		Commander:    router,
		Sink:         sinks,
		Intersection: cfg.Capture.Intersection,
		SnapshotDir:  cfg.Capture.SnapshotDir,
		Log:          logger.WithComponent(log, "capture"),
	})
	if err != nil {
		return fail(err)
	}

	return a, nil
}
