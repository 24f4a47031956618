// cmd/signal-rotator/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/signal-rotator/internal/api"
	"github.com/tamzrod/signal-rotator/internal/config"
	"github.com/tamzrod/signal-rotator/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		cfgPath = pflag.StringP("config", "c", "", "path to config.yaml (required)")
		listen  = pflag.String("listen", "", "override server.listen")
		debug   = pflag.Bool("debug", false, "force debug logging")
	)
	pflag.Parse()

	if *cfgPath == "" {
		fmt.Fprintln(os.Stderr, "usage: signal-rotator --config <config.yaml> [--listen :5000] [--debug]")
		os.Exit(2)
	}

	if err := run(*cfgPath, *listen, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "signal-rotator: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, listen string, debug bool) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	if listen != "" {
		cfg.Server.Listen = listen
	}
	if debug {
		cfg.Logging.Debug = true
	}

	// --------------------
	// Logging
	// --------------------

	log, closeLog, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	// --------------------
	// Build components
	// --------------------

	comp, err := build(cfg, log)
	if err != nil {
		return err
	}
	defer comp.close()

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      api.NewServer(comp.controller, comp.prober, comp.capture, logger.WithComponent(log, "api")).Handler(),
		ReadTimeout:  ms(cfg.Server.ReadTimeoutMs),
		WriteTimeout: ms(cfg.Server.WriteTimeoutMs),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Rotation.Autostart {
		comp.controller.Start()
	}

	// --------------------
	// Serve until signalled
	// --------------------

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("listen", cfg.Server.Listen).
			Int("intersections", len(cfg.Intersections)).
			Str("policy", cfg.Rotation.Policy).
			Bool("debug_mode", cfg.Logging.Debug).
			Msg("control server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		serr := srv.Shutdown(sctx)
		if err := comp.controller.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("rotation worker did not exit in time")
		}
		return serr
	})

	return g.Wait()
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
