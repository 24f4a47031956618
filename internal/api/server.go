// internal/api/server.go

// Package api is the HTTP control surface: start, stop, status, device
// diagnostics and single-shot capture.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/tamzrod/signal-rotator/internal/capture"
	"github.com/tamzrod/signal-rotator/internal/diagnostics"
	"github.com/tamzrod/signal-rotator/internal/rotation"
)

// Rotation is the lifecycle surface of the rotation controller.
type Rotation interface {
	Start() rotation.StartReport
	Stop() rotation.StopReport
	Status() rotation.StatusReport
}

// Sweeper probes every intersection.
type Sweeper interface {
	Sweep(ctx context.Context) []diagnostics.Result
}

// Capturer runs one capture outside the rotation.
type Capturer interface {
	Trigger(ctx context.Context) (capture.Result, error)
}

type Server struct {
	router *mux.Router
	rot    Rotation
	diag   Sweeper
	capt   Capturer
	log    zerolog.Logger
}

// NewServer builds the router. capt may be nil, in which case
// /trigger_capture answers 503.
func NewServer(rot Rotation, diag Sweeper, capt Capturer, log zerolog.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		rot:    rot,
		diag:   diag,
		capt:   capt,
		log:    log,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(requestIDMiddleware, s.recoverMiddleware, s.logMiddleware)

	s.router.HandleFunc("/start", s.handleStart).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/stop", s.handleStop).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/test", s.handleTest).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/trigger_capture", s.handleCapture).Methods(http.MethodPost)
	s.router.HandleFunc("/trigger_capture", s.handleCaptureMethod)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "not found", http.StatusNotFound)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
	})
}

// Handler is the root handler to mount on an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}
