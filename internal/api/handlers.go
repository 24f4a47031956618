// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/tamzrod/signal-rotator/internal/capture"
	"github.com/tamzrod/signal-rotator/internal/diagnostics"
)

type testResponse struct {
	Status      string               `json:"status"`
	TestResults []diagnostics.Result `json:"test_results"`
	Timestamp   time.Time            `json:"timestamp"`
}

type captureRequest struct {
	Trigger bool `json:"trigger"`
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rot.Start())
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rot.Stop())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rot.Status())
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, testResponse{
		Status:      "ok",
		TestResults: s.diag.Sweep(r.Context()),
		Timestamp:   time.Now(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCaptureMethod(w http.ResponseWriter, _ *http.Request) {
	writeError(w, "method not allowed, use POST", http.StatusMethodNotAllowed)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if s.capt == nil {
		writeError(w, "capture is not configured", http.StatusServiceUnavailable)
		return
	}

	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		writeError(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	var req captureRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&req); err != nil || !req.Trigger {
		writeError(w, `request body must be {"trigger": true}`, http.StatusBadRequest)
		return
	}

	res, err := s.capt.Trigger(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, capture.ErrFrame):
		writeError(w, "failed to fetch frame from camera", http.StatusBadGateway)
	default:
		s.log.Error().Err(err).Msg("capture failed")
		writeError(w, "internal server error", http.StatusInternalServerError)
	}
}
