// internal/device/http.go
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/signal-rotator/internal/phase"
)

// maxFrameBytes caps a single camera still.
const maxFrameBytes = 8 << 20

// HTTPClient talks to camera/controller units over plain HTTP:
//
//	GET  /capture     -> image bytes
//	POST /set_lights  -> {"command": "...", "duration": N}
//	GET  /status      -> JSON device status
//
// Every call carries its own timeout; the caller's context only adds
// cancellation on top.
type HTTPClient struct {
	hc       *http.Client
	timeouts Timeouts
	log      zerolog.Logger
}

func NewHTTPClient(timeouts Timeouts, log zerolog.Logger) *HTTPClient {
	def := DefaultTimeouts()
	if timeouts.Frame <= 0 {
		timeouts.Frame = def.Frame
	}
	if timeouts.Command <= 0 {
		timeouts.Command = def.Command
	}
	if timeouts.Probe <= 0 {
		timeouts.Probe = def.Probe
	}

	return &HTTPClient{
		hc:       &http.Client{},
		timeouts: timeouts,
		log:      log,
	}
}

// ---- FrameSource ----

func (c *HTTPClient) FetchFrame(ctx context.Context, address string) (Frame, error) {
	if address == "" {
		return Frame{}, ErrEmptyAddress
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Frame)
	defer cancel()

	url := baseURL(address) + "/capture"
	c.log.Debug().Str("url", url).Msg("fetching frame")

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Frame{}, fmt.Errorf("device: capture request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return Frame{}, fmt.Errorf("device: capture %s: %w", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return Frame{}, &StatusError{Op: "capture", Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes+1))
	if err != nil {
		return Frame{}, fmt.Errorf("device: capture %s: read body: %w", address, err)
	}
	if len(data) > maxFrameBytes {
		return Frame{}, fmt.Errorf("device: capture %s: %w", address, ErrFrameTooLarge)
	}
	if len(data) == 0 {
		return Frame{}, ErrEmptyFrame
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("device: capture %s: decode: %w", address, err)
	}

	c.log.Debug().
		Str("address", address).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Dur("took", time.Since(start)).
		Msg("frame fetched")

	return Frame{
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		At:     time.Now(),
	}, nil
}

// ---- Commander ----

type setLightsRequest struct {
	Command  string `json:"command"`
	Duration int    `json:"duration"`
}

func (c *HTTPClient) SendPhase(ctx context.Context, address string, cmd phase.Command) error {
	if address == "" {
		return ErrEmptyAddress
	}

	body, err := json.Marshal(setLightsRequest{
		Command:  cmd.Phase.Wire(),
		Duration: cmd.Seconds,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Command)
	defer cancel()

	url := baseURL(address) + "/set_lights"
	c.log.Debug().Str("url", url).RawJSON("payload", body).Msg("sending phase command")

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("device: set_lights request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("device: set_lights %s: %w", address, err)
	}
	defer resp.Body.Close()

	reply, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode/100 != 2 {
		return &StatusError{Op: "set_lights", Code: resp.StatusCode}
	}

	c.log.Debug().
		Str("address", address).
		Str("reply", string(reply)).
		Dur("took", time.Since(start)).
		Msg("phase command accepted")

	return nil
}

// ---- Prober ----

func (c *HTTPClient) Probe(ctx context.Context, address string) (ProbeResponse, error) {
	if address == "" {
		return ProbeResponse{}, ErrEmptyAddress
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Probe)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL(address)+"/status", nil)
	if err != nil {
		return ProbeResponse{}, fmt.Errorf("device: status request: %w", err)
	}

	start := time.Now()

	resp, err := c.hc.Do(req)
	if err != nil {
		return ProbeResponse{}, err
	}
	defer resp.Body.Close()

	latency := time.Since(start)

	if resp.StatusCode/100 != 2 {
		return ProbeResponse{}, &StatusError{Op: "status", Code: resp.StatusCode}
	}

	var body map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return ProbeResponse{}, fmt.Errorf("device: status %s: decode: %w", address, err)
	}

	return ProbeResponse{Latency: latency, Body: body}, nil
}

// baseURL accepts either a bare host[:port] or a full http(s) URL.
func baseURL(address string) string {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return strings.TrimRight(address, "/")
	}
	return "http://" + address
}
