// internal/vision/counter.go
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/signal-rotator/internal/device"
)

// Counter turns a frame into a vehicle count. The model itself runs out of
// process; this package only speaks to it.
type Counter interface {
	Count(ctx context.Context, f device.Frame) (int, error)
}

// Config is the inference endpoint contract.
type Config struct {
	Endpoint       string
	VehicleClasses []int
	Confidence     float64
	Timeout        time.Duration
}

// Detection is one box reported by the inference service.
type Detection struct {
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

var ErrNoEndpoint = errors.New("vision: endpoint required")

// HTTPCounter posts frames to an object-detection service and counts the
// boxes that belong to vehicle classes.
type HTTPCounter struct {
	hc      *http.Client
	cfg     Config
	classes map[int]struct{}
	log     zerolog.Logger
}

func NewHTTPCounter(cfg Config, log zerolog.Logger) (*HTTPCounter, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if len(cfg.VehicleClasses) == 0 {
		cfg.VehicleClasses = []int{0}
	}

	classes := make(map[int]struct{}, len(cfg.VehicleClasses))
	for _, c := range cfg.VehicleClasses {
		classes[c] = struct{}{}
	}

	return &HTTPCounter{
		hc:      &http.Client{},
		cfg:     cfg,
		classes: classes,
		log:     log,
	}, nil
}

func (c *HTTPCounter) Count(ctx context.Context, f device.Frame) (int, error) {
	if len(f.Data) == 0 {
		return 0, device.ErrEmptyFrame
	}

	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return 0, fmt.Errorf("vision: endpoint: %w", err)
	}
	q := u.Query()
	q.Set("conf", strconv.FormatFloat(c.cfg.Confidence, 'f', -1, 64))
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(f.Data))
	if err != nil {
		return 0, fmt.Errorf("vision: request: %w", err)
	}
	req.Header.Set("Content-Type", contentType(f.Format))

	start := time.Now()

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("vision: detect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return 0, fmt.Errorf("vision: detect: http %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out detectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return 0, fmt.Errorf("vision: decode: %w", err)
	}

	n := c.countVehicles(out.Detections)

	c.log.Debug().
		Int("detections", len(out.Detections)).
		Int("vehicles", n).
		Dur("took", time.Since(start)).
		Msg("inference done")

	return n, nil
}

func (c *HTTPCounter) countVehicles(ds []Detection) int {
	n := 0
	for _, d := range ds {
		if _, ok := c.classes[d.Class]; !ok {
			continue
		}
		if d.Confidence < c.cfg.Confidence {
			continue
		}
		n++
	}
	return n
}

func contentType(format string) string {
	switch format {
	case "png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
