// internal/device/http_test.go
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/signal-rotator/internal/logger"
	"github.com/tamzrod/signal-rotator/internal/phase"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newClient() *HTTPClient {
	return NewHTTPClient(Timeouts{
		Frame:   time.Second,
		Command: time.Second,
		Probe:   time.Second,
	}, logger.NewTestLogger())
}

func TestFetchFrame_DecodesImage(t *testing.T) {
	pic := testJPEG(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/capture", r.URL.Path)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(pic)
	}))
	defer srv.Close()

	f, err := newClient().FetchFrame(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", f.Format)
	assert.Equal(t, 8, f.Width)
	assert.Equal(t, 6, f.Height)
	assert.Equal(t, pic, f.Data)
}

func TestFetchFrame_RejectsGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	_, err := newClient().FetchFrame(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFetchFrame_RejectsOversizedFrame(t *testing.T) {
	pic := testJPEG(t)

	// a valid image header followed by padding past the cap
	body := make([]byte, maxFrameBytes+1)
	copy(body, pic)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	_, err := newClient().FetchFrame(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestFetchFrame_AcceptsFrameAtLimit(t *testing.T) {
	pic := testJPEG(t)

	body := make([]byte, maxFrameBytes)
	copy(body, pic)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f, err := newClient().FetchFrame(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, f.Data, maxFrameBytes)
}

func TestFetchFrame_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient().FetchFrame(context.Background(), srv.URL)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestFetchFrame_TimeoutBound(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewHTTPClient(Timeouts{Frame: 50 * time.Millisecond}, logger.NewTestLogger())

	start := time.Now()
	_, err := c.FetchFrame(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSendPhase_WireFormat(t *testing.T) {
	var got setLightsRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/set_lights", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	err := newClient().SendPhase(context.Background(), srv.URL, phase.Command{Phase: phase.Red, Seconds: 13})
	require.NoError(t, err)
	assert.Equal(t, phase.WireRed, got.Command)
	assert.Equal(t, 13, got.Duration)
}

func TestSendPhase_EmptyAddress(t *testing.T) {
	err := newClient().SendPhase(context.Background(), "", phase.Command{Phase: phase.Green, Seconds: 5})
	require.ErrorIs(t, err, ErrEmptyAddress)
}

func TestProbe_ReportsBodyAndLatency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"light":"red","uptime":42}`))
	}))
	defer srv.Close()

	res, err := newClient().Probe(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "red", res.Body["light"])
	assert.Greater(t, res.Latency, time.Duration(0))
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://192.168.1.101", baseURL("192.168.1.101"))
	assert.Equal(t, "http://cam:8080", baseURL("http://cam:8080/"))
	assert.True(t, strings.HasPrefix(baseURL("https://cam"), "https://"))
}

type recordingCommander struct {
	calls []string
}

func (r *recordingCommander) SendPhase(_ context.Context, address string, _ phase.Command) error {
	r.calls = append(r.calls, address)
	return nil
}

func TestRouter_FallbackAndRoutes(t *testing.T) {
	fallback := &recordingCommander{}
	special := &recordingCommander{}

	r := NewRouter(fallback)
	r.Route("10.0.0.2", special)

	cmd := phase.Command{Phase: phase.Green, Seconds: 5}
	require.NoError(t, r.SendPhase(context.Background(), "10.0.0.1", cmd))
	require.NoError(t, r.SendPhase(context.Background(), "10.0.0.2", cmd))

	assert.Equal(t, []string{"10.0.0.1"}, fallback.calls)
	assert.Equal(t, []string{"10.0.0.2"}, special.calls)

	require.ErrorIs(t, NewRouter(nil).SendPhase(context.Background(), "x", cmd), ErrNoRoute)
}
