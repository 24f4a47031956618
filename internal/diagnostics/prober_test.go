// internal/diagnostics/prober_test.go
package diagnostics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/signal-rotator/internal/device"
	"github.com/tamzrod/signal-rotator/internal/logger"
	"github.com/tamzrod/signal-rotator/internal/registry"
)

type fakeProber struct {
	down    map[string]bool
	barrier *sync.WaitGroup
}

func (f *fakeProber) Probe(ctx context.Context, address string) (device.ProbeResponse, error) {
	if f.barrier != nil {
		// every probe must be in flight at once to get past here
		f.barrier.Done()
		f.barrier.Wait()
	}
	if f.down[address] {
		return device.ProbeResponse{}, errors.New("dial tcp: connection refused")
	}
	return device.ProbeResponse{
		Latency: 1500 * time.Microsecond,
		Body:    map[string]any{"light": "red"},
	}, nil
}

func newRegistry(t *testing.T, ids ...string) *registry.Registry {
	t.Helper()

	entries := make([]registry.Intersection, len(ids))
	for i, id := range ids {
		entries[i] = registry.Intersection{ID: id, Address: "addr-" + id}
	}
	reg, err := registry.New(entries)
	require.NoError(t, err)
	return reg
}

func TestSweep_ReportsOnlineAndOffline(t *testing.T) {
	reg := newRegistry(t, "A", "B", "C")
	p := New(reg, &fakeProber{down: map[string]bool{"addr-B": true}}, 0, logger.NewTestLogger())

	res := p.Sweep(context.Background())
	require.Len(t, res, 3)

	assert.Equal(t, "A", res[0].ID)
	assert.Equal(t, StatusOnline, res[0].Status)
	assert.True(t, res[0].Reachable)
	assert.InDelta(t, 1.5, res[0].LatencyMS, 0.001)
	assert.Equal(t, "1.50ms", res[0].Ping)
	assert.Equal(t, "red", res[0].Response["light"])
	assert.Empty(t, res[0].Error)

	assert.Equal(t, "B", res[1].ID)
	assert.Equal(t, StatusOffline, res[1].Status)
	assert.False(t, res[1].Reachable)
	assert.Contains(t, res[1].Error, "connection refused")
	assert.Nil(t, res[1].Response)

	assert.Equal(t, "C", res[2].ID)
	assert.True(t, res[2].Reachable)
}

func TestSweep_ProbesConcurrently(t *testing.T) {
	reg := newRegistry(t, "A", "B", "C", "D")

	var barrier sync.WaitGroup
	barrier.Add(4)
	p := New(reg, &fakeProber{barrier: &barrier}, 0, logger.NewTestLogger())

	done := make(chan []Result, 1)
	go func() { done <- p.Sweep(context.Background()) }()

	select {
	case res := <-done:
		assert.Len(t, res, 4)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep is sequential")
	}
}

func TestSweep_NeverMutatesRegistry(t *testing.T) {
	reg := newRegistry(t, "A", "B")
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	reg.MarkCaptured(0, at)
	reg.SetStatus(0, "GREEN (5s)")
	before := reg.Snapshot()

	p := New(reg, &fakeProber{down: map[string]bool{"addr-A": true}}, 0, logger.NewTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Sweep(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, before, reg.Snapshot())
}

func TestSweep_AgainstHTTPDevices(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"esp1","light":"green","remaining":4}`))
	}))
	defer up.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()

	reg, err := registry.New([]registry.Intersection{
		{ID: "esp1", Address: up.URL},
		{ID: "esp2", Address: slow.URL},
	})
	require.NoError(t, err)

	client := device.NewHTTPClient(device.DefaultTimeouts(), logger.NewTestLogger())
	p := New(reg, client, 50*time.Millisecond, logger.NewTestLogger())

	res := p.Sweep(context.Background())
	require.Len(t, res, 2)

	assert.True(t, res[0].Reachable)
	assert.Equal(t, "green", res[0].Response["light"])
	assert.NotEmpty(t, res[0].Ping)

	assert.False(t, res[1].Reachable)
	assert.NotEmpty(t, res[1].Error)
}

func TestSweep_ConcurrentWithRotationWrites(t *testing.T) {
	reg := newRegistry(t, "A", "B", "C")
	p := New(reg, &fakeProber{down: map[string]bool{"addr-C": true}}, 0, logger.NewTestLogger())

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	stop := make(chan struct{})
	var wg sync.WaitGroup

	// stands in for the rotation worker
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			reg.MarkCaptured(i, at)
			reg.SetStatus(i, "RED (30s)")
		}
	}()

	for i := 0; i < 20; i++ {
		res := p.Sweep(context.Background())
		require.Len(t, res, 3)
		assert.False(t, res[2].Reachable)
	}

	require.Eventually(t, func() bool {
		for _, in := range reg.Snapshot() {
			if in.Status != "RED (30s)" {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond)

	close(stop)
	wg.Wait()

	for _, in := range reg.Snapshot() {
		assert.Equal(t, "RED (30s)", in.Status)
		require.NotNil(t, in.LastCapture)
		assert.True(t, in.LastCapture.Equal(at))
	}
}
