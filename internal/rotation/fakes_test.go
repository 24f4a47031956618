// internal/rotation/fakes_test.go
package rotation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/signal-rotator/internal/detection"
	"github.com/tamzrod/signal-rotator/internal/device"
	"github.com/tamzrod/signal-rotator/internal/logger"
	"github.com/tamzrod/signal-rotator/internal/phase"
	"github.com/tamzrod/signal-rotator/internal/registry"
)

// ---- frames ----

type fakeFrames struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string

	inFlight atomic.Int32
	peak     atomic.Int32
	hold     time.Duration
}

func (f *fakeFrames) FetchFrame(_ context.Context, address string) (device.Frame, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.hold > 0 {
		time.Sleep(f.hold)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, address)

	if f.fail[address] {
		return device.Frame{}, errors.New("camera unreachable")
	}
	return device.Frame{Data: []byte(address), Format: "jpeg", At: time.Now()}, nil
}

func (f *fakeFrames) captured() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// ---- counter ----

// fakeCounter returns counts keyed by frame payload (the address).
type fakeCounter struct {
	counts map[string]int
	fail   map[string]bool
	panics map[string]bool
}

func (c *fakeCounter) Count(_ context.Context, f device.Frame) (int, error) {
	key := string(f.Data)
	if c.panics[key] {
		panic("model crashed")
	}
	if c.fail[key] {
		return 0, errors.New("inference timeout")
	}
	return c.counts[key], nil
}

// ---- commander ----

type sentCommand struct {
	address string
	cmd     phase.Command
	ctxErr  error
}

type fakeCommander struct {
	mu    sync.Mutex
	calls []sentCommand

	// gate, when set, blocks every send until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func (c *fakeCommander) SendPhase(ctx context.Context, address string, cmd phase.Command) error {
	if c.gate != nil {
		select {
		case c.entered <- struct{}{}:
		default:
		}
		<-c.gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, sentCommand{address: address, cmd: cmd, ctxErr: ctx.Err()})
	return nil
}

func (c *fakeCommander) sent() []sentCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentCommand(nil), c.calls...)
}

func (c *fakeCommander) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// ---- sink ----

type memorySink struct {
	mu      sync.Mutex
	records []detection.Record
}

func (m *memorySink) Emit(_ context.Context, r detection.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *memorySink) all() []detection.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]detection.Record(nil), m.records...)
}

// ---- harness ----

type harness struct {
	reg    *registry.Registry
	frames *fakeFrames
	count  *fakeCounter
	cmd    *fakeCommander
	sink   *memorySink
	sched  *Scheduler
}

func fastTiming() Timing {
	return Timing{
		YellowBuffer: 3,
		RedHold:      30,
		Backoff:      5,
		Tick:         time.Millisecond,
		Unit:         time.Millisecond,
	}
}

func newHarness(t *testing.T, ids ...string) *harness {
	t.Helper()

	entries := make([]registry.Intersection, len(ids))
	for i, id := range ids {
		entries[i] = registry.Intersection{ID: id, Address: "cam-" + id}
	}
	reg, err := registry.New(entries)
	require.NoError(t, err)

	h := &harness{
		reg:    reg,
		frames: &fakeFrames{fail: map[string]bool{}},
		count:  &fakeCounter{counts: map[string]int{}, fail: map[string]bool{}, panics: map[string]bool{}},
		cmd:    &fakeCommander{},
		sink:   &memorySink{},
	}

	h.sched, err = NewScheduler(Config{
		Registry:   reg,
		Frames:     h.frames,
		Counter:    h.count,
		Commander:  h.cmd,
		Sink:       h.sink,
		PolicyName: "tiered",
		Timing:     fastTiming(),
		Log:        logger.NewTestLogger(),
	})
	require.NoError(t, err)

	return h
}
