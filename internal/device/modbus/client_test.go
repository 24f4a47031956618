// internal/device/modbus/client_test.go
package modbus

import (
	"context"
	"errors"
	"testing"

	"github.com/tamzrod/signal-rotator/internal/phase"
)

// ---- fake register writer ----

type fakeWriter struct {
	addr  uint16
	qty   uint16
	value []byte
	calls int
	fail  bool
}

func (f *fakeWriter) WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("exception 2: illegal data address")
	}
	f.addr = address
	f.qty = quantity
	f.value = append([]byte(nil), value...)
	return nil, nil
}

// ---- tests ----

func TestSendPhase_WritesFullBlock(t *testing.T) {
	fw := &fakeWriter{}
	c := &Controller{client: fw, base: 100}

	if err := c.SendPhase(context.Background(), "ignored", phase.Command{Phase: phase.Green, Seconds: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fw.addr != 100 {
		t.Fatalf("expected base register 100, got %d", fw.addr)
	}
	if fw.qty != phase.SlotsPerCommand {
		t.Fatalf("expected %d registers, got %d", phase.SlotsPerCommand, fw.qty)
	}

	// big-endian: [code][duration][seq][reserved]
	want := []byte{0, 1, 0, 10, 0, 1, 0, 0}
	if string(fw.value) != string(want) {
		t.Fatalf("payload mismatch: got=%v want=%v", fw.value, want)
	}
}

func TestSendPhase_SequenceAdvancesOnSuccessOnly(t *testing.T) {
	fw := &fakeWriter{}
	c := &Controller{client: fw}
	cmd := phase.Command{Phase: phase.Red, Seconds: 30}

	_ = c.SendPhase(context.Background(), "", cmd)
	fw.fail = true
	if err := c.SendPhase(context.Background(), "", cmd); err == nil {
		t.Fatalf("expected error, got nil")
	}
	fw.fail = false
	_ = c.SendPhase(context.Background(), "", cmd)

	if c.seq != 2 {
		t.Fatalf("expected seq 2 after one failure, got %d", c.seq)
	}
	if fw.value[5] != 2 {
		t.Fatalf("expected seq register 2, got %d", fw.value[5])
	}
}

func TestSendPhase_CancelledContext(t *testing.T) {
	fw := &fakeWriter{}
	c := &Controller{client: fw}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.SendPhase(ctx, "", phase.Command{Phase: phase.Green, Seconds: 5}); err == nil {
		t.Fatalf("expected context error")
	}
	if fw.calls != 0 {
		t.Fatalf("no write expected on cancelled context")
	}
}

func TestNew_RequiresEndpoint(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}

	c, err := New(Config{Endpoint: "127.0.0.1:1502", UnitID: 3})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if c.handler.SlaveId != 3 {
		t.Fatalf("unit id not applied: %d", c.handler.SlaveId)
	}
	_ = c.Close()
}
