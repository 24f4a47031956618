// internal/device/modbus/client.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/signal-rotator/internal/phase"
)

// registerWriter is the slice of modbus.Client the controller uses.
type registerWriter interface {
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Controller is a single Modbus TCP connection to one signal controller.
// It serializes requests; the sequence register must advance in order.
type Controller struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  registerWriter

	base uint16
	seq  uint16
}

type Config struct {
	Endpoint     string
	UnitID       uint8
	BaseRegister uint16
	Timeout      time.Duration
}

// New prepares a controller client. The TCP connection is opened lazily by
// the first command and re-opened after transport errors, so an offline
// controller does not block startup.
func New(cfg Config) (*Controller, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("controller modbus: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID
	h.IdleTimeout = time.Minute

	return &Controller{
		handler: h,
		client:  modbus.NewClient(h),
		base:    cfg.BaseRegister,
	}, nil
}

func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handler == nil {
		return nil
	}
	return c.handler.Close()
}

// SendPhase writes the full command block. The address argument is ignored:
// the controller is bound to its endpoint at construction.
func (c *Controller) SendPhase(ctx context.Context, _ string, cmd phase.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.seq + 1
	regs := phase.Encode(cmd, seq)

	if _, err := c.client.WriteMultipleRegisters(c.base, uint16(len(regs)), packRegisters(regs)); err != nil {
		return fmt.Errorf("controller modbus: write %s block at %d: %w", cmd.Phase, c.base, err)
	}

	c.seq = seq
	return nil
}

// Modbus register memory order (BIG-ENDIAN)
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
