// internal/device/errors.go
package device

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyAddress  = errors.New("device: address required")
	ErrEmptyFrame    = errors.New("device: empty frame")
	ErrFrameTooLarge = errors.New("device: frame exceeds size limit")
	ErrNoRoute       = errors.New("device: no commander for address")
)

// StatusError is a non-2xx answer from a device.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("device: %s: unexpected http status %d", e.Op, e.Code)
}
