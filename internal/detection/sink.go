// internal/detection/sink.go
package detection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Sink receives every completed detection.
type Sink interface {
	Emit(ctx context.Context, r Record) error
}

// LogSink appends one JSON line per record.
type LogSink struct {
	log   zerolog.Logger
	close func() error
}

// NewLogSink writes records to w.
func NewLogSink(w io.Writer) *LogSink {
	return &LogSink{
		log:   zerolog.New(zerolog.SyncWriter(w)),
		close: func() error { return nil },
	}
}

// OpenLogSink appends records to the file at path, creating it if needed.
func OpenLogSink(path string) (*LogSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("detection: open %s: %w", path, err)
	}

	s := NewLogSink(f)
	s.close = f.Close
	return s, nil
}

func (s *LogSink) Emit(_ context.Context, r Record) error {
	s.log.Info().
		Str("event", Event).
		Str("id", r.ID).
		Str("source", r.Source).
		Str("intersection", r.Intersection).
		Int("vehicle_count", r.VehicleCount).
		Int("green_seconds", r.GreenSeconds).
		Str("policy", r.Policy).
		Str("time", r.Time.Format(TimeLayout)).
		Msg("detection complete")
	return nil
}

func (s *LogSink) Close() error {
	return s.close()
}

// Multi fans a record out to every sink. One failing sink does not stop
// delivery to the others.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, r Record) error {
	var errs []string
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, r); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New("detection: " + strings.Join(errs, " | "))
	}
	return nil
}

// Discard drops every record.
type Discard struct{}

func (Discard) Emit(context.Context, Record) error { return nil }
