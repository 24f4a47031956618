// internal/detection/record.go
package detection

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event is the value of the "event" field on every detection line.
const Event = "detection"

// TimeLayout is the layout of the "time" field. Consumers parse with it.
const TimeLayout = time.RFC3339

// Record is one completed vehicle detection.
//
// On disk each record is a single JSON line:
//
//	{"level":"info","event":"detection","id":"…","source":"rotation",
//	 "intersection":"esp1","vehicle_count":3,"green_seconds":15,
//	 "policy":"tiered","time":"2024-05-01T10:00:00Z","message":"detection complete"}
//
// "event", "time" and "vehicle_count" are the stable contract for the
// dashboard; other fields may be added, never renamed.
type Record struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Intersection string    `json:"intersection"`
	VehicleCount int       `json:"vehicle_count"`
	GreenSeconds int       `json:"green_seconds"`
	Policy       string    `json:"policy"`
	Time         time.Time `json:"-"`
}

const (
	SourceRotation = "rotation"
	SourceCapture  = "capture"
)

var ErrNotDetection = errors.New("detection: not a detection record")

type line struct {
	Event string `json:"event"`
	Time  string `json:"time"`
	Record
}

// Parse reads one log line back into a Record.
func Parse(raw []byte) (Record, error) {
	var l line
	if err := json.Unmarshal(raw, &l); err != nil {
		return Record{}, fmt.Errorf("detection: parse: %w", err)
	}
	if l.Event != Event {
		return Record{}, ErrNotDetection
	}

	t, err := time.Parse(TimeLayout, l.Time)
	if err != nil {
		return Record{}, fmt.Errorf("detection: parse time: %w", err)
	}

	r := l.Record
	r.Time = t
	return r, nil
}

// MarshalJSON renders the record in the same shape as the log line, minus
// the logger's level/message fields. Used for published events.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		Event string `json:"event"`
		Time  string `json:"time"`
		plain
	}{
		Event: Event,
		Time:  r.Time.Format(TimeLayout),
		plain: plain(r),
	})
}
