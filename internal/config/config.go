// internal/config/config.go
package config

import "github.com/tamzrod/signal-rotator/internal/logger"

type Config struct {
	Server        ServerConfig         `yaml:"server"`
	Logging       logger.Config        `yaml:"logging"`
	Detections    DetectionsConfig     `yaml:"detections"`
	Rotation      RotationConfig       `yaml:"rotation"`
	Vision        VisionConfig         `yaml:"vision"`
	Capture       CaptureConfig        `yaml:"capture"`
	Device        DeviceConfig         `yaml:"device"`
	Intersections []IntersectionConfig `yaml:"intersections"`
}

// ---- SERVER ----

type ServerConfig struct {
	Listen         string `yaml:"listen"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
}

// ---- DETECTIONS ----

type DetectionsConfig struct {
	LogFile     string `yaml:"log_file"`
	NATSURL     string `yaml:"nats_url"`     // empty: no publishing
	NATSSubject string `yaml:"nats_subject"`
}

// ---- ROTATION ----

type RotationConfig struct {
	Autostart    bool   `yaml:"autostart"`
	StartIndex   int    `yaml:"start_index"`
	Policy       string `yaml:"policy"`
	YellowBuffer *int   `yaml:"yellow_buffer_s"`
	RedHold      *int   `yaml:"red_hold_s"`
	Backoff      *int   `yaml:"backoff_s"`
	TickMs       int    `yaml:"tick_ms"`

	// DebugDir receives every counted frame while logging.debug is on.
	DebugDir string `yaml:"debug_dir"`
}

// ---- VISION ----

type VisionConfig struct {
	Endpoint       string   `yaml:"endpoint"`
	VehicleClasses []int    `yaml:"vehicle_classes"`
	Confidence     *float64 `yaml:"confidence"` // unset: 0.25; 0 is a valid threshold
	TimeoutMs      int      `yaml:"timeout_ms"`
}

// ---- CAPTURE ----

type CaptureConfig struct {
	Intersection string `yaml:"intersection"` // empty: first registry member
	SnapshotDir  string `yaml:"snapshot_dir"` // empty: snapshots are not saved
}

// ---- DEVICE ----

type DeviceConfig struct {
	FrameTimeoutMs   int `yaml:"frame_timeout_ms"`
	CommandTimeoutMs int `yaml:"command_timeout_ms"`
	ProbeTimeoutMs   int `yaml:"probe_timeout_ms"`
}

// ---- INTERSECTION ----

type IntersectionConfig struct {
	ID         string           `yaml:"id"`
	Address    string           `yaml:"address"`
	Controller ControllerConfig `yaml:"controller"`
}

const (
	DriverHTTP   = "http"
	DriverModbus = "modbus"
)

type ControllerConfig struct {
	Driver       string `yaml:"driver"` // empty: http
	Endpoint     string `yaml:"endpoint"`
	UnitID       uint8  `yaml:"unit_id"`
	BaseRegister uint16 `yaml:"base_register"`
}
