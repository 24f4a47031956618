// internal/phase/constants.go
package phase

// Controller register block layout constants.
// These values define the controller protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerCommand is the fixed number of holding registers per command block.
const SlotsPerCommand = 4

// ---- SLOT INDICES ----

// SlotPhaseCode holds the commanded phase.
const SlotPhaseCode = 0

// SlotDuration holds the phase duration in seconds.
const SlotDuration = 1

// SlotSequence holds a wrapping command counter so the controller can tell
// a repeated command from a new one.
const SlotSequence = 2

// SlotReserved is reserved for future use and always written as zero.
const SlotReserved = 3

// ---- LIMITS ----

// MaxDurationSeconds is the largest duration a register can carry.
const MaxDurationSeconds = 65535

// ---- PHASE CODES ----

// CodeUnknown represents an unknown or boot state.
const CodeUnknown uint16 = 0

// CodeGreen starts the green phase (followed by yellow on the device).
const CodeGreen uint16 = 1

// CodeRed starts the red phase.
const CodeRed uint16 = 2

// ---- HTTP FIRMWARE WIRE CODES ----

// WireGreen and WireRed are the command strings the camera/controller
// firmware accepts on POST /set_lights.
const (
	WireGreen = "START_HIJAU"
	WireRed   = "START_MERAH"
)
