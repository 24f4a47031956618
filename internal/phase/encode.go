// internal/phase/encode.go
package phase

// Encode converts a Command into a full controller register block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(c Command, seq uint16) []uint16 {
	regs := make([]uint16, SlotsPerCommand)

	secs := c.Seconds
	if secs < 0 {
		secs = 0
	}
	if secs > MaxDurationSeconds {
		secs = MaxDurationSeconds
	}

	regs[SlotPhaseCode] = c.Phase.Code()
	regs[SlotDuration] = uint16(secs)
	regs[SlotSequence] = seq

	return regs
}
