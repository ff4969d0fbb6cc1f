package action

// Message is one inbound protocol event: a MIDI status byte plus two data
// bytes. Messages shorter than three bytes arrive zero-padded; the transport
// drops anything it cannot parse into this shape.
type Message struct {
	Status uint8
	Data1  uint8
	Data2  uint8
}

// RealtimeMin is the bottom of the MIDI realtime status range. Clock pulses
// (0xF8) and transport messages live here; they arrive at high frequency and
// are never candidates for rule matching.
const RealtimeMin uint8 = 0xF8

// IsRealtime reports whether the message is in the reserved clock range.
func (m Message) IsRealtime() bool {
	return m.Status >= RealtimeMin
}
