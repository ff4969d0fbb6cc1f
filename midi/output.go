package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"

	"lightpilot/debug"
	"lightpilot/sequence"
)

// Output sends lighting-state commands to the light software's MIDI input.
// Each scene on the software's grid maps to one note; activating a scene is
// a NoteOn, releasing it a NoteOff. The port is opened lazily on first send
// so the application can start before the light software does.
type Output struct {
	portName string
	channel  uint8 // 1-16

	mu     sync.Mutex
	send   func(gomidi.Message) error
	active map[sequence.Scene]bool
}

// NewOutput creates an output for the named port. An empty port name yields
// a disabled output whose sends are silently dropped.
func NewOutput(portName string, channel uint8) *Output {
	return &Output{
		portName: portName,
		channel:  channel,
		active:   make(map[sequence.Scene]bool),
	}
}

// grid width of the light software's scene bank
const sceneColumns = 8

// sceneNote maps a grid coordinate to its MIDI note.
func sceneNote(s sequence.Scene) uint8 {
	return uint8(s.Row*sceneColumns + s.Col)
}

// SetScenes makes the given scenes the active lighting state, sending only
// the difference against the previous state: NoteOff for scenes leaving,
// NoteOn for scenes entering.
func (o *Output) SetScenes(scenes []sequence.Scene) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	send, err := o.sender()
	if err != nil {
		return err
	}
	if send == nil {
		return nil // output disabled
	}

	next := make(map[sequence.Scene]bool, len(scenes))
	for _, s := range scenes {
		next[s] = true
	}

	ch := o.channel - 1
	for s := range o.active {
		if !next[s] {
			if err := send(gomidi.NoteOff(ch, sceneNote(s))); err != nil {
				return fmt.Errorf("scene off (%d,%d): %w", s.Col, s.Row, err)
			}
		}
	}
	for s := range next {
		if !o.active[s] {
			if err := send(gomidi.NoteOn(ch, sceneNote(s), 127)); err != nil {
				return fmt.Errorf("scene on (%d,%d): %w", s.Col, s.Row, err)
			}
		}
	}

	o.active = next
	debug.Log("output", "lighting state: %d scene(s)", len(next))
	return nil
}

// Clear releases every active scene.
func (o *Output) Clear() error {
	return o.SetScenes(nil)
}

// sender lazily opens the output port; callers hold o.mu.
func (o *Output) sender() (func(gomidi.Message) error, error) {
	if o.portName == "" {
		return nil, nil
	}
	if o.send != nil {
		return o.send, nil
	}

	for _, port := range gomidi.GetOutPorts() {
		if port.String() == o.portName {
			send, err := gomidi.SendTo(port)
			if err != nil {
				return nil, fmt.Errorf("open output %q: %w", o.portName, err)
			}
			o.send = send
			return send, nil
		}
	}
	return nil, fmt.Errorf("output port %q not found", o.portName)
}
