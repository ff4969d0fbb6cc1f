package sequence

import "fmt"

// Unit is the time base of a step duration.
type Unit int

const (
	UnitSeconds Unit = iota
	UnitBeats
	UnitBars
)

var unitNames = map[Unit]string{
	UnitSeconds: "seconds",
	UnitBeats:   "beats",
	UnitBars:    "bars",
}

func (u Unit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return "seconds"
}

// MarshalText implements encoding.TextMarshaler for JSON persistence.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Unit) UnmarshalText(text []byte) error {
	for unit, name := range unitNames {
		if name == string(text) {
			*u = unit
			return nil
		}
	}
	return fmt.Errorf("unknown duration unit %q", text)
}

// Scene addresses one lighting scene on the light software's grid.
type Scene struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Step is one timed stage of a sequence: the scenes to activate and how long
// to hold them, in wall-clock seconds or in musical units from the clock
// tracker.
type Step struct {
	Name     string  `json:"name,omitempty"`
	Scenes   []Scene `json:"scenes"`
	Duration float64 `json:"duration"`
	Unit     Unit    `json:"unit"`
}

// Sequence is a named ordered step list. The scheduler only ever reads it;
// edits swap in a whole new Sequence rather than mutating a playing one.
type Sequence struct {
	Name  string `json:"name"`
	Loop  bool   `json:"loop"`
	Steps []Step `json:"steps"`
}
