package action

// Type enumerates the actions a matched rule can trigger. It is a closed set;
// configuration entries naming anything else parse to TypeUnknown and degrade
// to a logged no-op instead of failing the load.
type Type int

const (
	TypeUnknown Type = iota
	TypePhraseAlign
	TypeSequenceSwitch
	TypePlaybackToggle
)

var typeNames = map[Type]string{
	TypeUnknown:        "unknown",
	TypePhraseAlign:    "phrase_align",
	TypeSequenceSwitch: "sequence_switch",
	TypePlaybackToggle: "playback_toggle",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseType maps a configuration tag to a Type. Unrecognized tags come back
// as TypeUnknown with ok=false so the loader can warn.
func ParseType(tag string) (Type, bool) {
	for t, name := range typeNames {
		if name == tag && t != TypeUnknown {
			return t, true
		}
	}
	return TypeUnknown, false
}

// Rule binds a message pattern to an action. Status is always a concrete
// value (every rule must constrain the message class); Data1 and Data2 are
// wildcards when nil. Param carries action-specific data, e.g. the target
// sequence name for a sequence switch.
type Rule struct {
	Name   string
	Type   Type
	Status uint8
	Data1  *uint8
	Data2  *uint8
	Param  string
}

// Matches reports whether every non-wildcard selector equals the
// corresponding message field.
func (r Rule) Matches(m Message) bool {
	if m.Status != r.Status {
		return false
	}
	if r.Data1 != nil && m.Data1 != *r.Data1 {
		return false
	}
	if r.Data2 != nil && m.Data2 != *r.Data2 {
		return false
	}
	return true
}

// wildcards counts the unconstrained selectors, lower meaning more specific.
func (r Rule) wildcards() int {
	n := 0
	if r.Data1 == nil {
		n++
	}
	if r.Data2 == nil {
		n++
	}
	return n
}
