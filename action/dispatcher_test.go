package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherInvokesBoundCallback(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	var got []string
	d.RegisterCallback(TypePhraseAlign, func(r Rule, _ Message) {
		got = append(got, r.Name)
	})

	d.Dispatch(Rule{Name: "a", Type: TypePhraseAlign}, Message{})
	assert.Equal(t, []string{"a"}, got)
}

func TestDispatcherMissingCallbackIsNoOp(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	assert.NotPanics(t, func() {
		d.Dispatch(Rule{Name: "stale", Type: TypeUnknown}, Message{})
	})
}

func TestDispatcherReplacesCallbackSilently(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	var which string
	d.RegisterCallback(TypePhraseAlign, func(Rule, Message) { which = "first" })
	d.RegisterCallback(TypePhraseAlign, func(Rule, Message) { which = "second" })

	d.Dispatch(Rule{Type: TypePhraseAlign}, Message{})
	assert.Equal(t, "second", which)
}

func TestDispatcherRecoversPanickingCallback(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	d.RegisterCallback(TypePhraseAlign, func(Rule, Message) {
		panic("bad callback")
	})
	var fired bool
	d.RegisterCallback(TypePlaybackToggle, func(Rule, Message) { fired = true })

	assert.NotPanics(t, func() {
		d.Dispatch(Rule{Name: "boom", Type: TypePhraseAlign}, Message{})
	})

	// Processing continues for later messages.
	d.Dispatch(Rule{Type: TypePlaybackToggle}, Message{})
	assert.True(t, fired)
}

func TestParseType(t *testing.T) {
	t.Parallel()

	typ, ok := ParseType("phrase_align")
	assert.True(t, ok)
	assert.Equal(t, TypePhraseAlign, typ)

	typ, ok = ParseType("scene_toggle")
	assert.False(t, ok)
	assert.Equal(t, TypeUnknown, typ)
}
