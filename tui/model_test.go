package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightpilot/clock"
	"lightpilot/config"
	"lightpilot/pilot"
	"lightpilot/sequence"
)

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModelSurfacesActivationError(t *testing.T) {
	t.Parallel()

	p := pilot.New(clock.NewTracker(4, 4), nil, &config.Project{
		Sequences: []sequence.Sequence{
			{Name: "broken"}, // no steps, cannot be activated
			{Name: "good", Steps: []sequence.Step{{Duration: 3600, Unit: sequence.UnitSeconds}}},
		},
	})
	defer p.Close()

	m := NewModel(p)

	next, _ := m.Update(keyPress('1'))
	m, ok := next.(Model)
	require.True(t, ok)
	assert.Contains(t, m.View(), "error")
	assert.NotEmpty(t, m.lastErr)

	// A successful activation clears the sticky error line.
	next, _ = m.Update(keyPress('2'))
	m, ok = next.(Model)
	require.True(t, ok)
	assert.Empty(t, m.lastErr)
	assert.NotContains(t, m.View(), "error")
}
