package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightpilot/action"
	"lightpilot/sequence"
)

func u8(v uint8) *uint8 { return &v }

func TestLoadProjectMissingFile(t *testing.T) {
	t.Parallel()

	p, err := LoadProject(filepath.Join(t.TempDir(), "project.json"))
	require.NoError(t, err)
	assert.Empty(t, p.Rules)
	assert.Empty(t, p.Sequences)
}

func TestLoadProjectSkipsInconsistentEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "project.json")
	content := `{
  "rules": [
    {"name": "align", "action": "phrase_align", "status": 144, "data1": 60, "data2": null},
    {"name": "no-status", "action": "phrase_align", "status": null},
    {"name": "clock-range", "action": "phrase_align", "status": 248},
    {"name": "future", "action": "scene_toggle", "status": 176, "data1": 7}
  ],
  "sequences": [
    {"name": "chorus", "loop": true, "steps": [
      {"scenes": [{"col": 0, "row": 1}], "duration": 2, "unit": "bars"}
    ]},
    {"name": "empty", "loop": false, "steps": []},
    {"name": "bad-step", "steps": [{"scenes": [], "duration": -1, "unit": "seconds"}]}
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadProject(path)
	require.NoError(t, err)

	// The no-status and clock-range rules are dropped; the rule with an
	// unrecognized action type is kept but degraded to unknown.
	require.Len(t, p.Rules, 2)
	assert.Equal(t, "align", p.Rules[0].Name)
	assert.Equal(t, action.TypePhraseAlign, p.Rules[0].Type)
	assert.Equal(t, uint8(0x90), p.Rules[0].Status)
	require.NotNil(t, p.Rules[0].Data1)
	assert.Equal(t, uint8(60), *p.Rules[0].Data1)
	assert.Nil(t, p.Rules[0].Data2, "null data2 is a wildcard")

	assert.Equal(t, "future", p.Rules[1].Name)
	assert.Equal(t, action.TypeUnknown, p.Rules[1].Type)

	require.Len(t, p.Sequences, 1)
	assert.Equal(t, "chorus", p.Sequences[0].Name)
	assert.Equal(t, sequence.UnitBars, p.Sequences[0].Steps[0].Unit)
}

func TestProjectSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "project.json")
	p := &Project{
		Rules: []action.Rule{
			{Name: "align", Type: action.TypePhraseAlign, Status: 0x90, Data1: u8(60)},
			{Name: "switch", Type: action.TypeSequenceSwitch, Status: 0xB0, Data1: u8(1), Data2: u8(127), Param: "chorus"},
		},
		Sequences: []sequence.Sequence{
			{Name: "chorus", Loop: true, Steps: []sequence.Step{
				{Scenes: []sequence.Scene{{Col: 2, Row: 3}}, Duration: 1.5, Unit: sequence.UnitSeconds},
				{Scenes: []sequence.Scene{{Col: 0, Row: 0}}, Duration: 4, Unit: sequence.UnitBeats},
			}},
		},
	}

	require.NoError(t, SaveProject(path, p))

	loaded, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, p.Rules, loaded.Rules)
	assert.Equal(t, p.Sequences, loaded.Sequences)
}

func TestFindSequence(t *testing.T) {
	t.Parallel()

	p := &Project{Sequences: []sequence.Sequence{
		{Name: "a", Steps: []sequence.Step{{Duration: 1}}},
		{Name: "b", Steps: []sequence.Step{{Duration: 2}}},
	}}

	require.NotNil(t, p.FindSequence("b"))
	assert.Equal(t, "b", p.FindSequence("b").Name)
	assert.Nil(t, p.FindSequence("missing"))
}
