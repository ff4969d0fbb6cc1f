package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// interval120 is the pulse spacing for 120 BPM at 24 PPQ (~20.8ms).
const interval120 = time.Minute / (120 * PulsesPerBeat)

func feedPulses(t *Tracker, start time.Time, n int, interval time.Duration) time.Time {
	ts := start
	for i := 0; i < n; i++ {
		t.OnPulse(ts)
		ts = ts.Add(interval)
	}
	return ts
}

func TestTrackerBPMConvergence(t *testing.T) {
	t.Parallel()

	tr := NewTracker(4, 4)
	feedPulses(tr, time.Now(), PulsesPerBeat+1, interval120)

	assert.InDelta(t, 120.0, tr.BPM(), 1.0)
}

func TestTrackerBPMUndefinedBeforeTwoPulses(t *testing.T) {
	t.Parallel()

	tr := NewTracker(4, 4)
	assert.Zero(t, tr.BPM())

	tr.OnPulse(time.Now())
	assert.Zero(t, tr.BPM())
}

func TestTrackerJitterExcludedFromTempo(t *testing.T) {
	t.Parallel()

	tr := NewTracker(4, 4)
	ts := feedPulses(tr, time.Now(), PulsesPerBeat, interval120)

	// A two-second gap implies ~1.25 BPM, far outside the sane range.
	ts = ts.Add(2 * time.Second)
	before := tr.Position()
	tr.OnPulse(ts)
	after := tr.Position()

	assert.InDelta(t, 120.0, tr.BPM(), 1.0, "outlier must not skew the estimate")
	assert.InDelta(t, 1.0/PulsesPerBeat, ElapsedBeats(before, after), 1e-9,
		"outlier still advances position")
}

func TestTrackerPositionAdvance(t *testing.T) {
	t.Parallel()

	tr := NewTracker(4, 4)
	// Exactly one beat of pulses.
	feedPulses(tr, time.Now(), PulsesPerBeat, interval120)

	pos := tr.Position()
	assert.InDelta(t, 1.0, pos.Beat, 1e-9)
	assert.Equal(t, 0, pos.Bar)
	assert.Equal(t, 0, pos.Phrase)
}

func TestTrackerBarAndPhraseWraparound(t *testing.T) {
	t.Parallel()

	tr := NewTracker(4, 4)
	// One full phrase: 4 bars * 4 beats * 24 pulses.
	feedPulses(tr, time.Now(), 4*4*PulsesPerBeat, interval120)

	pos := tr.Position()
	assert.InDelta(t, 0.0, pos.Beat, 1e-9)
	assert.Equal(t, 0, pos.Bar)
	assert.Equal(t, 1, pos.Phrase)
	assert.Less(t, pos.Beat, float64(pos.BeatsPerBar))
	assert.Less(t, pos.Bar, pos.BarsPerPhrase)
}

func TestTrackerAlignResetsPhaseKeepsTempo(t *testing.T) {
	t.Parallel()

	tr := NewTracker(4, 4)
	// Two full phrases plus a bit, so every counter is non-zero.
	feedPulses(tr, time.Now(), 2*4*4*PulsesPerBeat+PulsesPerBeat/2, interval120)

	bpmBefore := tr.BPM()
	require.InDelta(t, 120.0, bpmBefore, 1.0)
	require.Equal(t, 2, tr.Position().Phrase)

	tr.Align()

	pos := tr.Position()
	assert.Zero(t, pos.Beat)
	assert.Zero(t, pos.Bar)
	assert.Zero(t, pos.Phrase)
	assert.Equal(t, bpmBefore, pos.BPM)
}

func TestTrackerReset(t *testing.T) {
	t.Parallel()

	tr := NewTracker(4, 4)
	feedPulses(tr, time.Now(), 3*PulsesPerBeat, interval120)

	tr.Reset()

	pos := tr.Position()
	assert.Zero(t, pos.Beat)
	assert.Zero(t, pos.Bar)
	assert.Zero(t, pos.Phrase)
	assert.Zero(t, pos.BPM)
}

func TestElapsedBeatsAcrossWraparound(t *testing.T) {
	t.Parallel()

	from := Position{Beat: 3.5, Bar: 3, Phrase: 0, BeatsPerBar: 4, BarsPerPhrase: 4}
	to := Position{Beat: 0.5, Bar: 0, Phrase: 1, BeatsPerBar: 4, BarsPerPhrase: 4}

	assert.InDelta(t, 1.0, ElapsedBeats(from, to), 1e-9)
	assert.InDelta(t, -1.0, ElapsedBeats(to, from), 1e-9)
}

func TestPhraseProgress(t *testing.T) {
	t.Parallel()

	tr := NewTracker(4, 4)
	assert.Zero(t, tr.PhraseProgress())

	// Two bars into a four-bar phrase.
	feedPulses(tr, time.Now(), 2*4*PulsesPerBeat, interval120)
	assert.InDelta(t, 0.5, tr.PhraseProgress(), 1e-9)
}
