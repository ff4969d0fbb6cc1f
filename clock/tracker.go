package clock

import (
	"sort"
	"sync"
	"time"

	"lightpilot/debug"
)

// MIDI clock resolution: 24 pulses per quarter note
const PulsesPerBeat = 24

// Default musical divisions
const (
	DefaultBeatsPerBar   = 4
	DefaultBarsPerPhrase = 4
)

// Tempo estimates outside this range are treated as jitter
const (
	MinBPM = 20.0
	MaxBPM = 300.0
)

// intervalWindow is the number of trailing inter-pulse intervals kept for
// the tempo estimate (one beat's worth at 24 PPQ).
const intervalWindow = 24

// Position is a consistent snapshot of the tracker's musical position.
// Beat is the fractional beat within the bar, in [0, BeatsPerBar).
// Bar is the bar within the phrase, in [0, BarsPerPhrase). Phrase counts up
// monotonically and never wraps.
type Position struct {
	BPM           float64
	Beat          float64
	Bar           int
	Phrase        int
	BeatsPerBar   int
	BarsPerPhrase int
}

// absBeats returns the position as a total beat count since phrase zero.
func (p Position) absBeats() float64 {
	return float64((p.Phrase*p.BarsPerPhrase+p.Bar)*p.BeatsPerBar) + p.Beat
}

// ElapsedBeats returns the signed beat delta between two snapshots,
// accounting for bar and phrase wraparound.
func ElapsedBeats(from, to Position) float64 {
	return to.absBeats() - from.absBeats()
}

// Tracker follows an external MIDI clock stream. It estimates tempo from a
// trailing window of inter-pulse intervals and keeps fractional beat, bar and
// phrase counters that other goroutines may snapshot at any time.
type Tracker struct {
	mu sync.Mutex

	beatsPerBar   int
	barsPerPhrase int

	lastPulse time.Time
	havePulse bool
	intervals []float64 // seconds, trailing window
	bpm       float64   // 0 until enough pulses seen

	beat   float64
	bar    int
	phrase int
}

// NewTracker creates a tracker with the given time signature. Non-positive
// divisions fall back to the defaults.
func NewTracker(beatsPerBar, barsPerPhrase int) *Tracker {
	if beatsPerBar <= 0 {
		beatsPerBar = DefaultBeatsPerBar
	}
	if barsPerPhrase <= 0 {
		barsPerPhrase = DefaultBarsPerPhrase
	}
	return &Tracker{
		beatsPerBar:   beatsPerBar,
		barsPerPhrase: barsPerPhrase,
		intervals:     make([]float64, 0, intervalWindow),
	}
}

// OnPulse records one clock pulse. The position always advances by
// 1/PulsesPerBeat; the interval only feeds the tempo window when it implies a
// plausible tempo, so a single jittered pulse cannot skew the estimate.
func (t *Tracker) OnPulse(ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.havePulse {
		interval := ts.Sub(t.lastPulse).Seconds()
		if plausibleInterval(interval) {
			if len(t.intervals) == intervalWindow {
				copy(t.intervals, t.intervals[1:])
				t.intervals = t.intervals[:intervalWindow-1]
			}
			t.intervals = append(t.intervals, interval)
			t.bpm = 60.0 / (median(t.intervals) * PulsesPerBeat)
		} else {
			debug.LogEvery(100, "clock", "implausible pulse interval %.4fs, skipped", interval)
		}
	}
	t.lastPulse = ts
	t.havePulse = true

	t.beat += 1.0 / PulsesPerBeat
	for t.beat >= float64(t.beatsPerBar) {
		t.beat -= float64(t.beatsPerBar)
		t.bar++
		if t.bar >= t.barsPerPhrase {
			t.bar = 0
			t.phrase++
		}
	}
}

// Align snaps the position counters back to the phrase boundary, keeping
// the tempo estimate. This is the phase-correction primitive for both
// manual taps and matched protocol actions.
func (t *Tracker) Align() {
	t.mu.Lock()
	t.beat = 0
	t.bar = 0
	t.phrase = 0
	t.mu.Unlock()
	debug.Log("clock", "aligned to phrase zero")
}

// Reset clears position and tempo state. Wired to MIDI start/continue/stop,
// which invalidate any phase the tracker had locked onto.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.beat = 0
	t.bar = 0
	t.phrase = 0
	t.intervals = t.intervals[:0]
	t.bpm = 0
	t.havePulse = false
	t.mu.Unlock()
	debug.Log("clock", "tracker reset")
}

// Position returns a snapshot taken under the same lock the pulse path
// writes with, so it is never torn mid-update.
func (t *Tracker) Position() Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Position{
		BPM:           t.bpm,
		Beat:          t.beat,
		Bar:           t.bar,
		Phrase:        t.phrase,
		BeatsPerBar:   t.beatsPerBar,
		BarsPerPhrase: t.barsPerPhrase,
	}
}

// BPM returns the current tempo estimate, or 0 if fewer than two pulses have
// been observed.
func (t *Tracker) BPM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpm
}

// PhraseProgress returns progress through the current phrase in [0, 1).
func (t *Tracker) PhraseProgress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := float64(t.barsPerPhrase * t.beatsPerBar)
	return (float64(t.bar*t.beatsPerBar) + t.beat) / total
}

func plausibleInterval(interval float64) bool {
	if interval <= 0 {
		return false
	}
	bpm := 60.0 / (interval * PulsesPerBeat)
	return bpm >= MinBPM && bpm <= MaxBPM
}

// median of a non-empty slice; does not modify its argument.
func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
