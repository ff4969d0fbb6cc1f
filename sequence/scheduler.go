package sequence

import (
	"fmt"
	"sync"
	"time"

	"lightpilot/clock"
	"lightpilot/debug"
)

// PollInterval bounds how often a beat-relative wait re-checks the clock.
// Beat progress depends on an external pulse source the scheduler cannot
// command to emit sooner, so polling is deliberate here; this also bounds how
// long pause/stop/skip take to land during such a wait.
const PollInterval = 25 * time.Millisecond

// State is the playback state machine: Idle → Playing ⇄ Paused → Stopped.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// EventKind distinguishes scheduler events.
type EventKind int

const (
	EventStepChanged EventKind = iota
	EventStateChanged
)

// Event is a scheduler notification. Events are published on a buffered
// channel and dropped (with a log line) if the consumer falls behind; the
// timing goroutine never blocks on its audience.
type Event struct {
	Kind     EventKind
	State    State
	Sequence string
	StepIdx  int
	Step     Step
}

// BeatClock is the scheduler's view of the clock tracker.
type BeatClock interface {
	Position() clock.Position
}

type cmdKind int

const (
	cmdActivate cmdKind = iota
	cmdPause
	cmdResume
	cmdStop
	cmdSkip
)

type command struct {
	kind cmdKind
	seq  *Sequence
}

// Scheduler plays the active sequence on a single timing goroutine. The
// goroutine is created lazily on the first Activate, redirected in place by
// later Activates, and joined by Stop. All external control travels over an
// unbuffered command channel; nothing outside the goroutine touches playback
// state directly.
type Scheduler struct {
	clk    BeatClock
	cmds   chan command
	events chan Event

	mu      sync.Mutex
	running bool
	done    chan struct{}
	state   State
}

// NewScheduler creates a scheduler reading beat positions from clk.
func NewScheduler(clk BeatClock) *Scheduler {
	return &Scheduler{
		clk:    clk,
		cmds:   make(chan command),
		events: make(chan Event, 32),
		state:  StateIdle,
	}
}

// Events returns the notification channel. Consumers drain it on their own
// schedule and must not call back into the scheduler from the same select
// arm that is processing an event.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// State returns the current playback state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Activate starts playing seq from step zero. Valid from any state: if the
// timing goroutine is already running it is redirected to the new sequence,
// never duplicated. The sequence must be non-empty; passing anything else is
// a caller bug and fails fast.
func (s *Scheduler) Activate(seq *Sequence) error {
	if seq == nil {
		return fmt.Errorf("activate: nil sequence")
	}
	if len(seq.Steps) == 0 {
		return fmt.Errorf("activate: sequence %q has no steps", seq.Name)
	}

	s.mu.Lock()
	if !s.running {
		s.running = true
		s.done = make(chan struct{})
		go s.run()
	}
	done := s.done
	s.mu.Unlock()

	s.send(command{kind: cmdActivate, seq: seq}, done)
	return nil
}

// Pause suspends the current step without losing progress.
func (s *Scheduler) Pause() { s.signal(cmdPause) }

// Resume continues a paused step.
func (s *Scheduler) Resume() { s.signal(cmdResume) }

// Skip advances to the next step immediately.
func (s *Scheduler) Skip() { s.signal(cmdSkip) }

// Stop tears down the timing goroutine and does not return until it has
// exited, so callers may discard the scheduler afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	done := s.done
	s.mu.Unlock()

	s.send(command{kind: cmdStop}, done)
	<-done

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Scheduler) signal(kind cmdKind) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	done := s.done
	s.mu.Unlock()
	s.send(command{kind: kind}, done)
}

// send delivers a command unless the goroutine exits first.
func (s *Scheduler) send(cmd command, done chan struct{}) {
	select {
	case s.cmds <- cmd:
	case <-done:
	}
}

// run is the timing goroutine. It owns the cursor and the active sequence;
// when no sequence is playing it parks on the command channel. Only an
// explicit stop ends it.
func (s *Scheduler) run() {
	defer close(s.done)

	var (
		seq *Sequence
		idx int
	)

	for {
		if seq == nil {
			cmd := <-s.cmds
			switch cmd.kind {
			case cmdActivate:
				seq, idx = cmd.seq, 0
				s.transition(StatePlaying)
				s.emitStep(seq, idx)
			case cmdStop:
				s.transition(StateStopped)
				return
			}
			continue
		}

		out := s.waitStep(seq.Steps[idx])
		switch out.kind {
		case stepDone, stepSkipped:
			idx++
			if idx >= len(seq.Steps) {
				if !seq.Loop {
					debug.Log("sched", "sequence %q complete", seq.Name)
					s.transition(StateStopped)
					seq = nil
					continue
				}
				idx = 0
			}
			s.emitStep(seq, idx)
		case stepRedirect:
			seq, idx = out.seq, 0
			s.transition(StatePlaying)
			s.emitStep(seq, idx)
		case stepStop:
			s.transition(StateStopped)
			return
		}
	}
}

type outcomeKind int

const (
	stepDone outcomeKind = iota
	stepSkipped
	stepRedirect
	stepStop
)

type outcome struct {
	kind outcomeKind
	seq  *Sequence
}

func (s *Scheduler) waitStep(step Step) outcome {
	if step.Unit == UnitSeconds {
		return s.waitWall(time.Duration(step.Duration * float64(time.Second)))
	}
	return s.waitBeats(step)
}

// waitWall sleeps out the step duration, waking early for commands. Pause
// time is not charged against the step: remaining is captured before the
// command is handled, so a paused step resumes with exactly what was left.
func (s *Scheduler) waitWall(d time.Duration) outcome {
	remaining := d
	for {
		start := time.Now()
		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
			return outcome{kind: stepDone}
		case cmd := <-s.cmds:
			timer.Stop()
			remaining -= time.Since(start)
			if remaining < 0 {
				remaining = 0
			}
			if out, ended := s.handleCmd(cmd); ended {
				return out
			}
		}
	}
}

// waitBeats polls the clock tracker until enough beats have elapsed since
// the step baseline. If pulses stop arriving the wait simply never
// completes; the scheduler has no authority to fabricate tempo, and pause or
// stop remain available within one PollInterval.
func (s *Scheduler) waitBeats(step Step) outcome {
	baseline := s.clk.Position()
	required := step.Duration
	if step.Unit == UnitBars {
		required *= float64(baseline.BeatsPerBar)
	}

	for {
		if clock.ElapsedBeats(baseline, s.clk.Position()) >= required {
			return outcome{kind: stepDone}
		}
		timer := time.NewTimer(PollInterval)
		select {
		case <-timer.C:
		case cmd := <-s.cmds:
			timer.Stop()
			if out, ended := s.handleCmd(cmd); ended {
				return out
			}
		}
	}
}

// handleCmd processes a command arriving mid-wait. ended=true means the wait
// is over and out says how. A pause blocks here until resume, stop or a new
// activation; skip while paused is ignored (decided policy: the cursor only
// moves while playing).
func (s *Scheduler) handleCmd(cmd command) (out outcome, ended bool) {
	switch cmd.kind {
	case cmdStop:
		return outcome{kind: stepStop}, true
	case cmdActivate:
		return outcome{kind: stepRedirect, seq: cmd.seq}, true
	case cmdSkip:
		return outcome{kind: stepSkipped}, true
	case cmdPause:
		s.transition(StatePaused)
		for {
			c := <-s.cmds
			switch c.kind {
			case cmdResume:
				s.transition(StatePlaying)
				return outcome{}, false
			case cmdStop:
				return outcome{kind: stepStop}, true
			case cmdActivate:
				return outcome{kind: stepRedirect, seq: c.seq}, true
			}
		}
	default: // resume while playing
		return outcome{}, false
	}
}

func (s *Scheduler) transition(to State) {
	s.mu.Lock()
	changed := s.state != to
	s.state = to
	s.mu.Unlock()
	if changed {
		s.emit(Event{Kind: EventStateChanged, State: to})
	}
}

func (s *Scheduler) emitStep(seq *Sequence, idx int) {
	debug.Log("sched", "sequence %q step %d/%d", seq.Name, idx+1, len(seq.Steps))
	s.emit(Event{
		Kind:     EventStepChanged,
		State:    StatePlaying,
		Sequence: seq.Name,
		StepIdx:  idx,
		Step:     seq.Steps[idx],
	})
}

func (s *Scheduler) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		debug.Log("sched", "event dropped, consumer behind")
	}
}
