package pilot

import (
	"fmt"
	"sync"
	"time"

	"lightpilot/action"
	"lightpilot/clock"
	"lightpilot/config"
	"lightpilot/debug"
	"lightpilot/midi"
	"lightpilot/sequence"
)

// EventKind distinguishes pilot events.
type EventKind int

const (
	EventStepChanged EventKind = iota
	EventStateChanged
	EventActionTriggered
)

// Event is what the pilot publishes to its consumer (the TUI, or anything
// else draining Events). Consumers marshal onto their own goroutine; the
// pilot never waits for them.
type Event struct {
	Kind     EventKind
	State    sequence.State
	Sequence string
	StepIdx  int
	Action   string // rule name, for EventActionTriggered
}

// LightOutput is the outbound side of the light software transport.
type LightOutput interface {
	SetScenes([]sequence.Scene) error
	Clear() error
}

type nopOutput struct{}

func (nopOutput) SetScenes([]sequence.Scene) error { return nil }
func (nopOutput) Clear() error                     { return nil }

// Pilot is the composition root: it owns the clock tracker, the action
// matcher and dispatcher, and the sequence scheduler, and routes the
// transport's input stream between them.
type Pilot struct {
	tracker    *clock.Tracker
	matcher    *action.Matcher
	dispatcher *action.Dispatcher
	scheduler  *sequence.Scheduler
	output     LightOutput

	mu      sync.RWMutex
	project *config.Project

	events chan Event
	done   chan struct{}
	once   sync.Once
}

// New builds a pilot from a loaded project. A nil output disables lighting
// commands (useful headless and in tests).
func New(tracker *clock.Tracker, output LightOutput, project *config.Project) *Pilot {
	if output == nil {
		output = nopOutput{}
	}
	if project == nil {
		project = &config.Project{}
	}
	p := &Pilot{
		tracker:    tracker,
		matcher:    action.NewMatcher(),
		dispatcher: action.NewDispatcher(),
		scheduler:  sequence.NewScheduler(tracker),
		output:     output,
		project:    project,
		events:     make(chan Event, 32),
		done:       make(chan struct{}),
	}

	for _, rule := range project.Rules {
		p.matcher.Register(rule)
	}
	p.registerBuiltinActions()
	go p.forward()
	return p
}

// registerBuiltinActions binds the closed action-type set to pilot
// operations. Callbacks run on the protocol-receive goroutine; each one
// either flips in-memory state or hands a command to the timing goroutine,
// bounded by the scheduler's poll interval.
func (p *Pilot) registerBuiltinActions() {
	p.dispatcher.RegisterCallback(action.TypePhraseAlign, func(r action.Rule, _ action.Message) {
		debug.Log("pilot", "rule %q: phrase align", r.Name)
		p.tracker.Align()
	})
	p.dispatcher.RegisterCallback(action.TypeSequenceSwitch, func(r action.Rule, _ action.Message) {
		if err := p.ActivateSequence(r.Param); err != nil {
			debug.Log("pilot", "rule %q: %v", r.Name, err)
		}
	})
	p.dispatcher.RegisterCallback(action.TypePlaybackToggle, func(r action.Rule, _ action.Message) {
		debug.Log("pilot", "rule %q: playback toggle", r.Name)
		p.TogglePlayback()
	})
}

// Handlers wires the pilot to a midi.Watcher.
func (p *Pilot) Handlers() midi.Handlers {
	return midi.Handlers{
		OnPulse:   p.OnPulse,
		OnReset:   p.tracker.Reset,
		OnMessage: p.HandleMessage,
	}
}

// OnPulse feeds one clock tick to the tracker.
func (p *Pilot) OnPulse(ts time.Time) {
	p.tracker.OnPulse(ts)
}

// HandleMessage runs one inbound message through match and dispatch. At
// most one rule fires; clock-range messages never match.
func (p *Pilot) HandleMessage(m action.Message) {
	rule, ok := p.matcher.Match(m)
	if !ok {
		return
	}
	p.dispatcher.Dispatch(rule, m)
	p.emit(Event{Kind: EventActionTriggered, Action: rule.Name})
}

// Events returns the pilot's notification channel.
func (p *Pilot) Events() <-chan Event {
	return p.events
}

// Position returns the tracker's current snapshot.
func (p *Pilot) Position() clock.Position {
	return p.tracker.Position()
}

// PhraseProgress returns progress through the current phrase in [0, 1).
func (p *Pilot) PhraseProgress() float64 {
	return p.tracker.PhraseProgress()
}

// Align snaps the clock phase to zero (manual tap).
func (p *Pilot) Align() {
	p.tracker.Align()
}

// State returns the scheduler's playback state.
func (p *Pilot) State() sequence.State {
	return p.scheduler.State()
}

// Sequences lists the project's sequence names.
func (p *Pilot) Sequences() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.project.Sequences))
	for _, s := range p.project.Sequences {
		names = append(names, s.Name)
	}
	return names
}

// Rules returns the current rule set.
func (p *Pilot) Rules() []action.Rule {
	return p.matcher.Rules()
}

// ActivateSequence starts the named sequence from step zero.
func (p *Pilot) ActivateSequence(name string) error {
	p.mu.RLock()
	seq := p.project.FindSequence(name)
	p.mu.RUnlock()
	if seq == nil {
		return fmt.Errorf("unknown sequence %q", name)
	}
	return p.scheduler.Activate(seq)
}

// Pause suspends playback.
func (p *Pilot) Pause() { p.scheduler.Pause() }

// Resume continues paused playback.
func (p *Pilot) Resume() { p.scheduler.Resume() }

// Skip advances to the next step.
func (p *Pilot) Skip() { p.scheduler.Skip() }

// TogglePlayback pauses a playing scheduler and resumes a paused one.
func (p *Pilot) TogglePlayback() {
	switch p.scheduler.State() {
	case sequence.StatePlaying:
		p.scheduler.Pause()
	case sequence.StatePaused:
		p.scheduler.Resume()
	}
}

// Stop halts playback and releases all scenes.
func (p *Pilot) Stop() {
	p.scheduler.Stop()
}

// Reload swaps in a freshly loaded project: the rule set is replaced
// wholesale and new sequence definitions take effect on the next activate
// (a playing sequence keeps its current steps, per the swap-not-mutate
// contract).
func (p *Pilot) Reload(project *config.Project) {
	if project == nil {
		return
	}
	p.mu.Lock()
	p.project = project
	p.mu.Unlock()

	p.matcher.ReplaceAll(project.Rules)
	debug.Log("pilot", "project reloaded: %d rule(s), %d sequence(s)",
		len(project.Rules), len(project.Sequences))
}

// Close stops playback, joins the timing goroutine and shuts down the event
// forwarder.
func (p *Pilot) Close() {
	p.once.Do(func() {
		p.scheduler.Stop()
		close(p.done)
		if err := p.output.Clear(); err != nil {
			debug.Log("pilot", "clear on close: %v", err)
		}
	})
}

// forward consumes scheduler events, applies lighting state on step entry,
// and republishes everything on the pilot's own channel.
func (p *Pilot) forward() {
	for {
		select {
		case <-p.done:
			return
		case ev := <-p.scheduler.Events():
			switch ev.Kind {
			case sequence.EventStepChanged:
				if err := p.output.SetScenes(ev.Step.Scenes); err != nil {
					debug.Log("pilot", "set scenes for %q step %d: %v", ev.Sequence, ev.StepIdx, err)
				}
				p.emit(Event{
					Kind:     EventStepChanged,
					State:    ev.State,
					Sequence: ev.Sequence,
					StepIdx:  ev.StepIdx,
				})
			case sequence.EventStateChanged:
				if ev.State == sequence.StateStopped {
					if err := p.output.Clear(); err != nil {
						debug.Log("pilot", "clear scenes: %v", err)
					}
				}
				p.emit(Event{Kind: EventStateChanged, State: ev.State})
			}
		}
	}
}

func (p *Pilot) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		debug.Log("pilot", "event dropped, consumer behind")
	}
}
