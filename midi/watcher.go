package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"lightpilot/action"
	"lightpilot/debug"
)

// Handlers receive the decoded input stream. All of them are invoked on the
// MIDI receive goroutine and must not block.
type Handlers struct {
	OnPulse   func(time.Time)      // one MIDI clock tick
	OnReset   func()               // start/continue/stop: alignment is void
	OnMessage func(action.Message) // everything else, action-eligible
}

// Watcher keeps a connection to the MIDI input whose port name contains the
// configured keyword, reconnecting when the device disappears or reappears.
type Watcher struct {
	keyword  string
	handlers Handlers
	pollRate time.Duration

	mu        sync.Mutex
	connected bool
	portName  string
	inPort    drivers.In
	stopFn    func()
}

// NewWatcher creates a watcher; keyword is matched case-insensitively
// against input port names.
func NewWatcher(keyword string, h Handlers) *Watcher {
	return &Watcher{
		keyword:  strings.ToLower(keyword),
		handlers: h,
		pollRate: time.Second,
	}
}

// PortName returns the connected input port name, or "" when disconnected.
func (w *Watcher) PortName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return ""
	}
	return w.portName
}

// Run scans for the clock device until ctx is cancelled (blocking - run in
// goroutine).
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	w.scan()

	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

// Close disconnects from the current port.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeConn()
}

func (w *Watcher) scan() {
	w.mu.Lock()
	defer w.mu.Unlock()

	ins := gomidi.GetInPorts()

	if w.connected {
		for _, in := range ins {
			if in.String() == w.portName {
				return // still present
			}
		}
		debug.Log("midi", "clock device %q disappeared", w.portName)
		w.closeConn()
		return
	}

	for i, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), w.keyword) {
			if err := w.openPort(ins[i]); err != nil {
				debug.Log("midi", "connect to %q failed: %v", in.String(), err)
			}
			return
		}
	}
}

// openPort connects and starts the listener; callers hold w.mu.
func (w *Watcher) openPort(in drivers.In) error {
	if err := in.Open(); err != nil {
		return err
	}
	name := in.String()

	stop, err := gomidi.ListenTo(in, w.receive,
		gomidi.UseTimeCode(), // rtmidi filters realtime ticks unless asked
		gomidi.HandleError(func(err error) {
			debug.Log("midi", "listener error on %q: %v", name, err)
		}))
	if err != nil {
		in.Close()
		return err
	}

	w.inPort = in
	w.stopFn = stop
	w.connected = true
	w.portName = name
	debug.Log("midi", "listening for clock on %q", name)
	return nil
}

// receive decodes one inbound message. Clock-range traffic is routed to the
// tracker handlers and never reaches the action path.
func (w *Watcher) receive(msg gomidi.Message, _ int32) {
	switch {
	case msg.Is(gomidi.TimingClockMsg):
		if w.handlers.OnPulse != nil {
			w.handlers.OnPulse(time.Now())
		}
	case msg.Is(gomidi.StartMsg), msg.Is(gomidi.ContinueMsg), msg.Is(gomidi.StopMsg):
		debug.Log("midi", "transport message %s, clearing alignment", msg)
		if w.handlers.OnReset != nil {
			w.handlers.OnReset()
		}
	default:
		raw := msg.Bytes()
		if len(raw) == 0 {
			return // malformed, ignore
		}
		m := action.Message{Status: raw[0]}
		if len(raw) > 1 {
			m.Data1 = raw[1]
		}
		if len(raw) > 2 {
			m.Data2 = raw[2]
		}
		if w.handlers.OnMessage != nil {
			w.handlers.OnMessage(m)
		}
	}
}

func (w *Watcher) closeConn() {
	if w.stopFn != nil {
		w.stopFn()
		w.stopFn = nil
	}
	if w.inPort != nil {
		w.inPort.Close()
		w.inPort = nil
	}
	w.connected = false
	w.portName = ""
}
