package action

import (
	"sync"

	"lightpilot/debug"
)

// Callback runs when a rule of its registered Type matches. It is invoked
// synchronously on the protocol-receive goroutine and must not block.
type Callback func(Rule, Message)

// Dispatcher maps action types to callbacks. It knows nothing about what a
// callback does; matching and execution stay decoupled.
type Dispatcher struct {
	mu        sync.RWMutex
	callbacks map[Type]Callback
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{callbacks: make(map[Type]Callback)}
}

// RegisterCallback binds a callback to an action type, silently replacing
// any previous binding.
func (d *Dispatcher) RegisterCallback(t Type, cb Callback) {
	d.mu.Lock()
	d.callbacks[t] = cb
	d.mu.Unlock()
}

// Dispatch invokes the callback bound to the rule's type. A missing binding
// logs and no-ops: a stale configuration rule referencing a removed action
// type must not break message processing. A panicking callback is recovered
// and logged for the same reason.
func (d *Dispatcher) Dispatch(rule Rule, msg Message) {
	d.mu.RLock()
	cb := d.callbacks[rule.Type]
	d.mu.RUnlock()

	if cb == nil {
		debug.Log("action", "no callback for type %s (rule %q), skipping", rule.Type, rule.Name)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			debug.Log("action", "callback for rule %q panicked: %v", rule.Name, r)
		}
	}()
	cb(rule, msg)
}
