package action

import (
	"sync"

	"lightpilot/debug"
)

type ruleEntry struct {
	rule Rule
	seq  uint64 // registration order, higher is newer
}

// Matcher holds the rule set and answers "which single rule, if any, fires
// for this message". Rule mutation comes from the configuration path and is
// rare; matching runs on the protocol-receive goroutine for every
// non-realtime message, so reads take the shared side of an RWMutex.
type Matcher struct {
	mu      sync.RWMutex
	entries []ruleEntry
	seq     uint64
}

// NewMatcher creates an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Register inserts or replaces a rule by name. Re-registering refreshes the
// rule's recency for tie-breaking.
func (m *Matcher) Register(rule Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	for i := range m.entries {
		if m.entries[i].rule.Name == rule.Name {
			m.entries[i] = ruleEntry{rule: rule, seq: m.seq}
			debug.Log("action", "rule %q replaced (%s)", rule.Name, rule.Type)
			return
		}
	}
	m.entries = append(m.entries, ruleEntry{rule: rule, seq: m.seq})
	debug.Log("action", "rule %q registered (%s, status=0x%02X)", rule.Name, rule.Type, rule.Status)
}

// ReplaceAll swaps the whole rule set in one write, so concurrent matching
// never observes an empty or half-built set. Later entries are newer for
// tie-breaking; a duplicated name keeps its last occurrence.
func (m *Matcher) ReplaceAll(rules []Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]ruleEntry, 0, len(rules))
	for _, rule := range rules {
		m.seq++
		e := ruleEntry{rule: rule, seq: m.seq}
		replaced := false
		for i := range entries {
			if entries[i].rule.Name == rule.Name {
				entries[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, e)
		}
	}
	m.entries = entries
	debug.Log("action", "rule set replaced, %d rules", len(entries))
}

// Remove deletes a rule by name. Removing an unknown name is not an error.
func (m *Matcher) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].rule.Name == name {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			debug.Log("action", "rule %q removed", name)
			return
		}
	}
}

// Rules returns a snapshot of the current rule set in registration order.
func (m *Matcher) Rules() []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]Rule, len(m.entries))
	for i, e := range m.entries {
		rules[i] = e.rule
	}
	return rules
}

// Match returns the single best rule for the message, or ok=false. Realtime
// (clock-range) messages are filtered out before any rule is evaluated.
// Precedence: fewest wildcards wins; among equally specific rules the most
// recently registered wins.
func (m *Matcher) Match(msg Message) (Rule, bool) {
	if msg.IsRealtime() {
		return Rule{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *ruleEntry
	bestWild := 0
	for i := range m.entries {
		e := &m.entries[i]
		if !e.rule.Matches(msg) {
			continue
		}
		w := e.rule.wildcards()
		if best == nil || w < bestWild || (w == bestWild && e.seq > best.seq) {
			best = e
			bestWild = w
		}
	}
	if best == nil {
		return Rule{}, false
	}
	return best.rule, true
}
