package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"lightpilot/action"
	"lightpilot/debug"
	"lightpilot/sequence"
)

// RuleDoc is the on-disk form of an action rule. Status is required (a rule
// must constrain the message class); data1/data2 are wildcards when null.
type RuleDoc struct {
	Name   string `json:"name"`
	Action string `json:"action"`
	Status *uint8 `json:"status"`
	Data1  *uint8 `json:"data1"`
	Data2  *uint8 `json:"data2"`
	Param  string `json:"param,omitempty"`
}

// ProjectDoc is ~/.config/lightpilot/project.json: the externally owned
// document holding rules and sequences.
type ProjectDoc struct {
	Rules     []RuleDoc           `json:"rules"`
	Sequences []sequence.Sequence `json:"sequences"`
}

// Project is the loaded, validated in-memory form.
type Project struct {
	Rules     []action.Rule
	Sequences []sequence.Sequence
}

// FindSequence returns the named sequence, or nil.
func (p *Project) FindSequence(name string) *sequence.Sequence {
	for i := range p.Sequences {
		if p.Sequences[i].Name == name {
			return &p.Sequences[i]
		}
	}
	return nil
}

// ProjectPath returns the full path to project.json.
func ProjectPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "project.json"), nil
}

// LoadProject reads the project document. A missing file yields an empty
// project. Inconsistent entries are logged and skipped; the rest loads
// normally.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Project{}, nil
		}
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var doc ProjectDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse project file: %w", err)
	}

	p := &Project{}
	for _, rd := range doc.Rules {
		rule, ok := parseRule(rd)
		if !ok {
			continue
		}
		p.Rules = append(p.Rules, rule)
	}
	for _, seq := range doc.Sequences {
		if seq.Name == "" {
			debug.Log("config", "unnamed sequence skipped")
			continue
		}
		if len(seq.Steps) == 0 {
			debug.Log("config", "sequence %q has no steps, skipped", seq.Name)
			continue
		}
		valid := true
		for i, step := range seq.Steps {
			if step.Duration <= 0 {
				debug.Log("config", "sequence %q step %d has non-positive duration, skipped", seq.Name, i)
				valid = false
				break
			}
		}
		if valid {
			p.Sequences = append(p.Sequences, seq)
		}
	}
	return p, nil
}

func parseRule(rd RuleDoc) (action.Rule, bool) {
	if rd.Name == "" {
		debug.Log("config", "unnamed rule skipped")
		return action.Rule{}, false
	}
	if rd.Status == nil {
		debug.Log("config", "rule %q has no status selector, skipped", rd.Name)
		return action.Rule{}, false
	}
	if *rd.Status >= action.RealtimeMin {
		debug.Log("config", "rule %q matches the reserved clock range, skipped", rd.Name)
		return action.Rule{}, false
	}
	typ, ok := action.ParseType(rd.Action)
	if !ok {
		// Kept, not dropped: the dispatcher degrades unknown types to a
		// logged no-op, so a rule from a newer config version survives.
		debug.Log("config", "rule %q has unknown action type %q", rd.Name, rd.Action)
	}
	return action.Rule{
		Name:   rd.Name,
		Type:   typ,
		Status: *rd.Status,
		Data1:  rd.Data1,
		Data2:  rd.Data2,
		Param:  rd.Param,
	}, true
}

// SaveProject serializes the project back to disk. The write goes through a
// temp file and rename so a crash cannot leave a half-written document.
func SaveProject(path string, p *Project) error {
	doc := ProjectDoc{Sequences: p.Sequences}
	for _, rule := range p.Rules {
		status := rule.Status
		doc.Rules = append(doc.Rules, RuleDoc{
			Name:   rule.Name,
			Action: rule.Type.String(),
			Status: &status,
			Data1:  rule.Data1,
			Data2:  rule.Data2,
			Param:  rule.Param,
		})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
