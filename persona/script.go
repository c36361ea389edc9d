package persona

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ToolCall is one scripted tool invocation. Input is the raw argument
// object; the mock provider serializes it to JSON on the wire.
type ToolCall struct {
	Name  string         `yaml:"name"`
	Input map[string]any `yaml:"input"`
}

// Step is one scripted assistant turn: the reply text, the quick-reply
// options offered to the user, the tool calls to emit, and an optional
// overlay commentary.
type Step struct {
	Reply      string     `yaml:"reply"`
	Options    []string   `yaml:"options,omitempty"`
	ToolCalls  []ToolCall `yaml:"tool_calls,omitempty"`
	Commentary string     `yaml:"commentary,omitempty"`
}

// Script is a full scripted conversation for one persona.
type Script struct {
	Persona Key    `yaml:"persona"`
	Steps   []Step `yaml:"steps"`
}

// ParseScript decodes a YAML script document.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if s.Persona == "" {
		return nil, fmt.Errorf("script has no persona key")
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("script for %s has no steps", s.Persona)
	}
	return &s, nil
}

// StepAt selects the step for the given count of prior user turns,
// clamped to the last step so an over-long conversation keeps replaying
// the script's ending instead of failing.
func (s *Script) StepAt(userTurns int) Step {
	i := userTurns
	if i < 0 {
		i = 0
	}
	if i >= len(s.Steps) {
		i = len(s.Steps) - 1
	}
	return s.Steps[i]
}
