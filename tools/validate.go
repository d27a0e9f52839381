package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks model-supplied tool input against each tool's schema before dispatch.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the input schema of every definition.
func NewValidator(defs []ToolDefinition) (*Validator, error) {
	c := jsonschema.NewCompiler()
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(defs))}
	for _, d := range defs {
		raw, err := json.Marshal(d.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: encode schema: %w", d.Name, err)
		}
		url := "https://todo-agent.local/tools/" + d.Name + ".json"
		if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("tool %s: add schema: %w", d.Name, err)
		}
		s, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("tool %s: compile schema: %w", d.Name, err)
		}
		v.schemas[d.Name] = s
	}
	return v, nil
}

// Validate reports whether input satisfies the schema registered for name.
// Empty input is treated as an empty object.
func (v *Validator) Validate(name string, input json.RawMessage) error {
	s, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("tool %s: no schema registered", name)
	}
	if len(bytes.TrimSpace(input)) == 0 {
		input = json.RawMessage("{}")
	}
	var doc any
	if err := json.Unmarshal(input, &doc); err != nil {
		return fmt.Errorf("tool %s: input is not valid JSON: %w", name, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("tool %s: invalid input: %w", name, err)
	}
	return nil
}
