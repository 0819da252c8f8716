// Package workflow reads workflow definition files and reports their
// dispatch trigger and declared inputs.
package workflow

import "sort"

// Definition is the part of a workflow file the dashboard cares about.
type Definition struct {
	Name     string
	Filename string
	// Dispatchable is true when the file declares a workflow_dispatch trigger.
	Dispatchable bool
	Inputs       map[string]Input
}

// WorkflowDispatch is the workflow_dispatch trigger block.
type WorkflowDispatch struct {
	Inputs map[string]Input `yaml:"inputs"`
}

// Input is one declared workflow_dispatch input.
type Input struct {
	Description string   `yaml:"description"`
	Required    bool     `yaml:"required"`
	Default     string   `yaml:"default"`
	Type        string   `yaml:"type"`
	Options     []string `yaml:"options"`
}

// InputType returns the declared type, defaulting to "string".
func (i Input) InputType() string {
	if i.Type == "" {
		return "string"
	}
	return i.Type
}

// InputNames returns the declared input names in sorted order.
func (d Definition) InputNames() []string {
	names := make([]string, 0, len(d.Inputs))
	for name := range d.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DisplayName returns the workflow name, or the filename when unnamed.
func (d Definition) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Filename
}
