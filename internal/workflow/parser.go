package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse parses workflow YAML content into a Definition.
func Parse(data []byte) (Definition, error) {
	var raw rawWorkflow
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Definition{}, fmt.Errorf("parse workflow: %w", err)
	}

	def := Definition{
		Name:         raw.Name,
		Dispatchable: raw.On.dispatchable,
		Inputs:       map[string]Input{},
	}
	if raw.On.dispatch != nil {
		for name, in := range raw.On.dispatch.Inputs {
			def.Inputs[name] = in
		}
	}
	return def, nil
}

// rawWorkflow handles the flexible "on" field parsing.
type rawWorkflow struct {
	Name string       `yaml:"name"`
	On   rawOnTrigger `yaml:"on"`
}

// rawOnTrigger handles "on" being either a string, list, or map.
type rawOnTrigger struct {
	dispatchable bool
	dispatch     *WorkflowDispatch
}

func (t *rawOnTrigger) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		t.dispatchable = node.Value == "workflow_dispatch"
	case yaml.SequenceNode:
		var triggers []string
		if err := node.Decode(&triggers); err == nil {
			for _, trigger := range triggers {
				if trigger == "workflow_dispatch" {
					t.dispatchable = true
					break
				}
			}
		}
	case yaml.MappingNode:
		// A bare "workflow_dispatch:" key has a null value, so presence is
		// checked on the key rather than the decoded block.
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value != "workflow_dispatch" {
				continue
			}
			t.dispatchable = true
			value := node.Content[i+1]
			if value.Kind == yaml.MappingNode {
				var wd WorkflowDispatch
				if err := value.Decode(&wd); err != nil {
					return err
				}
				t.dispatch = &wd
			}
		}
	}
	return nil
}
