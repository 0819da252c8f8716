package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// shownError is an error already rendered to the user; Execute only sets
// the exit code for it.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }

func (e *shownError) Unwrap() error { return e.err }

// parseInputs turns repeated key=value flags into workflow inputs. A later
// key overrides an earlier one.
func parseInputs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	inputs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid input %q: want key=value", pair)
		}
		inputs[k] = v
	}
	return inputs, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
