// Package inputs restricts dispatch inputs to what a workflow declares.
package inputs

import (
	"sort"

	"go.uber.org/zap"

	"github.com/kyleking/gh-lazyqa/internal/workflow"
)

// Filter returns the subset of requested whose keys appear in declared.
// An empty declared schema always yields an empty map, since GitHub rejects
// any input a workflow does not declare. The result is never nil and
// requested is never modified.
func Filter(declared []string, requested map[string]string, logger *zap.Logger) map[string]string {
	if logger == nil {
		logger = zap.NewNop()
	}

	out := make(map[string]string, len(declared))
	if len(declared) == 0 {
		if len(requested) > 0 {
			logger.Warn("workflow declares no inputs, dropping all requested inputs",
				zap.Strings("dropped", sortedKeys(requested)))
		}
		return out
	}

	allowed := make(map[string]struct{}, len(declared))
	for _, name := range declared {
		allowed[name] = struct{}{}
	}

	var dropped []string
	for k, v := range requested {
		if _, ok := allowed[k]; ok {
			out[k] = v
			continue
		}
		dropped = append(dropped, k)
	}

	if len(dropped) > 0 {
		sort.Strings(dropped)
		logger.Debug("dropping undeclared inputs", zap.Strings("dropped", dropped))
	}
	return out
}

// Declared returns the sorted input names a definition declares.
func Declared(def workflow.Definition) []string {
	return def.InputNames()
}

// Dropped returns the sorted keys of requested that Filter would discard.
func Dropped(declared []string, requested map[string]string) []string {
	kept := Filter(declared, requested, nil)
	var out []string
	for k := range requested {
		if _, ok := kept[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
