package dispatch

import "strings"

// DefaultEnvironmentLabels are words operators use for a target
// environment. They are never branch names.
var DefaultEnvironmentLabels = []string{
	"prod", "production", "qa", "staging", "stage", "dev", "development", "uat", "sandbox",
}

// SelectRef picks the git ref to dispatch on. An empty requested branch,
// or one that is really an environment label, falls back to defaultBranch.
func SelectRef(requested, defaultBranch string, environmentLabels []string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return defaultBranch
	}
	for _, label := range environmentLabels {
		if strings.EqualFold(requested, label) {
			return defaultBranch
		}
	}
	return requested
}
