// Package resolve maps loosely typed workflow references onto a single
// workflow from a repository's catalog.
package resolve

import "strconv"

// State is the enablement state of a workflow.
type State string

const (
	StateActive   State = "active"
	StateDisabled State = "disabled"
)

// Workflow is one automatable CI workflow in a catalog.
type Workflow struct {
	ID             int64
	Name           string
	Path           string
	State          State
	DeclaredInputs []string
}

// IsDisabled reports whether the workflow exists but is switched off.
func (w Workflow) IsDisabled() bool {
	return w.State == StateDisabled
}

func (w Workflow) idString() string {
	return strconv.FormatInt(w.ID, 10)
}

// Tier identifies the matching strategy that produced a resolution.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierNormalized
	TierTokenOverlap
	TierAlias
	TierKeyword
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierNormalized:
		return "normalized"
	case TierTokenOverlap:
		return "token-overlap"
	case TierAlias:
		return "alias"
	case TierKeyword:
		return "keyword"
	default:
		return "none"
	}
}

// Result is a successful resolution.
type Result struct {
	Workflow Workflow
	Tier     Tier
	// Rejected lists candidates vetoed by the exclusion guard on the way.
	Rejected []string
	Disabled bool
}

// ExclusiveGroup is a set of suite keywords that must never be confused
// with one another, such as "regression" and "smoke".
type ExclusiveGroup []string

// Catalog is the set of workflows a repository exposes.
type Catalog struct {
	Workflows []Workflow
	// Partial is set when the listing ended before every page was read.
	Partial bool
}

// Names returns the display names of every workflow in the catalog.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.Workflows))
	for _, w := range c.Workflows {
		names = append(names, w.Name)
	}
	return names
}
