package frecency

import (
	"maps"
	"sync"
	"time"
)

// Store holds dispatch history keyed by repository (org/repo). It is safe
// for concurrent use.
type Store struct {
	mu      sync.Mutex
	path    string
	now     func() time.Time
	Entries map[string][]HistoryEntry `json:"entries"`
}

// HistoryEntry is one distinct (workflow, branch, inputs) dispatch.
type HistoryEntry struct {
	Workflow  string            `json:"workflow"`
	Branch    string            `json:"branch"`
	Inputs    map[string]string `json:"inputs"`
	RunCount  int               `json:"run_count"`
	LastRunAt time.Time         `json:"last_run_at"`
}

// NewStore creates an empty in-memory Store. Save is a no-op until the
// store is bound to a path by Load.
func NewStore() *Store {
	return &Store{
		now:     time.Now,
		Entries: make(map[string][]HistoryEntry),
	}
}

func (e HistoryEntry) matches(workflow, branch string, inputs map[string]string) bool {
	if e.Workflow != workflow || e.Branch != branch || len(e.Inputs) != len(inputs) {
		return false
	}
	return maps.Equal(e.Inputs, inputs)
}
