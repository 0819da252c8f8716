// Package store persists LLM failure summaries keyed by repository and run.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when no summary exists for a run.
var ErrNotFound = errors.New("summary not found")

// Summary is the stored failure analysis of one run.
type Summary struct {
	Repo      string    `json:"repo"`
	RunID     int64     `json:"run_id"`
	Workflow  string    `json:"workflow"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SummaryStore reads and writes failure summaries.
type SummaryStore interface {
	// Save inserts or replaces the summary for (Repo, RunID).
	Save(ctx context.Context, s Summary) error
	Get(ctx context.Context, repo string, runID int64) (Summary, error)
	// ListSince returns summaries created at or after since, newest first.
	ListSince(ctx context.Context, repo string, since time.Time, limit int) ([]Summary, error)
}

type memoryKey struct {
	repo  string
	runID int64
}

// MemoryStore is an in-process SummaryStore.
type MemoryStore struct {
	mu        sync.RWMutex
	summaries map[memoryKey]Summary
	now       func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{summaries: make(map[memoryKey]Summary), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s Summary) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[memoryKey{s.Repo, s.RunID}] = s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, repo string, runID int64) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.summaries[memoryKey{repo, runID}]
	if !ok {
		return Summary{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) ListSince(_ context.Context, repo string, since time.Time, limit int) ([]Summary, error) {
	m.mu.RLock()
	var out []Summary
	for k, s := range m.summaries {
		if k.repo == repo && !s.CreatedAt.Before(since) {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].RunID > out[j].RunID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
