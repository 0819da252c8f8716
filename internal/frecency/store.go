package frecency

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
)

// DefaultPath is the history file under the user cache directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(dir, "gh-lazyqa", "history.json"), nil
}

// Load reads the store at path. A missing file yields an empty store bound
// to path.
func Load(path string) (*Store, error) {
	s := NewStore()
	s.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", path, err)
	}
	if s.Entries == nil {
		s.Entries = make(map[string][]HistoryEntry)
	}
	return s, nil
}

// Save writes the store to the path it was loaded from.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Record counts a dispatch, merging it with an identical earlier one.
func (s *Store) Record(repo, workflow, branch string, inputs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entries := s.Entries[repo]
	for i := range entries {
		if entries[i].matches(workflow, branch, inputs) {
			entries[i].RunCount++
			entries[i].LastRunAt = now
			return
		}
	}
	s.Entries[repo] = append(entries, HistoryEntry{
		Workflow:  workflow,
		Branch:    branch,
		Inputs:    maps.Clone(inputs),
		RunCount:  1,
		LastRunAt: now,
	})
}

// TopForRepo returns up to limit entries for repo ranked by frecency,
// optionally restricted to one workflow. limit <= 0 returns all.
func (s *Store) TopForRepo(repo, workflow string, limit int) []HistoryEntry {
	s.mu.Lock()
	entries := append([]HistoryEntry(nil), FilterByWorkflow(s.Entries[repo], workflow)...)
	now := s.now()
	s.mu.Unlock()

	SortByFrecency(entries, now)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
