package frecency

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fixedStore(now time.Time) *Store {
	s := NewStore()
	s.now = func() time.Time { return now }
	return s
}

func TestScore(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		runs int
		want float64
	}{
		{10 * time.Minute, 3, 12},
		{5 * time.Hour, 3, 6},
		{72 * time.Hour, 3, 3},
		{30 * 24 * time.Hour, 3, 1.5},
	}
	for _, tt := range tests {
		got := Score(HistoryEntry{RunCount: tt.runs, LastRunAt: now.Add(-tt.ago)}, now)
		if got != tt.want {
			t.Errorf("Score(%v ago, %d runs): got %v, want %v", tt.ago, tt.runs, got, tt.want)
		}
	}
}

func TestRecord_MergesIdenticalDispatches(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := fixedStore(now)

	s.Record("acme/web", ".github/workflows/smoke.yml", "main", map[string]string{"env": "qa"})
	s.Record("acme/web", ".github/workflows/smoke.yml", "main", map[string]string{"env": "qa"})
	s.Record("acme/web", ".github/workflows/smoke.yml", "main", map[string]string{"env": "prod"})
	s.Record("acme/web", ".github/workflows/smoke.yml", "qa", nil)

	entries := s.Entries["acme/web"]
	if len(entries) != 3 {
		t.Fatalf("entries: got %d, want 3", len(entries))
	}
	if entries[0].RunCount != 2 {
		t.Errorf("merged run count: got %d, want 2", entries[0].RunCount)
	}
}

func TestRecord_CopiesInputs(t *testing.T) {
	s := fixedStore(time.Now())
	in := map[string]string{"env": "qa"}
	s.Record("acme/web", "ci.yml", "main", in)
	in["env"] = "mutated"

	if got := s.Entries["acme/web"][0].Inputs["env"]; got != "qa" {
		t.Errorf("stored input: got %q, want %q", got, "qa")
	}
}

func TestTopForRepo(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := fixedStore(now)
	s.Entries["acme/web"] = []HistoryEntry{
		{Workflow: "a.yml", Branch: "main", RunCount: 10, LastRunAt: now.Add(-30 * 24 * time.Hour)},
		{Workflow: "b.yml", Branch: "main", RunCount: 2, LastRunAt: now.Add(-10 * time.Minute)},
		{Workflow: "a.yml", Branch: "qa", RunCount: 1, LastRunAt: now.Add(-2 * time.Hour)},
	}

	top := s.TopForRepo("acme/web", "", 2)
	if len(top) != 2 {
		t.Fatalf("got %d entries, want 2", len(top))
	}
	if top[0].Workflow != "b.yml" || top[1].Workflow != "a.yml" || top[1].Branch != "main" {
		t.Errorf("unexpected order: %+v", top)
	}

	filtered := s.TopForRepo("acme/web", "a.yml", 0)
	if len(filtered) != 2 {
		t.Errorf("filtered: got %d, want 2", len(filtered))
	}
	if len(s.TopForRepo("acme/api", "", 5)) != 0 {
		t.Error("unknown repo should have no entries")
	}
}

func TestFilterByWorkflow(t *testing.T) {
	entries := []HistoryEntry{
		{Workflow: ".github/workflows/smoke.yml"},
		{Workflow: ".github/workflows/regression.yml"},
		{Workflow: "smoke.yml"},
	}
	tests := []struct {
		workflow string
		want     int
	}{
		{"", 3},
		{"smoke.yml", 2},
		{".github/workflows/smoke.yml", 1},
		{"nightly.yml", 0},
	}
	for _, tt := range tests {
		if got := len(FilterByWorkflow(entries, tt.workflow)); got != tt.want {
			t.Errorf("FilterByWorkflow(%q): got %d, want %d", tt.workflow, got, tt.want)
		}
	}
}

func TestLoadSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	s.Record("acme/web", "ci.yml", "main", map[string]string{"suite": "smoke"})
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	entries := loaded.Entries["acme/web"]
	if len(entries) != 1 || entries[0].Inputs["suite"] != "smoke" || entries[0].RunCount != 1 {
		t.Errorf("loaded entries: %+v", entries)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for corrupt history")
	}
}
