package frecency

import (
	"path"
	"sort"
	"time"
)

// recencyWeights scale the run count by the age of the last dispatch. The
// first bucket the age falls in wins.
var recencyWeights = []struct {
	within time.Duration
	weight float64
}{
	{time.Hour, 4},
	{24 * time.Hour, 2},
	{7 * 24 * time.Hour, 1},
}

const staleWeight = 0.5

// Score weights an entry's run count by how recently it last ran.
func Score(entry HistoryEntry, now time.Time) float64 {
	age := now.Sub(entry.LastRunAt)
	weight := staleWeight
	for _, w := range recencyWeights {
		if age < w.within {
			weight = w.weight
			break
		}
	}
	return float64(entry.RunCount) * weight
}

// SortByFrecency sorts entries by score, highest first. Ties keep the most
// recent run first.
func SortByFrecency(entries []HistoryEntry, now time.Time) {
	sort.SliceStable(entries, func(i, j int) bool {
		si, sj := Score(entries[i], now), Score(entries[j], now)
		if si != sj {
			return si > sj
		}
		return entries[i].LastRunAt.After(entries[j].LastRunAt)
	})
}

// FilterByWorkflow returns entries for workflow, given either as the full
// path or as the bare file name. An empty workflow keeps everything.
func FilterByWorkflow(entries []HistoryEntry, workflow string) []HistoryEntry {
	if workflow == "" {
		return entries
	}
	var filtered []HistoryEntry
	for _, e := range entries {
		if e.Workflow == workflow || path.Base(e.Workflow) == workflow {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
