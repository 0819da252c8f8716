package patterns

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Record is one failure summary of a failed run.
type Record struct {
	Text     string `json:"text"`
	RunID    int64  `json:"run_id"`
	Workflow string `json:"workflow"`
}

// Example is a truncated excerpt captured for a pattern.
type Example struct {
	Text     string `json:"text"`
	Workflow string `json:"workflow"`
	RunID    int64  `json:"run_id"`
}

// Pattern is a named cluster of failures.
type Pattern struct {
	Name string `json:"name"`
	// Rule is the cascade rule that named the cluster.
	Rule      string    `json:"rule"`
	RunIDs    []int64   `json:"run_ids"`
	Examples  []Example `json:"examples"`
	Workflows []string  `json:"workflows"`
	// Records counts every record that landed in the cluster, including
	// repeats from the same run.
	Records int `json:"records"`
}

// Count is the number of distinct runs in the cluster, the ranking metric.
func (p Pattern) Count() int {
	return len(p.RunIDs)
}

// Report is the result of mining a batch.
type Report struct {
	Patterns   []Pattern `json:"patterns"`
	Total      int       `json:"total"`
	Classified int       `json:"classified"`
	Discarded  int       `json:"discarded"`
}

const (
	DefaultMaxExamples     = 5
	DefaultMaxExampleRunes = 200
)

// Miner clusters records. The zero value uses the defaults.
type Miner struct {
	MaxExamples     int
	MaxExampleRunes int
	// Rules overrides the classification cascade.
	Rules []Rule
}

// Mine clusters records with the default Miner.
func Mine(records []Record) []Pattern {
	return Miner{}.Mine(records)
}

// Mine clusters records and ranks clusters by distinct run count, ties
// broken by name, so the same input always yields the same output.
func (m Miner) Mine(records []Record) []Pattern {
	return m.Analyze(records).Patterns
}

type cluster struct {
	pattern   Pattern
	runs      map[int64]struct{}
	workflows map[string]struct{}
}

// Analyze clusters records and reports how many were discarded.
func (m Miner) Analyze(records []Record) Report {
	rules := m.Rules
	if rules == nil {
		rules = Rules()
	}
	maxExamples := m.MaxExamples
	if maxExamples <= 0 {
		maxExamples = DefaultMaxExamples
	}
	maxRunes := m.MaxExampleRunes
	if maxRunes <= 0 {
		maxRunes = DefaultMaxExampleRunes
	}

	report := Report{Total: len(records)}
	clusters := make(map[string]*cluster)
	var order []string

	for _, rec := range records {
		name, rule, ok := classify(rules, rec.Text)
		if !ok {
			report.Discarded++
			continue
		}
		report.Classified++

		key := strings.ToLower(name)
		c, exists := clusters[key]
		if !exists {
			c = &cluster{
				pattern:   Pattern{Name: name, Rule: rule},
				runs:      make(map[int64]struct{}),
				workflows: make(map[string]struct{}),
			}
			clusters[key] = c
			order = append(order, key)
		}

		c.pattern.Records++
		c.runs[rec.RunID] = struct{}{}
		if rec.Workflow != "" {
			c.workflows[rec.Workflow] = struct{}{}
		}
		if len(c.pattern.Examples) < maxExamples {
			ex := Example{Text: Truncate(strings.TrimSpace(rec.Text), maxRunes), Workflow: rec.Workflow, RunID: rec.RunID}
			if !hasExample(c.pattern.Examples, ex) {
				c.pattern.Examples = append(c.pattern.Examples, ex)
			}
		}
	}

	report.Patterns = make([]Pattern, 0, len(order))
	for _, key := range order {
		c := clusters[key]
		p := c.pattern
		p.RunIDs = make([]int64, 0, len(c.runs))
		for id := range c.runs {
			p.RunIDs = append(p.RunIDs, id)
		}
		sort.Slice(p.RunIDs, func(i, j int) bool { return p.RunIDs[i] < p.RunIDs[j] })
		p.Workflows = make([]string, 0, len(c.workflows))
		for w := range c.workflows {
			p.Workflows = append(p.Workflows, w)
		}
		sort.Strings(p.Workflows)
		report.Patterns = append(report.Patterns, p)
	}

	sort.SliceStable(report.Patterns, func(i, j int) bool {
		a, b := report.Patterns[i], report.Patterns[j]
		if a.Count() != b.Count() {
			return a.Count() > b.Count()
		}
		return a.Name < b.Name
	})
	return report
}

// Top returns at most n patterns. n <= 0 returns all of them.
func Top(patterns []Pattern, n int) []Pattern {
	if n <= 0 || n >= len(patterns) {
		return patterns
	}
	return patterns[:n]
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

func hasExample(examples []Example, ex Example) bool {
	for _, e := range examples {
		if e.Text == ex.Text && e.Workflow == ex.Workflow {
			return true
		}
	}
	return false
}
