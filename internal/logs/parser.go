package logs

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/kyleking/gh-lazyqa/internal/github"
)

// ParseLogOutput splits raw log text into entries, stripping the runner's
// timestamp prefix and workflow command markers.
func ParseLogOutput(raw, step string) []LogEntry {
	var entries []LogEntry
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		ts, rest := splitTimestamp(line)
		level, content := detectLevel(rest)
		entries = append(entries, LogEntry{
			Timestamp: ts,
			Content:   content,
			Level:     level,
			Step:      step,
		})
	}
	return entries
}

func splitTimestamp(line string) (time.Time, string) {
	head, rest, ok := strings.Cut(line, " ")
	if !ok {
		return time.Time{}, line
	}
	ts, err := time.Parse(time.RFC3339Nano, head)
	if err != nil {
		return time.Time{}, line
	}
	return ts, rest
}

func detectLevel(line string) (LogLevel, string) {
	switch {
	case strings.HasPrefix(line, "##[error]"):
		return LogLevelError, strings.TrimPrefix(line, "##[error]")
	case strings.HasPrefix(line, "##[warning]"):
		return LogLevelWarning, strings.TrimPrefix(line, "##[warning]")
	case strings.HasPrefix(line, "##[debug]"):
		return LogLevelDebug, strings.TrimPrefix(line, "##[debug]")
	}

	lower := strings.ToLower(strings.TrimSpace(line))
	switch {
	case strings.HasPrefix(lower, "error:"), strings.HasPrefix(lower, "error "),
		strings.HasPrefix(lower, "fatal:"), strings.Contains(lower, "exception:"):
		return LogLevelError, line
	case strings.HasPrefix(lower, "warning:"), strings.HasPrefix(lower, "warn "):
		return LogLevelWarning, line
	}
	return LogLevelInfo, line
}

// ParseJobLog splits a job log into its steps using the runner's
// ##[group] markers. Groups beyond the job's known steps are dropped.
func ParseJobLog(job github.Job, rawLogs, workflow string, runID int64) []*StepLogs {
	var stepLogs []*StepLogs
	scanner := bufio.NewScanner(strings.NewReader(rawLogs))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	current := -1
	var lines []string
	flush := func() {
		if current < 0 || current >= len(job.Steps) {
			return
		}
		step := job.Steps[current]
		stepLogs = append(stepLogs, &StepLogs{
			StepIndex:  current,
			Workflow:   workflow,
			RunID:      runID,
			JobName:    job.Name,
			StepName:   step.Name,
			Status:     step.Status,
			Conclusion: step.Conclusion,
			Entries:    ParseLogOutput(strings.Join(lines, "\n"), step.Name),
			FetchedAt:  time.Now(),
		})
	}

	for scanner.Scan() {
		line := scanner.Text()
		// gh prefixes each line with "job<TAB>step<TAB>".
		if parts := strings.SplitN(line, "\t", 3); len(parts) == 3 {
			line = parts[2]
		}
		_, body := splitTimestamp(line)
		if strings.HasPrefix(body, "##[group]") {
			flush()
			current++
			lines = lines[:0]
		}
		lines = append(lines, line)
	}
	flush()
	return stepLogs
}

const maxSummaryLines = 5

// Summarize builds a failure summary from the failed steps of a run. It
// returns "" when no step failed.
func Summarize(steps []*StepLogs) string {
	var b strings.Builder
	for _, s := range steps {
		if s.Conclusion != github.ConclusionFailure {
			continue
		}
		errs := s.Errors()
		if len(errs) == 0 {
			fmt.Fprintf(&b, "Step %q failed in job %q\n", s.StepName, s.JobName)
			continue
		}
		for i, e := range errs {
			if i == maxSummaryLines {
				break
			}
			b.WriteString(strings.TrimSpace(e.Content))
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Failed step: %s (%s)\n", s.StepName, s.JobName)
	}
	return strings.TrimSpace(b.String())
}
