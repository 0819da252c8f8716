// Package logs derives failure summaries from raw GitHub Actions job logs
// for runs that have no stored summary.
package logs

import "time"

// LogLevel is the severity detected for a log line.
type LogLevel int

const (
	LogLevelInfo LogLevel = iota
	LogLevelDebug
	LogLevelWarning
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "debug"
	case LogLevelWarning:
		return "warning"
	case LogLevelError:
		return "error"
	default:
		return "info"
	}
}

// LogEntry is one line of a step log.
type LogEntry struct {
	Timestamp time.Time
	Content   string
	Level     LogLevel
	Step      string
}

// StepLogs holds the parsed log of one step of a job.
type StepLogs struct {
	StepIndex  int
	Workflow   string
	RunID      int64
	JobName    string
	StepName   string
	Status     string
	Conclusion string
	Entries    []LogEntry
	Error      error
	FetchedAt  time.Time
}

// Errors returns the error-level entries of the step.
func (s *StepLogs) Errors() []LogEntry {
	var out []LogEntry
	for _, e := range s.Entries {
		if e.Level == LogLevelError {
			out = append(out, e)
		}
	}
	return out
}
