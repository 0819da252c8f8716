package exec

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockExecutor answers commands from registered responses and remembers
// every call. Responses are matched in registration order; a "*" argument
// matches any single argument.
type MockExecutor struct {
	mu       sync.Mutex
	rules    []mockRule
	fallback *CommandResult
	executed []ExecutedCommand
}

type mockRule struct {
	pattern []string
	result  CommandResult
}

// CommandResult is a canned command response.
type CommandResult struct {
	Stdout string
	Stderr string
	Error  error
}

// ExecutedCommand is one recorded call.
type ExecutedCommand struct {
	Name string
	Args []string
}

// String renders the call the way a shell would show it.
func (c ExecutedCommand) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// NewMockExecutor creates a mock with no responses.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// Execute returns the first matching response, the fallback, or an error.
func (m *MockExecutor) Execute(_ context.Context, name string, args ...string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := append([]string{name}, args...)
	m.executed = append(m.executed, ExecutedCommand{Name: name, Args: append([]string(nil), args...)})

	for _, r := range m.rules {
		if r.matches(call) {
			return r.result.Stdout, r.result.Stderr, r.result.Error
		}
	}
	if m.fallback != nil {
		return m.fallback.Stdout, m.fallback.Stderr, m.fallback.Error
	}
	return "", "", fmt.Errorf("mock executor: no result configured for command: %s", strings.Join(call, " "))
}

// AddCommand registers a response for name with args.
func (m *MockExecutor) AddCommand(name string, args []string, stdout, stderr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{
		pattern: append([]string{name}, args...),
		result:  CommandResult{Stdout: stdout, Stderr: stderr, Error: err},
	})
}

// SetFallback answers every command that matches nothing else.
func (m *MockExecutor) SetFallback(stdout, stderr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &CommandResult{Stdout: stdout, Stderr: stderr, Error: err}
}

// AddJobLog registers the log gh prints for one job of a run.
func (m *MockExecutor) AddJobLog(repo string, runID, jobID int64, logOutput string) {
	m.AddCommand("gh", JobLogArgs(repo, runID, jobID), logOutput, "", nil)
}

// AddJobLogError registers a failing job log download, such as an expired
// log.
func (m *MockExecutor) AddJobLogError(repo string, runID, jobID int64, stderr string, err error) {
	m.AddCommand("gh", JobLogArgs(repo, runID, jobID), "", stderr, err)
}

// Executed returns a copy of the recorded calls.
func (m *MockExecutor) Executed() []ExecutedCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedCommand(nil), m.executed...)
}

func (r mockRule) matches(call []string) bool {
	if len(r.pattern) != len(call) {
		return false
	}
	for i, p := range r.pattern {
		if p != "*" && p != call[i] {
			return false
		}
	}
	return true
}
