// Package exec runs the gh CLI for the few operations the REST client does
// not cover, such as downloading a single job's log.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// CommandExecutor runs an external command and returns its output.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

const waitDelay = 2 * time.Second

// Option configures a RealExecutor.
type Option func(*RealExecutor)

// WithGitHub points gh at host and authenticates it with token, so the CLI
// talks to the same instance as the REST client. Empty values are skipped.
func WithGitHub(host, token string) Option {
	return func(e *RealExecutor) {
		if host != "" {
			e.env = append(e.env, "GH_HOST="+host)
		}
		if token != "" {
			e.env = append(e.env, "GH_TOKEN="+token)
		}
	}
}

// WithTimeout bounds every command run.
func WithTimeout(d time.Duration) Option {
	return func(e *RealExecutor) { e.timeout = d }
}

// RealExecutor executes system commands.
type RealExecutor struct {
	env     []string
	timeout time.Duration
}

// NewRealExecutor creates an executor that runs real commands.
func NewRealExecutor(opts ...Option) *RealExecutor {
	e := &RealExecutor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the command, killing it when ctx is done or the timeout
// passes.
func (e *RealExecutor) Execute(ctx context.Context, name string, args ...string) (string, string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	// Children that outlive a killed gh keep the output pipes open.
	cmd.WaitDelay = waitDelay
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stdout.String(), stderr.String(), fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return stdout.String(), stderr.String(), err
	}
	return stdout.String(), stderr.String(), nil
}

// JobLogArgs are the gh arguments that print one job's log.
func JobLogArgs(repo string, runID, jobID int64) []string {
	return []string{"run", "view", fmt.Sprintf("%d", runID), "--log", "--job", fmt.Sprintf("%d", jobID), "-R", repo}
}
