package logs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kyleking/gh-lazyqa/internal/exec"
	"github.com/kyleking/gh-lazyqa/internal/github"
)

// JobLister returns the jobs of a run.
type JobLister interface {
	GetWorkflowRunJobs(ctx context.Context, repo string, runID int64) ([]github.Job, error)
}

// Fetcher downloads job logs with the gh CLI.
type Fetcher struct {
	jobs   JobLister
	runner exec.CommandExecutor
	logger *zap.Logger
}

// NewFetcher creates a fetcher. A nil runner uses the real gh binary.
func NewFetcher(jobs JobLister, runner exec.CommandExecutor, logger *zap.Logger) *Fetcher {
	if runner == nil {
		runner = exec.NewRealExecutor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{jobs: jobs, runner: runner, logger: logger}
}

// FetchFailedSteps returns the step logs of every failed job of a run. A
// job whose log cannot be downloaded yields steps carrying the error.
func (f *Fetcher) FetchFailedSteps(ctx context.Context, repo string, runID int64, workflow string) ([]*StepLogs, error) {
	jobs, err := f.jobs.GetWorkflowRunJobs(ctx, repo, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jobs: %w", err)
	}

	var all []*StepLogs
	for _, job := range jobs {
		if !job.Failed() {
			continue
		}
		raw, err := f.jobLog(ctx, repo, runID, job.ID)
		if err != nil {
			f.logger.Debug("job log unavailable",
				zap.Int64("run_id", runID), zap.Int64("job_id", job.ID), zap.Error(err))
			for i, step := range job.Steps {
				all = append(all, &StepLogs{
					StepIndex:  i,
					Workflow:   workflow,
					RunID:      runID,
					JobName:    job.Name,
					StepName:   step.Name,
					Status:     step.Status,
					Conclusion: step.Conclusion,
					Error:      err,
					FetchedAt:  time.Now(),
				})
			}
			continue
		}
		all = append(all, ParseJobLog(job, raw, workflow, runID)...)
	}
	return all, nil
}

// Summary fetches a run's failed logs and condenses them into a summary.
func (f *Fetcher) Summary(ctx context.Context, repo string, runID int64, workflow string) (string, error) {
	steps, err := f.FetchFailedSteps(ctx, repo, runID, workflow)
	if err != nil {
		return "", err
	}
	return Summarize(steps), nil
}

func (f *Fetcher) jobLog(ctx context.Context, repo string, runID, jobID int64) (string, error) {
	stdout, stderr, err := f.runner.Execute(ctx, "gh", exec.JobLogArgs(repo, runID, jobID)...)
	if err != nil {
		return "", fmt.Errorf("gh command failed: %w (stderr: %s)", err, stderr)
	}
	return stdout, nil
}

// CheckGHCLIAvailable checks if gh CLI is installed and authenticated.
func CheckGHCLIAvailable(ctx context.Context, runner exec.CommandExecutor) error {
	if _, _, err := runner.Execute(ctx, "gh", "--version"); err != nil {
		return fmt.Errorf("gh CLI not found: %w (install from https://cli.github.com)", err)
	}
	if _, _, err := runner.Execute(ctx, "gh", "auth", "status"); err != nil {
		return fmt.Errorf("gh CLI not authenticated: %w (run 'gh auth login')", err)
	}
	return nil
}
