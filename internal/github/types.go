package github

import (
	"strings"
	"time"
)

// Workflow represents a GitHub Actions workflow as listed by the API.
type Workflow struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
}

// Workflow states reported by the API. Everything except active counts as
// disabled.
const (
	WorkflowActive             = "active"
	WorkflowDisabledManually   = "disabled_manually"
	WorkflowDisabledInactivity = "disabled_inactivity"
)

// IsActive returns true if the workflow can run.
func (w Workflow) IsActive() bool {
	return w.State == "" || w.State == WorkflowActive
}

// WorkflowsResponse represents the API response for listing workflows.
type WorkflowsResponse struct {
	TotalCount int        `json:"total_count"`
	Workflows  []Workflow `json:"workflows"`
}

// WorkflowRun represents a GitHub Actions workflow run.
type WorkflowRun struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DisplayTitle string    `json:"display_title"`
	WorkflowID   int64     `json:"workflow_id"`
	RunNumber    int       `json:"run_number"`
	Event        string    `json:"event"`
	Status       string    `json:"status"`
	Conclusion   string    `json:"conclusion"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	HTMLURL      string    `json:"html_url"`
	HeadBranch   string    `json:"head_branch"`
	Path         string    `json:"path"`
}

// EventWorkflowDispatch is the run event for manually triggered runs.
const EventWorkflowDispatch = "workflow_dispatch"

// RunStatus constants
const (
	StatusQueued     = "queued"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Conclusion constants
const (
	ConclusionSuccess   = "success"
	ConclusionFailure   = "failure"
	ConclusionCancelled = "cancelled"
	ConclusionSkipped   = "skipped"
	ConclusionTimedOut  = "timed_out"
)

// IsActive returns true if the run is still in progress.
func (r WorkflowRun) IsActive() bool {
	return r.Status == StatusQueued || r.Status == StatusInProgress
}

// IsFailure returns true if the run completed without succeeding.
func (r WorkflowRun) IsFailure() bool {
	return r.Status == StatusCompleted &&
		(r.Conclusion == ConclusionFailure || r.Conclusion == ConclusionTimedOut)
}

// IsDispatched reports whether the run was started by workflow_dispatch.
func (r WorkflowRun) IsDispatched() bool {
	return strings.EqualFold(r.Event, EventWorkflowDispatch)
}

// Job represents a job within a workflow run.
type Job struct {
	ID         int64     `json:"id"`
	RunID      int64     `json:"run_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	StartedAt  time.Time `json:"started_at"`
	Steps      []Step    `json:"steps"`
}

// Failed returns true if the job concluded with a failure.
func (j Job) Failed() bool {
	return j.Conclusion == ConclusionFailure || j.Conclusion == ConclusionTimedOut
}

// Step represents a step within a job.
type Step struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	Number     int    `json:"number"`
}

// JobsResponse represents the API response for listing jobs.
type JobsResponse struct {
	TotalCount int   `json:"total_count"`
	Jobs       []Job `json:"jobs"`
}

// RunsResponse represents the API response for listing runs.
type RunsResponse struct {
	TotalCount   int           `json:"total_count"`
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

// ContentResponse is the contents API payload for a single file.
type ContentResponse struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type dispatchRequest struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs,omitempty"`
}
