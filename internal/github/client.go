// Package github wraps the GitHub Actions REST endpoints the dashboard uses.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/cli/go-gh/v2/pkg/repository"
	"go.uber.org/zap"

	"github.com/kyleking/gh-lazyqa/internal/resolve"
)

const (
	defaultHost    = "github.com"
	defaultPerPage = 100
	maxPages       = 50
)

var nextLinkRE = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// Options configures a Client.
type Options struct {
	Host      string
	AuthToken string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Client provides access to workflows, runs and repository contents.
type Client struct {
	rest    *api.RESTClient
	host    string
	perPage int
	logger  *zap.Logger
}

// NewClient creates a REST client. An empty token falls back to gh's own
// authentication.
func NewClient(opts Options) (*Client, error) {
	host := opts.Host
	if host == "" {
		host = defaultHost
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rest, err := api.NewRESTClient(api.ClientOptions{
		Host:      host,
		AuthToken: opts.AuthToken,
		Transport: opts.Transport,
		Timeout:   opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create REST client: %w", err)
	}

	return &Client{rest: rest, host: host, perPage: defaultPerPage, logger: logger}, nil
}

// WorkflowList is one repository's workflow listing.
type WorkflowList struct {
	Workflows  []Workflow
	TotalCount int
	Partial    bool
}

// ListWorkflows reads every page of the repository's workflows. A failure
// after the first page yields the workflows read so far with Partial set.
func (c *Client) ListWorkflows(ctx context.Context, repo string) (WorkflowList, error) {
	base, err := c.repoPath(repo)
	if err != nil {
		return WorkflowList{}, err
	}

	var list WorkflowList
	path := fmt.Sprintf("%s/actions/workflows?per_page=%d", base, c.perPage)
	for page := 0; path != "" && page < maxPages; page++ {
		var resp WorkflowsResponse
		next, err := c.getJSON(ctx, path, &resp)
		if err != nil {
			if page == 0 {
				return WorkflowList{}, fmt.Errorf("list workflows for %s: %w", repo, err)
			}
			c.logger.Warn("workflow listing ended early",
				zap.String("repo", repo), zap.Int("pages_read", page), zap.Error(err))
			list.Partial = true
			break
		}
		list.TotalCount = resp.TotalCount
		list.Workflows = append(list.Workflows, resp.Workflows...)
		path = next
		if path != "" && page == maxPages-1 {
			list.Partial = true
		}
	}

	if list.TotalCount > len(list.Workflows) {
		list.Partial = true
	}
	return list, nil
}

// Catalog lists the repository's workflows as resolver records.
func (c *Client) Catalog(ctx context.Context, repo string) (resolve.Catalog, error) {
	list, err := c.ListWorkflows(ctx, repo)
	if err != nil {
		return resolve.Catalog{}, err
	}
	catalog := resolve.Catalog{
		Workflows: make([]resolve.Workflow, 0, len(list.Workflows)),
		Partial:   list.Partial,
	}
	for _, w := range list.Workflows {
		catalog.Workflows = append(catalog.Workflows, w.Record())
	}
	return catalog, nil
}

// Record converts the API workflow into a resolver record.
func (w Workflow) Record() resolve.Workflow {
	state := resolve.StateActive
	if !w.IsActive() {
		state = resolve.StateDisabled
	}
	return resolve.Workflow{ID: w.ID, Name: w.Name, Path: w.Path, State: state}
}

// Dispatch triggers a workflow_dispatch event. Inputs are omitted from the
// request body when empty.
func (c *Client) Dispatch(ctx context.Context, repo string, workflowID int64, ref string, inputs map[string]string) error {
	base, err := c.repoPath(repo)
	if err != nil {
		return err
	}
	body, err := json.Marshal(dispatchRequest{Ref: ref, Inputs: inputs})
	if err != nil {
		return fmt.Errorf("encode dispatch request: %w", err)
	}

	path := fmt.Sprintf("%s/actions/workflows/%d/dispatches", base, workflowID)
	if err := c.rest.DoWithContext(ctx, http.MethodPost, path, bytes.NewReader(body), nil); err != nil {
		return MapHTTPError(err)
	}
	c.logger.Debug("workflow dispatched",
		zap.String("repo", repo), zap.Int64("workflow_id", workflowID), zap.String("ref", ref))
	return nil
}

// ListRuns returns the most recent runs of a workflow, newest first.
func (c *Client) ListRuns(ctx context.Context, repo string, workflowID int64, limit int) ([]WorkflowRun, error) {
	base, err := c.repoPath(repo)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > c.perPage {
		limit = c.perPage
	}

	var resp RunsResponse
	path := fmt.Sprintf("%s/actions/workflows/%d/runs?per_page=%d", base, workflowID, limit)
	if _, err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("list runs for workflow %d: %w", workflowID, err)
	}
	return resp.WorkflowRuns, nil
}

// ListFailedRuns returns failed runs created at or after since, across all
// workflows of the repository, up to limit.
func (c *Client) ListFailedRuns(ctx context.Context, repo string, since time.Time, limit int) ([]WorkflowRun, error) {
	base, err := c.repoPath(repo)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("status", ConclusionFailure)
	q.Set("per_page", fmt.Sprintf("%d", c.perPage))
	if !since.IsZero() {
		q.Set("created", ">="+since.UTC().Format("2006-01-02"))
	}

	var runs []WorkflowRun
	path := base + "/actions/runs?" + q.Encode()
	for page := 0; path != "" && page < maxPages; page++ {
		var resp RunsResponse
		next, err := c.getJSON(ctx, path, &resp)
		if err != nil {
			return nil, fmt.Errorf("list failed runs for %s: %w", repo, err)
		}
		for _, r := range resp.WorkflowRuns {
			if !since.IsZero() && r.CreatedAt.Before(since) {
				continue
			}
			runs = append(runs, r)
			if limit > 0 && len(runs) >= limit {
				return runs, nil
			}
		}
		path = next
	}
	return runs, nil
}

// GetWorkflowRunJobs returns the jobs of a run.
func (c *Client) GetWorkflowRunJobs(ctx context.Context, repo string, runID int64) ([]Job, error) {
	base, err := c.repoPath(repo)
	if err != nil {
		return nil, err
	}
	var resp JobsResponse
	path := fmt.Sprintf("%s/actions/runs/%d/jobs?per_page=%d", base, runID, c.perPage)
	if _, err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("list jobs for run %d: %w", runID, err)
	}
	return resp.Jobs, nil
}

// GetFileContent returns the decoded content of a file at ref. An empty ref
// reads the default branch.
func (c *Client) GetFileContent(ctx context.Context, repo, path, ref string) ([]byte, error) {
	base, err := c.repoPath(repo)
	if err != nil {
		return nil, err
	}

	p := fmt.Sprintf("%s/contents/%s", base, strings.TrimPrefix(path, "/"))
	if ref != "" {
		p += "?ref=" + url.QueryEscape(ref)
	}

	var resp ContentResponse
	if _, err := c.getJSON(ctx, p, &resp); err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if resp.Encoding != "base64" {
		return []byte(resp.Content), nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) (string, error) {
	resp, err := c.rest.RequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", MapHTTPError(err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return nextPage(resp.Header.Get("Link")), nil
}

func nextPage(link string) string {
	if m := nextLinkRE.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return ""
}

func (c *Client) repoPath(repo string) (string, error) {
	r, err := repository.ParseWithHost(repo, c.host)
	if err != nil {
		return "", fmt.Errorf("invalid repository %q: %w", repo, err)
	}
	return fmt.Sprintf("repos/%s/%s", r.Owner, r.Name), nil
}

// RunURL is the web page of a run.
func (c *Client) RunURL(repo string, runID int64) string {
	return fmt.Sprintf("https://%s/%s/actions/runs/%d", c.host, repo, runID)
}
