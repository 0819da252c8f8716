// Package dispatch drives a single dispatch request from a loose workflow
// reference to a located run.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kyleking/gh-lazyqa/internal/github"
	"github.com/kyleking/gh-lazyqa/internal/inputs"
	"github.com/kyleking/gh-lazyqa/internal/resolve"
	"github.com/kyleking/gh-lazyqa/internal/workflow"
)

// State is a step of the dispatch state machine.
type State string

const (
	StateIdle          State = "idle"
	StateResolving     State = "resolving"
	StateValidating    State = "validating"
	StateDispatching   State = "dispatching"
	StateAwaitingRunID State = "awaiting_run_id"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// CatalogProvider lists a repository's workflows, reading every page.
type CatalogProvider interface {
	Catalog(ctx context.Context, repo string) (resolve.Catalog, error)
}

// DefinitionInspector reads a workflow definition.
type DefinitionInspector interface {
	Inspect(ctx context.Context, repo, path string) (workflow.Definition, error)
}

// Trigger starts a workflow run.
type Trigger interface {
	Dispatch(ctx context.Context, repo string, workflowID int64, ref string, inputs map[string]string) error
}

// RunLister returns the most recent runs of a workflow, newest first.
type RunLister interface {
	ListRuns(ctx context.Context, repo string, workflowID int64, limit int) ([]github.WorkflowRun, error)
}

// Recorder receives dispatch metrics.
type Recorder interface {
	ObserveResolution(tier string)
	ObserveDispatch(outcome string)
}

// History remembers successful dispatches.
type History interface {
	Record(repo, workflow, branch string, inputs map[string]string)
}

// Config tunes branch selection and run polling.
type Config struct {
	DefaultBranch     string
	EnvironmentLabels []string
	SettleDelay       time.Duration
	PollInterval      time.Duration
	PollAttempts      int
	// ClockSkew is subtracted from the dispatch time when matching runs.
	ClockSkew time.Duration
	RunsLimit int
}

// DefaultConfig returns the stock polling budget.
func DefaultConfig() Config {
	return Config{
		DefaultBranch:     "main",
		EnvironmentLabels: DefaultEnvironmentLabels,
		SettleDelay:       3 * time.Second,
		PollInterval:      2 * time.Second,
		PollAttempts:      5,
		ClockSkew:         5 * time.Second,
		RunsLimit:         20,
	}
}

// Deps are the collaborators of a Coordinator. Recorder, History, Resolver
// and Logger are optional.
type Deps struct {
	Catalog   CatalogProvider
	Inspector DefinitionInspector
	Trigger   Trigger
	Runs      RunLister
	Resolver  *resolve.Resolver
	Recorder  Recorder
	History   History
	Logger    *zap.Logger
}

// Request is one operator dispatch request.
type Request struct {
	Repo     string
	Workflow string
	Branch   string
	Inputs   map[string]string
}

// Outcome describes how far a request got. It is returned alongside any
// error so callers can see whether the trigger was sent.
type Outcome struct {
	RequestID      string
	State          State
	Transitions    []State
	Workflow       resolve.Workflow
	Tier           resolve.Tier
	Ref            string
	Inputs         map[string]string
	DroppedInputs  []string
	Run            *github.WorkflowRun
	Dispatched     bool
	PartialCatalog bool
	Warnings       []string
}

func (o *Outcome) enter(s State) {
	o.State = s
	o.Transitions = append(o.Transitions, s)
}

// Coordinator runs dispatch requests. It keeps no per-request state and is
// safe for concurrent use.
type Coordinator struct {
	cfg       Config
	catalog   CatalogProvider
	inspector DefinitionInspector
	trigger   Trigger
	runs      RunLister
	resolver  *resolve.Resolver
	recorder  Recorder
	history   History
	logger    *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Coordinator.
func New(cfg Config, deps Deps) *Coordinator {
	c := &Coordinator{
		cfg:       cfg,
		catalog:   deps.Catalog,
		inspector: deps.Inspector,
		trigger:   deps.Trigger,
		runs:      deps.Runs,
		resolver:  deps.Resolver,
		recorder:  deps.Recorder,
		history:   deps.History,
		logger:    deps.Logger,
		now:       time.Now,
		sleep:     sleepContext,
	}
	if c.resolver == nil {
		c.resolver = resolve.New()
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.cfg.DefaultBranch == "" {
		c.cfg.DefaultBranch = "main"
	}
	if c.cfg.PollAttempts <= 0 {
		c.cfg.PollAttempts = 1
	}
	if c.cfg.RunsLimit <= 0 {
		c.cfg.RunsLimit = 20
	}
	return c
}

// Run resolves, validates, triggers and locates the run for req. On
// failure the returned error is a *Error and the Outcome ends in
// StateFailed. A KindRunIDUnavailable error comes with Dispatched set.
func (c *Coordinator) Run(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{RequestID: uuid.NewString()}
	out.enter(StateIdle)
	log := c.logger.With(zap.String("request_id", out.RequestID), zap.String("repo", req.Repo))

	fail := func(e *Error) (Outcome, error) {
		out.enter(StateFailed)
		c.recorder.ObserveDispatch(e.Kind.String())
		log.Info("dispatch failed",
			zap.Stringer("kind", e.Kind), zap.String("workflow", req.Workflow), zap.Error(e.Err))
		return out, e
	}

	out.enter(StateResolving)
	result, catalog, rerr := c.resolve(ctx, req.Repo, req.Workflow)
	if catalog.Partial {
		out.PartialCatalog = true
		out.Warnings = append(out.Warnings, "workflow listing was incomplete; resolution used a partial catalog")
		log.Warn("resolving against partial catalog", zap.Int("workflows", len(catalog.Workflows)))
	}
	if rerr != nil {
		return fail(rerr)
	}
	out.Workflow = result.Workflow
	out.Tier = result.Tier
	if result.Disabled {
		out.Warnings = append(out.Warnings, fmt.Sprintf("workflow %q is disabled", result.Workflow.Name))
	}
	log = log.With(zap.String("workflow", result.Workflow.Name), zap.Int64("workflow_id", result.Workflow.ID))

	out.enter(StateValidating)
	declared := result.Workflow.DeclaredInputs
	if c.inspector != nil && result.Workflow.Path != "" {
		def, err := c.inspector.Inspect(ctx, req.Repo, result.Workflow.Path)
		switch {
		case err != nil:
			log.Warn("could not read workflow definition, treating it as declaring no inputs", zap.Error(err))
		case !def.Dispatchable:
			return fail(unsupportedTriggerError(result.Workflow, nil))
		default:
			declared = inputs.Declared(def)
		}
	}
	out.Inputs = inputs.Filter(declared, req.Inputs, log)
	out.DroppedInputs = inputs.Dropped(declared, req.Inputs)
	out.Ref = SelectRef(req.Branch, c.cfg.DefaultBranch, c.cfg.EnvironmentLabels)

	out.enter(StateDispatching)
	before, err := c.runs.ListRuns(ctx, req.Repo, result.Workflow.ID, c.cfg.RunsLimit)
	if err != nil {
		log.Warn("could not snapshot runs before dispatch", zap.Error(err))
	}
	seen := make(map[int64]struct{}, len(before))
	for _, r := range before {
		seen[r.ID] = struct{}{}
	}

	since := c.now()
	if err := c.trigger.Dispatch(ctx, req.Repo, result.Workflow.ID, out.Ref, out.Inputs); err != nil {
		return fail(rejectionError(result.Workflow, out.Ref, declared, err))
	}
	out.Dispatched = true
	if c.history != nil {
		c.history.Record(req.Repo, result.Workflow.Path, out.Ref, out.Inputs)
	}
	log.Info("workflow dispatched", zap.String("ref", out.Ref), zap.Stringer("tier", result.Tier))

	out.enter(StateAwaitingRunID)
	run, err := c.awaitRun(ctx, req.Repo, result.Workflow.ID, since, seen)
	if err != nil {
		waited := c.cfg.SettleDelay + time.Duration(c.cfg.PollAttempts-1)*c.cfg.PollInterval
		return fail(runIDError(result.Workflow, waited, err))
	}
	out.Run = run

	out.enter(StateDone)
	c.recorder.ObserveDispatch(string(StateDone))
	log.Info("dispatched run located", zap.Int64("run_id", run.ID), zap.String("url", run.HTMLURL))
	return out, nil
}

// Resolve looks query up in repo's catalog without dispatching. A failure
// is a *Error of kind CatalogUnavailable, NotFound or Ambiguous.
func (c *Coordinator) Resolve(ctx context.Context, repo, query string) (resolve.Result, resolve.Catalog, error) {
	result, catalog, err := c.resolve(ctx, repo, query)
	if err != nil {
		return result, catalog, err
	}
	return result, catalog, nil
}

func (c *Coordinator) resolve(ctx context.Context, repo, query string) (resolve.Result, resolve.Catalog, *Error) {
	catalog, err := c.catalog.Catalog(ctx, repo)
	if err != nil {
		return resolve.Result{}, resolve.Catalog{}, catalogError(repo, err)
	}
	result, err := c.resolver.Resolve(query, catalog.Workflows)
	if err != nil {
		c.recorder.ObserveResolution(resolve.TierNone.String())
		return resolve.Result{}, catalog, resolutionError(repo, err, catalog)
	}
	c.recorder.ObserveResolution(result.Tier.String())
	return result, catalog, nil
}

var errRunNotVisible = errors.New("dispatched run not visible yet")

// awaitRun polls the runs listing after the settle delay until a run
// appears that was not in the pre-dispatch snapshot.
func (c *Coordinator) awaitRun(ctx context.Context, repo string, workflowID int64, since time.Time, seen map[int64]struct{}) (*github.WorkflowRun, error) {
	if err := c.sleep(ctx, c.cfg.SettleDelay); err != nil {
		return nil, err
	}

	threshold := since.Add(-c.cfg.ClockSkew)
	var found *github.WorkflowRun
	poll := func() error {
		runs, err := c.runs.ListRuns(ctx, repo, workflowID, c.cfg.RunsLimit)
		if err != nil {
			return err
		}
		if r := newestNewRun(runs, seen, threshold); r != nil {
			found = r
			return nil
		}
		return errRunNotVisible
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.PollInterval), uint64(c.cfg.PollAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(poll, policy); err != nil {
		return nil, err
	}
	return found, nil
}

func newestNewRun(runs []github.WorkflowRun, seen map[int64]struct{}, threshold time.Time) *github.WorkflowRun {
	var candidates []github.WorkflowRun
	for _, r := range runs {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		if r.Event != "" && !r.IsDispatched() {
			continue
		}
		if !r.CreatedAt.IsZero() && r.CreatedAt.Before(threshold) {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		}
		return candidates[i].ID > candidates[j].ID
	})
	return &candidates[0]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveResolution(string) {}
func (nopRecorder) ObserveDispatch(string)   {}
