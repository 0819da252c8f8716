// Package mcp exposes workflow resolution, dispatch and failure-pattern
// mining as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/frecency"
	"github.com/kyleking/gh-lazyqa/internal/observability"
	"github.com/kyleking/gh-lazyqa/internal/patterns"
	"github.com/kyleking/gh-lazyqa/internal/resolve"
)

// Backend is the service the tools call.
type Backend interface {
	Workflows(ctx context.Context, repo string) (resolve.Catalog, error)
	Resolve(ctx context.Context, repo, query string) (resolve.Result, error)
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Outcome, error)
	FailurePatterns(ctx context.Context, repo string, window time.Duration) (patterns.Report, error)
	History(repo, workflow string, limit int) ([]frecency.HistoryEntry, error)
}

type Server struct {
	mcpServer *server.MCPServer
	backend   Backend
	logger    *zap.Logger
}

func NewServer(backend Backend, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mcpServer: server.NewMCPServer(
			"gh-lazyqa",
			version,
			server.WithToolCapabilities(true),
		),
		backend: backend,
		logger:  logger,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves the tools on stdin and stdout until the client leaves.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Mount registers the SSE transport under /mcp on router.
func (s *Server) Mount(router *gin.Engine) {
	sse := gin.WrapH(server.NewSSEServer(s.mcpServer, server.WithStaticBasePath("/mcp")))
	router.GET("/mcp/sse", sse)
	router.POST("/mcp/message", sse)
}

func (s *Server) registerTools() {
	repoArg := mcp.WithString("repo", mcp.Description("Repository as owner/name; defaults to the configured repository"))

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List the repository's CI workflows"),
			repoArg,
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"resolve_workflow",
			mcp.WithDescription("Resolve a loose workflow reference, such as 'us smoke', to one workflow without running it"),
			repoArg,
			mcp.WithString("query", mcp.Required(), mcp.Description("Workflow name, file path, ID or a loose description")),
		),
		s.handleResolve,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"dispatch_workflow",
			mcp.WithDescription("Trigger a workflow run and report the run that was created"),
			repoArg,
			mcp.WithString("workflow", mcp.Required(), mcp.Description("Workflow reference, resolved like resolve_workflow")),
			mcp.WithString("branch", mcp.Description("Branch or environment label; defaults to the configured branch")),
			mcp.WithObject("inputs", mcp.Description("Workflow inputs as string key/value pairs")),
		),
		s.handleDispatch,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"failure_patterns",
			mcp.WithDescription("Cluster the failure summaries of recently failed runs into recurring patterns"),
			repoArg,
			mcp.WithString("window", mcp.Description("Look-back window as a Go duration, for example 72h")),
			mcp.WithNumber("top", mcp.Description("Return at most this many patterns")),
		),
		s.handleFailurePatterns,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"dispatch_history",
			mcp.WithDescription("List recent dispatches ranked by frequency and recency"),
			repoArg,
			mcp.WithString("workflow", mcp.Description("Only entries for this workflow path")),
			mcp.WithNumber("limit", mcp.Description("Return at most this many entries")),
		),
		s.handleHistory,
	)
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalog, err := s.backend.Workflows(ctx, request.GetString("repo", ""))
	if err != nil {
		return s.errorResult("list_workflows", err), nil
	}
	return jsonResult(catalog)
}

func (s *Server) handleResolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("Missing required parameter: query"), nil
	}

	result, err := s.backend.Resolve(ctx, request.GetString("repo", ""), query)
	if err != nil {
		return s.errorResult("resolve_workflow", err), nil
	}
	return jsonResult(map[string]any{
		"workflow": result.Workflow,
		"tier":     result.Tier.String(),
		"rejected": result.Rejected,
		"disabled": result.Disabled,
	})
}

func (s *Server) handleDispatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflow, err := request.RequireString("workflow")
	if err != nil || strings.TrimSpace(workflow) == "" {
		return mcp.NewToolResultError("Missing required parameter: workflow"), nil
	}
	inputs, err := stringMap(request.GetArguments()["inputs"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := s.backend.Dispatch(ctx, dispatch.Request{
		Repo:     request.GetString("repo", ""),
		Workflow: workflow,
		Branch:   request.GetString("branch", ""),
		Inputs:   inputs,
	})
	if err != nil {
		return s.errorResult("dispatch_workflow", err), nil
	}

	summary := map[string]any{
		"request_id":  out.RequestID,
		"state":       out.State,
		"workflow":    out.Workflow.Name,
		"ref":         out.Ref,
		"inputs":      out.Inputs,
		"dropped":     out.DroppedInputs,
		"warnings":    out.Warnings,
		"transitions": out.Transitions,
	}
	if out.Run != nil {
		summary["run_id"] = out.Run.ID
		summary["run_url"] = out.Run.HTMLURL
	}
	return jsonResult(summary)
}

func (s *Server) handleFailurePatterns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var window time.Duration
	if raw := request.GetString("window", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid window %q: use a positive duration such as 72h", raw)), nil
		}
		window = d
	}

	report, err := s.backend.FailurePatterns(ctx, request.GetString("repo", ""), window)
	if err != nil {
		return s.errorResult("failure_patterns", err), nil
	}
	report.Patterns = patterns.Top(report.Patterns, request.GetInt("top", 0))
	return jsonResult(report)
}

func (s *Server) handleHistory(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.backend.History(request.GetString("repo", ""), request.GetString("workflow", ""), request.GetInt("limit", 10))
	if err != nil {
		return s.errorResult("dispatch_history", err), nil
	}
	return jsonResult(entries)
}

// errorResult reports err inside the tool result so the model can act on
// the remediation and candidate names.
func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	s.logger.Debug("tool call failed", zap.String("tool", tool), observability.RedactedError(err))

	var b strings.Builder
	b.WriteString(observability.RedactToken(err.Error()))
	var de *dispatch.Error
	if errors.As(err, &de) {
		fmt.Fprintf(&b, "\nkind: %s", de.Kind)
		if de.Remediation != "" {
			fmt.Fprintf(&b, "\nremediation: %s", de.Remediation)
		}
		if len(de.Suggestions) > 0 {
			fmt.Fprintf(&b, "\ndid you mean: %s", strings.Join(de.Suggestions, ", "))
		}
		if len(de.Available) > 0 {
			fmt.Fprintf(&b, "\navailable: %s", strings.Join(de.Available, ", "))
		}
	}
	return mcp.NewToolResultError(b.String())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stringMap converts a JSON object argument to workflow inputs. Scalars are
// formatted the way GitHub expects them in a dispatch payload.
func stringMap(raw any) (map[string]string, error) {
	if raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("inputs must be an object of key/value pairs")
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(obj))
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			out[k] = v
		case bool, float64:
			out[k] = fmt.Sprint(v)
		case nil:
			out[k] = ""
		default:
			return nil, fmt.Errorf("input %q must be a string, number or boolean", k)
		}
	}
	return out, nil
}
