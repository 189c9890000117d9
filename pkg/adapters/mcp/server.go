// Package mcp exposes the flowgraph service as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/flowgraph"
	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/pkg/diff"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/validation"
)

// ReportResponse aligns with the HTTP validate response.
type ReportResponse struct {
	AlteredNodes diff.Changes        `json:"alteredNodes" jsonschema_description:"Nodes changed since the latest published version"`
	Message      string              `json:"message" jsonschema_description:"Whether there is anything to publish"`
	Checks       []validation.Result `json:"validationChecks" jsonschema_description:"Publish check results in run order"`
}

// DiffResponse describes the difference between two graphs.
type DiffResponse struct {
	AlteredNodes diff.Changes `json:"alteredNodes" jsonschema_description:"Altered nodes keyed by id, null when equal"`
	Summary      diff.Summary `json:"summary" jsonschema_description:"Added, removed and modified ids"`
}

// SearchResponse is the outcome of find_replace.
type SearchResponse struct {
	Message string                    `json:"message" jsonschema_description:"Human readable outcome"`
	Matches map[string]map[string]any `json:"matches" jsonschema_description:"Matched data paths per node id"`
	Saved   bool                      `json:"saved" jsonschema_description:"True when the draft was rewritten"`
}

// GraphResponse carries a graph result.
type GraphResponse struct {
	FlowID string       `json:"flowId,omitempty" jsonschema_description:"Flow the graph belongs to"`
	Data   domain.Graph `json:"data" jsonschema_description:"Node map keyed by id"`
}

type flowArgs struct {
	FlowID string `json:"flow_id"`
}

type diffArgs struct {
	FlowID      string `json:"flow_id"`
	FromVersion int    `json:"from_version"`
	ToVersion   int    `json:"to_version"`
}

type findArgs struct {
	FlowID  string  `json:"flow_id"`
	Find    string  `json:"find"`
	Replace *string `json:"replace"`
}

type portalArgs struct {
	FlowID   string `json:"flow_id"`
	PortalID string `json:"portal_id"`
	Suffix   string `json:"suffix"`
}

type flattenArgs struct {
	FlowID string `json:"flow_id"`
	Draft  bool   `json:"draft"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

// Server wraps the flowgraph Service and exposes it as an MCP Server.
type Server struct {
	service   *flowgraph.Service
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(service *flowgraph.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		service:   service,
		mcpServer: server.NewMCPServer("flowgraph-mcp", strings.TrimSpace(flowgraph.Version)),
		logger:    logger,
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("validate_flow",
		mcp.WithDescription("Flatten the draft of a flow, diff it against the latest published version and run the publish checks."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow ID")),
		mcp.WithOutputSchema[ReportResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("diff_flows",
		mcp.WithDescription("Diff two published versions of a flow. Without versions, diffs the latest published version against the draft."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow ID")),
		mcp.WithNumber("from_version", mcp.Description("Published version to diff from (optional)")),
		mcp.WithNumber("to_version", mcp.Description("Published version to diff to (optional)")),
		mcp.WithOutputSchema[DiffResponse](),
	), mcp.NewStructuredToolHandler(s.handleDiff))

	s.mcpServer.AddTool(mcp.NewTool("find_replace",
		mcp.WithDescription("Search every node of a draft for a string and optionally replace it. Rich text replacements are sanitised."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow ID")),
		mcp.WithString("find", mcp.Required(), mcp.Description("Text to search for")),
		mcp.WithString("replace", mcp.Description("Replacement text (optional, search only when omitted)")),
		mcp.WithOutputSchema[SearchResponse](),
	), mcp.NewStructuredToolHandler(s.handleFindReplace))

	s.mcpServer.AddTool(mcp.NewTool("copy_portal",
		mcp.WithDescription("Extract the sub-flow of an internal portal as a standalone graph with fresh ids."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow ID")),
		mcp.WithString("portal_id", mcp.Required(), mcp.Description("ID of the InternalPortal node")),
		mcp.WithString("suffix", mcp.Required(), mcp.Description("Suffix used to rewrite node ids")),
		mcp.WithOutputSchema[GraphResponse](),
	), mcp.NewStructuredToolHandler(s.handleCopyPortal))

	s.mcpServer.AddTool(mcp.NewTool("flatten_flow",
		mcp.WithDescription("Inline every external portal of a flow with the published flow it references."),
		mcp.WithString("flow_id", mcp.Required(), mcp.Description("Flow ID")),
		mcp.WithBoolean("draft", mcp.Description("Flatten the draft instead of the latest published version")),
		mcp.WithOutputSchema[GraphResponse](),
	), mcp.NewStructuredToolHandler(s.handleFlatten))

	s.mcpServer.AddTool(mcp.NewTool("reconcile_session",
		mcp.WithDescription("Drop the breadcrumbs of a session invalidated since the version it was recorded against."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[flowgraph.SessionReconciliation](),
	), mcp.NewStructuredToolHandler(s.handleReconcile))
}

// Handler methods for structured tools

func (s *Server) handleValidate(ctx context.Context, _ mcp.CallToolRequest, args flowArgs) (ReportResponse, error) {
	report, err := s.service.ValidateDraft(ctx, args.FlowID)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("validate failed: %w", err)
	}
	return ReportResponse{
		AlteredNodes: report.AlteredNodes,
		Message:      report.Message,
		Checks:       report.Checks,
	}, nil
}

func (s *Server) handleDiff(ctx context.Context, _ mcp.CallToolRequest, args diffArgs) (DiffResponse, error) {
	graphs := s.service.Graphs()

	var previous, current domain.Graph
	if args.FromVersion > 0 {
		snap, err := graphs.GetSnapshot(ctx, args.FlowID, args.FromVersion)
		if err != nil {
			return DiffResponse{}, fmt.Errorf("diff failed: %w", err)
		}
		previous = snap.Data
	} else {
		snap, err := graphs.GetLatestPublished(ctx, args.FlowID)
		switch {
		case err == nil:
			previous = snap.Data
		case !errors.Is(err, domain.ErrSnapshotNotFound):
			return DiffResponse{}, fmt.Errorf("diff failed: %w", err)
		}
	}

	if args.ToVersion > 0 {
		snap, err := graphs.GetSnapshot(ctx, args.FlowID, args.ToVersion)
		if err != nil {
			return DiffResponse{}, fmt.Errorf("diff failed: %w", err)
		}
		current = snap.Data
	} else {
		draft, err := graphs.GetDraft(ctx, args.FlowID)
		if err != nil {
			return DiffResponse{}, fmt.Errorf("diff failed: %w", err)
		}
		current = draft
	}

	changes := s.service.Engine().Diff(ctx, args.FlowID, previous, current)
	return DiffResponse{AlteredNodes: changes, Summary: changes.Summary()}, nil
}

func (s *Server) handleFindReplace(ctx context.Context, _ mcp.CallToolRequest, args findArgs) (SearchResponse, error) {
	res, err := s.service.FindAndReplace(ctx, args.FlowID, args.Find, args.Replace)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("find_replace failed: %w", err)
	}
	return SearchResponse{
		Message: res.Message,
		Matches: res.Matches,
		Saved:   res.UpdatedFlow != nil,
	}, nil
}

func (s *Server) handleCopyPortal(ctx context.Context, _ mcp.CallToolRequest, args portalArgs) (GraphResponse, error) {
	g, err := s.service.CopyPortalAsFlow(ctx, args.FlowID, args.PortalID, args.Suffix)
	if err != nil {
		return GraphResponse{}, fmt.Errorf("copy_portal failed: %w", err)
	}
	return GraphResponse{Data: g}, nil
}

func (s *Server) handleFlatten(ctx context.Context, _ mcp.CallToolRequest, args flattenArgs) (GraphResponse, error) {
	g, err := s.service.FlattenPublished(ctx, args.FlowID, args.Draft)
	if err != nil {
		return GraphResponse{}, fmt.Errorf("flatten failed: %w", err)
	}
	return GraphResponse{FlowID: args.FlowID, Data: g}, nil
}

func (s *Server) handleReconcile(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (flowgraph.SessionReconciliation, error) {
	res, err := s.service.ReconcileSession(ctx, args.SessionID)
	if err != nil {
		s.logger.Warn("MCP reconcile_session failed", "session_id", args.SessionID, "err", err)
		return flowgraph.SessionReconciliation{}, fmt.Errorf("reconcile failed: %w", err)
	}
	return *res, nil
}
