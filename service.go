package flowgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/flowgraph/pkg/diff"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/flatten"
	"github.com/aretw0/flowgraph/pkg/ports"
	"github.com/aretw0/flowgraph/pkg/reconcile"
	"github.com/aretw0/flowgraph/pkg/replace"
	"github.com/aretw0/flowgraph/pkg/session"
	"github.com/aretw0/flowgraph/pkg/validation"
)

// Messages reported by ValidateDraft.
const (
	MessageChangesQueued = "Changes queued to publish"
	MessageNoChanges     = "No new changes to publish"
)

// PublishReport is the outcome of validating a draft before publishing.
type PublishReport struct {
	AlteredNodes diff.Changes        `json:"alteredNodes"`
	Message      string              `json:"message"`
	Checks       []validation.Result `json:"validationChecks"`

	// Version is the latest published version seen while validating.
	Version int `json:"-"`
	graph   domain.Graph
}

// Passed reports whether no check failed.
func (r *PublishReport) Passed() bool {
	return validation.Report{Checks: r.Checks}.Passed()
}

// PublishRequest describes who publishes and against which version.
type PublishRequest struct {
	PublisherID string
	Summary     string
	// ExpectedVersion is the latest version the caller saw. Nil uses the
	// version read while validating; domain.AnyVersion skips the check.
	ExpectedVersion *int
}

// CopyRequest describes a flow copy.
type CopyRequest struct {
	Suffix string
	// Insert stores the copy as a new flow.
	Insert bool
	TeamID string
	Slug   string
}

// CopyResult is the copied graph and, when inserted, the new flow id.
type CopyResult struct {
	FlowID string       `json:"flowId,omitempty"`
	Data   domain.Graph `json:"data"`
}

// SessionReconciliation is the outcome of ReconcileSession.
type SessionReconciliation struct {
	reconcile.Result
	SessionID   string `json:"sessionId"`
	FromVersion int    `json:"fromVersion"`
	ToVersion   int    `json:"toVersion"`
}

// Service runs engine operations against stored flows and sessions.
type Service struct {
	engine   *Engine
	graphs   ports.GraphStore
	sessions *session.Manager
	edits    ports.TemplateEditsStore
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSessionManager replaces the session manager built around the session store.
func WithSessionManager(m *session.Manager) ServiceOption {
	return func(s *Service) {
		s.sessions = m
	}
}

// WithServiceLogger sets the service logger. The engine logger is used by default.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService wires an engine to its stores. sessions and edits may be nil
// when the session and template operations are not needed.
func NewService(engine *Engine, graphs ports.GraphStore, sessions ports.SessionStore, edits ports.TemplateEditsStore, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = New()
	}
	s := &Service{
		engine: engine,
		graphs: graphs,
		edits:  edits,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = engine.Logger()
	}
	if s.sessions == nil && sessions != nil {
		s.sessions = session.NewManager(sessions, session.WithLogger(s.logger))
	}
	return s
}

// Engine returns the wrapped engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Graphs returns the flow store.
func (s *Service) Graphs() ports.GraphStore {
	return s.graphs
}

// Sessions returns the session manager, or nil.
func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

// Resolver returns a flatten.Resolver reading the latest published graphs.
func (s *Service) Resolver() flatten.Resolver {
	return flatten.ResolverFunc(func(ctx context.Context, flowID string) (domain.Graph, error) {
		snap, err := s.graphs.GetPublishedByID(ctx, flowID)
		if err != nil {
			return nil, err
		}
		return snap.Data, nil
	})
}

// ValidateDraft flattens the draft of a flow, diffs it against the latest
// published version and runs the publish checks. A flattened draft with a
// missing root, a broken edge or an unknown node type is rejected before
// any check runs.
func (s *Service) ValidateDraft(ctx context.Context, flowID string) (*PublishReport, error) {
	var (
		flow   *domain.Flow
		latest *domain.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		flow, err = s.graphs.GetFlow(gctx, flowID)
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = s.graphs.GetLatestPublished(gctx, flowID)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flattened, err := s.engine.Flatten(ctx, flowID, flow.Data, s.Resolver())
	if err != nil {
		return nil, err
	}
	if err := flattened.Validate(); err != nil {
		return nil, fmt.Errorf("flow %s: %w", flowID, err)
	}
	if err := flattened.ValidateTypes(); err != nil {
		return nil, fmt.Errorf("flow %s: %w", flowID, err)
	}

	var previous domain.Graph
	report := &PublishReport{graph: flattened}
	if latest != nil {
		previous = latest.Data
		report.Version = latest.Version
	}
	report.AlteredNodes = s.engine.Diff(ctx, flowID, previous, flattened)
	report.Message = MessageNoChanges
	if report.AlteredNodes != nil {
		report.Message = MessageChangesQueued
	}

	in := validation.Input{Graph: flattened, Templated: flow.IsTemplated()}
	if in.Templated && s.edits != nil {
		if in.Edits, err = s.edits.GetEdits(ctx, flowID); err != nil {
			return nil, fmt.Errorf("failed to load template edits: %w", err)
		}
	}
	report.Checks = s.engine.Validate(ctx, flowID, in).Checks
	return report, nil
}

// Publish validates the draft and records its flattened graph as the next
// snapshot. A failing report returns domain.ErrValidationFailed together
// with the report.
func (s *Service) Publish(ctx context.Context, flowID string, req PublishRequest) (*domain.Snapshot, *PublishReport, error) {
	report, err := s.ValidateDraft(ctx, flowID)
	if err != nil {
		return nil, nil, err
	}
	if report.AlteredNodes == nil {
		return nil, report, domain.ErrNothingToPublish
	}
	if !report.Passed() {
		titles := make([]string, 0, len(report.Checks))
		for _, c := range report.Checks {
			if c.Status == validation.StatusFail {
				titles = append(titles, c.Title)
			}
		}
		return nil, report, fmt.Errorf("%w: %s", domain.ErrValidationFailed, strings.Join(titles, ", "))
	}

	expected := report.Version
	if req.ExpectedVersion != nil {
		expected = *req.ExpectedVersion
	}
	snap, err := s.graphs.Publish(ctx, flowID, report.graph, req.PublisherID, req.Summary, expected)
	if err != nil {
		return nil, report, err
	}
	s.logger.InfoContext(ctx, "flow published",
		"flow_id", flowID,
		"version", snap.Version,
		"altered", len(report.AlteredNodes),
	)
	return snap, report, nil
}

// FindAndReplace searches the draft of a flow. When replacement is set and
// something matched, the updated graph is saved as the new draft.
func (s *Service) FindAndReplace(ctx context.Context, flowID, search string, replacement *string) (*replace.Result, error) {
	draft, err := s.graphs.GetDraft(ctx, flowID)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.FindAndReplace(ctx, flowID, draft, search, replacement)
	if err != nil {
		return nil, err
	}
	if replacement != nil && res.UpdatedFlow != nil {
		if err := s.graphs.SaveDraft(ctx, flowID, res.UpdatedFlow); err != nil {
			return nil, fmt.Errorf("failed to save draft: %w", err)
		}
	}
	return res, nil
}

// CopyFlow copies the draft of a flow under rewritten ids and optionally
// inserts it as a new flow.
func (s *Service) CopyFlow(ctx context.Context, flowID string, req CopyRequest) (*CopyResult, error) {
	flow, err := s.graphs.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	data, err := s.engine.CopyFlow(ctx, flowID, flow.Data, req.Suffix)
	if err != nil {
		return nil, err
	}
	res := &CopyResult{Data: data}
	if !req.Insert {
		return res, nil
	}

	copied := domain.Flow{
		Slug:   req.Slug,
		TeamID: req.TeamID,
		Data:   data,
	}
	if copied.Slug == "" {
		copied.Slug = flow.Slug + "-copy"
	}
	if copied.TeamID == "" {
		copied.TeamID = flow.TeamID
	}
	if res.FlowID, err = s.graphs.InsertFlow(ctx, copied); err != nil {
		return nil, fmt.Errorf("failed to insert copied flow: %w", err)
	}
	return res, nil
}

// CopyPortalAsFlow extracts an internal portal of a draft as a standalone graph.
func (s *Service) CopyPortalAsFlow(ctx context.Context, flowID, portalID, suffix string) (domain.Graph, error) {
	draft, err := s.graphs.GetDraft(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return s.engine.CopyPortalAsFlow(ctx, flowID, draft, portalID, suffix)
}

// FlattenPublished returns the flattened latest published graph of a flow,
// or of its draft when draft is true.
func (s *Service) FlattenPublished(ctx context.Context, flowID string, draft bool) (domain.Graph, error) {
	var graph domain.Graph
	if draft {
		d, err := s.graphs.GetDraft(ctx, flowID)
		if err != nil {
			return nil, err
		}
		graph = d
	} else {
		snap, err := s.graphs.GetLatestPublished(ctx, flowID)
		if err != nil {
			return nil, err
		}
		graph = snap.Data
	}
	return s.engine.Flatten(ctx, flowID, graph, s.Resolver())
}

// ReconcileSession brings the breadcrumbs of a session up to date with the
// latest published version of its flow. The session is left untouched when
// the version did not move. A session recorded against a version that no
// longer exists loses every breadcrumb.
func (s *Service) ReconcileSession(ctx context.Context, sessionID string) (*SessionReconciliation, error) {
	if s.sessions == nil {
		return nil, errors.New("no session store configured")
	}

	var out *SessionReconciliation
	err := s.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		store := s.sessions.Store()
		sess, err := store.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		latest, err := s.graphs.GetLatestPublished(ctx, sess.FlowID)
		if err != nil {
			return err
		}

		out = &SessionReconciliation{
			SessionID:   sessionID,
			FromVersion: sess.FlowVersion,
			ToVersion:   latest.Version,
		}
		if sess.FlowVersion == latest.Version {
			out.Result = reconcile.Result{Breadcrumbs: sess.Breadcrumbs}
			return nil
		}

		var previous domain.Graph
		prev, err := s.graphs.GetSnapshot(ctx, sess.FlowID, sess.FlowVersion)
		switch {
		case err == nil:
			previous = prev.Data
		case errors.Is(err, domain.ErrSnapshotNotFound):
			s.logger.WarnContext(ctx, "session flow version not found, discarding breadcrumbs",
				"session_id", sessionID,
				"flow_id", sess.FlowID,
				"version", sess.FlowVersion,
			)
		default:
			return err
		}

		out.Result = s.engine.ReconcileBreadcrumbs(ctx, sess.FlowID, sess.Breadcrumbs, previous, latest.Data)
		return store.UpdateBreadcrumbs(ctx, sessionID, out.Breadcrumbs, latest.Version)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SyncTemplate rebuilds the draft of a templated flow from the latest
// published version of its source and its own edits.
func (s *Service) SyncTemplate(ctx context.Context, flowID string) (domain.Graph, error) {
	flow, err := s.graphs.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if !flow.IsTemplated() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotTemplated, flowID)
	}

	source, err := s.graphs.GetLatestPublished(ctx, flow.TemplatedFrom)
	if err != nil {
		return nil, fmt.Errorf("failed to load source template: %w", err)
	}
	var edits domain.TemplatedFlowEdits
	if s.edits != nil {
		if edits, err = s.edits.GetEdits(ctx, flowID); err != nil {
			return nil, fmt.Errorf("failed to load template edits: %w", err)
		}
	}

	merged := s.engine.ReconcileTemplate(ctx, flowID, source.Data, edits)
	if err := s.graphs.SaveDraft(ctx, flowID, merged); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return merged, nil
}
