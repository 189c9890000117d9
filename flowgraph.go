package flowgraph

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/flowgraph/internal/logging"
	"github.com/aretw0/flowgraph/pkg/copier"
	"github.com/aretw0/flowgraph/pkg/diff"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/flatten"
	"github.com/aretw0/flowgraph/pkg/observability"
	"github.com/aretw0/flowgraph/pkg/reconcile"
	"github.com/aretw0/flowgraph/pkg/replace"
	"github.com/aretw0/flowgraph/pkg/template"
	"github.com/aretw0/flowgraph/pkg/validation"
)

// Engine is the high-level entry point for the flowgraph library.
// It wraps the graph packages and reports every call to lifecycle hooks.
// An Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	registry *validation.Registry
	replace  []replace.Option
	metrics  *observability.Metrics
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records operations and check results on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithRegistry replaces the default publish checks.
func WithRegistry(r *validation.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithSanitizer sets the HTML sanitiser used for rich text replacements.
func WithSanitizer(s replace.Sanitizer) Option {
	return func(e *Engine) {
		e.replace = append(e.replace, replace.WithSanitizer(s))
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.registry == nil {
		eng.registry = validation.Default()
	}

	chain := []domain.LifecycleHooks{observability.LoggingHooks(eng.logger)}
	if eng.metrics != nil {
		chain = append(chain, eng.metrics.Hooks())
	}
	chain = append(chain, eng.hooks)
	eng.hooks = observability.Chain(chain...)

	return eng
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Registry returns the publish checks the engine runs.
func (e *Engine) Registry() *validation.Registry {
	return e.registry
}

// observe emits the start hook and returns the function that emits the end hook.
func (e *Engine) observe(ctx context.Context, op, flowID string, nodes int) func(error) {
	ev := &domain.OperationEvent{
		Timestamp: time.Now(),
		Operation: op,
		FlowID:    flowID,
		Nodes:     nodes,
	}
	if e.hooks.OnOperationStart != nil {
		e.hooks.OnOperationStart(ctx, ev)
	}
	return func(err error) {
		if e.hooks.OnOperationEnd == nil {
			return
		}
		end := *ev
		end.Duration = time.Since(ev.Timestamp)
		end.Err = err
		e.hooks.OnOperationEnd(ctx, &end)
	}
}

// Diff returns the nodes altered between previous and current, or nil.
func (e *Engine) Diff(ctx context.Context, flowID string, previous, current domain.Graph) diff.Changes {
	done := e.observe(ctx, domain.OpDiff, flowID, len(current))
	changes := diff.Compute(previous, current)
	done(nil)
	return changes
}

// Validate runs the publish checks over a flattened graph.
func (e *Engine) Validate(ctx context.Context, flowID string, in validation.Input) validation.Report {
	done := e.observe(ctx, domain.OpValidate, flowID, len(in.Graph))
	report := e.registry.Run(in)
	if e.metrics != nil {
		e.metrics.ObserveReport(report)
	}
	done(nil)
	return report
}

// FindAndReplace searches graph for search and, when replacement is not
// nil, returns the updated graph in the result.
func (e *Engine) FindAndReplace(ctx context.Context, flowID string, graph domain.Graph, search string, replacement *string) (*replace.Result, error) {
	done := e.observe(ctx, domain.OpFindReplace, flowID, len(graph))
	res, err := replace.Find(graph, search, replacement, e.replace...)
	done(err)
	return res, err
}

// CopyFlow returns a copy of graph with every non-root id rewritten by suffix.
func (e *Engine) CopyFlow(ctx context.Context, flowID string, graph domain.Graph, suffix string) (domain.Graph, error) {
	done := e.observe(ctx, domain.OpCopyFlow, flowID, len(graph))
	out, err := copier.CopyFlow(graph, suffix)
	done(err)
	return out, err
}

// CopyPortalAsFlow extracts the subtree of an internal portal into a new flow.
func (e *Engine) CopyPortalAsFlow(ctx context.Context, flowID string, graph domain.Graph, portalID, suffix string) (domain.Graph, error) {
	done := e.observe(ctx, domain.OpCopyPortal, flowID, len(graph))
	out, err := copier.CopyPortalAsFlow(graph, portalID, suffix)
	done(err)
	return out, err
}

// Flatten inlines every external portal of graph using r.
func (e *Engine) Flatten(ctx context.Context, flowID string, graph domain.Graph, r flatten.Resolver) (domain.Graph, error) {
	done := e.observe(ctx, domain.OpFlatten, flowID, len(graph))
	out, err := flatten.Flatten(ctx, flowID, graph, r)
	done(err)
	return out, err
}

// ReconcileBreadcrumbs drops the breadcrumbs invalidated by republishing
// previous as current.
func (e *Engine) ReconcileBreadcrumbs(ctx context.Context, flowID string, crumbs domain.Breadcrumbs, previous, current domain.Graph) reconcile.Result {
	done := e.observe(ctx, domain.OpReconcile, flowID, len(current))
	res := reconcile.Breadcrumbs(crumbs, previous, current)
	done(nil)
	return res
}

// ReconcileTemplate overlays the edits of a dependent flow on its source.
// Overlay entries whose node no longer exists are dropped and logged.
func (e *Engine) ReconcileTemplate(ctx context.Context, flowID string, source domain.Graph, edits domain.TemplatedFlowEdits) domain.Graph {
	done := e.observe(ctx, domain.OpReconcileTemplate, flowID, len(source))
	if orphans := template.Orphans(source, edits); len(orphans) > 0 {
		e.logger.InfoContext(ctx, "dropping template edits for removed nodes",
			"flow_id", flowID,
			"nodes", orphans,
		)
	}
	out := template.Reconcile(source, edits)
	done(nil)
	return out
}
