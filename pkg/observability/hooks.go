package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// LoggingHooks logs operations at Debug and failures at Warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnOperationStart: func(ctx context.Context, e *domain.OperationEvent) {
			logger.DebugContext(ctx, "operation started",
				"op", e.Operation,
				"flow_id", e.FlowID,
				"nodes", e.Nodes,
			)
		},
		OnOperationEnd: func(ctx context.Context, e *domain.OperationEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "operation failed",
					"op", e.Operation,
					"flow_id", e.FlowID,
					"duration", e.Duration,
					"error", e.Err,
				)
				return
			}
			logger.DebugContext(ctx, "operation finished",
				"op", e.Operation,
				"flow_id", e.FlowID,
				"duration", e.Duration,
			)
		},
	}
}

// Chain merges hooks; each callback runs in argument order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var starts, ends []func(context.Context, *domain.OperationEvent)
	for _, h := range hooks {
		if h.OnOperationStart != nil {
			starts = append(starts, h.OnOperationStart)
		}
		if h.OnOperationEnd != nil {
			ends = append(ends, h.OnOperationEnd)
		}
	}

	var out domain.LifecycleHooks
	if len(starts) > 0 {
		out.OnOperationStart = func(ctx context.Context, e *domain.OperationEvent) {
			for _, fn := range starts {
				fn(ctx, e)
			}
		}
	}
	if len(ends) > 0 {
		out.OnOperationEnd = func(ctx context.Context, e *domain.OperationEvent) {
			for _, fn := range ends {
				fn(ctx, e)
			}
		}
	}
	return out
}
