package domain

import (
	"context"
	"time"
)

// Operation names reported to lifecycle hooks and metrics.
const (
	OpDiff              = "diff"
	OpValidate          = "validate"
	OpFindReplace       = "find_replace"
	OpCopyFlow          = "copy_flow"
	OpCopyPortal        = "copy_portal"
	OpFlatten           = "flatten"
	OpReconcile         = "reconcile_breadcrumbs"
	OpReconcileTemplate = "reconcile_template"
)

// OperationEvent describes one engine invocation.
type OperationEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Operation string        `json:"operation"`
	FlowID    string        `json:"flow_id,omitempty"`
	Nodes     int           `json:"nodes"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnOperationStart func(context.Context, *OperationEvent)
	OnOperationEnd   func(context.Context, *OperationEvent)
}
