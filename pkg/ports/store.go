package ports

import (
	"context"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// GraphStore persists flows and their published snapshots.
// Graphs are always written whole.
type GraphStore interface {
	// GetFlow returns the flow record, draft included.
	// Returns domain.ErrFlowNotFound if the flow does not exist.
	GetFlow(ctx context.Context, flowID string) (*domain.Flow, error)

	// GetDraft returns the current draft graph of a flow.
	GetDraft(ctx context.Context, flowID string) (domain.Graph, error)

	// SaveDraft replaces the draft graph of a flow and bumps its version.
	SaveDraft(ctx context.Context, flowID string, graph domain.Graph) error

	// InsertFlow creates a new flow and returns its id. An empty flow.ID is
	// assigned by the store.
	InsertFlow(ctx context.Context, flow domain.Flow) (string, error)

	// GetLatestPublished returns the most recent snapshot of a flow.
	// Returns domain.ErrSnapshotNotFound if the flow was never published.
	GetLatestPublished(ctx context.Context, flowID string) (*domain.Snapshot, error)

	// GetPublishedByID returns the published graph other flows see when they
	// reference flowID through an external portal.
	GetPublishedByID(ctx context.Context, flowID string) (*domain.Snapshot, error)

	// GetSnapshot returns a specific published version of a flow.
	GetSnapshot(ctx context.Context, flowID string, version int) (*domain.Snapshot, error)

	// Publish records graph as the next snapshot of a flow.
	// expectedVersion is the latest snapshot version the caller saw (0 for
	// none); a mismatch returns domain.ErrVersionConflict.
	// domain.AnyVersion skips the check.
	Publish(ctx context.Context, flowID string, graph domain.Graph, publisherID, summary string, expectedVersion int) (*domain.Snapshot, error)
}

// SessionStore persists user sessions.
type SessionStore interface {
	// GetSession returns a session.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// SaveSession creates or replaces a session.
	SaveSession(ctx context.Context, session *domain.Session) error

	// UpdateBreadcrumbs replaces the breadcrumbs of a session and records the
	// published flow version they are valid against.
	UpdateBreadcrumbs(ctx context.Context, sessionID string, breadcrumbs domain.Breadcrumbs, flowVersion int) error

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListSessions returns the ids of all stored sessions.
	ListSessions(ctx context.Context) ([]string, error)
}

// TemplateEditsStore persists the customisation overlay of templated flows.
type TemplateEditsStore interface {
	// GetEdits returns the overlay of a dependent flow, or nil when it has none.
	GetEdits(ctx context.Context, flowID string) (domain.TemplatedFlowEdits, error)

	// SaveEdits replaces the overlay of a dependent flow.
	SaveEdits(ctx context.Context, flowID string, edits domain.TemplatedFlowEdits) error
}
