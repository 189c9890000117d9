package domain

import "time"

// Flow is an editable draft of a service.
// The whole node map is written atomically; it is never partially persisted.
type Flow struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	TeamID string `json:"teamId"`

	// TemplatedFrom is the source template flow id of a dependent flow.
	TemplatedFrom string `json:"templatedFrom,omitempty"`

	Data Graph `json:"data"`

	// Version is the draft revision, bumped on every save.
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsTemplated reports whether the flow inherits from a source template.
func (f *Flow) IsTemplated() bool {
	return f != nil && f.TemplatedFrom != ""
}

// Snapshot is an immutable published copy of a flow's graph.
type Snapshot struct {
	ID          string    `json:"id"`
	FlowID      string    `json:"flowId"`
	Data        Graph     `json:"data"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	PublisherID string    `json:"publisherId"`
	Summary     string    `json:"summary,omitempty"`
}

// AnyVersion disables the optimistic version check on publish.
const AnyVersion = -1

// TemplatedFlowEdits is the sparse customisation overlay of a dependent
// flow, keyed by node id, each entry a partial node data object.
type TemplatedFlowEdits map[string]map[string]any

// Clone returns a deep copy of the overlay.
func (e TemplatedFlowEdits) Clone() TemplatedFlowEdits {
	if e == nil {
		return nil
	}
	out := make(TemplatedFlowEdits, len(e))
	for id, data := range e {
		out[id] = CloneMap(data)
	}
	return out
}
