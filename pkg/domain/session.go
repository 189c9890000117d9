package domain

import "time"

// Breadcrumb records one answered node of a user's session.
type Breadcrumb struct {
	// Auto marks an answer derived by the system rather than chosen by the user.
	Auto    bool           `json:"auto"`
	Answers []string       `json:"answers,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Clone returns a deep copy of the breadcrumb.
func (b Breadcrumb) Clone() Breadcrumb {
	out := Breadcrumb{Auto: b.Auto, Data: CloneMap(b.Data)}
	if b.Answers != nil {
		out.Answers = append([]string(nil), b.Answers...)
	}
	return out
}

// Breadcrumbs maps node ids to the recorded answers.
type Breadcrumbs map[string]Breadcrumb

// Clone returns a deep copy.
func (b Breadcrumbs) Clone() Breadcrumbs {
	if b == nil {
		return nil
	}
	out := make(Breadcrumbs, len(b))
	for id, crumb := range b {
		out[id] = crumb.Clone()
	}
	return out
}

// Passport is the accumulated answer state of a session.
// The engine never computes it; it is carried for persistence only.
type Passport struct {
	Data map[string]any `json:"data"`
}

// Session represents a user's in-progress application against a flow.
type Session struct {
	ID     string `json:"id"`
	FlowID string `json:"flowId"`

	// FlowVersion is the published snapshot version the breadcrumbs were
	// collected against.
	FlowVersion int `json:"flowVersion"`

	Passport    Passport    `json:"passport"`
	Breadcrumbs Breadcrumbs `json:"breadcrumbs"`

	// LockedAt is the advisory lock used by the pay / invite-to-pay workflow.
	LockedAt *time.Time `json:"lockedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSession creates an empty session for a flow at a published version.
func NewSession(id, flowID string, flowVersion int) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          id,
		FlowID:      flowID,
		FlowVersion: flowVersion,
		Passport:    Passport{Data: make(map[string]any)},
		Breadcrumbs: make(Breadcrumbs),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Passport = Passport{Data: CloneMap(s.Passport.Data)}
	out.Breadcrumbs = s.Breadcrumbs.Clone()
	if s.LockedAt != nil {
		t := *s.LockedAt
		out.LockedAt = &t
	}
	return &out
}
