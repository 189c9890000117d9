package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/ports"
)

// Mask replaces every masked value.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks passport and breadcrumb
// data values whose keys match any pattern (e.g. "applicant\.email").
// Masking is one-way: stored sessions never regain the original values.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) SaveSession(ctx context.Context, session *domain.Session) error {
	// Clone so the caller's session keeps its values.
	cloned := session.Clone()
	maskMap(cloned.Passport.Data, m.patterns)
	m.maskBreadcrumbs(cloned.Breadcrumbs)
	return m.next.SaveSession(ctx, cloned)
}

func (m *piiMiddleware) maskBreadcrumbs(crumbs domain.Breadcrumbs) {
	for _, crumb := range crumbs {
		maskMap(crumb.Data, m.patterns)
	}
}

func (m *piiMiddleware) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.GetSession(ctx, sessionID)
}

func (m *piiMiddleware) UpdateBreadcrumbs(ctx context.Context, sessionID string, breadcrumbs domain.Breadcrumbs, flowVersion int) error {
	cloned := breadcrumbs.Clone()
	m.maskBreadcrumbs(cloned)
	return m.next.UpdateBreadcrumbs(ctx, sessionID, cloned, flowVersion)
}

func (m *piiMiddleware) DeleteSession(ctx context.Context, sessionID string) error {
	return m.next.DeleteSession(ctx, sessionID)
}

func (m *piiMiddleware) ListSessions(ctx context.Context) ([]string, error) {
	return m.next.ListSessions(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if masked {
			continue
		}

		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
