package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
}

// NewStore creates a new in-memory session store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Session),
	}
}

// SaveSession persists a deep copy of the session.
func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	copied := session.Clone()
	copied.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.ID] = copied
	return nil
}

// GetSession retrieves a copy of the session so callers can't mutate the
// stored value by pointer.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// UpdateBreadcrumbs replaces the breadcrumbs of a stored session.
func (s *Store) UpdateBreadcrumbs(ctx context.Context, sessionID string, breadcrumbs domain.Breadcrumbs, flowVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.data[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Breadcrumbs = breadcrumbs.Clone()
	if session.Breadcrumbs == nil {
		session.Breadcrumbs = make(domain.Breadcrumbs)
	}
	session.FlowVersion = flowVersion
	session.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteSession removes the session.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// ListSessions returns the stored session ids, sorted.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
