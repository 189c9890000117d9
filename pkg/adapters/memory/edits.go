package memory

import (
	"context"
	"sync"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// EditsStore implements ports.TemplateEditsStore in memory.
type EditsStore struct {
	mu    sync.RWMutex
	edits map[string]domain.TemplatedFlowEdits
}

// NewEditsStore creates an empty overlay store.
func NewEditsStore() *EditsStore {
	return &EditsStore{edits: make(map[string]domain.TemplatedFlowEdits)}
}

// GetEdits returns a copy of the overlay, or nil.
func (s *EditsStore) GetEdits(ctx context.Context, flowID string) (domain.TemplatedFlowEdits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edits[flowID].Clone(), nil
}

// SaveEdits replaces the overlay.
func (s *EditsStore) SaveEdits(ctx context.Context, flowID string, edits domain.TemplatedFlowEdits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits[flowID] = edits.Clone()
	return nil
}
