package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// GraphStore implements ports.GraphStore in memory.
// Safe for concurrent use. Graphs are deep-copied on the way in and out.
type GraphStore struct {
	mu        sync.RWMutex
	flows     map[string]*domain.Flow
	snapshots map[string][]*domain.Snapshot
}

// NewGraphStore creates an empty in-memory graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		flows:     make(map[string]*domain.Flow),
		snapshots: make(map[string][]*domain.Snapshot),
	}
}

// GetFlow returns a copy of the flow record.
func (s *GraphStore) GetFlow(ctx context.Context, flowID string) (*domain.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flows[flowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, flowID)
	}
	out := *f
	out.Data = f.Data.Clone()
	return &out, nil
}

// GetDraft returns a copy of the draft graph.
func (s *GraphStore) GetDraft(ctx context.Context, flowID string) (domain.Graph, error) {
	f, err := s.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return f.Data, nil
}

// SaveDraft replaces the draft graph.
func (s *GraphStore) SaveDraft(ctx context.Context, flowID string, graph domain.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[flowID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrFlowNotFound, flowID)
	}
	f.Data = graph.Clone()
	f.Version++
	f.UpdatedAt = time.Now().UTC()
	return nil
}

// InsertFlow stores a new flow.
func (s *GraphStore) InsertFlow(ctx context.Context, flow domain.Flow) (string, error) {
	if flow.ID == "" {
		flow.ID = uuid.NewString()
	}
	flow.Data = flow.Data.Clone()
	if flow.Version == 0 {
		flow.Version = 1
	}
	flow.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.flows[flow.ID]; exists {
		return "", fmt.Errorf("flow %s already exists", flow.ID)
	}
	s.flows[flow.ID] = &flow
	return flow.ID, nil
}

// GetLatestPublished returns a copy of the newest snapshot.
func (s *GraphStore) GetLatestPublished(ctx context.Context, flowID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.snapshots[flowID]
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, flowID)
	}
	return copySnapshot(history[len(history)-1]), nil
}

// GetPublishedByID returns the newest snapshot of flowID.
func (s *GraphStore) GetPublishedByID(ctx context.Context, flowID string) (*domain.Snapshot, error) {
	return s.GetLatestPublished(ctx, flowID)
}

// GetSnapshot returns a copy of a specific snapshot.
func (s *GraphStore) GetSnapshot(ctx context.Context, flowID string, version int) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, snap := range s.snapshots[flowID] {
		if snap.Version == version {
			return copySnapshot(snap), nil
		}
	}
	return nil, fmt.Errorf("%w: %s@%d", domain.ErrSnapshotNotFound, flowID, version)
}

// Publish appends a snapshot after checking expectedVersion.
func (s *GraphStore) Publish(ctx context.Context, flowID string, graph domain.Graph, publisherID, summary string, expectedVersion int) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flows[flowID]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, flowID)
	}

	history := s.snapshots[flowID]
	latest := 0
	if len(history) > 0 {
		latest = history[len(history)-1].Version
	}
	if expectedVersion != domain.AnyVersion && expectedVersion != latest {
		return nil, fmt.Errorf("%w: expected version %d, latest is %d", domain.ErrVersionConflict, expectedVersion, latest)
	}

	snap := &domain.Snapshot{
		ID:          uuid.NewString(),
		FlowID:      flowID,
		Data:        graph.Clone(),
		Version:     latest + 1,
		CreatedAt:   time.Now().UTC(),
		PublisherID: publisherID,
		Summary:     summary,
	}
	s.snapshots[flowID] = append(history, snap)
	return copySnapshot(snap), nil
}

func copySnapshot(s *domain.Snapshot) *domain.Snapshot {
	out := *s
	out.Data = s.Data.Clone()
	return &out
}
