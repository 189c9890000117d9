package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/adapters/fs"
	"github.com/aretw0/loam/pkg/core"
	"github.com/google/uuid"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// Document layout inside the repository:
//
//	flows/<flowID>.json                  draft and flow record
//	snapshots/<flowID>/v<version>.json   published snapshots
//	edits/<flowID>.json                  templated flow overlay
const (
	flowsDir     = "flows"
	snapshotsDir = "snapshots"
	editsDir     = "edits"
	docExt       = ".json"
)

// flowRecord is the persisted form of a flow.
type flowRecord struct {
	Flow      domain.Flow `json:"flow"`
	Published int         `json:"published"`
}

type editsRecord struct {
	Edits domain.TemplatedFlowEdits `json:"edits"`
}

// Store implements ports.GraphStore and ports.TemplateEditsStore on a Loam
// repository of JSON documents. Writes are serialised in-process; the
// repository is not meant to be shared between processes.
type Store struct {
	mu   sync.Mutex
	root string
	repo core.Repository
}

// Open initialises a repository at dir.
func Open(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve store dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	repo, err := loam.Init(abs,
		loam.WithVersioning(false),
		loam.WithSerializer(docExt, fs.NewJSONSerializer(true)),
	)
	if err != nil {
		return nil, fmt.Errorf("init loam repo: %w", err)
	}
	return NewStore(abs, repo), nil
}

// NewStore wraps an initialised repository rooted at root.
func NewStore(root string, repo core.Repository) *Store {
	return &Store{root: root, repo: repo}
}

func flowDoc(flowID string) string {
	return filepath.ToSlash(filepath.Join(flowsDir, flowID))
}

func snapshotDoc(flowID string, version int) string {
	return filepath.ToSlash(filepath.Join(snapshotsDir, flowID, fmt.Sprintf("v%d", version)))
}

func editsDoc(flowID string) string {
	return filepath.ToSlash(filepath.Join(editsDir, flowID))
}

func (s *Store) exists(id string) bool {
	_, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(id)+docExt))
	return err == nil
}

func (s *Store) read(ctx context.Context, id string, out any) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loam get failed for %s: %w", id, err)
	}
	raw, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", id, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	if err := s.repo.Save(ctx, core.Document{ID: id + docExt, Metadata: core.Metadata(meta)}); err != nil {
		return fmt.Errorf("loam save failed for %s: %w", id, err)
	}
	return nil
}

func (s *Store) loadFlow(ctx context.Context, flowID string) (*flowRecord, error) {
	if !s.exists(flowDoc(flowID)) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, flowID)
	}
	var rec flowRecord
	if err := s.read(ctx, flowDoc(flowID), &rec); err != nil {
		return nil, err
	}
	rec.Flow.ID = flowID
	return &rec, nil
}

// GetFlow returns the flow record with its draft graph.
func (s *Store) GetFlow(ctx context.Context, flowID string) (*domain.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return &rec.Flow, nil
}

// GetDraft returns the draft graph of a flow.
func (s *Store) GetDraft(ctx context.Context, flowID string) (domain.Graph, error) {
	flow, err := s.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return flow.Data, nil
}

// SaveDraft rewrites the flow document with the new graph.
func (s *Store) SaveDraft(ctx context.Context, flowID string, graph domain.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadFlow(ctx, flowID)
	if err != nil {
		return err
	}
	rec.Flow.Data = graph
	rec.Flow.Version++
	rec.Flow.UpdatedAt = time.Now().UTC()
	return s.write(ctx, flowDoc(flowID), rec)
}

// InsertFlow writes a new flow document.
func (s *Store) InsertFlow(ctx context.Context, flow domain.Flow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if flow.ID == "" {
		flow.ID = uuid.NewString()
	}
	if s.exists(flowDoc(flow.ID)) {
		return "", fmt.Errorf("flow %s already exists", flow.ID)
	}
	if flow.Version == 0 {
		flow.Version = 1
	}
	flow.UpdatedAt = time.Now().UTC()
	if err := s.write(ctx, flowDoc(flow.ID), flowRecord{Flow: flow}); err != nil {
		return "", err
	}
	return flow.ID, nil
}

func (s *Store) loadSnapshot(ctx context.Context, flowID string, version int) (*domain.Snapshot, error) {
	id := snapshotDoc(flowID, version)
	if version < 1 || !s.exists(id) {
		return nil, fmt.Errorf("%w: %s@%d", domain.ErrSnapshotNotFound, flowID, version)
	}
	var snap domain.Snapshot
	if err := s.read(ctx, id, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetLatestPublished returns the newest snapshot of a flow.
func (s *Store) GetLatestPublished(ctx context.Context, flowID string) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadFlow(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, flowID)
	}
	if rec.Published == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, flowID)
	}
	return s.loadSnapshot(ctx, flowID, rec.Published)
}

// GetPublishedByID returns the newest snapshot of flowID.
func (s *Store) GetPublishedByID(ctx context.Context, flowID string) (*domain.Snapshot, error) {
	return s.GetLatestPublished(ctx, flowID)
}

// GetSnapshot returns one published version.
func (s *Store) GetSnapshot(ctx context.Context, flowID string, version int) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSnapshot(ctx, flowID, version)
}

// Publish writes the next snapshot document and advances the flow's
// published pointer.
func (s *Store) Publish(ctx context.Context, flowID string, graph domain.Graph, publisherID, summary string, expectedVersion int) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if expectedVersion != domain.AnyVersion && expectedVersion != rec.Published {
		return nil, fmt.Errorf("%w: expected version %d, latest is %d", domain.ErrVersionConflict, expectedVersion, rec.Published)
	}

	snap := &domain.Snapshot{
		ID:          uuid.NewString(),
		FlowID:      flowID,
		Data:        graph.Clone(),
		Version:     rec.Published + 1,
		CreatedAt:   time.Now().UTC(),
		PublisherID: publisherID,
		Summary:     summary,
	}
	if err := s.write(ctx, snapshotDoc(flowID, snap.Version), snap); err != nil {
		return nil, err
	}
	rec.Published = snap.Version
	if err := s.write(ctx, flowDoc(flowID), rec); err != nil {
		return nil, err
	}
	return snap, nil
}

// GetEdits returns the overlay of flowID, or nil.
func (s *Store) GetEdits(ctx context.Context, flowID string) (domain.TemplatedFlowEdits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists(editsDoc(flowID)) {
		return nil, nil
	}
	var rec editsRecord
	if err := s.read(ctx, editsDoc(flowID), &rec); err != nil {
		return nil, err
	}
	if rec.Edits == nil {
		rec.Edits = domain.TemplatedFlowEdits{}
	}
	return rec.Edits, nil
}

// SaveEdits replaces the overlay document.
func (s *Store) SaveEdits(ctx context.Context, flowID string, edits domain.TemplatedFlowEdits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, editsDoc(flowID), editsRecord{Edits: edits})
}
