package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// uniqueViolation is the SQLSTATE of a unique constraint failure.
const uniqueViolation = "23505"

// GraphStore implements ports.GraphStore on PostgreSQL.
type GraphStore struct {
	db *sql.DB
}

// NewGraphStore wraps an open database. Call Migrate first.
func NewGraphStore(db *sql.DB) *GraphStore {
	return &GraphStore{db: db}
}

// DB returns the underlying handle.
func (s *GraphStore) DB() *sql.DB {
	return s.db
}

// GetFlow returns the flow record with its draft graph.
func (s *GraphStore) GetFlow(ctx context.Context, flowID string) (*domain.Flow, error) {
	const query = `
		SELECT id, slug, team_id, COALESCE(templated_from, ''), data, version, updated_at
		FROM flows
		WHERE id = $1
	`
	var (
		flow domain.Flow
		raw  []byte
	)
	err := s.db.QueryRowContext(ctx, query, flowID).Scan(
		&flow.ID, &flow.Slug, &flow.TeamID, &flow.TemplatedFrom, &raw, &flow.Version, &flow.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, flowID)
	}
	if err != nil {
		return nil, fmt.Errorf("read flow %s: %w", flowID, err)
	}
	if err := json.Unmarshal(raw, &flow.Data); err != nil {
		return nil, fmt.Errorf("decode flow %s: %w", flowID, err)
	}
	return &flow, nil
}

// GetDraft returns the draft graph of a flow.
func (s *GraphStore) GetDraft(ctx context.Context, flowID string) (domain.Graph, error) {
	flow, err := s.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return flow.Data, nil
}

// SaveDraft replaces the draft graph in one statement and bumps the version.
func (s *GraphStore) SaveDraft(ctx context.Context, flowID string, graph domain.Graph) error {
	data, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("encode flow %s: %w", flowID, err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE flows SET data = $2::jsonb, version = version + 1, updated_at = NOW()
		WHERE id = $1
	`, flowID, string(data))
	if err != nil {
		return fmt.Errorf("save draft %s: %w", flowID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save draft %s: %w", flowID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrFlowNotFound, flowID)
	}
	return nil
}

// InsertFlow creates a flow row and returns its id.
func (s *GraphStore) InsertFlow(ctx context.Context, flow domain.Flow) (string, error) {
	if flow.ID == "" {
		flow.ID = uuid.NewString()
	}
	if flow.Version == 0 {
		flow.Version = 1
	}
	data, err := json.Marshal(flow.Data)
	if err != nil {
		return "", fmt.Errorf("encode flow %s: %w", flow.ID, err)
	}
	if flow.Data == nil {
		data = []byte("{}")
	}

	var templatedFrom sql.NullString
	if flow.TemplatedFrom != "" {
		templatedFrom = sql.NullString{String: flow.TemplatedFrom, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flows (id, slug, team_id, templated_from, data, version)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
	`, flow.ID, flow.Slug, flow.TeamID, templatedFrom, string(data), flow.Version)
	if err != nil {
		return "", fmt.Errorf("insert flow %s: %w", flow.ID, err)
	}
	return flow.ID, nil
}

const snapshotColumns = `id, flow_id, data, version, created_at, publisher_id, summary`

func scanSnapshot(row *sql.Row, label string) (*domain.Snapshot, error) {
	var (
		snap domain.Snapshot
		raw  []byte
	)
	err := row.Scan(&snap.ID, &snap.FlowID, &raw, &snap.Version, &snap.CreatedAt, &snap.PublisherID, &snap.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, label)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", label, err)
	}
	if err := json.Unmarshal(raw, &snap.Data); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", label, err)
	}
	return &snap, nil
}

// GetLatestPublished returns the highest version snapshot of a flow.
func (s *GraphStore) GetLatestPublished(ctx context.Context, flowID string) (*domain.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM published_flows
		WHERE flow_id = $1
		ORDER BY version DESC
		LIMIT 1
	`, flowID)
	return scanSnapshot(row, flowID)
}

// GetPublishedByID returns the newest snapshot of flowID.
func (s *GraphStore) GetPublishedByID(ctx context.Context, flowID string) (*domain.Snapshot, error) {
	return s.GetLatestPublished(ctx, flowID)
}

// GetSnapshot returns one published version of a flow.
func (s *GraphStore) GetSnapshot(ctx context.Context, flowID string, version int) (*domain.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM published_flows
		WHERE flow_id = $1 AND version = $2
	`, flowID, version)
	return scanSnapshot(row, fmt.Sprintf("%s@%d", flowID, version))
}

// Publish inserts the next snapshot. The flow row is locked for the duration
// of the transaction so concurrent publishers serialise on it; the unique
// (flow_id, version) constraint backs the version check.
func (s *GraphStore) Publish(ctx context.Context, flowID string, graph domain.Graph, publisherID, summary string, expectedVersion int) (*domain.Snapshot, error) {
	data, err := json.Marshal(graph)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %s: %w", flowID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin publish tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM flows WHERE id = $1 FOR UPDATE`, flowID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, flowID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock flow %s: %w", flowID, err)
	}

	var latest int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM published_flows WHERE flow_id = $1`, flowID).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("read latest version %s: %w", flowID, err)
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
	_, err = tx.ExecContext(ctx, `
		INSERT INTO published_flows (id, flow_id, data, version, created_at, publisher_id, summary)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7)
	`, snap.ID, snap.FlowID, string(data), snap.Version, snap.CreatedAt, snap.PublisherID, snap.Summary)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: version %d already published", domain.ErrVersionConflict, snap.Version)
		}
		return nil, fmt.Errorf("insert snapshot %s: %w", flowID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit publish %s: %w", flowID, err)
	}
	return snap, nil
}
