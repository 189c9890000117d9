package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// EditsStore implements ports.TemplateEditsStore on PostgreSQL.
type EditsStore struct {
	db *sql.DB
}

// NewEditsStore wraps an open database.
func NewEditsStore(db *sql.DB) *EditsStore {
	return &EditsStore{db: db}
}

// GetEdits returns the overlay of flowID, or nil when none was saved.
func (s *EditsStore) GetEdits(ctx context.Context, flowID string) (domain.TemplatedFlowEdits, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM templated_flow_edits WHERE flow_id = $1`, flowID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read edits %s: %w", flowID, err)
	}
	var edits domain.TemplatedFlowEdits
	if err := json.Unmarshal(raw, &edits); err != nil {
		return nil, fmt.Errorf("decode edits %s: %w", flowID, err)
	}
	return edits, nil
}

// SaveEdits upserts the overlay of flowID.
func (s *EditsStore) SaveEdits(ctx context.Context, flowID string, edits domain.TemplatedFlowEdits) error {
	if edits == nil {
		edits = domain.TemplatedFlowEdits{}
	}
	data, err := json.Marshal(edits)
	if err != nil {
		return fmt.Errorf("encode edits %s: %w", flowID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templated_flow_edits (flow_id, data, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (flow_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, flowID, string(data))
	if err != nil {
		return fmt.Errorf("save edits %s: %w", flowID, err)
	}
	return nil
}
