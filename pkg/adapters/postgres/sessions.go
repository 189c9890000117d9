package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// SessionStore implements ports.SessionStore on PostgreSQL.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore wraps an open database.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// GetSession loads one session row.
func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	const query = `
		SELECT id, flow_id, flow_version, passport, breadcrumbs, locked_at, created_at, updated_at
		FROM lowcal_sessions
		WHERE id = $1
	`
	var (
		session     domain.Session
		passport    []byte
		breadcrumbs []byte
		lockedAt    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID, &session.FlowID, &session.FlowVersion, &passport, &breadcrumbs,
		&lockedAt, &session.CreatedAt, &session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	if err := json.Unmarshal(passport, &session.Passport); err != nil {
		return nil, fmt.Errorf("decode passport %s: %w", sessionID, err)
	}
	if err := json.Unmarshal(breadcrumbs, &session.Breadcrumbs); err != nil {
		return nil, fmt.Errorf("decode breadcrumbs %s: %w", sessionID, err)
	}
	if session.Passport.Data == nil {
		session.Passport.Data = make(map[string]any)
	}
	if session.Breadcrumbs == nil {
		session.Breadcrumbs = make(domain.Breadcrumbs)
	}
	if lockedAt.Valid {
		t := lockedAt.Time
		session.LockedAt = &t
	}
	return &session, nil
}

// SaveSession upserts a session row.
func (s *SessionStore) SaveSession(ctx context.Context, session *domain.Session) error {
	passport, err := json.Marshal(session.Passport)
	if err != nil {
		return fmt.Errorf("encode passport %s: %w", session.ID, err)
	}
	breadcrumbs, err := encodeBreadcrumbs(session.Breadcrumbs)
	if err != nil {
		return fmt.Errorf("encode breadcrumbs %s: %w", session.ID, err)
	}
	var lockedAt sql.NullTime
	if session.LockedAt != nil {
		lockedAt = sql.NullTime{Time: *session.LockedAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lowcal_sessions (id, flow_id, flow_version, passport, breadcrumbs, locked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			flow_id = EXCLUDED.flow_id,
			flow_version = EXCLUDED.flow_version,
			passport = EXCLUDED.passport,
			breadcrumbs = EXCLUDED.breadcrumbs,
			locked_at = EXCLUDED.locked_at,
			updated_at = EXCLUDED.updated_at
	`, session.ID, session.FlowID, session.FlowVersion, string(passport), breadcrumbs, lockedAt, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

// UpdateBreadcrumbs rewrites only the breadcrumbs and flow version columns.
func (s *SessionStore) UpdateBreadcrumbs(ctx context.Context, sessionID string, breadcrumbs domain.Breadcrumbs, flowVersion int) error {
	data, err := encodeBreadcrumbs(breadcrumbs)
	if err != nil {
		return fmt.Errorf("encode breadcrumbs %s: %w", sessionID, err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE lowcal_sessions SET breadcrumbs = $2::jsonb, flow_version = $3, updated_at = NOW()
		WHERE id = $1
	`, sessionID, data, flowVersion)
	if err != nil {
		return fmt.Errorf("update breadcrumbs %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update breadcrumbs %s: %w", sessionID, err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session row.
func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lowcal_sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// ListSessions returns every session id in order.
func (s *SessionStore) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM lowcal_sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func encodeBreadcrumbs(b domain.Breadcrumbs) (string, error) {
	if b == nil {
		return "{}", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
