// Package file stores sessions as JSON files for local CLI use.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/flowgraph/pkg/domain"
)

// Store implements ports.SessionStore using the local filesystem.
// It stores sessions as JSON files in a configured directory.
type Store struct {
	BasePath string

	// mu serialises read-modify-write cycles within this process.
	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".flowgraph/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".flowgraph", "sessions")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.BasePath, sessionID+".json")
}

// SaveSession persists the session to a JSON file atomically.
func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := session.Clone()
	copied.UpdatedAt = time.Now().UTC()
	return s.write(copied)
}

// write puts the session in place via temp file, fsync and rename.
func (s *Store) write(session *domain.Session) error {
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	destPath := s.path(session.ID)

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+session.ID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing session file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to valid session: %w", err)
	}
	return nil
}

// GetSession reads the session file.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}
	return s.read(sessionID)
}

func (s *Store) read(sessionID string) (*domain.Session, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Breadcrumbs == nil {
		session.Breadcrumbs = make(domain.Breadcrumbs)
	}
	return &session, nil
}

// UpdateBreadcrumbs rewrites the breadcrumbs and flow version of a session.
func (s *Store) UpdateBreadcrumbs(ctx context.Context, sessionID string, breadcrumbs domain.Breadcrumbs, flowVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.read(sessionID)
	if err != nil {
		return err
	}
	session.Breadcrumbs = breadcrumbs.Clone()
	if session.Breadcrumbs == nil {
		session.Breadcrumbs = make(domain.Breadcrumbs)
	}
	session.FlowVersion = flowVersion
	session.UpdatedAt = time.Now().UTC()
	return s.write(session)
}

// DeleteSession removes the session file.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// ListSessions returns the ids of all session files.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || filepath.HasPrefix(name, "tmp-") {
			continue
		}
		sessions = append(sessions, name[:len(name)-len(".json")])
	}
	sort.Strings(sessions)
	return sessions, nil
}
