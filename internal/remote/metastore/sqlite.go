package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kvalchek/pictor/internal/models"
)

// SQLiteStore implements SessionStore on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		active_url TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS versions (
		session_id TEXT NOT NULL,
		url TEXT NOT NULL,
		instruction TEXT NOT NULL DEFAULT '',
		parent_url TEXT NOT NULL DEFAULT '',
		settings JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		position INTEGER NOT NULL,
		PRIMARY KEY (session_id, url),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_versions_session_position
		ON versions(session_id, position);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// GetSession returns the full state of a session.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.SessionState, error) {
	state := &models.SessionState{SessionID: id}

	err := s.db.QueryRowContext(ctx,
		`SELECT active_url, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&state.ActiveURL, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT url, instruction, parent_url, settings, created_at
		 FROM versions WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query versions for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var v models.VersionEntry
		var settings sql.NullString
		if err := rows.Scan(&v.URL, &v.Instruction, &v.ParentURL, &settings, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if settings.Valid && settings.String != "" {
			if err := json.Unmarshal([]byte(settings.String), &v.Settings); err != nil {
				return nil, fmt.Errorf("decode settings for %s: %w", v.URL, err)
			}
		}
		state.Versions = append(state.Versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	return state, nil
}

// PutSession upserts a session and replaces its version list.
func (s *SQLiteStore) PutSession(ctx context.Context, state *models.SessionState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, active_url, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET active_url = excluded.active_url, updated_at = excluded.updated_at`,
		state.SessionID, state.ActiveURL, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert session %s: %w", state.SessionID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM versions WHERE session_id = ?`, state.SessionID); err != nil {
		return fmt.Errorf("clear versions for %s: %w", state.SessionID, err)
	}

	for i, v := range state.Versions {
		if err := insertVersion(ctx, tx, state.SessionID, v, i); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AppendVersions adds versions to the end of an existing session.
func (s *SQLiteStore) AppendVersions(ctx context.Context, id string, versions []*models.VersionEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check session %s: %w", id, err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM versions WHERE session_id = ?`, id).Scan(&next); err != nil {
		return fmt.Errorf("next position for %s: %w", id, err)
	}

	for i, v := range versions {
		if err := insertVersion(ctx, tx, id, v, next+i); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("touch session %s: %w", id, err)
	}

	return tx.Commit()
}

func insertVersion(ctx context.Context, tx *sql.Tx, sessionID string, v *models.VersionEntry, position int) error {
	var settings any
	if len(v.Settings) > 0 {
		data, err := json.Marshal(v.Settings)
		if err != nil {
			return fmt.Errorf("encode settings for %s: %w", v.URL, err)
		}
		settings = string(data)
	}
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO versions (session_id, url, instruction, parent_url, settings, created_at, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, url) DO UPDATE SET
			instruction = excluded.instruction,
			parent_url = excluded.parent_url,
			settings = excluded.settings,
			created_at = excluded.created_at`,
		sessionID, v.URL, v.Instruction, v.ParentURL, settings, createdAt, position)
	if err != nil {
		return fmt.Errorf("insert version %s: %w", v.URL, err)
	}
	return nil
}

// SetActive moves the active pointer and returns the updated state.
func (s *SQLiteStore) SetActive(ctx context.Context, id, url string) (*models.SessionState, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM versions WHERE session_id = ? AND url = ?`, id, url).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check version %s: %w", url, err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET active_url = ?, updated_at = ? WHERE id = ?`,
		url, time.Now().UTC(), id); err != nil {
		return nil, fmt.Errorf("set active for %s: %w", id, err)
	}

	return s.GetSession(ctx, id)
}

// DeleteSession removes a session and its versions.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// SessionCount returns the number of stored sessions.
func (s *SQLiteStore) SessionCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}
