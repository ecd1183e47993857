package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jason-s-yu/chroma/internal/models"
	"github.com/jason-s-yu/chroma/internal/session"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	code       TEXT PRIMARY KEY,
	target_r   INTEGER NOT NULL,
	target_g   INTEGER NOT NULL,
	target_b   INTEGER NOT NULL,
	members    TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore persists sessions in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, sess *models.Session) error {
	members, err := json.Marshal(sess.Members)
	if err != nil {
		return fmt.Errorf("marshal members: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (code, target_r, target_g, target_b, members)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(code) DO NOTHING`,
		sess.Code, sess.TargetColor.R, sess.TargetColor.G, sess.TargetColor.B, string(members))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if n == 0 {
		return session.ErrCodeTaken
	}
	return nil
}

func (s *SQLiteStore) FindByCode(ctx context.Context, code string) (*models.Session, error) {
	var (
		sess    models.Session
		members string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT code, target_r, target_g, target_b, members FROM sessions WHERE code = ?`, code,
	).Scan(&sess.Code, &sess.TargetColor.R, &sess.TargetColor.G, &sess.TargetColor.B, &members)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session %s: %w", code, err)
	}
	if err := json.Unmarshal([]byte(members), &sess.Members); err != nil {
		return nil, fmt.Errorf("decode members of %s: %w", code, err)
	}
	return &sess, nil
}

func (s *SQLiteStore) Replace(ctx context.Context, code string, sess *models.Session) error {
	members, err := json.Marshal(sess.Members)
	if err != nil {
		return fmt.Errorf("marshal members: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions
		 SET target_r = ?, target_g = ?, target_b = ?, members = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE code = ?`,
		sess.TargetColor.R, sess.TargetColor.G, sess.TargetColor.B, string(members), code)
	if err != nil {
		return fmt.Errorf("update session %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session %s: %w", code, err)
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}
