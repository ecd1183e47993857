package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/chroma/internal/models"
	"github.com/jason-s-yu/chroma/internal/session"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	code       TEXT PRIMARY KEY,
	target_r   INTEGER NOT NULL,
	target_g   INTEGER NOT NULL,
	target_b   INTEGER NOT NULL,
	members    JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: pool}
}

// EnsureSchema creates the sessions table if needed.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.DB.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

// Insert adds a session row. A duplicate code yields session.ErrCodeTaken.
func (p *PostgresStore) Insert(ctx context.Context, s *models.Session) error {
	members, err := json.Marshal(s.Members)
	if err != nil {
		return fmt.Errorf("marshal members: %w", err)
	}
	q := `
	INSERT INTO sessions (code, target_r, target_g, target_b, members)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (code) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, p.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, s.Code, s.TargetColor.R, s.TargetColor.G, s.TargetColor.B, members)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return session.ErrCodeTaken
		}
		return nil
	})
}

// FindByCode fetches a session by code.
func (p *PostgresStore) FindByCode(ctx context.Context, code string) (*models.Session, error) {
	q := `
	SELECT code, target_r, target_g, target_b, members
	FROM sessions
	WHERE code = $1
	`
	var (
		s       models.Session
		members []byte
	)
	err := p.DB.QueryRow(ctx, q, code).Scan(
		&s.Code,
		&s.TargetColor.R,
		&s.TargetColor.G,
		&s.TargetColor.B,
		&members,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session %s: %w", code, err)
	}
	if err := json.Unmarshal(members, &s.Members); err != nil {
		return nil, fmt.Errorf("decode members of %s: %w", code, err)
	}
	return &s, nil
}

// Replace overwrites target color and members of an existing session.
func (p *PostgresStore) Replace(ctx context.Context, code string, s *models.Session) error {
	members, err := json.Marshal(s.Members)
	if err != nil {
		return fmt.Errorf("marshal members: %w", err)
	}
	q := `
	UPDATE sessions
	SET target_r = $2, target_g = $3, target_b = $4, members = $5, updated_at = now()
	WHERE code = $1
	`
	return pgx.BeginTxFunc(ctx, p.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, code, s.TargetColor.R, s.TargetColor.G, s.TargetColor.B, members)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return session.ErrNotFound
		}
		return nil
	})
}
