package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const roundsSchema = `
CREATE TABLE IF NOT EXISTS rounds (
	id          BIGSERIAL PRIMARY KEY,
	code        TEXT NOT NULL,
	target_name TEXT NOT NULL,
	target_hex  TEXT NOT NULL,
	duration    INTEGER NOT NULL,
	cancelled   BOOLEAN NOT NULL DEFAULT false,
	ended_at    TIMESTAMPTZ NOT NULL
)`

// RoundRow is one finished round as stored in the rounds table.
type RoundRow struct {
	Code       string
	TargetName string
	TargetHex  string
	Duration   int
	Cancelled  bool
	EndedAt    time.Time
}

// EnsureRoundsSchema creates the rounds table if needed.
func (p *PostgresStore) EnsureRoundsSchema(ctx context.Context) error {
	if _, err := p.DB.Exec(ctx, roundsSchema); err != nil {
		return fmt.Errorf("create rounds table: %w", err)
	}
	return nil
}

// InsertRounds writes rows in a single transaction.
func (p *PostgresStore) InsertRounds(ctx context.Context, rows []RoundRow) error {
	if len(rows) == 0 {
		return nil
	}
	q := `
	INSERT INTO rounds (code, target_name, target_hex, duration, cancelled, ended_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	return pgx.BeginTxFunc(ctx, p.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, r := range rows {
			if _, err := tx.Exec(ctx, q, r.Code, r.TargetName, r.TargetHex, r.Duration, r.Cancelled, r.EndedAt); err != nil {
				return fmt.Errorf("insert round for %s: %w", r.Code, err)
			}
		}
		return nil
	})
}
