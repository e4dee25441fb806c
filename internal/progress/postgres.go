// SPDX-License-Identifier: MPL-2.0

package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// registers the "postgres" driver with database/sql
	_ "github.com/lib/pq"
)

// PostgresStore persists attempts and solves in PostgreSQL via sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

// Open connects to PostgreSQL at dsn and verifies the schema exists.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect progress store: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate creates the attempts/solves tables if they don't already exist.
// Idempotent; safe to call on every process start.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attempts (
			id           BIGSERIAL PRIMARY KEY,
			user_id      TEXT NOT NULL,
			challenge_id TEXT NOT NULL,
			success      BOOLEAN NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS solves (
			user_id      TEXT NOT NULL,
			challenge_id TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, challenge_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate progress store: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasSolved(ctx context.Context, userID, challengeID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM solves WHERE user_id = $1 AND challenge_id = $2)`,
		userID, challengeID,
	)
	if err != nil {
		return false, fmt.Errorf("has_solved: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) RecordValidation(ctx context.Context, userID, challengeID string, success bool) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("record_validation: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO attempts (user_id, challenge_id, success, created_at) VALUES ($1, $2, $3, $4)`,
		userID, challengeID, success, now,
	); err != nil {
		return false, fmt.Errorf("record_validation: insert attempt: %w", err)
	}

	firstSolve := false
	if success {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO solves (user_id, challenge_id, created_at) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, challenge_id) DO NOTHING`,
			userID, challengeID, now,
		)
		if err != nil {
			return false, fmt.Errorf("record_validation: insert solve: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			firstSolve = true
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("record_validation: commit: %w", err)
	}
	return firstSolve, nil
}
