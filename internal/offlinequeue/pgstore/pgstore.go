// Package pgstore keeps the offline order queue in PostgreSQL.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"riwa-pos/internal/domain"
	"riwa-pos/internal/offlinequeue"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS queued_submissions (
	idempotency_key TEXT PRIMARY KEY,
	payload         JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	attempts        INT NOT NULL DEFAULT 0,
	last_error      TEXT NOT NULL DEFAULT '',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS queued_submission_log (
	id              BIGSERIAL PRIMARY KEY,
	idempotency_key TEXT NOT NULL,
	event           TEXT NOT NULL,
	detail          TEXT NOT NULL DEFAULT '',
	logged_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

type Store struct {
	db DB
}

var _ offlinequeue.Store = (*Store)(nil)

func New(db DB) *Store { return &Store{db: db} }

// EnsureSchema creates the queue tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure queue schema: %w", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, sub domain.QueuedSubmission) (err error) {
	payload, err := json.Marshal(sub.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload %s: %w", sub.IdempotencyKey, err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// 1. Upsert; created_at keeps the first failure time
	_, err = tx.Exec(ctx, `
		INSERT INTO queued_submissions (idempotency_key, payload, created_at, attempts, last_error, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (idempotency_key) DO UPDATE
		SET payload = EXCLUDED.payload,
		    attempts = EXCLUDED.attempts,
		    last_error = EXCLUDED.last_error,
		    updated_at = NOW()
	`, sub.IdempotencyKey, payload, sub.CreatedAt, sub.Attempts, sub.LastError)
	if err != nil {
		return fmt.Errorf("failed to upsert submission %s: %w", sub.IdempotencyKey, err)
	}

	// 2. Log the attempt
	_, err = tx.Exec(ctx, `
		INSERT INTO queued_submission_log (idempotency_key, event, detail)
		VALUES ($1, 'queued', $2)
	`, sub.IdempotencyKey, sub.LastError)
	if err != nil {
		return fmt.Errorf("failed to log submission %s: %w", sub.IdempotencyKey, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (domain.QueuedSubmission, error) {
	row := s.db.QueryRow(ctx, `
		SELECT idempotency_key, payload, created_at, attempts, last_error
		FROM queued_submissions WHERE idempotency_key = $1
	`, key)
	sub, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QueuedSubmission{}, offlinequeue.ErrNotFound
	}
	if err != nil {
		return domain.QueuedSubmission{}, fmt.Errorf("failed to get submission %s: %w", key, err)
	}
	return sub, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM queued_submissions WHERE idempotency_key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete submission %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return offlinequeue.ErrNotFound
	}
	if _, err := s.db.Exec(ctx, `
		INSERT INTO queued_submission_log (idempotency_key, event) VALUES ($1, 'removed')
	`, key); err != nil {
		return fmt.Errorf("failed to log removal %s: %w", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.QueuedSubmission, error) {
	rows, err := s.db.Query(ctx, `
		SELECT idempotency_key, payload, created_at, attempts, last_error
		FROM queued_submissions ORDER BY created_at, idempotency_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var out []domain.QueuedSubmission
	for rows.Next() {
		sub, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return out, nil
}

func scan(row pgx.Row) (domain.QueuedSubmission, error) {
	var (
		sub     domain.QueuedSubmission
		payload []byte
	)
	if err := row.Scan(&sub.IdempotencyKey, &payload, &sub.CreatedAt, &sub.Attempts, &sub.LastError); err != nil {
		return domain.QueuedSubmission{}, err
	}
	if err := json.Unmarshal(payload, &sub.Payload); err != nil {
		return domain.QueuedSubmission{}, fmt.Errorf("decode payload %s: %w", sub.IdempotencyKey, err)
	}
	return sub, nil
}
