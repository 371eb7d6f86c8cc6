package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jnst/lifetime-analyzer/internal/model"
)

const (
	attemptColumns = `id, session_id, token, action, failure_kind, model, prompt_sha256,
	prompt_bytes, report_bytes, stale, duration_ms, occurred_at, created_at`

	createAttemptSQL = `
INSERT INTO generation_attempts (session_id, token, action, failure_kind, model, prompt_sha256,
	prompt_bytes, report_bytes, stale, duration_ms, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + attemptColumns

	listAttemptsBySessionSQL = `
SELECT ` + attemptColumns + `
FROM generation_attempts
WHERE session_id = $1
ORDER BY token, id`
)

// AttemptRepositoryImpl implements AttemptRepository using PostgreSQL.
type AttemptRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewAttemptRepositoryImpl creates a new AttemptRepository implementation.
func NewAttemptRepositoryImpl(pool *pgxpool.Pool) AttemptRepository {
	return &AttemptRepositoryImpl{pool: pool}
}

// Create inserts one attempt.
func (r *AttemptRepositoryImpl) Create(ctx context.Context, event *model.GenerationEvent) (*model.Attempt, error) {
	row := querierFrom(ctx, r.pool).QueryRow(ctx, createAttemptSQL,
		event.SessionID,
		int64(event.Token),
		string(event.Action),
		string(event.FailureKind),
		event.Model,
		event.PromptSHA256,
		event.PromptBytes,
		event.ReportBytes,
		event.Stale,
		event.Duration.Milliseconds(),
		event.OccurredAt,
	)

	attempt, err := scanAttempt(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation attempt: %w", err)
	}

	return attempt, nil
}

// ListBySession returns a session's attempts in submission order.
func (r *AttemptRepositoryImpl) ListBySession(ctx context.Context, sessionID string) ([]*model.Attempt, error) {
	rows, err := querierFrom(ctx, r.pool).Query(ctx, listAttemptsBySessionSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query generation attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*model.Attempt

	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}

		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	var (
		a          model.Attempt
		token      int64
		action     string
		kind       string
		durationMS int64
	)

	if err := row.Scan(
		&a.ID,
		&a.SessionID,
		&token,
		&action,
		&kind,
		&a.Model,
		&a.PromptSHA256,
		&a.PromptBytes,
		&a.ReportBytes,
		&a.Stale,
		&durationMS,
		&a.OccurredAt,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}

	a.Token = uint64(token)
	a.Action = model.EventAction(action)
	a.FailureKind = model.ErrorKind(kind)
	a.Duration = time.Duration(durationMS) * time.Millisecond

	return &a, nil
}
