package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jnst/lifetime-analyzer/internal/model"
)

const (
	createOutboxEventSQL = `
INSERT INTO outbox_events (aggregate_id, event_type, payload)
VALUES ($1, $2, $3::jsonb)
RETURNING id, aggregate_id, event_type, payload, created_at, published_at`

	getUnpublishedEventsSQL = `
SELECT id, aggregate_id, event_type, payload, created_at, published_at
FROM outbox_events
WHERE published_at IS NULL
ORDER BY created_at, id
LIMIT $1`

	markEventAsPublishedSQL = `
UPDATE outbox_events SET published_at = NOW() WHERE id = $1`
)

// OutboxRepositoryImpl implements OutboxRepository using PostgreSQL.
type OutboxRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewOutboxRepositoryImpl creates a new OutboxRepository implementation.
func NewOutboxRepositoryImpl(pool *pgxpool.Pool) OutboxRepository {
	return &OutboxRepositoryImpl{pool: pool}
}

// CreateEvent creates a new outbox event.
func (r *OutboxRepositoryImpl) CreateEvent(
	ctx context.Context, params *model.CreateOutboxEventParams,
) (*model.OutboxEvent, error) {
	row := querierFrom(ctx, r.pool).QueryRow(ctx, createOutboxEventSQL,
		params.AggregateID, params.EventType, string(params.Payload))

	event, err := scanOutboxEvent(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox event: %w", err)
	}

	return event, nil
}

// GetUnpublishedEvents retrieves unpublished outbox events, oldest first.
func (r *OutboxRepositoryImpl) GetUnpublishedEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	rows, err := querierFrom(ctx, r.pool).Query(ctx, getUnpublishedEventsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unpublished events: %w", err)
	}
	defer rows.Close()

	var events []*model.OutboxEvent

	for rows.Next() {
		event, err := scanOutboxEvent(rows)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

// MarkAsPublished marks an outbox event as published.
func (r *OutboxRepositoryImpl) MarkAsPublished(ctx context.Context, id int64) error {
	tag, err := querierFrom(ctx, r.pool).Exec(ctx, markEventAsPublishedSQL, id)
	if err != nil {
		return fmt.Errorf("failed to mark event %d as published: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outbox event %d: %w", id, pgx.ErrNoRows)
	}

	return nil
}

func scanOutboxEvent(row pgx.Row) (*model.OutboxEvent, error) {
	var event model.OutboxEvent
	if err := row.Scan(
		&event.ID,
		&event.AggregateID,
		&event.EventType,
		&event.Payload,
		&event.CreatedAt,
		&event.PublishedAt,
	); err != nil {
		return nil, err
	}

	return &event, nil
}
