// Package repository provides data access interfaces and implementations.
package repository

import (
	"context"

	"github.com/jnst/lifetime-analyzer/internal/model"
)

// AttemptRepository stores generation attempt metadata.
type AttemptRepository interface {
	Create(ctx context.Context, event *model.GenerationEvent) (*model.Attempt, error)
	ListBySession(ctx context.Context, sessionID string) ([]*model.Attempt, error)
}

// OutboxRepository defines methods for outbox event data access.
type OutboxRepository interface {
	CreateEvent(ctx context.Context, params *model.CreateOutboxEventParams) (*model.OutboxEvent, error)
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkAsPublished(ctx context.Context, id int64) error
}

// TransactionManager defines methods for database transaction management.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StreamPublisher appends outbox events to a message stream.
type StreamPublisher interface {
	Publish(ctx context.Context, stream string, event *model.OutboxEvent) (string, error)
}
