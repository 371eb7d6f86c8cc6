// Package service provides business logic layer implementations.
package service

import (
	"context"

	"github.com/jnst/lifetime-analyzer/internal/model"
)

// AuditService records settled generation calls. It satisfies the
// lifecycle recorder contract.
type AuditService interface {
	Record(ctx context.Context, event *model.GenerationEvent) error
}

// OutboxService defines business logic methods for outbox event processing.
type OutboxService interface {
	ProcessUnpublishedEvents(ctx context.Context, limit int) error
}
