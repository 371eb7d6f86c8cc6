package service

import (
	"context"
	"log/slog"

	"github.com/jnst/lifetime-analyzer/internal/model"
	"github.com/jnst/lifetime-analyzer/internal/repository"
)

// OutboxServiceImpl relays unpublished outbox events to the generation stream.
type OutboxServiceImpl struct {
	outboxRepo repository.OutboxRepository
	publisher  repository.StreamPublisher
}

// NewOutboxServiceImpl creates a new OutboxService implementation.
func NewOutboxServiceImpl(outboxRepo repository.OutboxRepository, publisher repository.StreamPublisher) OutboxService {
	return &OutboxServiceImpl{
		outboxRepo: outboxRepo,
		publisher:  publisher,
	}
}

// ProcessUnpublishedEvents publishes up to limit events. A failed event is
// left unpublished and picked up again on the next poll.
func (s *OutboxServiceImpl) ProcessUnpublishedEvents(ctx context.Context, limit int) error {
	events, err := s.outboxRepo.GetUnpublishedEvents(ctx, limit)
	if err != nil {
		return err
	}

	for _, event := range events {
		entryID, err := s.publisher.Publish(ctx, model.GenerationStreamKey, event)
		if err != nil {
			slog.Error("failed to publish event",
				slog.Int64("event_id", event.ID),
				slog.String("error", err.Error()),
			)

			continue
		}

		if err := s.outboxRepo.MarkAsPublished(ctx, event.ID); err != nil {
			slog.Error("failed to mark event as published",
				slog.Int64("event_id", event.ID),
				slog.String("error", err.Error()),
			)

			continue
		}

		slog.Info("published event",
			slog.Int64("event_id", event.ID),
			slog.String("stream", model.GenerationStreamKey),
			slog.String("entry_id", entryID),
		)
	}

	return nil
}
