package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jnst/lifetime-analyzer/internal/model"
	"github.com/jnst/lifetime-analyzer/internal/repository"
)

// AuditServiceImpl writes each attempt and its outbox event in one transaction.
type AuditServiceImpl struct {
	attemptRepo    repository.AttemptRepository
	outboxRepo     repository.OutboxRepository
	transactionMgr repository.TransactionManager
}

// NewAuditServiceImpl creates a new AuditService implementation.
func NewAuditServiceImpl(
	attemptRepo repository.AttemptRepository,
	outboxRepo repository.OutboxRepository,
	transactionMgr repository.TransactionManager,
) AuditService {
	return &AuditServiceImpl{
		attemptRepo:    attemptRepo,
		outboxRepo:     outboxRepo,
		transactionMgr: transactionMgr,
	}
}

// Record persists the attempt and enqueues it for the stream relay.
func (s *AuditServiceImpl) Record(ctx context.Context, event *model.GenerationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal generation event: %w", err)
	}

	var attempt *model.Attempt

	err = s.transactionMgr.WithTransaction(ctx, func(txCtx context.Context) error {
		var txErr error

		attempt, txErr = s.attemptRepo.Create(txCtx, event)
		if txErr != nil {
			return txErr
		}

		_, txErr = s.outboxRepo.CreateEvent(txCtx, &model.CreateOutboxEventParams{
			AggregateID: "session_" + event.SessionID,
			EventType:   string(event.Action),
			Payload:     payload,
		})

		return txErr
	})
	if err != nil {
		return err
	}

	slog.Debug("generation attempt recorded",
		slog.Int64("attempt_id", attempt.ID),
		slog.String("session_id", event.SessionID),
		slog.String("action", string(event.Action)),
	)

	return nil
}
