// Package main provides the diagnostics consumer for the generation audit stream.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/rueidis"

	"github.com/jnst/lifetime-analyzer/internal/config"
	"github.com/jnst/lifetime-analyzer/internal/logger"
	"github.com/jnst/lifetime-analyzer/internal/model"
)

const (
	groupName         = "diagnostics"
	redisBlockTimeout = 1000 // milliseconds
	readBatchSize     = 10
	errorRetryDelay   = 1 * time.Second
	exitCode          = 1
)

// MessageHandler processes messages from the generation stream.
type MessageHandler struct {
	redisClient rueidis.Client
}

// NewMessageHandler creates a new message handler instance.
func NewMessageHandler(redisClient rueidis.Client) *MessageHandler {
	return &MessageHandler{
		redisClient: redisClient,
	}
}

// statsFields lists the counters one event increments.
func statsFields(event *model.GenerationEvent) []string {
	fields := []string{string(event.Action)}

	if event.FailureKind != "" {
		fields = append(fields, "failure:"+string(event.FailureKind))
	}

	if event.Stale {
		fields = append(fields, "stale")
	}

	return fields
}

// HandleGenerationEvent logs the attempt and bumps the outcome counters.
func (h *MessageHandler) HandleGenerationEvent(ctx context.Context, event *model.GenerationEvent) error {
	slog.Info("generation attempt",
		slog.String("session_id", event.SessionID),
		slog.Uint64("token", event.Token),
		slog.String("action", string(event.Action)),
		slog.String("failure_kind", string(event.FailureKind)),
		slog.String("model", event.Model),
		slog.Bool("stale", event.Stale),
		slog.Duration("duration", event.Duration),
	)

	fields := statsFields(event)
	cmds := make(rueidis.Commands, 0, len(fields))

	for _, field := range fields {
		cmds = append(cmds, h.redisClient.B().Hincrby().Key(model.GenerationStatsKey).Field(field).Increment(1).Build())
	}

	for _, resp := range h.redisClient.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("failed to update stats: %w", err)
		}
	}

	return nil
}

func setupRedisClient(cfg *config.Config) (rueidis.Client, error) {
	return rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
	})
}

func createConsumerGroup(ctx context.Context, redisClient rueidis.Client, streamKey, groupName string) {
	createGroupCmd := redisClient.B().XgroupCreate().Key(streamKey).Group(groupName).Id("0").Mkstream().Build()
	if err := redisClient.Do(ctx, createGroupCmd).Error(); err != nil {
		slog.Info("consumer group creation result (may already exist)", slog.String("error", err.Error()))
	}
}

func runConsumerLoop(ctx context.Context, handler *MessageHandler, streamKey, groupName, consumerName string) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("consumer stopped")
			return
		default:
			if err := handler.consumeMessages(ctx, streamKey, groupName, consumerName); err != nil {
				if ctx.Err() != nil {
					continue
				}

				slog.Error("error consuming messages", slog.String("error", err.Error()))
				time.Sleep(errorRetryDelay)
			}
		}
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	slog.SetDefault(logger.Setup(cfg.LogLevel, cfg.LogFormat))

	redisClient, err := setupRedisClient(cfg)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer redisClient.Close()

	handler := NewMessageHandler(redisClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	streamKey := model.GenerationStreamKey
	consumerName := cfg.ConsumerName

	createConsumerGroup(ctx, redisClient, streamKey, groupName)

	slog.Info("starting message consumer",
		slog.String("service", "consumer"),
		slog.String("stream", streamKey),
		slog.String("group", groupName),
		slog.String("consumer", consumerName),
	)

	runConsumerLoop(ctx, handler, streamKey, groupName, consumerName)
}

func (h *MessageHandler) readMessages(
	ctx context.Context,
	streamKey, groupName, consumerName string,
) (map[string][]rueidis.XRangeEntry, error) {
	readCmd := h.redisClient.B().Xreadgroup().Group(groupName, consumerName).
		Count(readBatchSize).
		Block(redisBlockTimeout).
		Streams().
		Key(streamKey).
		Id(">").
		Build()

	result := h.redisClient.Do(ctx, readCmd)
	if err := result.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}

		return nil, err
	}

	return result.AsXRead()
}

func (h *MessageHandler) acknowledgeMessage(ctx context.Context, streamKey, groupName, messageID string) {
	ackCmd := h.redisClient.B().Xack().Key(streamKey).Group(groupName).Id(messageID).Build()
	if err := h.redisClient.Do(ctx, ackCmd).Error(); err != nil {
		slog.Error("failed to ACK message",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()),
		)
	} else {
		slog.Debug("ACKed message", slog.String("message_id", messageID))
	}
}

func (h *MessageHandler) consumeMessages(ctx context.Context, streamKey, groupName, consumerName string) error {
	streams, err := h.readMessages(ctx, streamKey, groupName, consumerName)
	if err != nil {
		return err
	}

	for _, messages := range streams {
		for _, message := range messages {
			if err := h.processMessage(ctx, message); err != nil {
				slog.Error("failed to process message",
					slog.String("message_id", message.ID),
					slog.String("error", err.Error()),
				)

				continue
			}

			h.acknowledgeMessage(ctx, streamKey, groupName, message.ID)
		}
	}

	return nil
}

// decodeMessage extracts the generation event carried by a stream entry.
// Unknown event types yield a nil event and no error.
func decodeMessage(message rueidis.XRangeEntry) (*model.GenerationEvent, error) {
	eventType, ok := message.FieldValues["event_type"]
	if !ok {
		return nil, errors.New("missing event_type in message")
	}

	payload, ok := message.FieldValues["payload"]
	if !ok {
		return nil, errors.New("missing payload in message")
	}

	switch model.EventAction(eventType) {
	case model.EventActionGenerationSucceeded, model.EventActionGenerationFailed:
		var event model.GenerationEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("failed to parse %s payload: %w", eventType, err)
		}

		return &event, nil
	default:
		return nil, nil
	}
}

func (h *MessageHandler) processMessage(ctx context.Context, message rueidis.XRangeEntry) error {
	slog.Debug("received message",
		slog.String("message_id", message.ID),
		slog.Any("fields", message.FieldValues),
	)

	event, err := decodeMessage(message)
	if err != nil {
		return err
	}

	if event == nil {
		slog.Warn("unknown event type", slog.String("event_type", message.FieldValues["event_type"]))
		return nil
	}

	return h.HandleGenerationEvent(ctx, event)
}
