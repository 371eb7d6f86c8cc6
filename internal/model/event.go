package model

import "time"

const (
	// GenerationStreamKey is the Redis stream the outbox publisher writes to.
	GenerationStreamKey = "generation:events"
	// GenerationStatsKey is the Redis hash holding per-outcome counters.
	GenerationStatsKey = "generation:stats"
)

// EventAction represents the type of event action.
type EventAction string

const (
	EventActionGenerationSucceeded EventAction = "generation_succeeded"
	EventActionGenerationFailed    EventAction = "generation_failed"
)

// GenerationEvent describes one settled call to the generation service.
// It carries metadata only; the report text is never stored.
type GenerationEvent struct {
	SessionID    string        `json:"session_id"`
	Token        uint64        `json:"token"`
	Action       EventAction   `json:"action"`
	FailureKind  ErrorKind     `json:"failure_kind,omitempty"`
	Model        string        `json:"model"`
	PromptSHA256 string        `json:"prompt_sha256"`
	PromptBytes  int           `json:"prompt_bytes"`
	ReportBytes  int           `json:"report_bytes"`
	Stale        bool          `json:"stale"`
	Duration     time.Duration `json:"duration_ns"`
	OccurredAt   time.Time     `json:"occurred_at"`
}

// Attempt is a persisted GenerationEvent.
type Attempt struct {
	ID int64 `json:"id"`
	GenerationEvent
	CreatedAt time.Time `json:"created_at"`
}

// OutboxEvent represents an outbox event for reliable message delivery.
type OutboxEvent struct {
	ID          int64      `json:"id"`
	AggregateID string     `json:"aggregate_id"`
	EventType   string     `json:"event_type"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at"`
}

// CreateOutboxEventParams represents parameters for creating a new outbox event.
type CreateOutboxEventParams struct {
	AggregateID string
	EventType   string
	Payload     []byte
}
