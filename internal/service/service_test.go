package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/lifetime-analyzer/internal/model"
)

type txKey struct{}

// fakeTx marks ctx as transactional and counts commits and rollbacks.
type fakeTx struct {
	committed int
	rolled    int
}

func (f *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		f.rolled++
		return err
	}

	f.committed++

	return nil
}

type fakeAttempts struct {
	created []*model.GenerationEvent
	err     error
}

func (f *fakeAttempts) Create(ctx context.Context, event *model.GenerationEvent) (*model.Attempt, error) {
	if ctx.Value(txKey{}) == nil {
		return nil, errors.New("not in transaction")
	}

	if f.err != nil {
		return nil, f.err
	}

	f.created = append(f.created, event)

	return &model.Attempt{ID: int64(len(f.created)), GenerationEvent: *event}, nil
}

func (f *fakeAttempts) ListBySession(context.Context, string) ([]*model.Attempt, error) {
	return nil, nil
}

type fakeOutbox struct {
	events    []*model.OutboxEvent
	published map[int64]bool
	markErr   error
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{published: make(map[int64]bool)}
}

func (f *fakeOutbox) CreateEvent(ctx context.Context, params *model.CreateOutboxEventParams) (*model.OutboxEvent, error) {
	if ctx.Value(txKey{}) == nil {
		return nil, errors.New("not in transaction")
	}

	event := &model.OutboxEvent{
		ID:          int64(len(f.events) + 1),
		AggregateID: params.AggregateID,
		EventType:   params.EventType,
		Payload:     params.Payload,
		CreatedAt:   time.Now(),
	}
	f.events = append(f.events, event)

	return event, nil
}

func (f *fakeOutbox) GetUnpublishedEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	var out []*model.OutboxEvent

	for _, e := range f.events {
		if !f.published[e.ID] && len(out) < limit {
			out = append(out, e)
		}
	}

	return out, nil
}

func (f *fakeOutbox) MarkAsPublished(_ context.Context, id int64) error {
	if f.markErr != nil {
		return f.markErr
	}

	f.published[id] = true

	return nil
}

type fakePublisher struct {
	streams []string
	ids     []int64
	failID  int64
}

func (f *fakePublisher) Publish(_ context.Context, stream string, event *model.OutboxEvent) (string, error) {
	if event.ID == f.failID {
		return "", errors.New("redis down")
	}

	f.streams = append(f.streams, stream)
	f.ids = append(f.ids, event.ID)

	return "1-0", nil
}

func event() *model.GenerationEvent {
	return &model.GenerationEvent{
		SessionID:   "abc",
		Token:       3,
		Action:      model.EventActionGenerationFailed,
		FailureKind: model.ErrorKindServiceError,
		Model:       "gemini-2.5-flash",
		PromptBytes: 100,
		OccurredAt:  time.Date(2025, time.October, 19, 10, 0, 0, 0, time.UTC),
	}
}

func TestAuditRecordWritesAttemptAndOutbox(t *testing.T) {
	tx := &fakeTx{}
	attempts := &fakeAttempts{}
	outbox := newFakeOutbox()

	svc := NewAuditServiceImpl(attempts, outbox, tx)
	require.NoError(t, svc.Record(context.Background(), event()))

	assert.Equal(t, 1, tx.committed)
	require.Len(t, attempts.created, 1)
	require.Len(t, outbox.events, 1)

	created := outbox.events[0]
	assert.Equal(t, "session_abc", created.AggregateID)
	assert.Equal(t, "generation_failed", created.EventType)

	var payload model.GenerationEvent
	require.NoError(t, json.Unmarshal(created.Payload, &payload))
	assert.Equal(t, "abc", payload.SessionID)
	assert.Equal(t, uint64(3), payload.Token)
	assert.Equal(t, model.ErrorKindServiceError, payload.FailureKind)
}

func TestAuditRecordRollsBackOnFailure(t *testing.T) {
	tx := &fakeTx{}
	outbox := newFakeOutbox()

	svc := NewAuditServiceImpl(&fakeAttempts{err: errors.New("insert failed")}, outbox, tx)
	err := svc.Record(context.Background(), event())

	require.EqualError(t, err, "insert failed")
	assert.Equal(t, 1, tx.rolled)
	assert.Empty(t, outbox.events)
}

func TestProcessUnpublishedEvents(t *testing.T) {
	outbox := newFakeOutbox()
	ctx := context.WithValue(context.Background(), txKey{}, true)

	for i := 0; i < 3; i++ {
		_, err := outbox.CreateEvent(ctx, &model.CreateOutboxEventParams{AggregateID: "session_x", EventType: "generation_succeeded"})
		require.NoError(t, err)
	}

	publisher := &fakePublisher{failID: 2}
	svc := NewOutboxServiceImpl(outbox, publisher)

	require.NoError(t, svc.ProcessUnpublishedEvents(context.Background(), 10))

	assert.Equal(t, []int64{1, 3}, publisher.ids)
	assert.Equal(t, []string{model.GenerationStreamKey, model.GenerationStreamKey}, publisher.streams)
	assert.True(t, outbox.published[1])
	assert.False(t, outbox.published[2])
	assert.True(t, outbox.published[3])

	publisher.failID = 0
	require.NoError(t, svc.ProcessUnpublishedEvents(context.Background(), 10))
	assert.True(t, outbox.published[2])
}

func TestProcessUnpublishedEventsRespectsLimit(t *testing.T) {
	outbox := newFakeOutbox()
	ctx := context.WithValue(context.Background(), txKey{}, true)

	for i := 0; i < 5; i++ {
		_, err := outbox.CreateEvent(ctx, &model.CreateOutboxEventParams{AggregateID: "session_x", EventType: "generation_succeeded"})
		require.NoError(t, err)
	}

	publisher := &fakePublisher{}
	require.NoError(t, NewOutboxServiceImpl(outbox, publisher).ProcessUnpublishedEvents(context.Background(), 2))

	assert.Equal(t, []int64{1, 2}, publisher.ids)
}

func TestProcessLeavesEventWhenMarkFails(t *testing.T) {
	outbox := newFakeOutbox()
	outbox.markErr = errors.New("db down")
	ctx := context.WithValue(context.Background(), txKey{}, true)

	_, err := outbox.CreateEvent(ctx, &model.CreateOutboxEventParams{AggregateID: "session_x", EventType: "generation_failed"})
	require.NoError(t, err)

	require.NoError(t, NewOutboxServiceImpl(outbox, &fakePublisher{}).ProcessUnpublishedEvents(context.Background(), 10))
	assert.False(t, outbox.published[1])
}
