package main

import (
	"testing"

	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/lifetime-analyzer/internal/model"
)

func TestStatsFields(t *testing.T) {
	assert.Equal(t, []string{"generation_succeeded"},
		statsFields(&model.GenerationEvent{Action: model.EventActionGenerationSucceeded}))

	assert.Equal(t, []string{"generation_failed", "failure:unauthorized", "stale"},
		statsFields(&model.GenerationEvent{
			Action:      model.EventActionGenerationFailed,
			FailureKind: model.ErrorKindUnauthorized,
			Stale:       true,
		}))
}

func TestDecodeMessage(t *testing.T) {
	event, err := decodeMessage(rueidis.XRangeEntry{
		ID: "1-0",
		FieldValues: map[string]string{
			"event_type":   "generation_failed",
			"aggregate_id": "session_abc",
			"payload":      `{"session_id":"abc","token":2,"action":"generation_failed","failure_kind":"service_error"}`,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "abc", event.SessionID)
	assert.Equal(t, uint64(2), event.Token)
	assert.Equal(t, model.ErrorKindServiceError, event.FailureKind)
}

func TestDecodeMessageRejectsIncompleteEntries(t *testing.T) {
	_, err := decodeMessage(rueidis.XRangeEntry{FieldValues: map[string]string{"payload": "{}"}})
	assert.EqualError(t, err, "missing event_type in message")

	_, err = decodeMessage(rueidis.XRangeEntry{FieldValues: map[string]string{"event_type": "generation_failed"}})
	assert.EqualError(t, err, "missing payload in message")

	_, err = decodeMessage(rueidis.XRangeEntry{FieldValues: map[string]string{
		"event_type": "generation_failed",
		"payload":    "{",
	}})
	assert.Error(t, err)
}

func TestDecodeMessageIgnoresUnknownTypes(t *testing.T) {
	event, err := decodeMessage(rueidis.XRangeEntry{FieldValues: map[string]string{
		"event_type": "user_created",
		"payload":    "{}",
	}})
	require.NoError(t, err)
	assert.Nil(t, event)
}
