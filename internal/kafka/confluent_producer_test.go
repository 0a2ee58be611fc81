package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

func TestNewRecord(t *testing.T) {
	msg := domain.NewMessage("42", "alice", "bob", "hi", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))

	record, err := newRecord("chat-messages", msg)
	require.NoError(t, err)

	assert.Equal(t, "chat-messages", *record.TopicPartition.Topic)
	assert.Equal(t, []byte("bob"), record.Key)
	require.Len(t, record.Headers, 2)
	assert.Equal(t, "message_id", record.Headers[0].Key)
	assert.Equal(t, []byte("42"), record.Headers[0].Value)

	var decoded domain.Message
	require.NoError(t, json.Unmarshal(record.Value, &decoded))
	assert.Equal(t, *msg, decoded)
}

func TestNoopPublisher(t *testing.T) {
	var p MessagePublisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), &domain.Message{ID: "1"}))
	assert.NoError(t, p.Close())
}
