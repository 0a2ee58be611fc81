package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientEvent(t *testing.T) {
	evt, err := ParseClientEvent([]byte(`{"type":"join","username":"alice"}`))
	require.NoError(t, err)
	join, ok := evt.(*JoinEvent)
	require.True(t, ok)
	assert.Equal(t, "alice", join.Username)

	evt, err = ParseClientEvent([]byte(`{"type":"send_message","sender":"alice","receiver":"bob","content":"hi","clientRef":"r1"}`))
	require.NoError(t, err)
	send, ok := evt.(*SendMessageEvent)
	require.True(t, ok)
	assert.Equal(t, "alice", send.Sender)
	assert.Equal(t, "bob", send.Receiver)
	assert.Equal(t, "hi", send.Content)
	assert.Equal(t, "r1", send.ClientRef)

	evt, err = ParseClientEvent([]byte(`{"type":"ping"}`))
	require.NoError(t, err)
	assert.IsType(t, &PingEvent{}, evt)
}

func TestParseClientEventRejectsMalformedFrames(t *testing.T) {
	cases := map[string]string{
		"not json":        `hello`,
		"missing type":    `{"username":"alice"}`,
		"unknown type":    `{"type":"typing"}`,
		"empty username":  `{"type":"join","username":""}`,
		"missing content": `{"type":"send_message","sender":"a","receiver":"b"}`,
		"missing sender":  `{"type":"send_message","receiver":"b","content":"x"}`,
		"wrong type":      `{"type":"join","username":42}`,
	}
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseClientEvent([]byte(frame))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedEvent))
		})
	}
}

func TestParseClientEventDescribesFields(t *testing.T) {
	_, err := ParseClientEvent([]byte(`{"type":"send_message","sender":"a"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "receiver is required")
	assert.Contains(t, err.Error(), "content is required")
}

func TestMessageStatus(t *testing.T) {
	assert.True(t, StatusSent.Valid())
	assert.True(t, StatusDelivered.Valid())
	assert.True(t, StatusRead.Valid())
	assert.False(t, MessageStatus("lost").Valid())
}
