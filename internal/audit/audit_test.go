package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/pkg/log"
)

func capture(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return log.WithLogger(context.Background(), log.New(log.Config{Output: &buf})), &buf
}

func TestLog(t *testing.T) {
	ctx, buf := capture(t)
	Log(ctx, ActionJoin, "alice", "connection joined")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, log.LogTypeAudit, entry[log.FieldLogType])
	assert.Equal(t, ActionJoin, entry[FieldAction])
	assert.Equal(t, "alice", entry[log.FieldUsername])
	assert.NotContains(t, entry, FieldDetail)
}

func TestLogWithDetail(t *testing.T) {
	ctx, buf := capture(t)
	LogWithDetail(ctx, ActionSendFailed, "alice", "STORE_ERROR", "failed to store message")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, ActionSendFailed, entry[FieldAction])
	assert.Equal(t, "STORE_ERROR", entry[FieldDetail])
	assert.Equal(t, "failed to store message", entry["message"])
}
