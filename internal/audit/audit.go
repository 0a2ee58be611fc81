package audit

import (
	"context"

	"github.com/weiawesome/wes-io-chat/pkg/log"
)

const (
	ActionRegister       = "directory.register"
	ActionRegisterFailed = "directory.register_failed"
	ActionJoin           = "chat.join"
	ActionSendMessage    = "chat.send_message"
	ActionSendFailed     = "chat.send_failed"
	ActionDisconnect     = "chat.disconnect"
)

const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit entry via the context logger.
func Log(ctx context.Context, action string, username string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUsername, username).
		Msg(msg)
}

// LogWithDetail emits an audit entry with an extra detail field.
func LogWithDetail(ctx context.Context, action string, username string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUsername, username).
		Str(FieldDetail, detail).
		Msg(msg)
}
