package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUsername = "username"

	// Relay
	FieldConnID    = "conn_id"
	FieldMessageID = "message_id"
	FieldSender    = "sender"
	FieldReceiver  = "receiver"
	FieldGroupSize = "group_size"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
