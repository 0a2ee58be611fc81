package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// WebSocket message types from client.
const (
	MsgTypeJoin        = "join"
	MsgTypeSendMessage = "send_message"
	MsgTypePing        = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeJoined         = "joined"
	MsgTypeReceiveMessage = "receive_message"
	MsgTypeMessageStatus  = "message_status"
	MsgTypeError          = "error"
	MsgTypePong           = "pong"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotJoined     = "NOT_JOINED"
	ErrCodeStoreError    = "STORE_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// ErrMalformedEvent wraps every decoding or validation failure of a
// client frame.
var ErrMalformedEvent = errors.New("malformed event")

var validate = validator.New()

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// ClientEvent is one of JoinEvent, SendMessageEvent or PingEvent.
type ClientEvent interface {
	clientEvent()
}

// Client -> Server messages

type JoinEvent struct {
	Type     string `json:"type"`
	Username string `json:"username" validate:"required,max=255"`
}

type SendMessageEvent struct {
	Type      string `json:"type"`
	Sender    string `json:"sender" validate:"required,max=255"`
	Receiver  string `json:"receiver" validate:"required,max=255"`
	Content   string `json:"content" validate:"required"`
	ClientRef string `json:"clientRef,omitempty" validate:"max=64"`
}

type PingEvent struct {
	Type string `json:"type"`
}

func (*JoinEvent) clientEvent()        {}
func (*SendMessageEvent) clientEvent() {}
func (*PingEvent) clientEvent()        {}

// ParseClientEvent decodes a client frame into its typed variant and
// validates the variant's fields. Errors wrap ErrMalformedEvent.
func ParseClientEvent(data []byte) (ClientEvent, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var evt ClientEvent
	switch base.Type {
	case MsgTypeJoin:
		evt = &JoinEvent{}
	case MsgTypeSendMessage:
		evt = &SendMessageEvent{}
	case MsgTypePing:
		return &PingEvent{Type: MsgTypePing}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, base.Type)
	}

	if err := json.Unmarshal(data, evt); err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %v", ErrMalformedEvent, base.Type, err)
	}
	if err := validate.Struct(evt); err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %s", ErrMalformedEvent, base.Type, describe(err))
	}
	return evt, nil
}

// describe turns validator errors into "field is required" style text.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "max":
			parts = append(parts, field+" is too long")
		default:
			parts = append(parts, field+" failed "+fe.Tag())
		}
	}
	return strings.Join(parts, ", ")
}

// Server -> Client messages

type JoinedMessage struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type ReceiveMessage struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

type MessageStatusMessage struct {
	Type      string        `json:"type"`
	MessageID string        `json:"messageId"`
	Status    MessageStatus `json:"status"`
	ClientRef string        `json:"clientRef,omitempty"`
}

type ErrorMessage struct {
	Type      string `json:"type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	ClientRef string `json:"clientRef,omitempty"`
}

type PongMessage struct {
	Type string `json:"type"`
}

func NewJoinedMessage(username string) *JoinedMessage {
	return &JoinedMessage{Type: MsgTypeJoined, Username: username}
}

func NewReceiveMessage(msg *Message) *ReceiveMessage {
	return &ReceiveMessage{Type: MsgTypeReceiveMessage, Message: msg}
}

func NewMessageStatus(msg *Message, clientRef string) *MessageStatusMessage {
	return &MessageStatusMessage{
		Type:      MsgTypeMessageStatus,
		MessageID: msg.ID,
		Status:    msg.Status,
		ClientRef: clientRef,
	}
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}

// WithClientRef ties the error to the client request that caused it.
func (e *ErrorMessage) WithClientRef(ref string) *ErrorMessage {
	e.ClientRef = ref
	return e
}

func NewPongMessage() *PongMessage {
	return &PongMessage{Type: MsgTypePong}
}
