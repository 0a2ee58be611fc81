package chatclient

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrNotConnected  = errors.New("not connected")
	ErrNotJoined     = errors.New("not joined")
)

// Status of a message in the local conversation state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSent     Status = "sent"
	StatusFailed   Status = "failed"
	StatusReceived Status = "received"
)

// Entry is one message in a conversation thread. Outgoing entries start
// pending and are keyed by ClientRef until the server assigns ID.
type Entry struct {
	ClientRef string
	ID        string
	Sender    string
	Receiver  string
	Content   string
	Timestamp time.Time
	Status    Status
	Error     string
}

// EventKind tells subscribers what changed.
type EventKind int

const (
	EventMessage EventKind = iota // a new incoming entry
	EventStatus                   // an outgoing entry changed status
	EventError                    // a server error not tied to a send
	EventClosed                   // the connection dropped
)

// Event is published on Client.Events after local state changed.
type Event struct {
	Kind  EventKind
	Peer  string
	Entry Entry
	Err   error
}

// APIError is a non-2xx reply from the directory API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// ServerError is an error event pushed over the relay connection.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return e.Code + ": " + e.Message
}

// wire frames

type outgoingFrame struct {
	Type      string `json:"type"`
	Username  string `json:"username,omitempty"`
	Sender    string `json:"sender,omitempty"`
	Receiver  string `json:"receiver,omitempty"`
	Content   string `json:"content,omitempty"`
	ClientRef string `json:"clientRef,omitempty"`
}

type wireMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

type frameHeader struct {
	Type string `json:"type"`
}

type joinedFrame struct {
	Username string `json:"username"`
}

type receiveFrame struct {
	Message wireMessage `json:"message"`
}

type statusFrame struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	ClientRef string `json:"clientRef"`
}

type errorFrame struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	ClientRef string `json:"clientRef"`
}
