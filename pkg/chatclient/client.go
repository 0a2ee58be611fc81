// Package chatclient talks to the chat server: the directory over HTTP and
// the relay over a WebSocket. It keeps per-peer conversation threads in
// memory and reconciles optimistic sends with server acknowledgments.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const defaultEventBuffer = 128

type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	logger  zerolog.Logger
	now     func() time.Time

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu       sync.Mutex
	username string
	threads  map[string][]*Entry
	pending  map[string]*Entry
	joined   chan string

	events chan Event
	done   chan struct{}
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the server at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		dialer:  websocket.DefaultDialer,
		logger:  zerolog.Nop(),
		now:     time.Now,
		threads: make(map[string][]*Entry),
		pending: make(map[string]*Entry),
		joined:  make(chan string, 1),
		events:  make(chan Event, defaultEventBuffer),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events delivers local state changes. Events are dropped when nobody
// drains the channel fast enough; Thread always has the current state.
func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Client) wsURL() string {
	switch {
	case strings.HasPrefix(c.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.baseURL, "https://") + "/ws"
	case strings.HasPrefix(c.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.baseURL, "http://") + "/ws"
	default:
		return "ws://" + c.baseURL + "/ws"
	}
}

// Connect opens the relay connection and starts reading from it. A Client
// connects once; build a new one to reconnect.
func (c *Client) Connect(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn != nil {
		return errors.New("already connected")
	}

	conn, _, err := c.dialer.DialContext(ctx, c.wsURL(), nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	c.conn = conn

	go c.readLoop(conn)
	return nil
}

// Join binds the connection to username and waits for the server to
// confirm.
func (c *Client) Join(ctx context.Context, username string) error {
	if err := c.write(outgoingFrame{Type: "join", Username: username}); err != nil {
		return err
	}

	for {
		select {
		case name := <-c.joined:
			if name != username {
				continue
			}
			c.mu.Lock()
			c.username = username
			c.mu.Unlock()
			return nil
		case <-c.done:
			return ErrNotConnected
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Send appends a pending entry to the receiver's thread and ships it. The
// entry turns sent or failed once the server answers.
func (c *Client) Send(receiver, content string) (Entry, error) {
	c.mu.Lock()
	sender := c.username
	if sender == "" {
		c.mu.Unlock()
		return Entry{}, ErrNotJoined
	}

	entry := &Entry{
		ClientRef: uuid.NewString(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		Timestamp: c.now().UTC(),
		Status:    StatusPending,
	}
	c.threads[receiver] = append(c.threads[receiver], entry)
	c.pending[entry.ClientRef] = entry
	snapshot := *entry
	c.mu.Unlock()

	err := c.write(outgoingFrame{
		Type:      "send_message",
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		ClientRef: entry.ClientRef,
	})
	if err != nil {
		c.fail(entry.ClientRef, err.Error())
		snapshot.Status = StatusFailed
		return snapshot, err
	}
	return snapshot, nil
}

// Ping asks the server for an application level pong.
func (c *Client) Ping() error {
	return c.write(outgoingFrame{Type: "ping"})
}

// Thread returns a copy of the conversation with peer in arrival order.
func (c *Client) Thread(peer string) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.threads[peer]))
	for _, e := range c.threads[peer] {
		out = append(out, *e)
	}
	return out
}

// Close shuts the relay connection. Pending sends become failed.
func (c *Client) Close() error {
	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()
	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return conn.Close()
}

func (c *Client) write(frame outgoingFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}

	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(frame)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		c.failAllPending("connection closed")
		close(c.done)
		c.publish(Event{Kind: EventClosed, Err: ErrNotConnected})
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("relay connection lost")
			}
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	var header frameHeader
	if err := json.Unmarshal(data, &header); err != nil {
		c.logger.Warn().Err(err).Msg("undecodable frame")
		return
	}

	switch header.Type {
	case "joined":
		var f joinedFrame
		if json.Unmarshal(data, &f) == nil {
			select {
			case c.joined <- f.Username:
			default:
			}
		}

	case "receive_message":
		var f receiveFrame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn().Err(err).Msg("bad receive_message frame")
			return
		}
		c.receive(f.Message)

	case "message_status":
		var f statusFrame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn().Err(err).Msg("bad message_status frame")
			return
		}
		c.acknowledge(f)

	case "error":
		var f errorFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return
		}
		if f.ClientRef != "" && c.fail(f.ClientRef, f.Code+": "+f.Message) {
			return
		}
		c.publish(Event{Kind: EventError, Err: &ServerError{Code: f.Code, Message: f.Message}})

	case "pong":
	default:
		c.logger.Debug().Str("type", header.Type).Msg("ignoring frame")
	}
}

func (c *Client) receive(m wireMessage) {
	c.mu.Lock()
	// Our own sends are tracked through their pending entries.
	if m.Sender == c.username {
		c.mu.Unlock()
		return
	}
	peer := m.Sender
	entry := &Entry{
		ID:        m.ID,
		Sender:    m.Sender,
		Receiver:  m.Receiver,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Status:    StatusReceived,
	}
	c.threads[peer] = append(c.threads[peer], entry)
	snapshot := *entry
	c.mu.Unlock()

	c.publish(Event{Kind: EventMessage, Peer: peer, Entry: snapshot})
}

func (c *Client) acknowledge(f statusFrame) {
	c.mu.Lock()
	entry, ok := c.pending[f.ClientRef]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, f.ClientRef)
	entry.ID = f.MessageID
	entry.Status = StatusSent
	snapshot := *entry
	c.mu.Unlock()

	c.publish(Event{Kind: EventStatus, Peer: snapshot.Receiver, Entry: snapshot})
}

// fail marks the pending entry for ref failed and reports whether one
// existed.
func (c *Client) fail(ref, reason string) bool {
	c.mu.Lock()
	entry, ok := c.pending[ref]
	if !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.pending, ref)
	entry.Status = StatusFailed
	entry.Error = reason
	snapshot := *entry
	c.mu.Unlock()

	c.publish(Event{Kind: EventStatus, Peer: snapshot.Receiver, Entry: snapshot})
	return true
}

func (c *Client) failAllPending(reason string) {
	c.mu.Lock()
	refs := make([]string, 0, len(c.pending))
	for ref := range c.pending {
		refs = append(refs, ref)
	}
	c.mu.Unlock()

	for _, ref := range refs {
		c.fail(ref, reason)
	}
}

func (c *Client) publish(evt Event) {
	select {
	case c.events <- evt:
	default:
		c.logger.Debug().Int("kind", int(evt.Kind)).Msg("event buffer full, dropping event")
	}
}
