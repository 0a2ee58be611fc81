package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

// Hub owns the live connections and the delivery groups: for each identity,
// the set of connections currently bound to it. A connection may sit in
// several groups and a group may hold several connections.
type Hub struct {
	clients     map[string]*Client             // clientID -> client
	groups      map[string]map[string]*Client  // identity -> clientID -> client
	memberships map[string]map[string]struct{} // clientID -> identities
	register    chan *Client
	unregister  chan *Client
	broadcast   chan *GroupMessage
	done        chan struct{}
	mu          sync.RWMutex
	config      config.WebSocketConfig
}

// GroupMessage is one frame addressed to every connection of an identity.
type GroupMessage struct {
	Identity string
	Message  []byte

	// flushed is closed once the run loop reaches this entry.
	flushed chan struct{}
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		groups:      make(map[string]map[string]*Client),
		memberships: make(map[string]map[string]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *GroupMessage, 256),
		done:        make(chan struct{}),
		config:      cfg,
	}
}

// Run processes registrations and fan-out until ctx is cancelled, then
// closes every connection still registered.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.memberships[client.ID] = make(map[string]struct{})
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.remove(client)
			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			if msg.flushed != nil {
				close(msg.flushed)
				continue
			}
			h.fanOut(msg)
		}
	}
}

func (h *Hub) fanOut(msg *GroupMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.groups[msg.Identity] {
		if !client.enqueue(msg.Message) {
			l := log.L()
			l.Warn().Str(log.FieldConnID, client.ID).Str(log.FieldUsername, msg.Identity).
				Msg("send buffer full, dropping client")
			go h.Unregister(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for identity := range h.memberships[client.ID] {
		h.leaveLocked(client, identity)
	}
	delete(h.memberships, client.ID)
	delete(h.clients, client.ID)
	client.close()
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.close()
	}
	h.clients = make(map[string]*Client)
	h.groups = make(map[string]map[string]*Client)
	h.memberships = make(map[string]map[string]struct{})

	l := log.L()
	l.Info().Msg("hub stopped")
}

// Register adds a connection to the hub. It is a no-op once the hub stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a connection from the hub and from every group.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Join puts client into identity's delivery group. It reports false when
// the client already was a member or is no longer registered.
func (h *Hub) Join(client *Client, identity string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.memberships[client.ID]
	if !ok {
		return false
	}
	if _, member := joined[identity]; member {
		return false
	}

	group, ok := h.groups[identity]
	if !ok {
		group = make(map[string]*Client)
		h.groups[identity] = group
	}
	group[client.ID] = client
	joined[identity] = struct{}{}

	l := log.L()
	l.Info().Str(log.FieldConnID, client.ID).Str(log.FieldUsername, identity).
		Int(log.FieldGroupSize, len(group)).Msg("client joined delivery group")
	return true
}

// Leave takes client out of identity's delivery group.
func (h *Hub) Leave(client *Client, identity string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, identity)
}

func (h *Hub) leaveLocked(client *Client, identity string) {
	if group, ok := h.groups[identity]; ok {
		delete(group, client.ID)
		if len(group) == 0 {
			delete(h.groups, identity)
		}
	}
	if joined, ok := h.memberships[client.ID]; ok {
		delete(joined, identity)
	}
}

// SendToGroup marshals message once and queues it for every connection in
// identity's delivery group. An empty group is not an error.
func (h *Hub) SendToGroup(identity string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.SendRawToGroup(identity, data)
	return nil
}

// SendRawToGroup queues raw bytes for every connection in identity's group.
func (h *Hub) SendRawToGroup(identity string, data []byte) {
	select {
	case h.broadcast <- &GroupMessage{Identity: identity, Message: data}:
	case <-h.done:
	}
}

// Flush blocks until every group message queued before the call has been
// handed to the connections' send buffers.
func (h *Hub) Flush(ctx context.Context) error {
	marker := &GroupMessage{flushed: make(chan struct{})}
	select {
	case h.broadcast <- marker:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-marker.flushed:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) GroupSize(identity string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[identity])
}

// GroupCount reports how many identities have a bound connection.
func (h *Hub) GroupCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Done is closed after Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
