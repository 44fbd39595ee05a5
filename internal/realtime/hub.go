// Package realtime pushes apartment chat to connected members over WebSockets.
// Events fan out across instances through Redis pub/sub when it is configured.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/sinkapp/sink/internal/middleware"
)

const (
	// PingInterval and PongWait drive the heartbeat.
	PingInterval = 30 * time.Second
	PongWait     = 60 * time.Second

	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Events delivered to clients.
const (
	EventChatMessage      = "chat_message"
	EventMemberLeft       = "member_left"
	EventApartmentDeleted = "apartment_deleted"
)

// Envelope is the WebSocket message format.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Publisher sends an apartment event to every instance.
type Publisher interface {
	PublishChat(ctx context.Context, code, event string, data []byte) error
}

// Subscriber delivers events published for an apartment to handler.
type Subscriber interface {
	SubscribeChat(code string, handler func(event string, data []byte)) (cancel func(), err error)
}

type memberLeftPayload struct {
	UserID string `json:"user_id"`
}

// Hub tracks the open sockets of each apartment.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[string]*Client
	subs    map[string]func()
	pending map[string]bool
	pub     Publisher
	sub     Subscriber
	origins *middleware.OriginPolicy
	logger  *slog.Logger
}

// NewHub creates a hub. With a nil publisher events are delivered to local
// clients only.
func NewHub(logger *slog.Logger, pub Publisher, sub Subscriber) *Hub {
	return &Hub{
		rooms:   make(map[string]map[string]*Client),
		subs:    make(map[string]func()),
		pending: make(map[string]bool),
		pub:     pub,
		sub:     sub,
		logger:  logger.With("component", "realtime"),
	}
}

// SetAllowedOrigins restricts which browser origins may open a socket.
// An empty list or "*" allows any origin.
func (h *Hub) SetAllowedOrigins(origins []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.origins = middleware.NewOriginPolicy(origins)
}

// Register adds a client to its apartment room. A room without a live Redis
// subscription gets one, so a failed subscribe is retried by the next client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.Code]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[c.Code] = room
	}
	room[c.ID] = c
	count := len(room)
	subscribe := h.sub != nil && h.subs[c.Code] == nil && !h.pending[c.Code]
	if subscribe {
		h.pending[c.Code] = true
	}
	h.mu.Unlock()

	if subscribe {
		h.subscribe(c.Code)
	}
	h.logger.Debug("chat_client_joined", "code", c.Code, "client_id", c.ID, "user_id", c.UserID, "clients", count)
}

// subscribe runs outside the hub lock since it waits on Redis.
func (h *Hub) subscribe(code string) {
	cancel, err := h.sub.SubscribeChat(code, func(event string, data []byte) {
		h.dispatch(code, event, data)
	})

	h.mu.Lock()
	delete(h.pending, code)
	if err == nil && len(h.rooms[code]) > 0 {
		h.subs[code] = cancel
		cancel = nil
	}
	h.mu.Unlock()

	switch {
	case err != nil:
		h.logger.Warn("chat_subscribe_failed", "code", code, "error", err)
	case cancel != nil:
		// Every client left while the subscription was being set up.
		cancel()
	}
}

// Unregister removes a client. The last client of a room cancels its subscription.
func (h *Hub) Unregister(c *Client) {
	var cancel func()
	h.mu.Lock()
	if room, ok := h.rooms[c.Code]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(h.rooms, c.Code)
			cancel = h.subs[c.Code]
			delete(h.subs, c.Code)
		}
	}
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.logger.Debug("chat_client_left", "code", c.Code, "client_id", c.ID, "user_id", c.UserID)
}

// ClientCount returns the number of open sockets for an apartment on this instance.
func (h *Hub) ClientCount(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

// Publish delivers an event to every member socket of the apartment. With
// Redis configured the event goes through the channel, and the subscription
// delivers it on every instance including this one. Rooms of this instance
// without a live subscription are served directly.
func (h *Hub) Publish(ctx context.Context, code, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if h.pub != nil {
		live := h.subscribed(code)
		if err := h.pub.PublishChat(ctx, code, event, data); err != nil {
			h.logger.Warn("chat_publish_failed", "code", code, "event", event, "error", err)
			h.dispatch(code, event, data)
			return err
		}
		if !live {
			h.dispatch(code, event, data)
		}
		return nil
	}
	h.dispatch(code, event, data)
	return nil
}

// MemberLeft disconnects the sockets of a member who left the apartment.
func (h *Hub) MemberLeft(ctx context.Context, code, userID string) {
	_ = h.Publish(ctx, code, EventMemberLeft, memberLeftPayload{UserID: userID})
}

// ApartmentDeleted disconnects every socket of a deleted apartment.
func (h *Hub) ApartmentDeleted(ctx context.Context, code string) {
	_ = h.Publish(ctx, code, EventApartmentDeleted, struct {
		Code string `json:"code"`
	}{Code: code})
}

// Shutdown closes every socket and subscription.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	var clients []*Client
	for _, room := range h.rooms {
		for _, c := range room {
			clients = append(clients, c)
		}
	}
	cancels := make([]func(), 0, len(h.subs))
	for code, cancel := range h.subs {
		cancels = append(cancels, cancel)
		delete(h.subs, code)
	}
	h.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	for _, c := range clients {
		c.close()
	}
	h.logger.Info("realtime_hub_stopped", "clients", len(clients))
	return nil
}

// dispatch delivers an event to the local clients of a room and applies
// the disconnect events.
func (h *Hub) dispatch(code, event string, data []byte) {
	msg := Envelope{Event: event, Data: data}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[code]))
	for _, c := range h.rooms[code] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var leaving string
	if event == EventMemberLeft {
		var p memberLeftPayload
		if err := json.Unmarshal(data, &p); err == nil {
			leaving = p.UserID
		}
	}

	for _, c := range clients {
		c.deliver(msg)
		switch {
		case event == EventApartmentDeleted:
			c.close()
		case event == EventMemberLeft && c.UserID == leaving:
			c.close()
		}
	}
}

func (h *Hub) subscribed(code string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subs[code] != nil
}

func (h *Hub) originPolicy() *middleware.OriginPolicy {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.origins
}
