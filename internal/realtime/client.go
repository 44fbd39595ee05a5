package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sinkapp/sink/internal/auth"
)

// Client is one member socket in an apartment room.
type Client struct {
	ID       string
	Code     string
	UserID   string
	JoinedAt time.Time

	hub       *Hub
	conn      *websocket.Conn
	send      chan Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// ServeWS upgrades a signed-in member to a chat socket. It expects the auth
// and apartment guards to have run.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	principal := auth.AuthFromContext(r.Context())
	apt := auth.ApartmentFromContext(r.Context())
	if principal == nil || apt == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket_upgrade_failed", "error", err)
		return
	}

	c := &Client{
		ID:       uuid.NewString(),
		Code:     apt.Code,
		UserID:   principal.UserID,
		JoinedAt: time.Now().UTC(),
		hub:      h,
		conn:     conn,
		send:     make(chan Envelope, sendBuffer),
		done:     make(chan struct{}),
	}
	h.Register(c)
	go c.writePump()
	c.readPump()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	policy := h.originPolicy()
	if policy == nil || policy.Empty() {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || policy.Allows(origin)
}

// deliver queues a message without blocking. A full buffer drops it.
func (c *Client) deliver(msg Envelope) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.hub.logger.Warn("chat_client_slow", "code", c.Code, "client_id", c.ID)
	}
}

// close asks the write pump to flush and hang up.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump keeps the connection alive. Chat is posted over HTTP, so
// inbound frames are discarded.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			c.flush()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush writes whatever is already queued.
func (c *Client) flush() {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}
