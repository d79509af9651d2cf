package broker

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024

	// HeartbeatPeriod is how often the broker pings each live session
	// (spec.md §5). pongWait must exceed it so a client that answers the
	// previous ping on time is never mistaken for dead.
	HeartbeatPeriod = 30 * time.Second
	pongWait        = HeartbeatPeriod*2 + 5*time.Second
)

// Client wraps one attached WebSocket connection: one signaling
// session, one room membership, one role.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	RoomID string
	Role   Role

	// send is a buffered outbound queue drained by writePump; closing it
	// is how the hub tells writePump to stop.
	send chan *Message

	// alive is cleared by the heartbeat sweep before each ping and set
	// by the pong handler; a session still clear on the next tick is
	// forcibly terminated (spec.md §5). It is touched from both
	// readPump's pong handler and writePump's ticker, so it needs
	// atomic access rather than a plain bool.
	alive atomic.Bool
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan *Message, 32),
	}
	c.alive.Store(true)
	return c
}

// NewClientForConn builds a Client around an already-upgraded
// WebSocket connection. Exported for the HTTP layer, which owns the
// upgrade handshake itself (spec.md §1 keeps HTTP/TLS concerns outside
// the broker package).
func NewClientForConn(hub *Hub, conn *websocket.Conn) *Client {
	return newClient(hub, conn)
}

// Greet sends the one-time "connected" frame spec.md §4.1 defines for
// session open, before any join/offer/answer traffic.
func (c *Client) Greet() {
	c.Send(newOutbound(TypeConnected, ConnectedPayload{Message: "connected"}))
}

// Outbox exposes the session's outbound queue for tests that drive a
// Hub without a real WebSocket transport underneath it.
func (c *Client) Outbox() <-chan *Message {
	return c.send
}

// ReadPump is the exported entry point for the per-connection read
// goroutine.
func (c *Client) ReadPump() { c.readPump() }

// WritePump is the exported entry point for the per-connection write
// goroutine.
func (c *Client) WritePump() { c.writePump() }

// Send enqueues a message for delivery without blocking the caller
// beyond the channel's buffer; a full buffer indicates a stuck
// transport and is treated like any other write failure by readPump's
// defer.
func (c *Client) Send(msg *Message) {
	select {
	case c.send <- msg:
	default:
		c.hub.log.Warn("dropping frame to a saturated session", zap.String("type", msg.Type))
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("session read error", zap.Error(err))
			}
			return
		}
		msg.client = c
		c.hub.inbound <- &msg
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(HeartbeatPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			if !c.alive.Load() {
				// missed the previous heartbeat: dead transport.
				return
			}
			c.alive.Store(false)
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
