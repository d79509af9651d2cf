package signalclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages one WebSocket connection to the rendezvous broker.
// Grounded on the teacher's cli/internal/signaling.Client (dial,
// read/write pumps, ping ticker), minus its custom DNS dialer — that
// resilience layer belongs to the out-of-scope CLI entrypoint, not the
// signaling protocol itself.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *Message
	outgoing  chan *Message
	done      chan struct{}
	closed    bool
}

// NewClient builds a Client that will dial serverURL on Connect.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *Message, 32),
		outgoing:  make(chan *Message, 32),
		done:      make(chan struct{}),
	}
}

// Connect dials the broker and starts the read/write pumps.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.incoming <- &msg
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// Send enqueues a frame for delivery to the broker.
func (c *Client) Send(msg *Message) {
	select {
	case c.outgoing <- msg:
	default:
	}
}

// SendJoin requests a new room, or joins an existing one by code.
func (c *Client) SendJoin(createNew bool, roomID string) error {
	msg, err := encode(TypeJoin, JoinPayload{CreateNew: createNew, RoomID: roomID})
	if err != nil {
		return err
	}
	c.Send(msg)
	return nil
}

// SendOffer forwards an opaque SDP offer to the broker.
func (c *Client) SendOffer(offer json.RawMessage) error {
	msg, err := encode(TypeOffer, OfferPayload{Offer: offer})
	if err != nil {
		return err
	}
	c.Send(msg)
	return nil
}

// SendAnswer forwards an opaque SDP answer to the broker.
func (c *Client) SendAnswer(answer json.RawMessage) error {
	msg, err := encode(TypeAnswer, AnswerPayload{Answer: answer})
	if err != nil {
		return err
	}
	c.Send(msg)
	return nil
}

// SendICECandidate forwards one opaque ICE candidate to the broker.
func (c *Client) SendICECandidate(candidate json.RawMessage) error {
	msg, err := encode(TypeICECandidate, ICECandidatePayload{Candidate: candidate})
	if err != nil {
		return err
	}
	c.Send(msg)
	return nil
}

// Incoming exposes the stream of frames received from the broker.
func (c *Client) Incoming() <-chan *Message {
	return c.incoming
}

// Close stops the write pump and closes the connection. Safe to call
// more than once.
func (c *Client) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
