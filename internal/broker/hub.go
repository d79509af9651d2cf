package broker

import (
	"time"

	"go.uber.org/zap"
)

// ExpirySweepPeriod bounds how often the hub checks room ages; it must
// be well under ROOM_EXPIRY so no room outlives it by more than one
// sweep interval (spec.md §4.1, §5).
const ExpirySweepPeriod = 15 * time.Second

// Hub is the single owner of the room table. Every mutation of the
// table or of a room's peers/pending fields happens on Hub.Run's
// goroutine, which is the discipline spec.md §5 asks for ("hold at
// most one room's lock at a time") taken to its simplest form: there
// is only one lock, and it is never explicit because nothing but this
// goroutine ever touches the table.
type Hub struct {
	rooms map[string]*Room

	register   chan *Client
	unregister chan *Client
	inbound    chan *Message
	query      chan hubQuery

	roomExpiry time.Duration
	log        *zap.Logger
	metrics    *Metrics

	stop chan struct{}
}

// hubQuery runs fn on the Run goroutine and signals done when it
// returns, giving callers outside that goroutine a safe way to read
// room-table state without a separate lock.
type hubQuery struct {
	fn   func(*Hub)
	done chan struct{}
}

// NewHub creates a Hub with the given room expiry (spec.md §6's
// ROOM_EXPIRY, default 10 minutes).
func NewHub(roomExpiry time.Duration, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *Message),
		query:      make(chan hubQuery),
		roomExpiry: roomExpiry,
		log:        log,
		metrics:    newMetrics(),
		stop:       make(chan struct{}),
	}
}

// Register attaches a freshly-upgraded connection's Client to the hub.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister detaches a Client, e.g. on transport close.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Dispatch hands an inbound frame to the hub's processing loop.
func (h *Hub) Dispatch(msg *Message) {
	h.inbound <- msg
}

// Metrics exposes the hub's live counters for the health endpoint.
func (h *Hub) Metrics() *Metrics {
	return h.metrics
}

// Run is the hub's single event loop: client register/unregister,
// inbound frame dispatch, and the periodic expiry sweep. It owns all
// room-table state and never returns until Stop is called.
func (h *Hub) Run() {
	sweep := time.NewTicker(ExpirySweepPeriod)
	defer sweep.Stop()

	for {
		select {
		case <-h.stop:
			return

		case <-h.register:
			h.metrics.connectionOpened()
			h.log.Debug("session registered")

		case c := <-h.unregister:
			h.handleUnregister(c)

		case msg := <-h.inbound:
			h.handleInbound(msg)

		case q := <-h.query:
			q.fn(h)
			close(q.done)

		case <-sweep.C:
			h.sweepExpiredRooms()
		}
	}
}

// Stop halts Run's loop. Intended for tests; production servers run
// the hub for the lifetime of the process.
func (h *Hub) Stop() {
	close(h.stop)
}

func (h *Hub) handleUnregister(c *Client) {
	h.metrics.connectionClosed()
	close(c.send)

	if c.RoomID == "" {
		return
	}
	room, ok := h.rooms[c.RoomID]
	if !ok {
		return
	}

	if !room.detach(c) {
		return
	}

	if room.IsEmpty() {
		delete(h.rooms, room.Code)
		h.metrics.roomRemoved()
		h.log.Debug("room removed (empty)", zap.String("room", room.Code))
		return
	}

	for _, p := range room.Peers {
		if p != nil {
			p.Send(newOutbound(TypePeerDisconnected, nil))
		}
	}
}

func (h *Hub) handleInbound(msg *Message) {
	c := msg.client
	switch msg.Type {
	case TypeJoin:
		h.handleJoin(c, msg)
	case TypeOffer:
		h.handleOffer(c, msg)
	case TypeAnswer:
		h.handleAnswer(c, msg)
	case TypeICECandidate:
		h.handleICECandidate(c, msg)
	case TypePing:
		c.Send(newOutbound(TypePong, nil))
	default:
		h.log.Debug("unknown frame type", zap.String("type", msg.Type))
	}
}

func (h *Hub) handleJoin(c *Client, msg *Message) {
	var payload JoinPayload
	if len(msg.Payload) > 0 {
		if err := decodePayload(msg.Payload, &payload); err != nil {
			c.Send(newOutbound(TypeError, ErrorPayload{Message: "malformed join frame"}))
			return
		}
	}

	if payload.CreateNew {
		h.createRoom(c)
		return
	}

	h.joinRoom(c, canonicalizeCode(payload.RoomID))
}

func (h *Hub) createRoom(c *Client) {
	code, err := h.generateRoomCode()
	if err != nil {
		c.Send(newOutbound(TypeError, ErrorPayload{Message: "failed to allocate room"}))
		return
	}

	room := newRoom(code, c)
	h.rooms[code] = room
	h.metrics.roomCreated()

	c.RoomID = code
	c.Role = RoleSender

	c.Send(newOutbound(TypeJoined, JoinedPayload{
		RoomID:    code,
		Role:      string(RoleSender),
		PeerCount: room.PeerCount(),
	}))
}

func (h *Hub) joinRoom(c *Client, code string) {
	room, ok := h.rooms[code]
	if !ok {
		c.Send(newOutbound(TypeError, ErrorPayload{Message: "room not found"}))
		return
	}
	if room.IsFull() {
		c.Send(newOutbound(TypeError, ErrorPayload{Message: "room is full"}))
		return
	}

	room.Peers[1] = c
	c.RoomID = code
	c.Role = RoleReceiver

	// Notify the sender first: its peer_count advances to 2.
	if sender := room.Sender(); sender != nil {
		sender.Send(newOutbound(TypeJoined, JoinedPayload{
			RoomID:    code,
			Role:      string(RoleSender),
			PeerCount: room.PeerCount(),
		}))
	}

	c.Send(newOutbound(TypeJoined, JoinedPayload{
		RoomID:    code,
		Role:      string(RoleReceiver),
		PeerCount: room.PeerCount(),
	}))

	if room.PendingOffer != nil {
		c.Send(newOutbound(TypeOffer, OfferPayload{Offer: room.PendingOffer}))
		room.PendingOffer = nil
	}
}

func (h *Hub) handleOffer(c *Client, msg *Message) {
	room, ok := h.roomOf(c)
	if !ok {
		return
	}
	var payload OfferPayload
	if err := decodePayload(msg.Payload, &payload); err != nil {
		c.Send(newOutbound(TypeError, ErrorPayload{Message: "malformed offer frame"}))
		return
	}

	if receiver := room.Receiver(); receiver != nil {
		receiver.Send(newOutbound(TypeOffer, payload))
		return
	}
	room.PendingOffer = payload.Offer
}

func (h *Hub) handleAnswer(c *Client, msg *Message) {
	room, ok := h.roomOf(c)
	if !ok {
		return
	}
	var payload AnswerPayload
	if err := decodePayload(msg.Payload, &payload); err != nil {
		c.Send(newOutbound(TypeError, ErrorPayload{Message: "malformed answer frame"}))
		return
	}

	if sender := room.Sender(); sender != nil {
		sender.Send(newOutbound(TypeAnswer, payload))
		return
	}
	room.PendingAnswer = payload.Answer
}

func (h *Hub) handleICECandidate(c *Client, msg *Message) {
	room, ok := h.roomOf(c)
	if !ok {
		return
	}
	var payload ICECandidatePayload
	if err := decodePayload(msg.Payload, &payload); err != nil {
		return
	}

	// ICE candidates are never buffered: a missing counterpart means
	// drop, per spec.md §4.1.
	if target := room.counterpart(c); target != nil {
		target.Send(newOutbound(TypeICECandidate, payload))
	}
}

// roomOf resolves the room a session is attached to, replying with an
// error frame and reporting ok=false if it cannot.
func (h *Hub) roomOf(c *Client) (*Room, bool) {
	if c.RoomID == "" {
		c.Send(newOutbound(TypeError, ErrorPayload{Message: "join a room first"}))
		return nil, false
	}
	room, ok := h.rooms[c.RoomID]
	if !ok {
		c.Send(newOutbound(TypeError, ErrorPayload{Message: "room not found"}))
		return nil, false
	}
	return room, true
}

func (h *Hub) sweepExpiredRooms() {
	for code, room := range h.rooms {
		if room.age() <= h.roomExpiry {
			continue
		}

		for _, p := range room.Peers {
			if p != nil {
				p.Send(newOutbound(TypeRoomExpired, nil))
				h.closeSession(p)
			}
		}
		delete(h.rooms, code)
		h.metrics.roomRemoved()
		h.log.Debug("room expired", zap.String("room", code), zap.Duration("age", room.age()))
	}
}

// closeSession tears down one peer's transport once its room has
// already been (or is about to be) removed from the table: spec.md
// §4.1 teardown is "sends room-expired ... then closes each session,
// then removes the room." Closing the connection drives readPump into
// its usual ReadJSON-error path on its own goroutine, which unregisters
// the client through the hub's normal channel — so handleUnregister
// still owns closing c.send and decrementing the connection count
// exactly once, instead of this racing a second close against it.
func (h *Hub) closeSession(c *Client) {
	c.RoomID = ""
	if c.conn != nil {
		c.conn.Close()
	}
}

// RoomCount reports how many rooms currently exist. Safe to call from
// any goroutine: the count is read on the hub's own loop.
func (h *Hub) RoomCount() int {
	var n int
	h.runQuery(func(h *Hub) { n = len(h.rooms) })
	return n
}

// RoomSnapshot returns a read-only copy of a room's state for tests and
// diagnostics, or nil if the room does not exist.
func (h *Hub) RoomSnapshot(code string) *Room {
	var snap Room
	found := false
	h.runQuery(func(h *Hub) {
		if r, ok := h.rooms[code]; ok {
			snap = *r
			found = true
		}
	})
	if !found {
		return nil
	}
	return &snap
}

func (h *Hub) runQuery(fn func(*Hub)) {
	done := make(chan struct{})
	h.query <- hubQuery{fn: fn, done: done}
	<-done
}
