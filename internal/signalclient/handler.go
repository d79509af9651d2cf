package signalclient

import "encoding/json"

// Handler routes incoming broker frames to typed channels, one per
// frame tag. Grounded on the teacher's cli/internal/signaling.Handler,
// rewired against this repo's own inbound tag set.
type Handler struct {
	client *Client

	Connected        chan struct{}
	Joined           chan JoinedPayload
	Offer            chan json.RawMessage
	Answer           chan json.RawMessage
	ICECandidate     chan json.RawMessage
	PeerDisconnected chan struct{}
	RoomExpired      chan struct{}
	Error            chan string

	closed bool
}

// NewHandler builds a Handler reading from client's incoming stream.
// Call Start to begin routing.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:           client,
		Connected:        make(chan struct{}, 1),
		// Joined arrives twice for the room's sender: once on its own
		// join, once again when the receiver attaches (peer_count
		// advancing to 2), so this needs more than a one-deep buffer.
		Joined:           make(chan JoinedPayload, 4),
		Offer:            make(chan json.RawMessage, 1),
		Answer:           make(chan json.RawMessage, 1),
		ICECandidate:     make(chan json.RawMessage, 32),
		PeerDisconnected: make(chan struct{}, 1),
		RoomExpired:      make(chan struct{}, 1),
		Error:            make(chan string, 1),
	}
}

// Start consumes the client's incoming stream until it closes. Run it
// in its own goroutine.
func (h *Handler) Start() {
	for msg := range h.client.Incoming() {
		switch msg.Type {
		case TypeConnected:
			h.Connected <- struct{}{}

		case TypeJoined:
			var payload JoinedPayload
			if json.Unmarshal(msg.Payload, &payload) == nil {
				h.Joined <- payload
			}

		case TypeOffer:
			var payload OfferPayload
			if json.Unmarshal(msg.Payload, &payload) == nil {
				h.Offer <- payload.Offer
			}

		case TypeAnswer:
			var payload AnswerPayload
			if json.Unmarshal(msg.Payload, &payload) == nil {
				h.Answer <- payload.Answer
			}

		case TypeICECandidate:
			var payload ICECandidatePayload
			if json.Unmarshal(msg.Payload, &payload) == nil {
				h.ICECandidate <- payload.Candidate
			}

		case TypePeerDisconnected:
			h.PeerDisconnected <- struct{}{}

		case TypeRoomExpired:
			h.RoomExpired <- struct{}{}

		case TypeError:
			var payload ErrorPayload
			if json.Unmarshal(msg.Payload, &payload) == nil {
				h.Error <- payload.Message
			}

		case TypePong:
			// heartbeat reply; nothing to route.

		default:
			// unknown tag: spec.md §6 says unknown types are logged and
			// ignored by the broker; symmetrically ignored here.
		}
	}
}

// Close closes every routed channel. Safe to call more than once.
func (h *Handler) Close() {
	if h.closed {
		return
	}
	h.closed = true
	close(h.Connected)
	close(h.Joined)
	close(h.Offer)
	close(h.Answer)
	close(h.ICECandidate)
	close(h.PeerDisconnected)
	close(h.RoomExpired)
	close(h.Error)
}
