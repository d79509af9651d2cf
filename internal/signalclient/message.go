// Package signalclient is the peer-side counterpart to internal/broker:
// a WebSocket client that speaks the rendezvous broker's JSON wire
// protocol (spec.md §4.1, §6) so a peer endpoint can create or join a
// room and exchange WebRTC handshake frames before internal/transfer
// takes over. Grounded on the teacher's cli/internal/signaling package,
// rewritten against this repo's own frame tags instead of the
// teacher's create_room/join_room/signal envelope.
package signalclient

import "encoding/json"

// Message is the wire shape for every signaling frame, matching
// internal/broker.Message byte-for-byte (both sides speak the same
// protocol) but defined independently here, the way the teacher's CLI
// client carries its own Message type rather than importing the
// backend's.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound frame tags (peer -> broker).
const (
	TypeJoin         = "join"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypePing         = "ping"
)

// Inbound frame tags (broker -> peer).
const (
	TypeJoined           = "joined"
	TypeConnected        = "connected"
	TypeError            = "error"
	TypePeerDisconnected = "peer-disconnected"
	TypeRoomExpired      = "room-expired"
	TypePong             = "pong"
)

// JoinPayload requests room creation or entry.
type JoinPayload struct {
	CreateNew bool   `json:"create_new"`
	RoomID    string `json:"room_id,omitempty"`
}

// OfferPayload carries an opaque SDP offer.
type OfferPayload struct {
	Offer json.RawMessage `json:"offer"`
}

// AnswerPayload carries an opaque SDP answer.
type AnswerPayload struct {
	Answer json.RawMessage `json:"answer"`
}

// ICECandidatePayload carries one opaque ICE candidate.
type ICECandidatePayload struct {
	Candidate json.RawMessage `json:"candidate"`
}

// JoinedPayload confirms a successful join with the assigned role.
type JoinedPayload struct {
	RoomID    string `json:"room_id"`
	Role      string `json:"role"`
	PeerCount int    `json:"peer_count"`
}

// ErrorPayload carries a human-readable reason for a rejected join or
// a malformed frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

func encode(msgType string, payload any) (*Message, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Message{Type: msgType, Payload: raw}, nil
}
