package broker

import "encoding/json"

// Message is the single wire shape for every signaling frame, in either
// direction. Type-specific fields are carried in Payload.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// client is the session that produced this message. Not marshaled.
	client *Client `json:"-"`
}

// Inbound frame tags.
const (
	TypeJoin         = "join"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypePing         = "ping"
)

// Outbound frame tags.
const (
	TypeJoined           = "joined"
	TypeConnected        = "connected"
	TypeError            = "error"
	TypePeerDisconnected = "peer-disconnected"
	TypeRoomExpired      = "room-expired"
	TypePong             = "pong"
)

// JoinPayload is the payload of an inbound "join" frame.
type JoinPayload struct {
	CreateNew bool   `json:"create_new"`
	RoomID    string `json:"room_id,omitempty"`
}

// OfferPayload is the payload of an inbound "offer" frame.
type OfferPayload struct {
	Offer json.RawMessage `json:"offer"`
}

// AnswerPayload is the payload of an inbound "answer" frame.
type AnswerPayload struct {
	Answer json.RawMessage `json:"answer"`
}

// ICECandidatePayload is the payload of an inbound "ice-candidate" frame.
type ICECandidatePayload struct {
	Candidate json.RawMessage `json:"candidate"`
}

// JoinedPayload is the payload of an outbound "joined" frame.
type JoinedPayload struct {
	RoomID     string `json:"room_id"`
	Role       string `json:"role"`
	PeerCount  int    `json:"peer_count"`
}

// ConnectedPayload is the payload of an outbound "connected" frame.
type ConnectedPayload struct {
	Message string `json:"message"`
}

// ErrorPayload is the payload of an outbound "error" frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// all payload types above are trivially marshalable; a failure here
		// means a programming error, not a runtime condition.
		panic(err)
	}
	return b
}

func newOutbound(msgType string, payload any) *Message {
	var raw json.RawMessage
	if payload != nil {
		raw = mustMarshal(payload)
	}
	return &Message{Type: msgType, Payload: raw}
}

func decodePayload(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return newError("decode payload", "", ErrMalformedFrame)
	}
	return nil
}
