package broker

import (
	"encoding/json"
	"time"
)

// Role identifies a peer's position within a Room. Assigned once at
// attach time by position and never changed.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// MaxRoomSize is the design-assumed peer cap. The protocol is undefined
// for any other value (spec.md §6).
const MaxRoomSize = 2

// Room is the shared data-plane record for one rendezvous: at most two
// attached signaling sessions, buffered handshake frames for a
// late-arriving peer, and a creation timestamp used for expiry.
type Room struct {
	Code      string
	Peers     [MaxRoomSize]*Client // index 0 = sender, index 1 = receiver
	CreatedAt time.Time

	PendingOffer  json.RawMessage
	PendingAnswer json.RawMessage
}

func newRoom(code string, creator *Client) *Room {
	return &Room{
		Code:      code,
		Peers:     [MaxRoomSize]*Client{creator},
		CreatedAt: time.Now(),
	}
}

// PeerCount returns how many peer slots are currently occupied.
func (r *Room) PeerCount() int {
	n := 0
	for _, p := range r.Peers {
		if p != nil {
			n++
		}
	}
	return n
}

// IsEmpty reports whether the room has no attached peers and is
// removable.
func (r *Room) IsEmpty() bool {
	return r.PeerCount() == 0
}

// IsFull reports whether the room already holds MaxRoomSize peers.
func (r *Room) IsFull() bool {
	return r.PeerCount() >= MaxRoomSize
}

// Sender returns the room's sender session, or nil if not attached.
func (r *Room) Sender() *Client {
	return r.Peers[0]
}

// Receiver returns the room's receiver session, or nil if not attached.
func (r *Room) Receiver() *Client {
	return r.Peers[1]
}

// counterpart returns the other peer of c within this room, or nil.
func (r *Room) counterpart(c *Client) *Client {
	switch c {
	case r.Peers[0]:
		return r.Peers[1]
	case r.Peers[1]:
		return r.Peers[0]
	default:
		return nil
	}
}

// detach removes c from the room and reports whether c was actually a
// member of it.
func (r *Room) detach(c *Client) bool {
	for i, p := range r.Peers {
		if p == c {
			r.Peers[i] = nil
			return true
		}
	}
	return false
}

// age is how long the room has existed.
func (r *Room) age() time.Duration {
	return time.Since(r.CreatedAt)
}
