// Package webrtcchannel is the one concrete implementation this repo
// ships of internal/transfer's Channel interface, over
// github.com/pion/webrtc/v4 data channels. spec.md §1 puts the
// underlying connectivity layer itself (NAT traversal, DTLS, the
// data-channel abstraction) out of scope, treating it as a black box;
// this package is the thin seam between that black box and the engine,
// grounded on the teacher's cli/internal/transfer/peer.go
// (NewPeerConnection, CreateDataChannel, CreateOffer/CreateAnswer,
// HandleSDPSignal/HandleICECandidate) and its singlechannel sender's
// buffered-amount wiring.
package webrtcchannel

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"github.com/nullpeer/hopwire/internal/config"
)

// DataChannelLabel is the single channel this repo's engine sends
// every frame over — control and data alike — matching spec.md §4.2's
// one-channel framing rather than the teacher's multichannel variant.
const DataChannelLabel = "hopwire-transfer"

// NewPeerConnection builds a pion PeerConnection seeded with cfg's ICE
// servers. Grounded on the teacher's NewPeerConnection; TURN relay and
// force-relay policy are dropped since spec.md §1 scopes NAT-traversal
// policy decisions out of the core (a production deployment may still
// configure pion directly for that).
func NewPeerConnection(cfg *config.Config) (*webrtc.PeerConnection, error) {
	var iceServers []webrtc.ICEServer
	if cfg.STUNServer != "" {
		iceServers = []webrtc.ICEServer{{URLs: []string{cfg.STUNServer}}}
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, err
	}
	return pc, nil
}

// CreateDataChannel opens the single ordered, reliable data channel
// this repo's transfer engine runs over, and wraps it to satisfy
// transfer.Channel.
func CreateDataChannel(pc *webrtc.PeerConnection, label string) (*DataChannel, error) {
	ordered := true
	dc, err := pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, err
	}
	return WrapDataChannel(dc), nil
}

// CreateOffer creates and sets the local SDP offer, returning it ready
// to hand to internal/signalclient for relaying through the broker.
func CreateOffer(pc *webrtc.PeerConnection) (*webrtc.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return pc.LocalDescription(), nil
}

// CreateAnswer sets remoteOffer and creates the matching local answer.
func CreateAnswer(pc *webrtc.PeerConnection, remoteOffer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	if err := pc.SetRemoteDescription(remoteOffer); err != nil {
		return nil, err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return pc.LocalDescription(), nil
}

// HandleAnswer applies a remote SDP answer obtained via
// internal/signalclient's Offer/Answer round trip.
func HandleAnswer(pc *webrtc.PeerConnection, answer webrtc.SessionDescription) error {
	return pc.SetRemoteDescription(answer)
}

// OnICECandidate registers fn to fire for every locally-gathered ICE
// candidate, JSON-encoded ready for internal/signalclient.SendICECandidate.
func OnICECandidate(pc *webrtc.PeerConnection, fn func(json.RawMessage)) {
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return // end-of-candidates signal; nothing to forward.
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		fn(raw)
	})
}

// AddICECandidate applies one remote ICE candidate received via
// internal/signalclient.
func AddICECandidate(pc *webrtc.PeerConnection, candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return err
	}
	return pc.AddICECandidate(init)
}

// EncodeSDP packs a SessionDescription for internal/signalclient's
// opaque offer/answer payload fields.
func EncodeSDP(sd *webrtc.SessionDescription) (json.RawMessage, error) {
	return json.Marshal(sd)
}

// DecodeSDP unpacks a SessionDescription received via
// internal/signalclient.
func DecodeSDP(raw json.RawMessage) (webrtc.SessionDescription, error) {
	var sd webrtc.SessionDescription
	err := json.Unmarshal(raw, &sd)
	return sd, err
}
