package transfer

// ChannelState mirrors the lifecycle of the underlying reliable ordered
// transport (e.g. a WebRTC data channel).
type ChannelState int

const (
	ChannelConnecting ChannelState = iota
	ChannelOpen
	ChannelClosing
	ChannelClosed
)

// Channel is the minimal surface the engine needs from "a reliable,
// ordered, bidirectional channel ... that exposes an
// outbound-buffered-bytes counter" (spec.md §4.2). spec.md §1 puts the
// channel's actual implementation (NAT traversal, DTLS, SCTP) out of
// scope; internal/webrtcchannel supplies the one concrete
// implementation this repo ships, over pion/webrtc data channels.
type Channel interface {
	// SendText enqueues a text (control) frame.
	SendText(data []byte) error

	// SendBinary enqueues a binary (data chunk) frame.
	SendBinary(data []byte) error

	// BufferedAmount is the transport's current outbound queue depth
	// in bytes, used for backpressure.
	BufferedAmount() uint64

	ReadyState() ChannelState
}
