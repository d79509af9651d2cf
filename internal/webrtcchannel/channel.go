package webrtcchannel

import (
	"github.com/pion/webrtc/v4"

	"github.com/nullpeer/hopwire/internal/transfer"
)

// DataChannel adapts a pion data channel to internal/transfer.Channel.
// Grounded on the teacher's singlechannel sender's direct use of
// DataChannel.BufferedAmount/SetBufferedAmountLowThreshold/
// OnBufferedAmountLow, generalized into the polling-based backpressure
// shape transfer.Sender expects (spec.md §4.2 step 3: inspect, defer,
// re-check, rather than wait on a low-water callback).
type DataChannel struct {
	dc *webrtc.DataChannel
}

// WrapDataChannel builds a DataChannel around an already-created pion
// data channel (either side's CreateDataChannel, or the OnDataChannel
// callback on the answering side).
func WrapDataChannel(dc *webrtc.DataChannel) *DataChannel {
	return &DataChannel{dc: dc}
}

// SendText enqueues a text (control) frame.
func (c *DataChannel) SendText(data []byte) error {
	return c.dc.SendText(string(data))
}

// SendBinary enqueues a binary (data chunk) frame.
func (c *DataChannel) SendBinary(data []byte) error {
	return c.dc.Send(data)
}

// BufferedAmount is the channel's current outbound queue depth in
// bytes.
func (c *DataChannel) BufferedAmount() uint64 {
	return c.dc.BufferedAmount()
}

// ReadyState maps pion's DataChannelState onto transfer.ChannelState.
func (c *DataChannel) ReadyState() transfer.ChannelState {
	switch c.dc.ReadyState() {
	case webrtc.DataChannelStateConnecting:
		return transfer.ChannelConnecting
	case webrtc.DataChannelStateOpen:
		return transfer.ChannelOpen
	case webrtc.DataChannelStateClosing:
		return transfer.ChannelClosing
	default:
		return transfer.ChannelClosed
	}
}

// OnOpen registers fn to fire once the channel finishes its SCTP
// handshake and becomes writable.
func (c *DataChannel) OnOpen(fn func()) {
	c.dc.OnOpen(fn)
}

// OnMessage registers onText/onBinary to fire for each inbound frame,
// dispatched by pion's IsString flag — the same tag spec.md §6 uses to
// distinguish control frames from binary data-chunk frames.
func (c *DataChannel) OnMessage(onText, onBinary func(data []byte)) {
	c.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString {
			if onText != nil {
				onText(msg.Data)
			}
			return
		}
		if onBinary != nil {
			onBinary(msg.Data)
		}
	})
}

// Close closes the underlying data channel.
func (c *DataChannel) Close() error {
	return c.dc.Close()
}
