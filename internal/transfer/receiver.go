package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"go.uber.org/zap"
)

// Receiver implements the receiver state machine of spec.md §4.2: one
// file at a time, duplicate suppression, missing-chunk degradation,
// optional checksum verification, and the legacy headerless-binary
// fallback.
type Receiver struct {
	channel  Channel
	observer Observer
	log      *zap.Logger

	current *fileState
}

// NewReceiver builds a Receiver that sends chunk-acks back over ch and
// reports progress/completion to observer. observer and log may be
// nil.
func NewReceiver(ch Channel, observer Observer, log *zap.Logger) *Receiver {
	if observer == nil {
		observer = NopObserver{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Receiver{channel: ch, observer: observer, log: log}
}

// HandleText processes one JSON-shaped control frame.
func (r *Receiver) HandleText(data []byte) error {
	var frame ControlFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return NewError("parse control frame", ErrMalformedControlFrame)
	}

	switch frame.Type {
	case ControlFileMetadata:
		return r.handleFileMetadata(frame.Payload)
	case ControlFileComplete:
		return r.handleFileComplete(frame.Payload)
	case ControlChunkAck:
		// The receiver never receives acks for its own sends in a
		// one-directional transfer; ignored rather than treated as an
		// error so a bidirectional future extension stays compatible.
		return nil
	default:
		r.log.Debug("unknown control frame type", zap.String("type", frame.Type))
		return nil
	}
}

// HandleBinary processes one binary frame: a 0x01-tagged data chunk, or
// a legacy headerless raw chunk.
func (r *Receiver) HandleBinary(data []byte) error {
	if r.current == nil {
		r.log.Debug("dropping binary frame with no active file-metadata")
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	if !IsSequencedChunk(data) {
		return r.handleLegacyChunk(data)
	}
	return r.handleSequencedChunk(data)
}

func (r *Receiver) handleFileMetadata(payload json.RawMessage) error {
	var meta FileMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return NewError("parse file-metadata", ErrMalformedControlFrame)
	}
	r.current = newFileState(meta)
	return nil
}

func (r *Receiver) handleSequencedChunk(data []byte) error {
	chunkIndex, totalChunks, payload, err := DecodeDataChunk(data)
	if err != nil {
		r.log.Debug("dropping malformed data chunk frame", zap.Error(err))
		return nil
	}

	if totalChunks == 0 || chunkIndex >= totalChunks {
		r.log.Debug("dropping out-of-range chunk",
			zap.Uint32("chunk_index", chunkIndex), zap.Uint32("total_chunks", totalChunks))
		return nil
	}

	if r.current.Received[chunkIndex] {
		r.log.Debug("dropping duplicate chunk", zap.Uint32("chunk_index", chunkIndex))
		r.sendAck(chunkIndex)
		return nil
	}

	// Copy the payload: it aliases the caller's frame buffer, which may
	// be reused once this call returns.
	stored := make([]byte, len(payload))
	copy(stored, payload)

	r.current.Chunks[chunkIndex] = stored
	r.current.Received[chunkIndex] = true
	r.current.BytesReceived += uint64(len(stored))
	r.sendAck(chunkIndex)

	r.observer.OnProgress(ProgressSample{
		File:             r.current.Meta.Name,
		BytesTransferred: int64(r.current.BytesReceived),
		TotalSize:        int64(r.current.Meta.Size),
		StartTime:        r.current.StartTime,
	})
	return nil
}

func (r *Receiver) handleLegacyChunk(data []byte) error {
	r.current.LegacyBuffer = append(r.current.LegacyBuffer, data...)
	r.current.BytesReceived += uint64(len(data))

	r.observer.OnProgress(ProgressSample{
		File:             r.current.Meta.Name,
		BytesTransferred: int64(r.current.BytesReceived),
		TotalSize:        int64(r.current.Meta.Size),
		StartTime:        r.current.StartTime,
	})
	return nil
}

func (r *Receiver) sendAck(chunkIndex uint32) {
	data, err := marshalControl(ControlChunkAck, ChunkAck{ChunkIndex: chunkIndex})
	if err != nil {
		return
	}
	if err := r.channel.SendText(data); err != nil {
		r.log.Debug("failed to send chunk-ack", zap.Error(err))
	}
}

func (r *Receiver) handleFileComplete(payload json.RawMessage) error {
	var fc FileComplete
	if err := json.Unmarshal(payload, &fc); err != nil {
		return NewError("parse file-complete", ErrMalformedControlFrame)
	}

	state := r.current
	if state == nil {
		return NewError("file-complete", ErrNoActiveFile)
	}
	r.current = nil

	expected := fc.TotalChunks
	if expected == 0 {
		expected = state.ExpectedChunks
	}

	var data []byte
	var missing bool
	if len(state.LegacyBuffer) > 0 {
		data = state.LegacyBuffer
	} else {
		data, missing = reassemble(state, expected)
	}

	result := FileResult{
		Name:     state.Meta.Name,
		MimeType: state.Meta.MimeType,
		Data:     data,
		Degraded: missing,
	}

	switch {
	case missing:
		result.Err = WrapError("reassemble", ErrMissingChunk, state.Meta.Name)
	case uint64(len(data)) != state.Meta.Size:
		result.Err = WrapError("reassemble", ErrSizeMismatch, state.Meta.Name)
	}

	if fc.Checksum != "" {
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != fc.Checksum {
			result.ChecksumErr = WrapError("checksum", ErrChecksumMismatch, state.Meta.Name)
		}
	}

	r.observer.OnFileComplete(result)
	return nil
}
