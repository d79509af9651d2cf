package transfer

import (
	"encoding/binary"
	"fmt"
)

// DataChunkTag marks a binary frame as a sequenced data chunk
// (spec.md §4.2). Any other first byte is the legacy headerless
// fallback: a raw chunk appended in arrival order.
const DataChunkTag byte = 0x01

// dataChunkHeaderSize is tag(1) + chunk_index(4) + total_chunks(4) +
// data_length(4).
const dataChunkHeaderSize = 13

// EncodeDataChunk builds a 0x01-tagged binary frame with the exact
// little-endian layout spec.md §4.2 defines.
func EncodeDataChunk(chunkIndex, totalChunks uint32, data []byte) []byte {
	frame := make([]byte, dataChunkHeaderSize+len(data))
	frame[0] = DataChunkTag
	binary.LittleEndian.PutUint32(frame[1:5], chunkIndex)
	binary.LittleEndian.PutUint32(frame[5:9], totalChunks)
	binary.LittleEndian.PutUint32(frame[9:13], uint32(len(data)))
	copy(frame[dataChunkHeaderSize:], data)
	return frame
}

// DecodeDataChunk parses a 0x01-tagged binary frame. The returned data
// slice aliases frame and must not be retained past the frame's
// lifetime without copying.
func DecodeDataChunk(frame []byte) (chunkIndex, totalChunks uint32, data []byte, err error) {
	if len(frame) < dataChunkHeaderSize {
		return 0, 0, nil, fmt.Errorf("data chunk frame too short: %d bytes", len(frame))
	}
	if frame[0] != DataChunkTag {
		return 0, 0, nil, fmt.Errorf("not a data chunk frame (tag %#x)", frame[0])
	}

	chunkIndex = binary.LittleEndian.Uint32(frame[1:5])
	totalChunks = binary.LittleEndian.Uint32(frame[5:9])
	length := binary.LittleEndian.Uint32(frame[9:13])

	if uint64(dataChunkHeaderSize)+uint64(length) > uint64(len(frame)) {
		return 0, 0, nil, fmt.Errorf("data chunk declares length %d exceeding frame size %d", length, len(frame))
	}

	data = frame[dataChunkHeaderSize : dataChunkHeaderSize+int(length)]
	return chunkIndex, totalChunks, data, nil
}

// IsSequencedChunk reports whether a binary frame carries the 0x01
// sequence header, as opposed to the legacy raw-append fallback.
func IsSequencedChunk(frame []byte) bool {
	return len(frame) > 0 && frame[0] == DataChunkTag
}
