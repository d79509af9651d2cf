package transfer

import "time"

// fileState is the per-in-flight-file record at the receiver
// (spec.md §3): metadata from the file-metadata frame, the chunk map
// and the set of indices seen so far, running byte count, and start
// time for progress reporting.
type fileState struct {
	Meta           FileMetadata
	ExpectedChunks uint32

	Chunks   map[uint32][]byte
	Received map[uint32]bool

	// LegacyBuffer accumulates bytes from the pre-sequence-header
	// binary fallback (spec.md §4.2 "Legacy interoperability"). Once a
	// file has used it, its correctness depends entirely on the
	// channel's ordering guarantee, so it is never mixed with indexed
	// chunks for the same file.
	LegacyBuffer []byte

	BytesReceived uint64
	StartTime     time.Time
}

func newFileState(meta FileMetadata) *fileState {
	expected := chunkCount(int64(meta.Size))
	return &fileState{
		Meta:           meta,
		ExpectedChunks: expected,
		Chunks:         make(map[uint32][]byte),
		Received:       make(map[uint32]bool),
		StartTime:      time.Now(),
	}
}

// chunkCount is ceil(size / ChunkSize); an empty file needs zero
// chunks.
func chunkCount(size int64) uint32 {
	if size <= 0 {
		return 0
	}
	return uint32((size + ChunkSize - 1) / ChunkSize)
}

// chunkLength is the expected byte length of chunk index i out of
// total, given the file's declared total size — ChunkSize for every
// chunk but the last, which holds the remainder.
func chunkLength(totalSize uint64, index, total uint32) int {
	if total == 0 {
		return 0
	}
	if index < total-1 {
		return ChunkSize
	}
	remainder := totalSize - uint64(total-1)*uint64(ChunkSize)
	if remainder == 0 || remainder > uint64(ChunkSize) {
		return ChunkSize
	}
	return int(remainder)
}

// reassemble concatenates chunks[0..expected-1] in index order,
// zero-filling any gap to its expected length (spec.md §4.2's
// MissingChunk degradation). It reports whether any chunk was missing.
func reassemble(state *fileState, expected uint32) ([]byte, bool) {
	buf := make([]byte, 0, state.Meta.Size)
	missing := false
	for i := uint32(0); i < expected; i++ {
		if data, ok := state.Chunks[i]; ok {
			buf = append(buf, data...)
			continue
		}
		missing = true
		buf = append(buf, make([]byte, chunkLength(state.Meta.Size, i, expected))...)
	}
	return buf, missing
}
