package transfer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	texts    [][]byte
	binaries [][]byte
	buffered uint64
	state    ChannelState
	onText   func([]byte)
	onBinary func([]byte)
}

func newRecordingChannel() *recordingChannel {
	return &recordingChannel{state: ChannelOpen}
}

func (c *recordingChannel) SendText(data []byte) error {
	c.texts = append(c.texts, data)
	if c.onText != nil {
		c.onText(data)
	}
	return nil
}

func (c *recordingChannel) SendBinary(data []byte) error {
	c.binaries = append(c.binaries, data)
	if c.onBinary != nil {
		c.onBinary(data)
	}
	return nil
}

func (c *recordingChannel) BufferedAmount() uint64   { return c.buffered }
func (c *recordingChannel) ReadyState() ChannelState { return c.state }

type captureObserver struct {
	progress []ProgressSample
	results  []FileResult
}

func (o *captureObserver) OnProgress(s ProgressSample) { o.progress = append(o.progress, s) }
func (o *captureObserver) OnFileComplete(r FileResult) { o.results = append(o.results, r) }

func wirePair() (*recordingChannel, *Receiver, *Sender, *captureObserver) {
	observer := &captureObserver{}
	recvChan := newRecordingChannel()
	receiver := NewReceiver(recvChan, observer, nil)

	sendChan := newRecordingChannel()
	sendChan.onText = func(data []byte) { receiver.HandleText(data) }
	sendChan.onBinary = func(data []byte) { receiver.HandleBinary(data) }
	sender := NewSender(sendChan, nil, nil)

	return sendChan, receiver, sender, observer
}

func TestRoundTripReassemblyMatchesOriginalBytes(t *testing.T) {
	content := make([]byte, 100000)
	for i := range content {
		content[i] = byte(i % 251)
	}

	_, _, sender, observer := wirePair()

	err := sender.SendFiles([]FileSource{{
		Name:     "photo.bin",
		Size:     int64(len(content)),
		MimeType: "application/octet-stream",
		Reader:   bytes.NewReader(content),
	}})
	require.NoError(t, err)

	require.Len(t, observer.results, 1)
	res := observer.results[0]
	assert.False(t, res.Degraded)
	assert.Nil(t, res.Err)
	assert.Nil(t, res.ChecksumErr)
	assert.Equal(t, content, res.Data)
	assert.NotEmpty(t, observer.progress)
}

func TestRoundTripTwoChunkFileExactSizes(t *testing.T) {
	content := make([]byte, 100000)
	sendChan, _, sender, observer := wirePair()

	require.NoError(t, sender.SendFiles([]FileSource{{
		Name: "two-chunks.bin", Size: int64(len(content)), Reader: bytes.NewReader(content),
	}}))

	require.Len(t, sendChan.binaries, 2)
	for i, want := range []int{65536, 34464} {
		index, total, data, err := DecodeDataChunk(sendChan.binaries[i])
		require.NoError(t, err)
		assert.Equal(t, uint32(i), index)
		assert.Equal(t, uint32(2), total)
		assert.Len(t, data, want)
	}

	require.Len(t, observer.results, 1)
	assert.Len(t, observer.results[0].Data, 100000)
}

func TestChunkIdempotenceUnderDuplicates(t *testing.T) {
	content := make([]byte, 200000) // 4 chunks of 64KiB-ish
	for i := range content {
		content[i] = byte(i)
	}

	observer := &captureObserver{}
	recvChan := newRecordingChannel()
	receiver := NewReceiver(recvChan, observer, nil)

	total := chunkCount(int64(len(content)))
	meta, _ := marshalControl(ControlFileMetadata, FileMetadata{Name: "dup.bin", Size: uint64(len(content))})
	require.NoError(t, receiver.HandleText(meta))

	offset := 0
	var frames [][]byte
	for i := uint32(0); i < total; i++ {
		n := chunkLength(uint64(len(content)), i, total)
		frames = append(frames, EncodeDataChunk(i, total, content[offset:offset+n]))
		offset += n
	}

	// Deliver chunk 0, then duplicate chunk 1 and chunk 3.
	require.NoError(t, receiver.HandleBinary(frames[0]))
	require.NoError(t, receiver.HandleBinary(frames[1]))
	require.NoError(t, receiver.HandleBinary(frames[1])) // duplicate
	require.NoError(t, receiver.HandleBinary(frames[2]))
	require.NoError(t, receiver.HandleBinary(frames[3]))
	require.NoError(t, receiver.HandleBinary(frames[3])) // duplicate

	fc, _ := marshalControl(ControlFileComplete, FileComplete{FileName: "dup.bin", TotalChunks: total})
	require.NoError(t, receiver.HandleText(fc))

	require.Len(t, observer.results, 1)
	res := observer.results[0]
	assert.False(t, res.Degraded)
	assert.Nil(t, res.Err)
	assert.Equal(t, content, res.Data)

	// Every incoming frame (4 unique + 2 duplicates = 6) got acked.
	assert.Len(t, recvChan.texts, 6)
}

func TestMissingChunkDegradesButStillDelivers(t *testing.T) {
	content := make([]byte, 4*ChunkSize)
	for i := range content {
		content[i] = 0xAB
	}

	observer := &captureObserver{}
	recvChan := newRecordingChannel()
	receiver := NewReceiver(recvChan, observer, nil)

	total := chunkCount(int64(len(content)))
	meta, _ := marshalControl(ControlFileMetadata, FileMetadata{Name: "gap.bin", Size: uint64(len(content))})
	require.NoError(t, receiver.HandleText(meta))

	// Deliver chunks 0, 1, 3 — simulate loss of chunk 2.
	for _, i := range []uint32{0, 1, 3} {
		n := chunkLength(uint64(len(content)), i, total)
		frame := EncodeDataChunk(i, total, content[int(i)*ChunkSize:int(i)*ChunkSize+n])
		require.NoError(t, receiver.HandleBinary(frame))
	}

	fc, _ := marshalControl(ControlFileComplete, FileComplete{FileName: "gap.bin", TotalChunks: total})
	require.NoError(t, receiver.HandleText(fc))

	require.Len(t, observer.results, 1)
	res := observer.results[0]
	require.True(t, res.Degraded)
	require.ErrorIs(t, res.Err, ErrMissingChunk)
	require.Len(t, res.Data, len(content))

	gapStart := 2 * ChunkSize
	gapEnd := 3 * ChunkSize
	for _, b := range res.Data[gapStart:gapEnd] {
		assert.Equal(t, byte(0), b)
	}
	for _, b := range res.Data[:gapStart] {
		assert.Equal(t, byte(0xAB), b)
	}
}

func TestChecksumMismatchStillDeliversFile(t *testing.T) {
	observer := &captureObserver{}
	recvChan := newRecordingChannel()
	receiver := NewReceiver(recvChan, observer, nil)

	content := []byte("hello world")
	meta, _ := marshalControl(ControlFileMetadata, FileMetadata{Name: "hi.txt", Size: uint64(len(content))})
	require.NoError(t, receiver.HandleText(meta))
	require.NoError(t, receiver.HandleBinary(EncodeDataChunk(0, 1, content)))

	fc, _ := marshalControl(ControlFileComplete, FileComplete{
		FileName: "hi.txt", TotalChunks: 1, Checksum: "not-a-real-checksum",
	})
	require.NoError(t, receiver.HandleText(fc))

	require.Len(t, observer.results, 1)
	res := observer.results[0]
	assert.Nil(t, res.Err)
	require.ErrorIs(t, res.ChecksumErr, ErrChecksumMismatch)
	assert.Equal(t, content, res.Data)
}

func TestLegacyHeaderlessBinaryFallback(t *testing.T) {
	observer := &captureObserver{}
	recvChan := newRecordingChannel()
	receiver := NewReceiver(recvChan, observer, nil)

	content := []byte("legacy payload, no sequence header")
	meta, _ := marshalControl(ControlFileMetadata, FileMetadata{Name: "legacy.txt", Size: uint64(len(content))})
	require.NoError(t, receiver.HandleText(meta))

	// Split into two raw (non-0x01) binary frames, arrival order matters.
	require.NoError(t, receiver.HandleBinary(content[:10]))
	require.NoError(t, receiver.HandleBinary(content[10:]))

	fc, _ := marshalControl(ControlFileComplete, FileComplete{FileName: "legacy.txt", TotalChunks: 1})
	require.NoError(t, receiver.HandleText(fc))

	require.Len(t, observer.results, 1)
	assert.Equal(t, content, observer.results[0].Data)
}

func TestChunkOutOfRangeIsDroppedNotStored(t *testing.T) {
	observer := &captureObserver{}
	recvChan := newRecordingChannel()
	receiver := NewReceiver(recvChan, observer, nil)

	meta, _ := marshalControl(ControlFileMetadata, FileMetadata{Name: "x.bin", Size: uint64(ChunkSize)})
	require.NoError(t, receiver.HandleText(meta))

	// chunk_index (5) >= total_chunks (1): must be dropped silently.
	require.NoError(t, receiver.HandleBinary(EncodeDataChunk(5, 1, []byte("nope"))))
	assert.Empty(t, receiver.current.Chunks)
}

func TestBackpressureWaitsUntilBufferDrains(t *testing.T) {
	ch := newRecordingChannel()
	ch.buffered = uint64(HighWaterMark) + 1

	drainedAfter := 3
	calls := 0
	origBuffered := ch.buffered
	checkFn := func() uint64 {
		calls++
		if calls >= drainedAfter {
			return 0
		}
		return origBuffered
	}

	s := &Sender{channel: &funcChannel{bufferedFn: checkFn, state: ChannelOpen}, observer: NopObserver{}, log: nil}
	s.observer = NopObserver{}

	start := time.Now()
	err := s.waitForWindow()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls, drainedAfter)
	// Sleeps between polls should add up to roughly (drainedAfter-1)*backoff.
	assert.GreaterOrEqual(t, time.Since(start), time.Duration(drainedAfter-1)*BackpressureBackoff/2)
}

func TestBackpressureFailsWhenChannelClosesWhileWaiting(t *testing.T) {
	ch := &funcChannel{bufferedFn: func() uint64 { return uint64(HighWaterMark) + 1 }, state: ChannelClosed}
	s := &Sender{channel: ch, observer: NopObserver{}}
	err := s.waitForWindow()
	assert.ErrorIs(t, err, ErrChannelClosedDuringTransfer)
}

type funcChannel struct {
	bufferedFn func() uint64
	state      ChannelState
}

func (f *funcChannel) SendText(data []byte) error   { return nil }
func (f *funcChannel) SendBinary(data []byte) error { return nil }
func (f *funcChannel) BufferedAmount() uint64       { return f.bufferedFn() }
func (f *funcChannel) ReadyState() ChannelState     { return f.state }
