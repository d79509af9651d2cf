package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	"go.uber.org/zap"
)

// FileSource is one file queued for sending: its declared metadata
// plus a reader positioned at its first byte.
type FileSource struct {
	Name         string
	Size         int64
	MimeType     string
	LastModified int64
	Reader       io.Reader
}

// Sender implements the sender contract of spec.md §4.2: announce,
// chunk, backpressure, checksum, and strictly sequential files.
type Sender struct {
	channel  Channel
	observer Observer
	log      *zap.Logger
}

// NewSender builds a Sender over ch. observer and log may be nil.
func NewSender(ch Channel, observer Observer, log *zap.Logger) *Sender {
	if observer == nil {
		observer = NopObserver{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{channel: ch, observer: observer, log: log}
}

// SendFiles transmits every file in order, starting file n+1 only
// after file n's file-complete frame has been enqueued (spec.md §4.2
// step 5). It stops and returns the first error encountered.
func (s *Sender) SendFiles(files []FileSource) error {
	for i, f := range files {
		if err := s.sendFile(f); err != nil {
			return err
		}
		if i < len(files)-1 {
			time.Sleep(InterFilePause)
		}
	}
	return nil
}

func (s *Sender) sendFile(f FileSource) error {
	meta := FileMetadata{
		Name:         f.Name,
		Size:         uint64(f.Size),
		MimeType:     f.MimeType,
		LastModified: f.LastModified,
	}
	if err := s.sendControl(ControlFileMetadata, meta); err != nil {
		return err
	}

	totalChunks := chunkCount(f.Size)
	hasher := sha256.New()
	buf := make([]byte, ChunkSize)

	var index uint32
	var sent int64
	startTime := time.Now()

	for {
		if err := s.waitForWindow(); err != nil {
			return WrapError("send", err, f.Name)
		}

		n, readErr := io.ReadFull(f.Reader, buf)
		if n > 0 {
			hasher.Write(buf[:n])

			frame := EncodeDataChunk(index, totalChunks, buf[:n])
			if err := s.channel.SendBinary(frame); err != nil {
				return NewFileError("send chunk", f.Name, err)
			}

			index++
			sent += int64(n)
			s.observer.OnProgress(ProgressSample{
				File:             f.Name,
				BytesTransferred: sent,
				TotalSize:        f.Size,
				StartTime:        startTime,
			})
		}

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return NewFileError("read file", f.Name, readErr)
		}
	}

	checksum := hex.EncodeToString(hasher.Sum(nil))
	return s.sendControl(ControlFileComplete, FileComplete{
		FileName:    f.Name,
		TotalChunks: totalChunks,
		Checksum:    checksum,
	})
}

// waitForWindow blocks until the channel's buffered-bytes counter is at
// or below HighWaterMark, polling every BackpressureBackoff
// (spec.md §4.2 step 3, §6).
func (s *Sender) waitForWindow() error {
	for s.channel.BufferedAmount() > uint64(HighWaterMark) {
		if s.channel.ReadyState() != ChannelOpen {
			return ErrChannelClosedDuringTransfer
		}
		time.Sleep(BackpressureBackoff)
	}
	if s.channel.ReadyState() != ChannelOpen {
		return ErrChannelClosedDuringTransfer
	}
	return nil
}

func (s *Sender) sendControl(msgType string, payload any) error {
	data, err := marshalControl(msgType, payload)
	if err != nil {
		return err
	}
	if err := s.channel.SendText(data); err != nil {
		return NewError("send "+msgType, err)
	}
	return nil
}
