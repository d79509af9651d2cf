// Package transfer implements the chunked peer-to-peer file transfer
// protocol of spec.md §4.2: a sender that frames outbound chunks with
// sequence headers and paces them against backpressure, and a receiver
// that reorders, deduplicates, reassembles, and optionally verifies a
// content hash. The package never knows how bytes actually cross the
// wire between the two peers — that is the Channel interface, a
// black-box reliable ordered transport per spec.md §1.
package transfer

import (
	"time"

	"github.com/nullpeer/hopwire/internal/config"
)

const (
	// ChunkSize is the fixed payload size per data chunk (the last
	// chunk of a file holds the remainder). spec.md §6 treats any
	// other value as undefined protocol behavior, so this is not
	// tunable the way the teacher's adaptive chunk sizing was.
	ChunkSize = config.ChunkSize

	// HighWaterMark is the buffered-bytes threshold past which the
	// sender defers enqueuing the next chunk (spec.md §4.2, §6).
	HighWaterMark = config.BackpressureHighWaterMark
)

// BackpressureBackoff is how long the sender waits before re-checking
// the channel's buffered-bytes counter once over HighWaterMark.
var BackpressureBackoff = config.BackpressureBackoff

// InterFilePause is the small pause permitted between files in the
// send queue (spec.md §4.2 step 5).
var InterFilePause = 100 * time.Millisecond
