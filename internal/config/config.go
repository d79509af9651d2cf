// Package config holds the tunables spec.md §6 names, loaded
// env-over-default the way the teacher's cli/internal/config loads its
// STUN/TURN/domain settings. The CLI-flag layer the teacher stacks on
// top of that (flag > env > default) is part of the out-of-scope
// command-line entrypoint (spec.md §1) and is not reproduced here.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// ChunkSize is CHUNK_SIZE from spec.md §6.
	ChunkSize = 64 * 1024

	// DefaultRoomExpiry is ROOM_EXPIRY's default: 10 minutes.
	DefaultRoomExpiry = 10 * time.Minute

	// DefaultListenAddr is the broker's default bind address.
	DefaultListenAddr = ":8080"

	// BackpressureHighWaterMark is the buffered-bytes threshold past
	// which the sender defers before enqueuing the next chunk.
	BackpressureHighWaterMark = 1 << 20 // 1 MiB

	// BackpressureBackoff is how long the sender waits before
	// re-checking the buffered-bytes counter.
	BackpressureBackoff = 100 * time.Millisecond

	// DefaultSTUNServer seeds ICE candidate gathering for
	// internal/webrtcchannel's peer connections when no override is
	// configured. Grounded on the teacher's cli/internal/config
	// DefaultSTUN.
	DefaultSTUNServer = "stun:stun.l.google.com:19302"
)

// Config is the runtime configuration shared by the broker binary and
// any peer endpoint embedding internal/transfer + internal/webrtcchannel.
type Config struct {
	ListenAddr  string
	RoomExpiry  time.Duration
	Version     string
	Environment string
	HTTPS       bool

	// STUNServer is the ICE server URL peer connections use to
	// discover their public address. Unused by the broker itself.
	STUNServer string
}

// Load reads configuration from environment variables, falling back to
// the defaults above. HOPWIRE_LISTEN_ADDR, HOPWIRE_ROOM_EXPIRY_MS,
// HOPWIRE_VERSION, HOPWIRE_ENV, HOPWIRE_HTTPS, HOPWIRE_STUN_SERVER.
func Load() *Config {
	cfg := &Config{
		ListenAddr:  DefaultListenAddr,
		RoomExpiry:  DefaultRoomExpiry,
		Version:     "dev",
		Environment: "development",
		HTTPS:       false,
		STUNServer:  DefaultSTUNServer,
	}

	if v := os.Getenv("HOPWIRE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("HOPWIRE_ROOM_EXPIRY_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			cfg.RoomExpiry = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("HOPWIRE_VERSION"); v != "" {
		cfg.Version = v
	}
	if v := os.Getenv("HOPWIRE_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("HOPWIRE_HTTPS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.HTTPS = b
		}
	}
	if v := os.Getenv("HOPWIRE_STUN_SERVER"); v != "" {
		cfg.STUNServer = v
	}

	return cfg
}
