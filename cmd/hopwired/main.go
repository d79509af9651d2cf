// Command hopwired runs the rendezvous broker: the HTTP/WebSocket
// signaling server that relays handshake frames between the two peers
// of a room. It never touches file content — that happens peer-to-peer
// once the handshake completes (spec.md §1).
package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nullpeer/hopwire/internal/broker"
	"github.com/nullpeer/hopwire/internal/brokerhttp"
	"github.com/nullpeer/hopwire/internal/config"
	"github.com/nullpeer/hopwire/internal/logging"
)

func main() {
	log := logging.New()
	defer log.Sync()

	cfg := config.Load()

	hub := broker.NewHub(cfg.RoomExpiry, log)
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", brokerhttp.ServeWS(hub, log))
	mux.HandleFunc("/health", brokerhttp.HealthHandler(hub))
	mux.HandleFunc("/api/info", brokerhttp.InfoHandler(cfg.Version, cfg.Environment, cfg.ListenAddr, cfg.RoomExpiry, cfg.HTTPS))

	log.Info("starting hopwire broker", zap.String("addr", cfg.ListenAddr), zap.Duration("room_expiry", cfg.RoomExpiry))
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatal("broker server exited", zap.Error(err))
	}
}
