// Package brokerhttp wires the rendezvous broker onto the HTTP surface
// described in spec.md §6: the WebSocket upgrade endpoint the signaling
// protocol rides on, plus the two auxiliary JSON endpoints. Everything
// else at the HTTP boundary (TLS termination, CORS, rate limiting,
// static asset serving) is out of scope per spec.md §1 and is not
// implemented here.
package brokerhttp

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nullpeer/hopwire/internal/broker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Info is returned by GET /api/info.
type Info struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
	HTTPS       bool   `json:"https"`
	RoomExpiry  int64  `json:"room_expiry"`
	MaxRoomSize int    `json:"max_room_size"`
	NetworkIP   string `json:"network_ip"`
	Port        string `json:"port"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status      string `json:"status"`
	Rooms       int64  `json:"rooms"`
	Connections int64  `json:"connections"`
	Uptime      string `json:"uptime"`
	Timestamp   string `json:"timestamp"`
}

// ServeWS upgrades the request to a WebSocket connection, attaches a
// broker.Client to the hub, and starts its read/write pumps. Grounded
// on the teacher's backend/internal/server.ServeWs.
func ServeWS(hub *broker.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := broker.NewClientForConn(hub, conn)
		hub.Register(client)
		client.Greet()

		go client.WritePump()
		go client.ReadPump()
	}
}

// HealthHandler serves GET /health.
func HealthHandler(hub *broker.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := hub.Metrics()
		writeJSON(w, HealthStatus{
			Status:      "ok",
			Rooms:       m.Rooms(),
			Connections: m.Connections(),
			Uptime:      m.Uptime().Round(time.Second).String(),
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// InfoHandler serves GET /api/info.
func InfoHandler(version, environment, port string, roomExpiry time.Duration, https bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Info{
			Version:     version,
			Environment: environment,
			HTTPS:       https,
			RoomExpiry:  roomExpiry.Milliseconds(),
			MaxRoomSize: broker.MaxRoomSize,
			NetworkIP:   outboundIP(),
			Port:        port,
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(v)
}

// outboundIP discovers the LAN address this process would use to reach
// the internet, by opening (without sending on) a UDP socket. Grounded
// on the teacher's cli/internal/utils/network_utils.go, which uses the
// same trick client-side to show a "scan me on your LAN" address; here
// it self-reports the server's own address for GET /api/info.
func outboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return ""
	}
	return addr.IP.String()
}
