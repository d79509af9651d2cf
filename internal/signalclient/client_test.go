package signalclient

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nullpeer/hopwire/internal/broker"
	"github.com/nullpeer/hopwire/internal/brokerhttp"
)

// startTestBroker runs a real broker.Hub behind a real HTTP server, so
// these tests exercise the full join/offer/answer round trip through
// the actual wire protocol rather than a direct hub.Dispatch call
// (that is internal/broker's own test suite's job).
func startTestBroker(t *testing.T) (wsURL string, hub *broker.Hub) {
	t.Helper()
	hub = broker.NewHub(time.Minute, zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(brokerhttp.ServeWS(hub, zap.NewNop()))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub
}

func dialTestClient(t *testing.T, wsURL string) (*Client, *Handler) {
	t.Helper()
	c := NewClient(wsURL)
	require.NoError(t, c.Connect())
	t.Cleanup(c.Close)

	h := NewHandler(c)
	go h.Start()
	return c, h
}

func TestJoinProtocolRoundTripThroughRealBroker(t *testing.T) {
	wsURL, _ := startTestBroker(t)

	sender, senderHandler := dialTestClient(t, wsURL)
	require.NoError(t, sender.SendJoin(true, ""))

	var created JoinedPayload
	select {
	case created = <-senderHandler.Joined:
	case <-time.After(time.Second):
		t.Fatal("sender never received joined")
	}
	require.Equal(t, "sender", created.Role)
	require.Len(t, created.RoomID, 6)

	require.NoError(t, sender.SendOffer([]byte(`{"sdp":"fake-offer"}`)))

	receiver, receiverHandler := dialTestClient(t, wsURL)
	require.NoError(t, receiver.SendJoin(false, strings.ToLower(created.RoomID)))

	var senderUpdate JoinedPayload
	select {
	case senderUpdate = <-senderHandler.Joined:
	case <-time.After(time.Second):
		t.Fatal("sender never saw peer_count advance")
	}
	require.Equal(t, 2, senderUpdate.PeerCount)

	var receiverJoined JoinedPayload
	select {
	case receiverJoined = <-receiverHandler.Joined:
	case <-time.After(time.Second):
		t.Fatal("receiver never received joined")
	}
	require.Equal(t, "receiver", receiverJoined.Role)

	// The offer sent before the receiver joined must reach the receiver.
	select {
	case offer := <-receiverHandler.Offer:
		require.JSONEq(t, `{"sdp":"fake-offer"}`, string(offer))
	case <-time.After(time.Second):
		t.Fatal("receiver never received the buffered offer")
	}

	require.NoError(t, receiver.SendAnswer([]byte(`{"sdp":"fake-answer"}`)))
	select {
	case answer := <-senderHandler.Answer:
		require.JSONEq(t, `{"sdp":"fake-answer"}`, string(answer))
	case <-time.After(time.Second):
		t.Fatal("sender never received the answer")
	}
}

func TestJoinUnknownRoomReturnsErrorAndKeepsSessionOpen(t *testing.T) {
	wsURL, _ := startTestBroker(t)
	client, handler := dialTestClient(t, wsURL)

	require.NoError(t, client.SendJoin(false, "ZZZZZZ"))

	select {
	case msg := <-handler.Error:
		require.NotEmpty(t, msg)
	case <-time.After(time.Second):
		t.Fatal("expected an error frame for an unknown room")
	}

	// The session survives the rejected join: a second attempt still works.
	require.NoError(t, client.SendJoin(true, ""))
	select {
	case joined := <-handler.Joined:
		require.Equal(t, "sender", joined.Role)
	case <-time.After(time.Second):
		t.Fatal("session should still accept a fresh join after an error")
	}
}
