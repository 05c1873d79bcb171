package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hiehoo/pokemmo-server/internal/config"
	"github.com/hiehoo/pokemmo-server/internal/game/session"
)

type dispatched struct {
	sessionID string
	msgType   string
	payload   json.RawMessage
}

// recordingRoom captures the calls the transport makes against the room.
type recordingRoom struct {
	mu       sync.Mutex
	clients  []session.Client
	left     []string
	messages chan dispatched
	joinErr  error
}

func newRecordingRoom() *recordingRoom {
	return &recordingRoom{messages: make(chan dispatched, 16)}
}

func (r *recordingRoom) OnJoin(client session.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.joinErr != nil {
		return r.joinErr
	}
	r.clients = append(r.clients, client)
	return nil
}

func (r *recordingRoom) OnLeave(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.left = append(r.left, sessionID)
}

func (r *recordingRoom) Dispatch(_ context.Context, sessionID, msgType string, payload json.RawMessage) {
	r.messages <- dispatched{sessionID: sessionID, msgType: msgType, payload: payload}
}

func (r *recordingRoom) joinedClient(i int) session.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.clients) {
		return nil
	}
	return r.clients[i]
}

func (r *recordingRoom) leftCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.left)
}

func newTestConn(t *testing.T, room *recordingRoom) *websocket.Conn {
	t.Helper()

	handler := NewHandler(room, config.RoomConfig{ClientBuffer: 16}, zaptest.NewLogger(t))
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHandlerDispatchesInboundMessages(t *testing.T) {
	room := newRecordingRoom()
	conn := newTestConn(t, room)

	err := conn.WriteJSON(Envelope{Type: "PLAYER_MOVED", Payload: json.RawMessage(`{"x":10,"y":20}`)})
	require.NoError(t, err)

	select {
	case msg := <-room.messages:
		assert.Equal(t, "PLAYER_MOVED", msg.msgType)
		assert.JSONEq(t, `{"x":10,"y":20}`, string(msg.payload))
		assert.NotEmpty(t, msg.sessionID)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not dispatched")
	}
}

func TestHandlerDeliversOutboundMessages(t *testing.T) {
	room := newRecordingRoom()
	conn := newTestConn(t, room)

	var client session.Client
	require.Eventually(t, func() bool {
		client = room.joinedClient(0)
		return client != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Send("BALANCE_UPDATE", map[string]float64{"solBalance": 1.5}))

	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, "BALANCE_UPDATE", env.Type)
	assert.JSONEq(t, `{"solBalance":1.5}`, string(env.Payload))
}

func TestHandlerDropsMalformedEnvelopes(t *testing.T) {
	room := newRecordingRoom()
	conn := newTestConn(t, room)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"payload":{}}`)))
	require.NoError(t, conn.WriteJSON(Envelope{Type: "BATTLE_WON"}))

	select {
	case msg := <-room.messages:
		assert.Equal(t, "BATTLE_WON", msg.msgType)
	case <-time.After(2 * time.Second):
		t.Fatal("valid message after malformed ones was not dispatched")
	}
	assert.Empty(t, room.messages)
}

func TestHandlerLeavesRoomOnDisconnect(t *testing.T) {
	room := newRecordingRoom()
	conn := newTestConn(t, room)

	require.Eventually(t, func() bool {
		return room.joinedClient(0) != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return room.leftCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandlerClosesConnectionWhenJoinFails(t *testing.T) {
	room := newRecordingRoom()
	room.joinErr = assert.AnError
	conn := newTestConn(t, room)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "server should close a connection the room rejected")
	assert.Zero(t, room.leftCount())
}

func TestClientSendAfterClose(t *testing.T) {
	room := newRecordingRoom()
	_ = newTestConn(t, room)

	var client session.Client
	require.Eventually(t, func() bool {
		client = room.joinedClient(0)
		return client != nil
	}, 2*time.Second, 10*time.Millisecond)

	c := client.(*Client)
	c.close()
	assert.ErrorIs(t, c.Send("PLAYER_LEFT", nil), ErrClientClosed)
}
