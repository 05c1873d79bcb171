// Package ws accepts websocket connections and bridges them into the game
// room: one Client per connection, JSON envelopes on the wire, and one
// goroutine per inbound message so a slow handler never stalls the read loop.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hiehoo/pokemmo-server/internal/config"
	"github.com/hiehoo/pokemmo-server/internal/game/session"
)

// GameRoom is the room surface the transport drives.
type GameRoom interface {
	// OnJoin registers a freshly connected client.
	OnJoin(client session.Client) error
	// OnLeave removes a disconnected session.
	OnLeave(sessionID string)
	// Dispatch routes one inbound message to its handler.
	Dispatch(ctx context.Context, sessionID, msgType string, payload json.RawMessage)
}

// Handler upgrades HTTP requests to websocket connections and runs them
// against the room until they disconnect.
type Handler struct {
	room     GameRoom
	buffer   int
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a websocket handler bound to room.
//
// Precondition: room and logger must be non-nil; cfg must be validated
// configuration.
func NewHandler(room GameRoom, cfg config.RoomConfig, logger *zap.Logger) *Handler {
	return &Handler{
		room:   room,
		buffer: cfg.ClientBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxMessageSize,
			WriteBufferSize: maxMessageSize,
			CheckOrigin: func(r *http.Request) bool {
				// Game clients connect from arbitrary origins.
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and joins the room. It blocks for the life
// of the connection, reading messages; the write side runs on its own
// goroutine. The session leaves the room when either side fails.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(conn, h.buffer, h.logger)
	if err := h.room.OnJoin(client); err != nil {
		h.logger.Error("join rejected", zap.String("session_id", client.SessionID()), zap.Error(err))
		client.close()
		return
	}

	go client.writePump()
	h.readLoop(r.Context(), client)

	h.room.OnLeave(client.SessionID())
	client.close()
}

// readLoop pulls envelopes off the wire until the connection dies. Each
// message is dispatched on its own goroutine so handlers that wait on the
// chain do not block subsequent input from the same player.
func (h *Handler) readLoop(ctx context.Context, client *Client) {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				client.logger.Debug("read failed", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			client.logger.Warn("malformed envelope, dropping", zap.Error(err))
			continue
		}
		if env.Type == "" {
			client.logger.Warn("envelope missing type, dropping")
			continue
		}

		go h.room.Dispatch(ctx, client.SessionID(), env.Type, env.Payload)
	}
}
