package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Envelope is the wire frame for every message in both directions: a type tag
// and a raw payload decoded by whoever owns the type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ErrClientClosed is returned by Send after the connection has shut down.
var ErrClientClosed = errors.New("ws: client closed")

// ErrSendBufferFull is returned by Send when the outbound queue is full. The
// message is dropped rather than blocking the sender; a client that cannot
// drain its queue is about to be disconnected anyway.
var ErrSendBufferFull = errors.New("ws: send buffer full")

// Client is one connected player. It owns the websocket connection: all
// writes go through the buffered send queue and a single write pump, so Send
// is safe from any goroutine.
type Client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

func newClient(conn *websocket.Conn, buffer int, logger *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		sessionID: id,
		conn:      conn,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
		logger:    logger.With(zap.String("session_id", id)),
	}
}

// SessionID returns the identifier assigned to this connection at upgrade
// time. It is stable for the lifetime of the connection.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Send queues an envelope for delivery.
//
// Postcondition: the message is either queued or dropped; Send never blocks.
// A full queue or a closed connection returns an error the caller may log
// and otherwise ignore.
func (c *Client) Send(msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		c.logger.Warn("send buffer full, dropping message",
			zap.String("message_type", msgType),
		)
		return ErrSendBufferFull
	}
}

// close shuts the connection down once. Safe to call from both pumps.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with periodic pings. It exits when the queue producer side shuts
// down or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
