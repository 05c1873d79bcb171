// Package room implements the session and synchronization core of the game
// server: the event router, broadcast fan-out, and reward orchestration over
// the player registry.
//
// Concurrency contract: each inbound message runs as its own cooperative
// task. The synchronous prefix of a handler (validation plus registry
// reads/writes) is atomic via Registry; no lock is held across a
// WalletService call, and anything emitted after such a suspension point is
// eventually consistent. A session leaving mid-flight means late results are
// discarded, never applied to a departed entry.
package room

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/hiehoo/pokemmo-server/internal/config"
	"github.com/hiehoo/pokemmo-server/internal/game/session"
)

// Server-confirmed spawn coordinates on a freshly entered map.
const (
	mapSpawnX = 300
	mapSpawnY = 75
)

// Room is one instance of the shared-state context players join. It
// exclusively owns its registry: created with the room, cleared on Close,
// never shared across rooms.
type Room struct {
	registry      *session.Registry
	wallet        WalletService
	rewards       *Rewarder
	snapshotDelay time.Duration
	logger        *zap.Logger
}

// New creates a Room with its own empty registry.
//
// Precondition: wallet and logger must be non-nil; amounts and cfg must be
// validated configuration.
func New(wallet WalletService, amounts config.RewardConfig, cfg config.RoomConfig, logger *zap.Logger) *Room {
	return &Room{
		registry:      session.NewRegistry(),
		wallet:        wallet,
		rewards:       NewRewarder(wallet, amounts, logger),
		snapshotDelay: cfg.SnapshotDelay,
		logger:        logger,
	}
}

// Len returns the number of joined sessions.
func (r *Room) Len() int {
	return r.registry.Len()
}

// OnJoin registers a newly connected session: spawn-default state, a joined
// notification to everyone else, and a delayed full snapshot to the joiner
// once its handshake has had time to settle.
//
// Postcondition: Returns an error if the session ID is already joined.
func (r *Room) OnJoin(client session.Client) error {
	state, err := r.registry.Add(client)
	if err != nil {
		return err
	}

	sid := client.SessionID()
	r.logger.Info("player joined",
		zap.String("session_id", sid),
		zap.Int("players", r.registry.Len()),
	)

	r.broadcastExcept(MsgPlayerJoined, state, sid)

	time.AfterFunc(r.snapshotDelay, func() {
		// The session may have left during the delay; sendTo skips it then.
		r.sendTo(sid, MsgCurrentPlayers, CurrentPlayersPayload{Players: r.registry.Snapshot()})
	})

	return nil
}

// OnLeave removes the session and announces the departure to everyone left.
// Unknown sessions are ignored (a failed join may still trigger a transport
// close).
func (r *Room) OnLeave(sessionID string) {
	final, err := r.registry.Remove(sessionID)
	if err != nil {
		r.logger.Debug("leave for unjoined session", zap.String("session_id", sessionID))
		return
	}

	r.logger.Info("player left",
		zap.String("session_id", sessionID),
		zap.Int("players", r.registry.Len()),
	)

	r.broadcastAll(MsgPlayerLeft, PlayerLeftPayload{
		SessionID:     sessionID,
		Map:           final.Map,
		WalletAddress: final.WalletAddress,
	})
}

// Close disposes the room, dropping all registry entries without departure
// notifications. Pending snapshot timers find their sessions gone and no-op.
func (r *Room) Close() {
	n := r.registry.Len()
	r.registry.Clear()
	r.logger.Info("room disposed", zap.Int("players_dropped", n))
}

// Dispatch routes one inbound message from a session to its handler. Unknown
// message types are ignored. Transports call this once per message, each call
// on its own goroutine.
func (r *Room) Dispatch(ctx context.Context, sessionID, msgType string, payload json.RawMessage) {
	switch msgType {
	case MsgWalletConnect:
		var req WalletConnectRequest
		if !r.decode(sessionID, msgType, payload, &req) {
			return
		}
		r.handleWalletConnect(ctx, sessionID, req)

	case MsgPlayerMoved:
		var req MoveRequest
		if !r.decode(sessionID, msgType, payload, &req) {
			return
		}
		r.handlePlayerMoved(sessionID, req)

	case MsgPlayerMovementEnded:
		var req MovementEndedRequest
		if !r.decode(sessionID, msgType, payload, &req) {
			return
		}
		r.handleMovementEnded(sessionID, req)

	case MsgPlayerChangedMap:
		var req ChangeMapRequest
		if !r.decode(sessionID, msgType, payload, &req) {
			return
		}
		r.handleChangedMap(ctx, sessionID, req)

	case MsgBattleWon:
		var req BattleWonRequest
		if !r.decode(sessionID, msgType, payload, &req) {
			return
		}
		r.handleBattleWon(ctx, sessionID, req)

	case MsgCheckBalance:
		r.handleCheckBalance(ctx, sessionID)

	default:
		r.logger.Debug("ignoring unknown message type",
			zap.String("session_id", sessionID),
			zap.String("type", msgType),
		)
	}
}

func (r *Room) decode(sessionID, msgType string, payload json.RawMessage, v any) bool {
	if len(payload) == 0 {
		return true
	}
	if err := json.Unmarshal(payload, v); err != nil {
		r.logger.Warn("malformed payload",
			zap.String("session_id", sessionID),
			zap.String("type", msgType),
			zap.Error(err),
		)
		return false
	}
	return true
}

// sendTo delivers one message to a single session. Departed sessions are
// skipped: the registry is the single point of truth for deliverability.
func (r *Room) sendTo(sessionID, msgType string, payload any) {
	client, ok := r.registry.Client(sessionID)
	if !ok {
		return
	}
	if err := client.Send(msgType, payload); err != nil {
		r.logger.Debug("dropping message to session",
			zap.String("session_id", sessionID),
			zap.String("type", msgType),
			zap.Error(err),
		)
	}
}

// broadcastAll sends to every session present at emission time.
func (r *Room) broadcastAll(msgType string, payload any) {
	for _, client := range r.registry.Recipients() {
		if err := client.Send(msgType, payload); err != nil {
			r.logger.Debug("dropping broadcast to session",
				zap.String("session_id", client.SessionID()),
				zap.String("type", msgType),
				zap.Error(err),
			)
		}
	}
}

// broadcastExcept sends to every session present at emission time except one.
func (r *Room) broadcastExcept(msgType string, payload any, exceptSessionID string) {
	for _, client := range r.registry.Recipients() {
		if client.SessionID() == exceptSessionID {
			continue
		}
		if err := client.Send(msgType, payload); err != nil {
			r.logger.Debug("dropping broadcast to session",
				zap.String("session_id", client.SessionID()),
				zap.String("type", msgType),
				zap.Error(err),
			)
		}
	}
}
