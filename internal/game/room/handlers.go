package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/hiehoo/pokemmo-server/internal/game/session"
)

// handleWalletConnect links a wallet to the session, fetches balances, and
// requests the join reward.
func (r *Room) handleWalletConnect(ctx context.Context, sessionID string, req WalletConnectRequest) {
	if req.WalletAddress == "" {
		r.sendTo(sessionID, MsgWalletError, ErrorPayload{Error: "Wallet address required"})
		return
	}

	if _, ok := r.registry.Update(sessionID, func(p *session.PlayerState) {
		p.WalletAddress = req.WalletAddress
		p.Authenticated = true
	}); !ok {
		r.protocolViolation(sessionID, MsgWalletConnect)
		return
	}

	// Suspension point: no lock held across the chain reads.
	solBalance := r.wallet.Balance(ctx, req.WalletAddress)
	var tokenBalance float64
	if r.wallet.HasTokenMint() {
		tokenBalance = r.wallet.TokenBalance(ctx, req.WalletAddress)
	}

	if _, ok := r.registry.Update(sessionID, func(p *session.PlayerState) {
		p.SolBalance = solBalance
		p.TokenBalance = tokenBalance
	}); !ok {
		// Left while we were on the wire; discard.
		return
	}

	r.sendTo(sessionID, MsgWalletConnected, WalletConnectedPayload{
		WalletAddress: req.WalletAddress,
		SolBalance:    solBalance,
		TokenBalance:  tokenBalance,
	})
	r.broadcastExcept(MsgPlayerWalletConnected, PlayerWalletConnectedPayload{
		SessionID:     sessionID,
		WalletAddress: req.WalletAddress,
	}, sessionID)

	if sig, ok := r.rewards.Request(ctx, req.WalletAddress, RewardJoin); ok {
		r.sendTo(sessionID, MsgRewardReceived, RewardReceivedPayload{
			Type:      string(RewardJoin),
			Amount:    r.rewards.Amount(RewardJoin),
			Signature: sig,
		})
	}
}

// handlePlayerMoved overwrites the session's position and relays it to peers.
// Rapid moves from the same session resolve last-write-wins; position updates
// are idempotent overwrites.
func (r *Room) handlePlayerMoved(sessionID string, req MoveRequest) {
	state, ok := r.registry.Update(sessionID, func(p *session.PlayerState) {
		p.X = req.X
		p.Y = req.Y
	})
	if !ok {
		r.protocolViolation(sessionID, MsgPlayerMoved)
		return
	}

	r.broadcastExcept(MsgPlayerMoved, PlayerMovedPayload{
		PlayerState: state,
		Position:    req.Position,
	}, sessionID)
}

// handleMovementEnded relays the terminal position to peers. No state change.
func (r *Room) handleMovementEnded(sessionID string, req MovementEndedRequest) {
	state, ok := r.registry.Get(sessionID)
	if !ok {
		r.protocolViolation(sessionID, MsgPlayerMovementEnded)
		return
	}

	r.broadcastExcept(MsgPlayerMovementEnded, MovementEndedPayload{
		SessionID: sessionID,
		Map:       state.Map,
		Position:  req.Position,
	}, sessionID)
}

// handleChangedMap moves the session to a new map, requests the map-change
// reward, and resyncs everyone. The broadcast includes the sender: the
// client needs the server-confirmed spawn coordinates.
func (r *Room) handleChangedMap(ctx context.Context, sessionID string, req ChangeMapRequest) {
	state, ok := r.registry.Update(sessionID, func(p *session.PlayerState) {
		p.Map = req.Map
	})
	if !ok {
		r.protocolViolation(sessionID, MsgPlayerChangedMap)
		return
	}

	if state.HasWallet() {
		if sig, ok := r.rewards.Request(ctx, state.WalletAddress, RewardMapChange); ok {
			r.sendTo(sessionID, MsgRewardReceived, RewardReceivedPayload{
				Type:      string(RewardMapChange),
				Amount:    r.rewards.Amount(RewardMapChange),
				Signature: sig,
				NewMap:    req.Map,
			})
		}
	}

	r.sendTo(sessionID, MsgCurrentPlayers, CurrentPlayersPayload{Players: r.registry.Snapshot()})

	r.broadcastAll(MsgPlayerChangedMap, MapChangedPayload{
		SessionID: sessionID,
		Map:       req.Map,
		X:         mapSpawnX,
		Y:         mapSpawnY,
		Players:   r.registry.Snapshot(),
	})
}

// handleBattleWon records a win and requests the battle-win reward. Without a
// linked wallet the win does not count; the error goes to the sender only.
// With a wallet but no treasury the counter still increments and nothing is
// emitted.
func (r *Room) handleBattleWon(ctx context.Context, sessionID string, req BattleWonRequest) {
	state, ok := r.registry.Get(sessionID)
	if !ok {
		r.protocolViolation(sessionID, MsgBattleWon)
		return
	}

	if !state.HasWallet() {
		r.sendTo(sessionID, MsgBattleError, ErrorPayload{Error: "Connect wallet to receive rewards"})
		return
	}

	if _, ok := r.registry.Update(sessionID, func(p *session.PlayerState) {
		p.BattleWins++
	}); !ok {
		return
	}

	sig, rewarded := r.rewards.Request(ctx, state.WalletAddress, RewardBattleWin)
	if !rewarded {
		return
	}

	r.sendTo(sessionID, MsgRewardReceived, RewardReceivedPayload{
		Type:      string(RewardBattleWin),
		Amount:    r.rewards.Amount(RewardBattleWin),
		Signature: sig,
		Opponent:  req.Opponent,
	})
	r.broadcastAll(MsgPlayerWonBattle, BattleWonBroadcast{
		SessionID: sessionID,
		Opponent:  req.Opponent,
		Rewarded:  true,
	})
}

// handleCheckBalance re-fetches the cached balances and reports them to the
// sender.
func (r *Room) handleCheckBalance(ctx context.Context, sessionID string) {
	state, ok := r.registry.Get(sessionID)
	if !ok {
		r.protocolViolation(sessionID, MsgCheckBalance)
		return
	}

	if !state.HasWallet() {
		r.sendTo(sessionID, MsgBalanceError, ErrorPayload{Error: "No wallet connected"})
		return
	}

	solBalance := r.wallet.Balance(ctx, state.WalletAddress)
	var tokenBalance float64
	if r.wallet.HasTokenMint() {
		tokenBalance = r.wallet.TokenBalance(ctx, state.WalletAddress)
	}

	if _, ok := r.registry.Update(sessionID, func(p *session.PlayerState) {
		p.SolBalance = solBalance
		p.TokenBalance = tokenBalance
	}); !ok {
		return
	}

	r.sendTo(sessionID, MsgBalanceUpdate, BalanceUpdatePayload{
		SolBalance:    solBalance,
		TokenBalance:  tokenBalance,
		WalletAddress: state.WalletAddress,
	})
}

// protocolViolation logs a message that referenced a session absent from the
// registry. Processing of that message stops; no other session is affected.
func (r *Room) protocolViolation(sessionID, msgType string) {
	r.logger.Error("message from unjoined session",
		zap.String("session_id", sessionID),
		zap.String("type", msgType),
	)
}
