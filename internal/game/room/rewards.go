package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/hiehoo/pokemmo-server/internal/config"
)

// WalletService is the narrow chain capability the room consumes. The full
// client lives in internal/solana; the room never sees transaction plumbing.
type WalletService interface {
	// HasTreasury reports whether reward transfers are possible at all.
	HasTreasury() bool
	// HasTokenMint reports whether a game token is configured for balances.
	HasTokenMint() bool
	// Balance returns the SOL balance, 0 on any failure.
	Balance(ctx context.Context, address string) float64
	// TokenBalance returns the game token balance, 0 on any failure.
	TokenBalance(ctx context.Context, address string) float64
	// SendReward transfers lamports from the treasury and returns the
	// transaction signature.
	SendReward(ctx context.Context, address string, lamports uint64) (string, error)
}

// Kind names one reward-triggering gameplay event.
type Kind string

// Reward kinds, each with its own configured amount.
const (
	RewardJoin      Kind = "join"
	RewardMapChange Kind = "map_change"
	RewardBattleWin Kind = "battle_win"
)

// Rewarder requests reward transfers for gameplay events. It is stateless: it
// holds no registry reference and performs no notification, callers own the
// messaging. Every failure mode collapses to a "no reward" result so handlers
// need no per-call error branching; rewards are a bonus, never a gameplay
// dependency.
type Rewarder struct {
	wallet  WalletService
	amounts config.RewardConfig
	logger  *zap.Logger
}

// NewRewarder creates a Rewarder.
//
// Precondition: wallet and logger must be non-nil; amounts must be validated
// configuration.
func NewRewarder(wallet WalletService, amounts config.RewardConfig, logger *zap.Logger) *Rewarder {
	return &Rewarder{
		wallet:  wallet,
		amounts: amounts,
		logger:  logger,
	}
}

// Amount returns the configured lamport amount for the given kind.
func (r *Rewarder) Amount(kind Kind) uint64 {
	switch kind {
	case RewardJoin:
		return r.amounts.Join
	case RewardMapChange:
		return r.amounts.MapChange
	case RewardBattleWin:
		return r.amounts.BattleWin
	default:
		return 0
	}
}

// Request asks the treasury to pay the reward for kind to walletAddress.
//
// Precondition: the caller has already confirmed walletAddress is non-empty.
// Postcondition: Returns (signature, true) on success. No treasury, an
// unknown kind, or any transfer failure returns ("", false); rewards degrade
// silently and nothing is retried or rolled back.
func (r *Rewarder) Request(ctx context.Context, walletAddress string, kind Kind) (string, bool) {
	if !r.wallet.HasTreasury() {
		return "", false
	}

	amount := r.Amount(kind)
	if amount == 0 {
		r.logger.Warn("unknown reward kind", zap.String("kind", string(kind)))
		return "", false
	}

	sig, err := r.wallet.SendReward(ctx, walletAddress, amount)
	if err != nil {
		r.logger.Warn("reward transfer failed, skipping",
			zap.String("kind", string(kind)),
			zap.String("wallet", walletAddress),
			zap.Uint64("amount", amount),
			zap.Error(err),
		)
		return "", false
	}
	return sig, true
}
