// Package solana wraps the chain RPC operations the game server needs:
// signature verification, balance lookups, and treasury reward transfers.
package solana

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"go.uber.org/zap"

	"github.com/hiehoo/pokemmo-server/internal/config"
)

// TransactionInfo summarizes one historical transaction for a wallet.
type TransactionInfo struct {
	Signature string     `json:"signature"`
	Slot      uint64     `json:"slot"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Success   bool       `json:"success"`
}

// Service performs chain reads and treasury transfers against a single RPC
// endpoint. All failures on the read paths degrade to zero values; only
// SendReward surfaces errors, and its callers treat them as "no reward".
type Service struct {
	client   *rpc.Client
	treasury *solana.PrivateKey
	mint     *solana.PublicKey
	network  string
	logger   *zap.Logger
}

// NewService creates a Service from configuration.
//
// Precondition: cfg.RPCURL must be non-empty; logger must be non-nil.
// Postcondition: Returns a Service, or an error if the treasury key or token
// mint cannot be parsed. A missing treasury key is not an error: rewards are
// simply disabled.
func NewService(cfg config.SolanaConfig, logger *zap.Logger) (*Service, error) {
	s := &Service{
		client:  rpc.New(cfg.RPCURL),
		network: cfg.Network,
		logger:  logger,
	}

	if cfg.TreasuryPrivateKey != "" {
		key, err := solana.PrivateKeyFromBase58(cfg.TreasuryPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("parsing treasury private key: %w", err)
		}
		s.treasury = &key
		logger.Info("treasury wallet initialized",
			zap.String("address", key.PublicKey().String()),
			zap.String("network", cfg.Network),
		)
	} else {
		logger.Warn("no treasury private key configured, reward transfers disabled")
	}

	if cfg.TokenMint != "" {
		mint, err := solana.PublicKeyFromBase58(cfg.TokenMint)
		if err != nil {
			return nil, fmt.Errorf("parsing token mint: %w", err)
		}
		s.mint = &mint
		logger.Info("game token mint configured", zap.String("mint", mint.String()))
	}

	return s, nil
}

// HasTreasury reports whether a treasury keypair is configured.
// Its absence disables all reward behavior.
func (s *Service) HasTreasury() bool {
	return s.treasury != nil
}

// HasTokenMint reports whether a game token mint is configured.
func (s *Service) HasTokenMint() bool {
	return s.mint != nil
}

// TreasuryAddress returns the treasury public key, or "" when unconfigured.
func (s *Service) TreasuryAddress() string {
	if s.treasury == nil {
		return ""
	}
	return s.treasury.PublicKey().String()
}

// TokenMintAddress returns the game token mint, or "" when unconfigured.
func (s *Service) TokenMintAddress() string {
	if s.mint == nil {
		return ""
	}
	return s.mint.String()
}

// VerifySignature checks an ed25519 signature over message by the wallet's key.
//
// Postcondition: Returns true only if address and signature decode and the
// signature verifies. Any failure returns false.
func (s *Service) VerifySignature(address, message, signature string) bool {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		s.logger.Debug("signature verification: bad address", zap.Error(err))
		return false
	}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		s.logger.Debug("signature verification: bad signature encoding", zap.Error(err))
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), []byte(message), sig[:])
}

// Balance returns the wallet's SOL balance.
//
// Postcondition: Returns the balance in SOL, or 0 on any failure.
func (s *Service) Balance(ctx context.Context, address string) float64 {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		s.logger.Warn("balance lookup: bad address", zap.String("address", address), zap.Error(err))
		return 0
	}

	out, err := s.client.GetBalance(ctx, pub, rpc.CommitmentConfirmed)
	if err != nil {
		s.logger.Warn("balance lookup failed", zap.String("address", address), zap.Error(err))
		return 0
	}
	return float64(out.Value) / float64(solana.LAMPORTS_PER_SOL)
}

// TokenBalance returns the wallet's balance of the configured game token.
//
// Postcondition: Returns the UI token amount, or 0 when no mint is configured,
// the wallet has no token account, or any lookup fails.
func (s *Service) TokenBalance(ctx context.Context, address string) float64 {
	if s.mint == nil {
		return 0
	}

	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		s.logger.Warn("token balance lookup: bad address", zap.String("address", address), zap.Error(err))
		return 0
	}

	ata, _, err := solana.FindAssociatedTokenAddress(pub, *s.mint)
	if err != nil {
		s.logger.Warn("deriving associated token account failed", zap.Error(err))
		return 0
	}

	out, err := s.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		// Wallets that never held the token have no account at all.
		s.logger.Debug("token balance lookup failed", zap.String("address", address), zap.Error(err))
		return 0
	}
	if out.Value == nil || out.Value.UiAmount == nil {
		return 0
	}
	return *out.Value.UiAmount
}

// SendReward transfers lamports from the treasury to the recipient.
//
// Precondition: a treasury must be configured (HasTreasury).
// Postcondition: Returns the transaction signature, or an error. Rewards are
// always SOL-denominated; token-mint transfers are not part of any game flow.
func (s *Service) SendReward(ctx context.Context, recipient string, lamports uint64) (string, error) {
	if s.treasury == nil {
		return "", fmt.Errorf("treasury wallet not configured")
	}

	to, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return "", fmt.Errorf("parsing recipient address: %w", err)
	}

	from := s.treasury.PublicKey()

	recent, err := s.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("fetching recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, from, to).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return "", fmt.Errorf("building transfer transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(from) {
			return s.treasury
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("signing transfer transaction: %w", err)
	}

	sig, err := s.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("sending transfer transaction: %w", err)
	}

	s.logger.Info("reward transfer sent",
		zap.String("recipient", recipient),
		zap.Uint64("lamports", lamports),
		zap.String("signature", sig.String()),
	)
	return sig.String(), nil
}

// RecentTransactions returns the most recent transactions involving the wallet.
//
// Postcondition: Returns up to limit entries, newest first, or an error when
// the address is invalid or the RPC call fails.
func (s *Service) RecentTransactions(ctx context.Context, address string, limit int) ([]TransactionInfo, error) {
	pub, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("parsing address: %w", err)
	}
	if limit <= 0 {
		limit = 10
	}

	sigs, err := s.client.GetSignaturesForAddressWithOpts(ctx, pub, &rpc.GetSignaturesForAddressOpts{
		Limit: &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching signatures: %w", err)
	}

	out := make([]TransactionInfo, 0, len(sigs))
	for _, sig := range sigs {
		info := TransactionInfo{
			Signature: sig.Signature.String(),
			Slot:      sig.Slot,
			Success:   sig.Err == nil,
		}
		if sig.BlockTime != nil {
			t := sig.BlockTime.Time()
			info.Timestamp = &t
		}
		out = append(out, info)
	}
	return out, nil
}
