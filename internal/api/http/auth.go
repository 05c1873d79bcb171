package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hiehoo/pokemmo-server/internal/solana"
)

const defaultTransactionLimit = 10

// ChainService is the chain surface the HTTP API consumes.
type ChainService interface {
	VerifySignature(address, message, signature string) bool
	Balance(ctx context.Context, address string) float64
	TokenBalance(ctx context.Context, address string) float64
	HasTokenMint() bool
	TokenMintAddress() string
	RecentTransactions(ctx context.Context, address string, limit int) ([]solana.TransactionInfo, error)
}

// WalletConnectHandler verifies a signed message from a wallet and issues a
// session token. The signature proves key ownership; no server-side session
// state is created here.
func WalletConnectHandler(chain ChainService, tokens *TokenIssuer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			WalletAddress string `json:"walletAddress"`
			Signature     string `json:"signature"`
			Message       string `json:"message"`
		}
		if err := c.BindJSON(&req); err != nil || req.WalletAddress == "" || req.Signature == "" || req.Message == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Missing required fields: walletAddress, signature, message",
			})
			return
		}

		if !chain.VerifySignature(req.WalletAddress, req.Message, req.Signature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}

		balance := chain.Balance(c.Request.Context(), req.WalletAddress)

		token, err := tokens.Issue(req.WalletAddress)
		if err != nil {
			logger.Error("token signing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to connect wallet"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"token":         token,
			"walletAddress": req.WalletAddress,
			"balance":       balance,
		})
	}
}

// VerifyTokenHandler checks a previously issued session token.
func VerifyTokenHandler(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Token string `json:"token"`
		}
		if err := c.BindJSON(&req); err != nil || req.Token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Token required"})
			return
		}

		walletAddress, err := tokens.Verify(req.Token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"valid": false,
				"error": "Invalid or expired token",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"valid":         true,
			"walletAddress": walletAddress,
		})
	}
}

// WalletBalanceHandler reports SOL and game token balances for an address.
func WalletBalanceHandler(chain ChainService) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := c.Param("address")

		solBalance := chain.Balance(c.Request.Context(), address)

		tokenBalance := 0.0
		var tokenMint any
		if chain.HasTokenMint() {
			tokenBalance = chain.TokenBalance(c.Request.Context(), address)
			tokenMint = chain.TokenMintAddress()
		}

		c.JSON(http.StatusOK, gin.H{
			"walletAddress": address,
			"solBalance":    solBalance,
			"tokenBalance":  tokenBalance,
			"tokenMint":     tokenMint,
		})
	}
}

// TransactionsHandler lists recent transaction signatures for an address.
func TransactionsHandler(chain ChainService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := c.Param("address")

		limit := defaultTransactionLimit
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		transactions, err := chain.RecentTransactions(c.Request.Context(), address, limit)
		if err != nil {
			logger.Warn("transaction lookup failed",
				zap.String("address", address),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get transactions"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"walletAddress": address,
			"transactions":  transactions,
		})
	}
}
