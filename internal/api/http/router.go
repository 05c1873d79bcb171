// Package http exposes the REST surface of the game server: wallet
// authentication, balance and transaction lookups, health, and the websocket
// mount point.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hiehoo/pokemmo-server/internal/config"
)

// NewRouter assembles the gin engine with all routes mounted.
//
// Precondition: chain, wsHandler, and logger must be non-nil; authCfg must be
// validated configuration.
func NewRouter(chain ChainService, authCfg config.AuthConfig, wsHandler http.Handler, logger *zap.Logger) *gin.Engine {
	tokens := NewTokenIssuer(authCfg)

	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ws", gin.WrapH(wsHandler))

	auth := r.Group("/api/auth")
	{
		auth.POST("/wallet-connect", WalletConnectHandler(chain, tokens, logger))
		auth.POST("/verify-token", VerifyTokenHandler(tokens))
		auth.GET("/wallet-balance/:address", WalletBalanceHandler(chain))
		auth.GET("/transactions/:address", TransactionsHandler(chain, logger))
	}

	return r
}

// requestLogger logs each request through the shared zap logger instead of
// gin's default writer.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
