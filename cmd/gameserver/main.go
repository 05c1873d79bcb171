// Package main provides the game server binary: one HTTP listener serving
// the wallet auth API, the websocket game room, and Solana reward payouts.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	apihttp "github.com/hiehoo/pokemmo-server/internal/api/http"
	"github.com/hiehoo/pokemmo-server/internal/config"
	"github.com/hiehoo/pokemmo-server/internal/game/room"
	"github.com/hiehoo/pokemmo-server/internal/observability"
	"github.com/hiehoo/pokemmo-server/internal/server"
	"github.com/hiehoo/pokemmo-server/internal/solana"
	"github.com/hiehoo/pokemmo-server/internal/transport/ws"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting game server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("solana_network", cfg.Solana.Network),
	)

	chain, err := solana.NewService(cfg.Solana, logger)
	if err != nil {
		logger.Fatal("initializing solana service", zap.Error(err))
	}
	if chain.HasTreasury() {
		logger.Info("reward treasury configured",
			zap.String("treasury", chain.TreasuryAddress()),
		)
	} else {
		logger.Warn("no treasury configured, rewards disabled")
	}

	gameRoom := room.New(chain, cfg.Rewards, cfg.Room, logger)
	wsHandler := ws.NewHandler(gameRoom, cfg.Room, logger)
	router := apihttp.NewRouter(chain, cfg.Auth, wsHandler, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)

	lifecycle.Add("room", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn: func(ctx context.Context) {
			gameRoom.Close()
		},
	})

	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			logger.Info("http server listening", zap.String("addr", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func(ctx context.Context) {
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Warn("http server shutdown", zap.Error(err))
			}
		},
	})

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
