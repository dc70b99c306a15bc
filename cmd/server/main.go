package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trading-assistant/internal/bot"
	"trading-assistant/internal/config"
	"trading-assistant/internal/database"
	"trading-assistant/internal/exchange"
	"trading-assistant/internal/logger"
	"trading-assistant/internal/server"
	"trading-assistant/internal/stream"
	"trading-assistant/internal/trade"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := database.NewStore(db)
	log.Info("Database connection successful and schema migrated.")

	// Initialize exchange client and verify connectivity + credentials
	client := exchange.NewBinanceClient(&cfg.Binance, log)
	if _, err := client.GetServerTime(); err != nil {
		log.Fatal("Failed to connect to exchange API", zap.Error(err))
	}
	if balances, err := client.FetchBalances(); err != nil {
		// Credentials may be missing in read-only setups; trading will fail later.
		log.Warn("Authentication check failed", zap.Error(err))
	} else {
		log.Info("Authentication successful", zap.Int("assets", len(balances)))
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start the automated trading loop
	tradingBot := bot.New(cfg.Bot, client, store, log)
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		tradingBot.Run(ctx)
	}()

	// Wire the HTTP surface: manual trades, config, balances, price streaming
	executor := trade.NewExecutor(client, store, log)
	hub := stream.NewHub(cfg.Stream, client, log)
	srv := server.NewServer(store, client, executor, hub, log)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.R,
	}
	go func() {
		log.Info("Starting web server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Web server shutdown failed", zap.Error(err))
	}
	<-botDone

	log.Info("Trading assistant has been shut down.")
}
