package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trading-assistant/internal/database"
	"trading-assistant/internal/exchange"
	"trading-assistant/internal/stream"
	"trading-assistant/internal/trade"
)

// Server wires the HTTP API and the realtime price channel.
type Server struct {
	R        *gin.Engine
	store    *database.Store
	client   exchange.Client
	executor *trade.Executor
	hub      *stream.Hub
	logger   *zap.Logger
}

// NewServer builds the router with middleware and all routes registered.
func NewServer(store *database.Store, client exchange.Client, executor *trade.Executor, hub *stream.Hub, logger *zap.Logger) *Server {
	s := &Server{
		store:    store,
		client:   client,
		executor: executor,
		hub:      hub,
		logger:   logger.Named("http"),
	}

	g := gin.New()

	// Request logging
	g.Use(func(cn *gin.Context) {
		start := time.Now()
		cn.Next()
		s.logger.Info("http_request",
			zap.String("method", cn.Request.Method),
			zap.String("path", cn.Request.URL.Path),
			zap.Int("status", cn.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	})
	g.Use(gin.Recovery())

	api := g.Group("/api")
	{
		api.POST("/config", s.SaveConfig)
		api.GET("/markets", s.ListMarkets)
		api.GET("/balances", s.ListBalances)
		api.POST("/trade", s.ExecuteTrade)
		api.GET("/trades", s.ListTrades)
	}
	g.GET("/ws", s.HandleWebSocket)

	s.R = g
	return s
}
