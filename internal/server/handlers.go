package server

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trading-assistant/internal/models"
)

type configRequest struct {
	Symbol       string  `json:"symbol"`
	TargetProfit float64 `json:"targetProfit"`
	Quantity     float64 `json:"quantity"`
	StopLoss     float64 `json:"stopLoss"`
}

type tradeRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
}

type balanceEntry struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

// apiError writes the flattened {error, details} payload used for every
// business and gateway failure.
func apiError(cn *gin.Context, message string, err error) {
	cn.JSON(http.StatusInternalServerError, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// SaveConfig upserts the singleton strategy configuration.
func (s *Server) SaveConfig(cn *gin.Context) {
	var req configRequest
	if err := cn.ShouldBindJSON(&req); err != nil {
		apiError(cn, "Invalid configuration payload", err)
		return
	}

	cfg := &models.BotConfig{
		Symbol:       req.Symbol,
		TargetProfit: req.TargetProfit,
		Quantity:     req.Quantity,
		StopLoss:     req.StopLoss,
	}
	if err := s.store.UpsertBotConfig(cfg); err != nil {
		s.logger.Error("Failed to save configuration", zap.Error(err))
		apiError(cn, "Failed to save configuration", err)
		return
	}

	cn.JSON(http.StatusOK, gin.H{"message": "Configuration saved", "config": cfg})
}

// ListMarkets returns all tradable symbols known to the exchange, sorted.
func (s *Server) ListMarkets(cn *gin.Context) {
	markets, err := s.client.LoadMarkets()
	if err != nil {
		s.logger.Error("Failed to load markets", zap.Error(err))
		apiError(cn, "Failed to load markets", err)
		return
	}

	symbols := make([]string, 0, len(markets))
	for symbol := range markets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	cn.JSON(http.StatusOK, symbols)
}

// ListBalances returns every asset with a positive free balance.
func (s *Server) ListBalances(cn *gin.Context) {
	balances, err := s.client.FetchBalances()
	if err != nil {
		s.logger.Error("Failed to fetch balances", zap.Error(err))
		apiError(cn, "Failed to fetch balances", err)
		return
	}

	entries := make([]balanceEntry, 0, len(balances))
	for currency, amount := range balances {
		if amount > 0 {
			entries = append(entries, balanceEntry{Currency: currency, Amount: amount})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Currency < entries[j].Currency })

	cn.JSON(http.StatusOK, entries)
}

// ExecuteTrade runs a manual market order through the validation chain.
func (s *Server) ExecuteTrade(cn *gin.Context) {
	var req tradeRequest
	if err := cn.ShouldBindJSON(&req); err != nil {
		apiError(cn, "Invalid trade payload", err)
		return
	}

	order, err := s.executor.Execute(req.Symbol, req.Side, req.Quantity)
	if err != nil {
		s.logger.Error("Trade failed",
			zap.String("symbol", req.Symbol),
			zap.String("side", req.Side),
			zap.Error(err),
		)
		apiError(cn, "Failed to execute trade", err)
		return
	}

	cn.JSON(http.StatusOK, gin.H{
		"message": "Order " + req.Side + " executed successfully",
		"order":   order,
	})
}

// ListTrades returns the trade ledger, most recent first.
func (s *Server) ListTrades(cn *gin.Context) {
	trades, err := s.store.ListTrades()
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		apiError(cn, "Failed to list trades", err)
		return
	}

	cn.JSON(http.StatusOK, trades)
}
