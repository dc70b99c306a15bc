package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trading-assistant/internal/config"
	"trading-assistant/internal/database"
	"trading-assistant/internal/exchange"
	"trading-assistant/internal/models"
	"trading-assistant/internal/trade"
)

const (
	// candleInterval is the bar size used for the SMA window.
	candleInterval = "1h"
	// buyThreshold is the fraction of the SMA below which a buy signal fires.
	buyThreshold = 0.98
)

// State is the position state of the trading loop.
type State int

const (
	// Flat means the loop holds no position.
	Flat State = iota
	// Holding means the loop bought and is waiting to exit.
	Holding
)

// position is the loop's in-memory position. It is owned exclusively by the
// loop goroutine and lost on restart: the loop always starts flat.
type position struct {
	State      State
	EntryPrice float64
}

// Bot runs the automated trading loop: at most one open position on the
// single configured symbol, entered on an SMA dip and exited on
// take-profit or stop-loss.
type Bot struct {
	id     string
	logger *zap.Logger
	cfg    config.Bot
	client exchange.Client
	store  *database.Store

	strategy *models.BotConfig
	market   exchange.Market
	pos      position
}

// New creates a new trading loop.
func New(cfg config.Bot, client exchange.Client, store *database.Store, logger *zap.Logger) *Bot {
	return &Bot{
		id:     uuid.NewString(),
		logger: logger.Named("bot"),
		cfg:    cfg,
		client: client,
		store:  store,
	}
}

// Run starts the loop and blocks until ctx is cancelled or startup fails.
// A missing configuration row is a normal startup condition: the operator
// has not configured the bot yet, so the loop just does not start.
// Iteration errors are logged and retried on the next tick.
func (b *Bot) Run(ctx context.Context) {
	// Let schema creation and the initial config write settle.
	select {
	case <-time.After(time.Duration(b.cfg.StartupDelay) * time.Second):
	case <-ctx.Done():
		return
	}

	if err := b.initialize(); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			b.logger.Info("No strategy configured; trading loop not started. Configure via /api/config.")
			return
		}
		b.logger.Error("Trading loop startup failed", zap.Error(err))
		return
	}

	interval := time.Duration(b.cfg.TickInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.logger.Info("Starting trading loop",
		zap.String("run_id", b.id),
		zap.String("symbol", b.strategy.Symbol),
		zap.Float64("target_profit", b.strategy.TargetProfit),
		zap.Float64("stop_loss", b.strategy.StopLoss),
		zap.Float64("quantity", b.strategy.Quantity),
		zap.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping trading loop...")
			return
		case <-ticker.C:
			if err := b.tick(); err != nil {
				b.logger.Error("Trading iteration failed", zap.Error(err))
			}
		}
	}
}

// initialize reads the strategy row and validates it against the exchange.
func (b *Bot) initialize() error {
	strategy, err := b.store.GetBotConfig()
	if err != nil {
		return err
	}
	b.strategy = strategy

	markets, err := b.client.LoadMarkets()
	if err != nil {
		return fmt.Errorf("could not load markets: %w", err)
	}
	market, ok := markets[strategy.Symbol]
	if !ok {
		return fmt.Errorf("configured symbol %s not found on exchange", strategy.Symbol)
	}
	if strategy.Quantity < market.MinQuantity {
		return fmt.Errorf("configured quantity %.8f is below the exchange minimum %.8f for %s",
			strategy.Quantity, market.MinQuantity, strategy.Symbol)
	}
	b.market = market
	b.pos = position{State: Flat}
	return nil
}

// tick performs one iteration of the loop.
func (b *Bot) tick() error {
	candles, err := b.client.FetchOHLCV(b.strategy.Symbol, candleInterval, b.cfg.CandlePeriods)
	if err != nil {
		return fmt.Errorf("could not fetch candles: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candle data for %s", b.strategy.Symbol)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	sma := average(closes)
	current := closes[len(closes)-1]

	switch b.pos.State {
	case Flat:
		return b.evaluateEntry(current, sma, len(closes))
	case Holding:
		return b.evaluateExit(current)
	}
	return nil
}

// evaluateEntry checks the buy signal while flat.
func (b *Bot) evaluateEntry(current, sma float64, window int) error {
	// Only trade on a full window: a short history skews the average.
	if window < b.cfg.CandlePeriods || current >= sma*buyThreshold {
		b.logger.Debug("No buy signal",
			zap.Float64("current", current),
			zap.Float64("sma", sma),
			zap.Int("window", window),
		)
		return nil
	}

	balances, err := b.client.FetchBalances()
	if err != nil {
		return fmt.Errorf("could not fetch balances: %w", err)
	}
	_, quote := trade.SplitSymbol(b.strategy.Symbol)
	required := b.strategy.Quantity * current
	if balances[quote] < required {
		// Not an iteration failure: skip and wait for the next tick.
		b.logger.Warn("Insufficient funds for automated buy",
			zap.String("asset", quote),
			zap.Float64("required", required),
			zap.Float64("available", balances[quote]),
		)
		return nil
	}

	order, err := b.client.CreateMarketOrder(b.strategy.Symbol, models.SideBuy, b.strategy.Quantity)
	if err != nil {
		return fmt.Errorf("automated buy failed: %w", err)
	}
	b.pos = position{State: Holding, EntryPrice: current}
	b.logger.Info("Automated buy executed",
		zap.Int64("order_id", order.OrderID),
		zap.Float64("entry_price", current),
	)
	b.recordTrade(models.SideBuy, current)
	return nil
}

// evaluateExit checks take-profit and stop-loss while holding.
func (b *Bot) evaluateExit(current float64) error {
	entry := b.pos.EntryPrice
	var reason string
	switch {
	case current >= entry*(1+b.strategy.TargetProfit/100):
		reason = "take-profit"
	case current <= entry*(1-b.strategy.StopLoss/100):
		reason = "stop-loss"
	default:
		b.logger.Debug("Holding position",
			zap.Float64("entry_price", entry),
			zap.Float64("current", current),
		)
		return nil
	}

	order, err := b.client.CreateMarketOrder(b.strategy.Symbol, models.SideSell, b.strategy.Quantity)
	if err != nil {
		return fmt.Errorf("automated sell (%s) failed: %w", reason, err)
	}
	b.pos = position{State: Flat}
	b.logger.Info("Automated sell executed",
		zap.String("reason", reason),
		zap.Int64("order_id", order.OrderID),
		zap.Float64("entry_price", entry),
		zap.Float64("exit_price", current),
	)
	b.recordTrade(models.SideSell, current)
	return nil
}

// recordTrade appends a ledger row. Best-effort: failures are logged only.
func (b *Bot) recordTrade(side string, price float64) {
	record := &models.Trade{
		Symbol:    b.strategy.Symbol,
		Side:      side,
		Quantity:  b.strategy.Quantity,
		Price:     price,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := b.store.SaveTrade(record); err != nil {
		b.logger.Error("Failed to save trade record", zap.Error(err))
	}
}

func average(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
