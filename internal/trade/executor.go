package trade

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"trading-assistant/internal/database"
	"trading-assistant/internal/exchange"
	"trading-assistant/internal/models"
)

// minOrderValue is the minimum notional (quantity * price) accepted for a
// buy order, in quote-currency units.
const minOrderValue = 1.0

// Executor validates and executes operator-initiated market orders.
type Executor struct {
	client exchange.Client
	store  *database.Store
	logger *zap.Logger
}

// NewExecutor creates a new manual trade executor.
func NewExecutor(client exchange.Client, store *database.Store, logger *zap.Logger) *Executor {
	return &Executor{
		client: client,
		store:  store,
		logger: logger.Named("trade"),
	}
}

// Execute runs the validation chain and places a market order.
// Checks run in a fixed order and the first failure wins: symbol existence,
// balance sufficiency, exchange minimum quantity, then (buy only) minimum
// notional. The ledger write after a confirmed order is best-effort: a
// storage failure is logged but does not fail the call.
func (e *Executor) Execute(symbol, side string, quantity float64) (*exchange.Order, error) {
	l := e.logger.With(
		zap.String("symbol", symbol),
		zap.String("side", side),
		zap.Float64("quantity", quantity),
	)
	l.Info("Received manual trade request")

	if side != models.SideBuy && side != models.SideSell {
		return nil, fmt.Errorf("invalid side %q: must be %q or %q", side, models.SideBuy, models.SideSell)
	}

	markets, err := e.client.LoadMarkets()
	if err != nil {
		return nil, fmt.Errorf("could not load markets: %w", err)
	}
	market, ok := markets[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	price, err := e.client.FetchTicker(symbol)
	if err != nil {
		return nil, fmt.Errorf("could not fetch ticker: %w", err)
	}

	balances, err := e.client.FetchBalances()
	if err != nil {
		return nil, fmt.Errorf("could not fetch balances: %w", err)
	}

	base, quote := SplitSymbol(symbol)
	if side == models.SideBuy && balances[quote] < quantity*price {
		return nil, fmt.Errorf("%w: need %.8f %s to buy", ErrInsufficientFunds, quantity*price, quote)
	}
	if side == models.SideSell && balances[base] < quantity {
		return nil, fmt.Errorf("%w: need %.8f %s to sell", ErrInsufficientFunds, quantity, base)
	}

	if quantity < market.MinQuantity {
		return nil, fmt.Errorf("%w: minimum for %s is %.8f", ErrBelowMinimumQuantity, symbol, market.MinQuantity)
	}

	if side == models.SideBuy && quantity*price < minOrderValue {
		return nil, fmt.Errorf("%w: order value must be at least %.2f %s", ErrBelowMinimumNotional, minOrderValue, quote)
	}

	order, err := e.client.CreateMarketOrder(symbol, side, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	l.Info("Order executed", zap.Int64("order_id", order.OrderID))

	record := &models.Trade{
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := e.store.SaveTrade(record); err != nil {
		// Best-effort: the order already executed, so the response succeeds.
		l.Error("Failed to save trade record", zap.Error(err))
	}

	return order, nil
}
