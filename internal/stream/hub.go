package stream

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trading-assistant/internal/config"
	"trading-assistant/internal/exchange"
)

// Update is one price sample pushed to a subscriber.
type Update struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Hub fans live prices out to subscribers. Each subscription is an
// independent goroutine making its own exchange calls; subscribers share
// no state and cannot affect each other.
type Hub struct {
	client   exchange.Client
	logger   *zap.Logger
	interval time.Duration
}

// NewHub creates a new price streaming hub.
func NewHub(cfg config.Stream, client exchange.Client, logger *zap.Logger) *Hub {
	return &Hub{
		client:   client,
		logger:   logger.Named("stream"),
		interval: time.Duration(cfg.PushInterval) * time.Second,
	}
}

// Subscribe starts a price stream for one subscriber and returns
// immediately. The stream pushes an Update at the hub cadence until ctx is
// cancelled, the sink rejects a push (subscriber gone), or a ticker fetch
// fails. A failed stream is not resumed; the subscriber may re-subscribe
// for a fresh one. An unknown symbol aborts the subscription silently.
func (h *Hub) Subscribe(ctx context.Context, symbol string, sink func(Update) error) {
	go h.stream(ctx, symbol, sink)
}

func (h *Hub) stream(ctx context.Context, symbol string, sink func(Update) error) {
	l := h.logger.With(
		zap.String("subscription_id", uuid.NewString()),
		zap.String("symbol", symbol),
	)

	markets, err := h.client.LoadMarkets()
	if err != nil {
		l.Error("Could not load markets for subscription", zap.Error(err))
		return
	}
	if _, ok := markets[symbol]; !ok {
		l.Error("Symbol not found, ignoring subscription")
		return
	}

	l.Info("Price stream started")
	for {
		price, err := h.client.FetchTicker(symbol)
		if err != nil {
			// No auto-resume: the stream ends on the first fetch failure.
			l.Error("Price fetch failed, ending stream", zap.Error(err))
			return
		}
		if err := sink(Update{Symbol: symbol, Price: price}); err != nil {
			l.Info("Subscriber gone, ending stream", zap.Error(err))
			return
		}

		select {
		case <-time.After(h.interval):
		case <-ctx.Done():
			l.Info("Subscription cancelled")
			return
		}
	}
}
