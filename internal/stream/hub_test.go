package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"trading-assistant/internal/config"
	"trading-assistant/internal/exchange"
	"trading-assistant/internal/exchange/mocks"
)

func dogeMarkets() map[string]exchange.Market {
	return map[string]exchange.Market{
		"DOGE/USDT": {Symbol: "DOGE/USDT", ID: "DOGEUSDT", Base: "DOGE", Quote: "USDT", MinQuantity: 1},
	}
}

func newTestHub(client *mocks.Client) *Hub {
	// Zero cadence keeps the tests fast; production uses 5s.
	return NewHub(config.Stream{PushInterval: 0}, client, zap.NewNop())
}

// collector is a sink that gathers updates and stops after a limit.
type collector struct {
	mu      sync.Mutex
	updates []Update
	limit   int
	done    chan struct{}
}

func newCollector(limit int) *collector {
	return &collector{limit: limit, done: make(chan struct{})}
}

func (c *collector) sink(u Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.updates) >= c.limit {
		return errors.New("subscriber closed")
	}
	c.updates = append(c.updates, u)
	if len(c.updates) == c.limit {
		close(c.done)
	}
	return nil
}

func (c *collector) collected() []Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Update(nil), c.updates...)
}

func TestSubscribe_PushesPrices(t *testing.T) {
	client := new(mocks.Client)
	client.On("LoadMarkets").Return(dogeMarkets(), nil)
	client.On("FetchTicker", "DOGE/USDT").Return(0.12, nil)

	hub := newTestHub(client)
	c := newCollector(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Subscribe(ctx, "DOGE/USDT", c.sink)

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for price updates")
	}

	updates := c.collected()
	assert.Len(t, updates, 3)
	for _, u := range updates {
		assert.Equal(t, "DOGE/USDT", u.Symbol)
		assert.Equal(t, 0.12, u.Price)
	}
}

func TestSubscribe_UnknownSymbol_NoStream(t *testing.T) {
	client := new(mocks.Client)
	loaded := make(chan struct{})
	client.On("LoadMarkets").Return(dogeMarkets(), nil).Run(func(_ mock.Arguments) {
		close(loaded)
	})

	hub := newTestHub(client)
	pushed := false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Subscribe(ctx, "SHIB/USDT", func(Update) error {
		pushed = true
		return nil
	})

	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for market lookup")
	}
	time.Sleep(50 * time.Millisecond)

	assert.False(t, pushed, "unknown symbol must not produce updates")
	client.AssertNotCalled(t, "FetchTicker")
}

func TestSubscribe_FetchErrorEndsStream(t *testing.T) {
	client := new(mocks.Client)
	client.On("LoadMarkets").Return(dogeMarkets(), nil)
	fetched := make(chan struct{})
	client.On("FetchTicker", "DOGE/USDT").Return(0.0, errors.New("exchange down")).Run(func(_ mock.Arguments) {
		select {
		case fetched <- struct{}{}:
		default:
		}
	})

	hub := newTestHub(client)
	pushed := false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Subscribe(ctx, "DOGE/USDT", func(Update) error {
		pushed = true
		return nil
	})

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ticker fetch")
	}
	time.Sleep(50 * time.Millisecond)

	assert.False(t, pushed, "a failed fetch must not push an update")
	// The stream is dead: no further fetches happen.
	client.AssertNumberOfCalls(t, "FetchTicker", 1)
}

func TestSubscribe_ResubscribeAfterErrorStartsFresh(t *testing.T) {
	client := new(mocks.Client)
	client.On("LoadMarkets").Return(dogeMarkets(), nil)
	// First stream dies on a fetch error; the re-subscription succeeds.
	client.On("FetchTicker", "DOGE/USDT").Return(0.0, errors.New("exchange down")).Once()
	client.On("FetchTicker", "DOGE/USDT").Return(0.15, nil)

	hub := newTestHub(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := newCollector(1)
	hub.Subscribe(ctx, "DOGE/USDT", first.sink)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, first.collected(), "the failed stream must not have pushed")

	second := newCollector(2)
	hub.Subscribe(ctx, "DOGE/USDT", second.sink)
	select {
	case <-second.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the fresh stream")
	}

	assert.Empty(t, first.collected(), "no stale pushes from the terminated stream")
	for _, u := range second.collected() {
		assert.Equal(t, 0.15, u.Price)
	}
}

func TestSubscribe_ContextCancelStopsStream(t *testing.T) {
	client := new(mocks.Client)
	client.On("LoadMarkets").Return(dogeMarkets(), nil)
	client.On("FetchTicker", "DOGE/USDT").Return(0.12, nil)

	// A real cadence so the stream parks in the wait between pushes.
	hub := NewHub(config.Stream{PushInterval: 60}, client, zap.NewNop())
	c := newCollector(1)

	ctx, cancel := context.WithCancel(context.Background())
	hub.Subscribe(ctx, "DOGE/USDT", c.sink)

	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first update")
	}
	cancel()
	time.Sleep(50 * time.Millisecond)

	assert.Len(t, c.collected(), 1)
	client.AssertNumberOfCalls(t, "FetchTicker", 1)
}
