package exchange

// Market describes one tradable pair as reported by the exchange.
type Market struct {
	// Symbol is the unified "BASE/QUOTE" identifier used throughout the app.
	Symbol string
	// ID is the exchange-native identifier, e.g. "DOGEUSDT".
	ID string
	// Base and Quote are the two assets of the pair.
	Base  string
	Quote string
	// MinQuantity is the exchange minimum order size in base-asset units.
	MinQuantity float64
}

// Candle is a single OHLCV bar.
type Candle struct {
	OpenTime int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Order is the result of a placed market order.
type Order struct {
	Symbol           string  `json:"symbol"`
	OrderID          int64   `json:"orderId"`
	ClientOrderID    string  `json:"clientOrderId"`
	TransactTime     int64   `json:"transactTime"`
	Side             string  `json:"side"`
	Type             string  `json:"type"`
	Status           string  `json:"status"`
	ExecutedQuantity float64 `json:"executedQty,string"`
	QuoteQuantity    float64 `json:"cummulativeQuoteQty,string"`
}

// Client defines the exchange capabilities the application depends on.
type Client interface {
	// GetServerTime fetches the exchange clock; used as a connectivity check.
	GetServerTime() (int64, error)
	// LoadMarkets returns all tradable markets keyed by unified symbol.
	LoadMarkets() (map[string]Market, error)
	// FetchTicker returns the last traded price for a unified symbol.
	FetchTicker(symbol string) (float64, error)
	// FetchOHLCV returns up to limit most recent candles for the symbol.
	FetchOHLCV(symbol, interval string, limit int) ([]Candle, error)
	// FetchBalances returns the free balance per asset.
	FetchBalances() (map[string]float64, error)
	// CreateMarketOrder places a market order for quantity base-asset units.
	CreateMarketOrder(symbol, side string, quantity float64) (*Order, error)
}
