package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trading-assistant/internal/config"
)

const (
	baseURL        = "https://api.binance.com/api/v3"
	testnetBaseURL = "https://testnet.binance.vision/api/v3"
	recvWindow     = "5000" // How long a request is valid in milliseconds

	orderTypeMarket = "MARKET"
)

// BinanceClient is a client for the Binance REST API.
// It implements the Client interface.
type BinanceClient struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
	limiter   *rate.Limiter
}

// ensure BinanceClient implements the interface
var _ Client = (*BinanceClient)(nil)

// NewBinanceClient creates a new Binance REST API client.
func NewBinanceClient(cfg *config.Binance, logger *zap.Logger) *BinanceClient {
	var url string
	if cfg.Testnet {
		url = testnetBaseURL
		logger.Warn("Using Binance Testnet")
	} else {
		url = baseURL
		logger.Info("Using Binance Production API")
	}

	client := resty.New().SetBaseURL(url)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &BinanceClient{
		client:    client,
		apiKey:    cfg.ApiKey,
		secretKey: cfg.SecretKey,
		logger:    logger,
		limiter:   limiter,
	}
}

// MarketID converts a unified "BASE/QUOTE" symbol to the exchange-native id.
func MarketID(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

// sign creates a HMAC-SHA256 signature for the request.
func (c *BinanceClient) sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *BinanceClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 { // HTTP 429 or 418
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// GetServerTime fetches the current server time from Binance.
// This is a good endpoint to test connectivity.
func (c *BinanceClient) GetServerTime() (int64, error) {
	type ServerTimeResponse struct {
		ServerTime int64 `json:"serverTime"`
	}

	req := c.client.R().
		SetResult(&ServerTimeResponse{})
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/time", req)
	if err != nil {
		c.logger.Error("Failed to get server time", zap.Error(err))
		return 0, fmt.Errorf("failed to get server time: %w", err)
	}

	result := resp.Result().(*ServerTimeResponse)
	return result.ServerTime, nil
}

// exchangeInfoResponse represents the response from the /exchangeInfo endpoint.
type exchangeInfoResponse struct {
	Symbols []symbolInfo `json:"symbols"`
}

type symbolInfo struct {
	Symbol     string   `json:"symbol"`
	Status     string   `json:"status"`
	BaseAsset  string   `json:"baseAsset"`
	QuoteAsset string   `json:"quoteAsset"`
	Filters    []filter `json:"filters"`
}

// filter is a single symbol filter. We are interested in LOT_SIZE for the
// minimum order quantity.
type filter struct {
	FilterType string `json:"filterType"`
	MinQty     string `json:"minQty,omitempty"`
	MaxQty     string `json:"maxQty,omitempty"`
	StepSize   string `json:"stepSize,omitempty"`
}

// LoadMarkets fetches exchange trading rules and returns the tradable
// markets keyed by unified "BASE/QUOTE" symbol.
func (c *BinanceClient) LoadMarkets() (map[string]Market, error) {
	var info exchangeInfoResponse

	req := c.client.R().
		SetResult(&info).
		SetHeader("Content-Type", "application/json")
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/exchangeInfo", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange info: %w", err)
	}

	result := resp.Result().(*exchangeInfoResponse)
	markets := make(map[string]Market, len(result.Symbols))
	for _, s := range result.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		m := Market{
			Symbol: s.BaseAsset + "/" + s.QuoteAsset,
			ID:     s.Symbol,
			Base:   s.BaseAsset,
			Quote:  s.QuoteAsset,
		}
		for _, f := range s.Filters {
			if f.FilterType == "LOT_SIZE" {
				m.MinQuantity, _ = strconv.ParseFloat(f.MinQty, 64)
				break
			}
		}
		markets[m.Symbol] = m
	}

	return markets, nil
}

// tickerPrice represents the response for a single ticker price.
type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// FetchTicker returns the last traded price for a unified symbol.
func (c *BinanceClient) FetchTicker(symbol string) (float64, error) {
	var ticker tickerPrice

	req := c.client.R().
		SetResult(&ticker).
		SetQueryParam("symbol", MarketID(symbol)).
		SetHeader("Content-Type", "application/json")
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/ticker/price", req)
	if err != nil {
		return 0, fmt.Errorf("failed to get ticker for %s: %w", symbol, err)
	}

	result := resp.Result().(*tickerPrice)
	price, err := strconv.ParseFloat(result.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ticker price %q for %s: %w", result.Price, symbol, err)
	}

	return price, nil
}

// FetchOHLCV returns up to limit most recent candles for the symbol.
// The kline payload is an array of heterogeneous arrays, so it is decoded
// through json.RawMessage rather than a typed result struct.
func (c *BinanceClient) FetchOHLCV(symbol, interval string, limit int) ([]Candle, error) {
	req := c.client.R().
		SetQueryParams(map[string]string{
			"symbol":   MarketID(symbol),
			"interval": interval,
			"limit":    strconv.Itoa(limit),
		}).
		SetHeader("Content-Type", "application/json")
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/klines", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines for %s: %w", symbol, err)
	}

	var raw [][]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode klines for %s: %w", symbol, err)
	}

	candles := make([]Candle, 0, len(raw))
	for _, k := range raw {
		// [openTime, open, high, low, close, volume, ...]
		if len(k) < 6 {
			return nil, fmt.Errorf("malformed kline entry for %s", symbol)
		}
		var candle Candle
		if err := json.Unmarshal(k[0], &candle.OpenTime); err != nil {
			return nil, fmt.Errorf("failed to parse kline open time for %s: %w", symbol, err)
		}
		fields := []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
		for i, dst := range fields {
			var s string
			if err := json.Unmarshal(k[i+1], &s); err != nil {
				return nil, fmt.Errorf("failed to parse kline field for %s: %w", symbol, err)
			}
			if *dst, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("failed to parse kline value %q for %s: %w", s, symbol, err)
			}
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// accountResponse represents the signed /account endpoint response.
type accountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

// FetchBalances returns the free balance per asset.
func (c *BinanceClient) FetchBalances() (map[string]float64, error) {
	params := url.Values{}
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("recvWindow", recvWindow)

	queryString := params.Encode()
	signature := c.sign(queryString)

	var account accountResponse
	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetQueryString(queryString + "&signature=" + signature).
		SetResult(&account)
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/account", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get account balances: %w", err)
	}

	result := resp.Result().(*accountResponse)
	balances := make(map[string]float64, len(result.Balances))
	for _, b := range result.Balances {
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			c.logger.Warn("Failed to parse balance",
				zap.String("asset", b.Asset),
				zap.String("free", b.Free),
			)
			continue
		}
		balances[b.Asset] = free
	}

	return balances, nil
}

// CreateMarketOrder places a market order on Binance.
func (c *BinanceClient) CreateMarketOrder(symbol, side string, quantity float64) (*Order, error) {
	params := url.Values{}
	params.Set("symbol", MarketID(symbol))
	params.Set("side", strings.ToUpper(side))
	params.Set("type", orderTypeMarket)
	params.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("recvWindow", recvWindow)

	queryString := params.Encode()
	signature := c.sign(queryString)
	params.Set("signature", signature)

	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(params.Encode()).
		SetResult(&Order{})

	ctx := context.Background()

	resp, err := c.doRequest(ctx, "POST", "/order", req)
	if err != nil {
		c.logger.Error("Failed to create order after multiple attempts",
			zap.Error(err),
			zap.String("symbol", symbol),
		)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	result := resp.Result().(*Order)
	c.logger.Info("Successfully created order", zap.Any("order", result))
	return result, nil
}
