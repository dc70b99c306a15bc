// Package mocks provides a testify mock of the exchange.Client interface
// for use in package tests.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"trading-assistant/internal/exchange"
)

// Client is a mock implementation of exchange.Client.
type Client struct {
	mock.Mock
}

var _ exchange.Client = (*Client)(nil)

func (m *Client) GetServerTime() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *Client) LoadMarkets() (map[string]exchange.Market, error) {
	args := m.Called()
	return args.Get(0).(map[string]exchange.Market), args.Error(1)
}

func (m *Client) FetchTicker(symbol string) (float64, error) {
	args := m.Called(symbol)
	return args.Get(0).(float64), args.Error(1)
}

func (m *Client) FetchOHLCV(symbol, interval string, limit int) ([]exchange.Candle, error) {
	args := m.Called(symbol, interval, limit)
	return args.Get(0).([]exchange.Candle), args.Error(1)
}

func (m *Client) FetchBalances() (map[string]float64, error) {
	args := m.Called()
	return args.Get(0).(map[string]float64), args.Error(1)
}

func (m *Client) CreateMarketOrder(symbol, side string, quantity float64) (*exchange.Order, error) {
	args := m.Called(symbol, side, quantity)
	return args.Get(0).(*exchange.Order), args.Error(1)
}
