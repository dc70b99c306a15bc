package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"trading-assistant/internal/stream"
)

func TestWebSocket_SubscribePrice(t *testing.T) {
	s, _, client := setupServer(t)
	client.On("LoadMarkets").Return(dogeMarkets(), nil)
	client.On("FetchTicker", "DOGE/USDT").Return(0.12, nil)

	ts := httptest.NewServer(s.R)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	defer conn.Close()

	err = conn.WriteJSON(clientMessage{Event: "subscribePrice", Symbol: "DOGE/USDT"})
	assert.NoError(t, err)

	assert.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Event string        `json:"event"`
		Data  stream.Update `json:"data"`
	}
	assert.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "priceUpdate", msg.Event)
	assert.Equal(t, "DOGE/USDT", msg.Data.Symbol)
	assert.Equal(t, 0.12, msg.Data.Price)
}

func TestWebSocket_UnknownSymbol_NoUpdates(t *testing.T) {
	s, _, client := setupServer(t)
	client.On("LoadMarkets").Return(dogeMarkets(), nil)

	ts := httptest.NewServer(s.R)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, conn.WriteJSON(clientMessage{Event: "subscribePrice", Symbol: "SHIB/USDT"}))

	// The subscription is silently ignored, so the read must time out.
	assert.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var msg map[string]any
	err = conn.ReadJSON(&msg)
	assert.Error(t, err)
	client.AssertNotCalled(t, "FetchTicker")
}
