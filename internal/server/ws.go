package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trading-assistant/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API serves a local dashboard; origin checks are out of scope.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is an inbound websocket event from a subscriber.
type clientMessage struct {
	Event  string `json:"event"`
	Symbol string `json:"symbol"`
}

// serverMessage is an outbound websocket event.
type serverMessage struct {
	Event string        `json:"event"`
	Data  stream.Update `json:"data"`
}

// HandleWebSocket upgrades the connection and serves price subscriptions.
// Each subscribePrice event starts an independent stream parented to the
// connection: closing the connection tears all of them down.
func (s *Server) HandleWebSocket(cn *gin.Context) {
	conn, err := upgrader.Upgrade(cn.Writer, cn.Request, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	s.logger.Info("Client connected", zap.String("remote", conn.RemoteAddr().String()))

	ctx, cancel := context.WithCancel(cn.Request.Context())
	defer cancel()

	// Streams push concurrently; gorilla connections allow one writer at a time.
	var writeMu sync.Mutex
	sink := func(u stream.Update) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(serverMessage{Event: "priceUpdate", Data: u})
	}

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			s.logger.Info("Client disconnected", zap.Error(err))
			return
		}
		if msg.Event != "subscribePrice" {
			s.logger.Warn("Unknown websocket event", zap.String("event", msg.Event))
			continue
		}
		s.hub.Subscribe(ctx, msg.Symbol, sink)
	}
}
