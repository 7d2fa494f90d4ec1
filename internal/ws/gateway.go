package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dispatch/internal/broadcast"
	"dispatch/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Gateway streams a ride's broadcast events to websocket clients.
type Gateway struct {
	sub broadcast.Subscriber
	log *zap.Logger
}

// NewGateway creates a new Gateway.
func NewGateway(sub broadcast.Subscriber, log *zap.Logger) *Gateway {
	return &Gateway{sub: sub, log: log}
}

// RideEvents handles GET /v1/rides/:id/events: upgrades the connection and
// forwards the ride's status and fare events until the client goes away.
func (g *Gateway) RideEvents(c *gin.Context) {
	rideID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := g.sub.Subscribe(domain.RideTopic(rideID))
	defer cancel()

	// Reader goroutine: we only need to notice the client closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
