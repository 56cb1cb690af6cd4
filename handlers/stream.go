package handlers

import (
	"context"
	"net/http"
	"time"

	"fastaid/middleware"
	"fastaid/models"
	"fastaid/services/propagation"
	"fastaid/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// StreamHandler forwards change signals to a websocket. Frames carry only
// the signal; clients re-fetch the entity they care about.
type StreamHandler struct {
	Bus      propagation.Bus
	Upgrader websocket.Upgrader
}

func NewStreamHandler(bus propagation.Bus) *StreamHandler {
	return &StreamHandler{
		Bus: bus,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// streamKey picks the subscription for the caller. Admins may pass ?key=.
func streamKey(c *gin.Context) string {
	switch middleware.Role(c) {
	case utils.RoleRequester:
		return models.RequesterKey(middleware.Subject(c))
	case utils.RoleOperator:
		return models.ResourceKey(middleware.Subject(c))
	case utils.RoleAdmin:
		if key := c.Query("key"); key != "" {
			return key
		}
		return propagation.AllKeys
	}
	return ""
}

func (h *StreamHandler) ChangeStream(c *gin.Context) {
	logger := getLogger(c)
	key := streamKey(c)
	if key == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "No change stream for this role"})
		return
	}

	// Subscribe before upgrading so a client that has connected is already
	// receiving.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	signals, unsubscribe, err := h.Bus.Subscribe(ctx, key)
	if err != nil {
		logger.Error("Change subscription failed", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Change stream unavailable"})
		return
	}
	defer unsubscribe()

	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The reader only services pongs and notices the client leaving.
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	logger.Debug("Change stream opened", zap.String("key", key))

	for {
		select {
		case <-ctx.Done():
			return
		case signal, ok := <-signals:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(signal); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}
