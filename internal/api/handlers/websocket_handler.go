// server/internal/api/handlers/websocket_handler.go
package handlers

import (
	"net/http"
	"time"

	"gps-fleet-api-server/internal/apperrors"
	"gps-fleet-api-server/internal/auth"
	"gps-fleet-api-server/internal/models"
	"gps-fleet-api-server/internal/service"
	"gps-fleet-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Maximum time to wait for any frame (including pings) from the client.
	pongWait   = 30 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
	// Viewers never send data, only control frames.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	Hub     *socket.Hub
	Service *service.TrackingService
	Secret  []byte
	Logger  *zap.Logger
}

// ServeVehicle joins the caller to the live topic of one of their vehicles.
// The JWT comes from ?token= since browsers cannot set headers on the upgrade.
func (h *WebSocketHandler) ServeVehicle(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		respondError(c, apperrors.NewUnauthorizedError("Token is required"))
		return
	}
	claims, err := auth.ParseJWT(h.Secret, tokenString)
	if err != nil {
		respondError(c, apperrors.NewUnauthorizedError("Invalid or expired token"))
		return
	}

	vehicleID, ok := uintParam(c, "id", vehicleNotFound)
	if !ok {
		return
	}
	if _, err := h.Service.OwnedVehicle(c.Request.Context(), vehicleID, claims.UserID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	session, err := h.Hub.Subscribe(models.TopicForVehicle(vehicleID))
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go h.writePump(conn, session)
	h.readPump(conn, session)
}

// readPump only watches for disconnects. It leaves the topic when the client goes away.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, session *socket.Session) {
	defer func() {
		h.Hub.Unsubscribe(session)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Debug("WebSocket closed unexpectedly", zap.String("topic", session.Topic), zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only writer of data frames on conn.
func (h *WebSocketHandler) writePump(conn *websocket.Conn, session *socket.Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-session.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
