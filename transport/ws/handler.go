package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/chainchat/chainchat/registry"
	"github.com/chainchat/chainchat/service"
)

const maxInboundFrame = 64 * 1024

// Handler upgrades real-time connections and keeps the registry current.
// The channel is a server-to-client push transport only: inbound frames
// carry no message semantics and are answered with an echo acknowledgement.
type Handler struct {
	registry *registry.Registry
	auth     *service.AuthService
	upgrader websocket.Upgrader
}

// NewHandler creates a new websocket handler.
func NewHandler(reg *registry.Registry, auth *service.AuthService) *Handler {
	return &Handler{
		registry: reg,
		auth:     auth,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
			return true
		}},
	}
}

// Serve handles GET /ws/:user_id. The caller must present a valid access
// token bound to the same user id, via the Authorization header or a token
// query parameter (browser websocket clients cannot set headers).
func (h *Handler) Serve(c *gin.Context) {
	userID := c.Param("user_id")

	identity, err := h.auth.ResolveToken(bearerToken(c))
	if err != nil || identity.UserID != userID {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	ch := newChannel(conn)
	h.registry.Connect(userID, ch)
	defer func() {
		h.registry.Disconnect(userID, ch)
		ch.Close()
	}()

	conn.SetReadLimit(maxInboundFrame)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		// Acknowledge and move on; actual sends happen over HTTP.
		if err := ch.Send([]byte("Echo: " + string(data))); err != nil {
			return
		}
	}
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Query("token")
}
