package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rentalhub/internal/config"
	"rentalhub/internal/middleware"
	"rentalhub/internal/realtime"
	"rentalhub/internal/services"
)

type WSHandler struct {
	gateway        *realtime.Gateway
	auth           services.AuthService
	allowAnonymous bool
	upgrader       websocket.Upgrader
	log            *zap.Logger
}

func NewWSHandler(gateway *realtime.Gateway, auth services.AuthService, cfg config.GatewayConfig, log *zap.Logger) *WSHandler {
	return &WSHandler{
		gateway:        gateway,
		auth:           auth,
		allowAnonymous: cfg.AllowAnonymous,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		log: log,
	}
}

// originChecker returns nil (gorilla's same-origin check) for an empty list
// and accepts everything for "*".
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// @Summary      Chat websocket
// @Description  Upgrades to a websocket speaking {"event","data"} JSON frames.
// @Description  The access token goes in the Authorization header or the token query parameter.
// @Tags         Realtime
// @Param        token  query  string  false  "Access token"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Router       /ws [get]
func (h *WSHandler) Serve(c *gin.Context) {
	var authUser string
	if tok := middleware.SocketToken(c); tok != "" {
		claims, err := h.auth.ParseAccessToken(tok)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		authUser = claims.UserID
	} else if !h.allowAnonymous {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing access token"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the response
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	h.gateway.Serve(ws, authUser)
}
