package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentalhub/internal/models"
	"rentalhub/internal/realtime"
	"rentalhub/internal/services"
)

type UserHandler struct {
	service services.UserService
	gateway *realtime.Gateway
}

func NewUserHandler(service services.UserService, gateway *realtime.Gateway) *UserHandler {
	return &UserHandler{service: service, gateway: gateway}
}

// @Summary   Current user
// @Tags      Users
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  models.User
// @Router    /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	user, err := h.service.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary      Set device push token
// @Description  An empty token clears it
// @Tags         Users
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  models.PushTokenRequest  true  "Push token"
// @Success      204
// @Router       /users/me/push-token [put]
func (h *UserHandler) UpdatePushToken(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	var req models.PushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.UpdatePushToken(c.Request.Context(), userID, req.PushToken); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary   Online users
// @Tags      Users
// @Produce   json
// @Security  BearerAuth
// @Success   200  {array}  string
// @Router    /users/online [get]
func (h *UserHandler) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.gateway.OnlineUsers())
}

// @Summary   Presence detail (admin)
// @Tags      Admin
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  map[string]interface{}
// @Router    /admin/presence [get]
func (h *UserHandler) AdminPresence(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online":      h.gateway.Presence().Snapshot(),
		"connections": h.gateway.ConnectionCount(),
		"channels":    h.gateway.ChannelCount(),
	})
}
