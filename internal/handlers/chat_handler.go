package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rentalhub/internal/models"
)

type chatService interface {
	GetOrCreateChat(ctx context.Context, userA, userB string) (*models.Chat, error)
	ListUserChats(ctx context.Context, userID string) ([]*models.ChatSummary, error)
	GetMessages(ctx context.Context, chatID, userID string, limit, offset int) ([]*models.ChatMessage, error)
}

// messageRelay is the gateway's persist-broadcast-notify path.
type messageRelay interface {
	Relay(ctx context.Context, chatID, senderID, content string) (*models.ChatMessage, error)
}

type ChatHandler struct {
	service chatService
	relay   messageRelay
}

func NewChatHandler(service chatService, relay messageRelay) *ChatHandler {
	return &ChatHandler{service: service, relay: relay}
}

// @Summary      List my chats
// @Description  Newest activity first, with participants and the last message
// @Tags         Chats
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.ChatSummary
// @Router       /chats [get]
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	chats, err := h.service.ListUserChats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

// @Summary      Chat history
// @Description  Oldest first. Without limit the whole history is returned.
// @Tags         Chats
// @Produce      json
// @Security     BearerAuth
// @Param        id      path   string  true   "Chat ID"
// @Param        limit   query  int     false  "Page size"
// @Param        offset  query  int     false  "Offset"
// @Success      200  {array}   models.ChatMessage
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /chats/{id}/messages [get]
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	limit := queryInt(c, "limit", 0)
	offset := queryInt(c, "offset", 0)

	messages, err := h.service.GetMessages(c.Request.Context(), c.Param("id"), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// @Summary      Start or reopen a direct chat
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.InitiateChatRequest  true  "Recipient"
// @Success      200   {object}  models.Chat
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /chats/initiate [post]
func (h *ChatHandler) Initiate(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	var req models.InitiateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	chat, err := h.service.GetOrCreateChat(c.Request.Context(), userID, strings.TrimSpace(req.RecipientID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// @Summary      Send a message
// @Description  Same relay as the websocket sendMessage event
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                     true  "Chat ID"
// @Param        body  body      models.SendMessageRequest  true  "Message"
// @Success      201   {object}  models.ChatMessage
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /chats/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := h.relay.Relay(c.Request.Context(), c.Param("id"), userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
