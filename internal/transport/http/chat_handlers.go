package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tradecircle/tradecircle/internal/core"
	"github.com/tradecircle/tradecircle/internal/model"
	"github.com/tradecircle/tradecircle/internal/store"
)

// ChatHandlers provides the request/response chat path: history fetches and
// the send fallback used when a client has no live stream.
type ChatHandlers struct {
	store   store.Store
	hub     *core.Hub
	metrics *Metrics
	log     *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(st store.Store, hub *core.Hub, metrics *Metrics, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{store: st, hub: hub, metrics: metrics, log: logger}
}

// PostMessageRequest represents the post message request body.
type PostMessageRequest struct {
	Body string `json:"message"`
}

// History returns the group's chat backlog oldest first. Members only.
// GET /api/groups/:id/chat
func (h *ChatHandlers) History(c *gin.Context) {
	user, ok := username(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	groupID := c.Param("id")

	group, err := h.store.GetGroupByID(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found"})
		return
	}
	if !group.HasMember(user) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "You are not a member of this group"})
		return
	}

	messages, err := h.store.ListMessages(c.Request.Context(), groupID, 0)
	if err != nil {
		h.log.Error().Err(err).Str("group_id", groupID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// PostMessage persists a chat message and returns the canonical record. The
// message is also published to any live stream clients in the room.
// POST /api/groups/:id/chat
func (h *ChatHandlers) PostMessage(c *gin.Context) {
	user, ok := username(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	groupID := c.Param("id")

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
		return
	}

	group, err := h.store.GetGroupByID(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found"})
		return
	}
	if !group.HasMember(user) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "You are not a member of this group"})
		return
	}

	msg := model.ChatMessage{GroupID: groupID, User: user, Body: req.Body}
	if err := h.store.SaveMessage(c.Request.Context(), &msg); err != nil {
		h.log.Error().Err(err).Str("group_id", groupID).Msg("failed to save message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if h.hub != nil {
		h.hub.Publish(msg)
	}
	h.metrics.ChatMessages.Inc()

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}
