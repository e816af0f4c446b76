package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tradecircle/tradecircle/internal/model"
	"github.com/tradecircle/tradecircle/internal/store"
)

// JoinHandlers provides HTTP handlers for the join-request workflow.
type JoinHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewJoinHandlers creates a new join handlers instance.
func NewJoinHandlers(st store.Store, logger *zerolog.Logger) *JoinHandlers {
	return &JoinHandlers{store: st, log: logger}
}

// RequestJoin records a pending join request for the caller. Members and
// users with an open request are turned away.
// POST /api/groups/:id/join
func (h *JoinHandlers) RequestJoin(c *gin.Context) {
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
	if group.HasMember(user) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "You are already a member of this group"})
		return
	}

	pending, err := h.store.GetPendingRequest(c.Request.Context(), groupID, user)
	if err != nil {
		h.log.Error().Err(err).Str("group_id", groupID).Msg("failed to check pending request")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if pending != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "You have already requested to join this group"})
		return
	}

	request, err := h.store.CreateJoinRequest(c.Request.Context(), groupID, user)
	if err != nil {
		h.log.Error().Err(err).Str("group_id", groupID).Msg("failed to create join request")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("group_id", groupID).Str("user", user).Str("request_id", request.ID).Msg("join requested")
	c.JSON(http.StatusCreated, gin.H{"request": request})
}

// ApproveRequest resolves a pending request to approved and adds the
// requester to the group. Admin only.
// POST /api/groups/:id/join/:reqid/approve
func (h *JoinHandlers) ApproveRequest(c *gin.Context) {
	h.resolve(c, model.RequestApproved, "Only the group admin can approve requests")
}

// RejectRequest resolves a pending request to rejected. Admin only.
// POST /api/groups/:id/join/:reqid/reject
func (h *JoinHandlers) RejectRequest(c *gin.Context) {
	h.resolve(c, model.RequestRejected, "Only the group admin can reject requests")
}

func (h *JoinHandlers) resolve(c *gin.Context, status model.RequestStatus, adminErr string) {
	user, ok := username(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	groupID := c.Param("id")
	requestID := c.Param("reqid")

	group, err := h.store.GetGroupByID(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found"})
		return
	}
	if group.Admin != user {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: adminErr})
		return
	}

	request, err := h.store.GetJoinRequest(c.Request.Context(), requestID)
	if err != nil || request.GroupID != groupID {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "join request not found"})
		return
	}
	if request.Status != model.RequestPending {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "join request already resolved"})
		return
	}

	if err := h.store.UpdateRequestStatus(c.Request.Context(), requestID, status); err != nil {
		h.log.Error().Err(err).Str("request_id", requestID).Msg("failed to update request status")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if status == model.RequestApproved {
		if err := h.store.AddMember(c.Request.Context(), groupID, request.User); err != nil {
			h.log.Error().Err(err).Str("group_id", groupID).Str("user", request.User).Msg("failed to add member")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
	}

	h.log.Info().
		Str("group_id", groupID).
		Str("request_id", requestID).
		Str("status", string(status)).
		Msg("join request resolved")

	request.Status = status
	c.JSON(http.StatusOK, gin.H{"request": request})
}
