package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tradecircle/tradecircle/internal/model"
	"github.com/tradecircle/tradecircle/internal/store"
)

// GroupHandlers provides HTTP handlers for group management endpoints.
type GroupHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewGroupHandlers creates a new group handlers instance.
func NewGroupHandlers(st store.Store, logger *zerolog.Logger) *GroupHandlers {
	return &GroupHandlers{store: st, log: logger}
}

// CreateGroupRequest represents the create group request body.
type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListGroups lists the caller's groups.
// GET /api/groups
func (h *GroupHandlers) ListGroups(c *gin.Context) {
	user, ok := username(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groups, err := h.store.ListGroupsForUser(c.Request.Context(), user)
	if err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("failed to list groups")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if groups == nil {
		groups = []model.Group{}
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// CreateGroup creates a group with the caller as member and admin.
// POST /api/groups
func (h *GroupHandlers) CreateGroup(c *gin.Context) {
	user, ok := username(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" || req.Description == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and description are required"})
		return
	}

	group, err := h.store.CreateGroup(c.Request.Context(), req.Name, req.Description, user)
	if err != nil {
		h.log.Error().Err(err).Str("group_name", req.Name).Msg("failed to create group")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("group_id", group.ID).Str("group_name", group.Name).Str("admin", user).Msg("group created")
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// SearchGroups lists every group with the caller's membership and
// pending-request flags.
// GET /api/groups/search
func (h *GroupHandlers) SearchGroups(c *gin.Context) {
	user, ok := username(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groups, err := h.store.ListAllGroups(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list groups")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	listings := make([]model.GroupListing, 0, len(groups))
	for _, g := range groups {
		listing := model.GroupListing{Group: g, IsMember: g.HasMember(user)}
		if !listing.IsMember {
			pending, err := h.store.GetPendingRequest(c.Request.Context(), g.ID, user)
			if err != nil {
				h.log.Error().Err(err).Str("group_id", g.ID).Msg("failed to check pending request")
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
				return
			}
			listing.HasPendingRequest = pending != nil
		}
		listings = append(listings, listing)
	}

	c.JSON(http.StatusOK, gin.H{"groups": listings})
}

// GetGroupDetail returns the authoritative group snapshot: trades, pending
// join requests and the caller's admin flag. Members only.
// GET /api/groups/:id
func (h *GroupHandlers) GetGroupDetail(c *gin.Context) {
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

	trades, err := h.store.ListTradesForGroup(c.Request.Context(), groupID)
	if err != nil {
		h.log.Error().Err(err).Str("group_id", groupID).Msg("failed to list trades")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	isAdmin := group.Admin == user
	pending := []model.JoinRequest{}
	if isAdmin {
		pending, err = h.store.ListPendingRequests(c.Request.Context(), groupID)
		if err != nil {
			h.log.Error().Err(err).Str("group_id", groupID).Msg("failed to list pending requests")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		if pending == nil {
			pending = []model.JoinRequest{}
		}
	}
	if trades == nil {
		trades = []model.Trade{}
	}

	c.JSON(http.StatusOK, gin.H{
		"group":            group,
		"trades":           trades,
		"pending_requests": pending,
		"is_admin":         isAdmin,
	})
}
