package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tradecircle/tradecircle/internal/model"
	"github.com/tradecircle/tradecircle/internal/store"
)

// TradeHandlers provides HTTP handlers for trade endpoints.
type TradeHandlers struct {
	store   store.Store
	metrics *Metrics
	log     *zerolog.Logger
}

// NewTradeHandlers creates a new trade handlers instance.
func NewTradeHandlers(st store.Store, metrics *Metrics, logger *zerolog.Logger) *TradeHandlers {
	return &TradeHandlers{store: st, metrics: metrics, log: logger}
}

// CreateTradeRequest represents the create trade request body.
type CreateTradeRequest struct {
	GroupID  string          `json:"group_id"`
	Symbol   string          `json:"symbol"`
	Quantity string          `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Side     string          `json:"type"`
}

// ListTrades lists the caller's trades across all groups.
// GET /api/trades
func (h *TradeHandlers) ListTrades(c *gin.Context) {
	user, ok := username(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	trades, err := h.store.ListTradesForUser(c.Request.Context(), user)
	if err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("failed to list trades")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// CreateTrade records a trade against a group ledger. The server normalizes
// symbol and side and owns identity and timestamp. Members only.
// POST /api/trades
func (h *TradeHandlers) CreateTrade(c *gin.Context) {
	user, ok := username(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	side := model.Side(strings.ToLower(strings.TrimSpace(req.Side)))
	bucket := model.QuantityBucket(strings.TrimSpace(req.Quantity))

	switch {
	case req.GroupID == "":
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "group_id is required"})
		return
	case symbol == "":
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "symbol is required"})
		return
	case !model.ValidBucket(bucket):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid quantity range"})
		return
	case !side.Valid():
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "type must be buy or sell"})
		return
	case req.Price.IsNegative():
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "price must not be negative"})
		return
	}

	group, err := h.store.GetGroupByID(c.Request.Context(), req.GroupID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found"})
		return
	}
	if !group.HasMember(user) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "You are not a member of this group"})
		return
	}

	trade := model.Trade{
		GroupID:  req.GroupID,
		Symbol:   symbol,
		Quantity: bucket,
		Price:    req.Price,
		Side:     side,
		User:     user,
	}
	if err := h.store.SaveTrade(c.Request.Context(), &trade); err != nil {
		h.log.Error().Err(err).Str("group_id", req.GroupID).Msg("failed to save trade")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.metrics.TradesCreated.Inc()
	h.log.Info().
		Str("trade_id", trade.ID).
		Str("group_id", trade.GroupID).
		Str("symbol", trade.Symbol).
		Str("side", string(trade.Side)).
		Msg("trade recorded")
	c.JSON(http.StatusCreated, gin.H{"trade": trade})
}

// DeleteTrade removes a trade. Authors only.
// DELETE /api/trades/:id
func (h *TradeHandlers) DeleteTrade(c *gin.Context) {
	user, ok := username(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	tradeID := c.Param("id")

	trade, err := h.store.GetTradeByID(c.Request.Context(), tradeID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "trade not found"})
		return
	}
	if trade.User != user {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "You can only delete your own trades"})
		return
	}

	if err := h.store.DeleteTrade(c.Request.Context(), tradeID); err != nil {
		h.log.Error().Err(err).Str("trade_id", tradeID).Msg("failed to delete trade")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("trade_id", tradeID).Str("user", user).Msg("trade deleted")
	c.JSON(http.StatusOK, gin.H{"deleted": tradeID})
}
