package session

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tradecircle/tradecircle/internal/chat"
	"github.com/tradecircle/tradecircle/internal/ledger"
	"github.com/tradecircle/tradecircle/internal/model"
	"github.com/tradecircle/tradecircle/internal/roster"
)

// GroupSession composes the ledger cache, the join-request workflow and the
// chat channel for the currently viewed group. It is created on group
// selection and destroyed on navigation away or logout; its caches are the
// authoritative state the view renders.
type GroupSession struct {
	group   model.Group
	user    string
	svc     Service
	ledger  *ledger.Ledger
	roster  *roster.Workflow
	channel Channel
	log     *zerolog.Logger
}

// Group returns the group this session serves.
func (g *GroupSession) Group() model.Group {
	return g.group
}

// Load fetches the authoritative group snapshot and replaces the ledger and
// workflow caches wholesale. On failure both keep their previous,
// stale-but-consistent values.
func (g *GroupSession) Load(ctx context.Context) error {
	detail, err := g.svc.FetchGroupDetail(ctx, g.group.ID, g.user)
	if err != nil {
		return err
	}
	g.group = detail.Group
	g.ledger.Replace(detail.Trades)
	g.roster.Replace(detail.PendingRequests, detail.IsAdmin)
	g.log.Debug().
		Str("group_id", g.group.ID).
		Int("trades", len(detail.Trades)).
		Int("pending_requests", len(detail.PendingRequests)).
		Bool("is_admin", detail.IsAdmin).
		Msg("group snapshot loaded")
	return nil
}

// SubmitTrade validates and submits a trade candidate; the confirmed trade
// lands at the end of the ledger sequence.
func (g *GroupSession) SubmitTrade(ctx context.Context, symbol string, quantity model.QuantityBucket, price decimal.Decimal, side model.Side) (model.Trade, error) {
	return g.ledger.Add(ctx, model.Trade{
		Symbol:   symbol,
		Quantity: quantity,
		Price:    price,
		Side:     side,
	})
}

// DeleteTrade removes one of the acting user's own trades.
func (g *GroupSession) DeleteTrade(ctx context.Context, tradeID string) error {
	return g.ledger.Remove(ctx, tradeID)
}

// Trades returns the ledger sequence in display order.
func (g *GroupSession) Trades() []model.Trade {
	return g.ledger.Trades()
}

// NetPosition returns the group's aggregate signed position.
func (g *GroupSession) NetPosition() decimal.Decimal {
	return g.ledger.NetPosition()
}

// IsAdmin reports whether the acting user administers this group.
func (g *GroupSession) IsAdmin() bool {
	return g.roster.IsAdmin()
}

// PendingRequests returns the pending join requests visible to the admin.
func (g *GroupSession) PendingRequests() []model.JoinRequest {
	return g.roster.Pending()
}

// Approve resolves a pending join request to approved.
func (g *GroupSession) Approve(ctx context.Context, requestID string) error {
	return g.roster.Approve(ctx, requestID)
}

// Reject resolves a pending join request to rejected.
func (g *GroupSession) Reject(ctx context.Context, requestID string) error {
	return g.roster.Reject(ctx, requestID)
}

// SendMessage delivers a chat message over the stream or, when the room is
// not joined, over the fallback path.
func (g *GroupSession) SendMessage(ctx context.Context, body string) error {
	return g.channel.Send(ctx, body)
}

// Messages returns the chat sequence in arrival order.
func (g *GroupSession) Messages() []model.ChatMessage {
	return g.channel.Messages()
}

// ChatState returns the chat channel's connection state.
func (g *GroupSession) ChatState() chat.State {
	return g.channel.State()
}

// OnMessage registers a live-message callback with the channel.
func (g *GroupSession) OnMessage(fn func(model.ChatMessage)) {
	g.channel.OnMessage(fn)
}

// OnNotice registers a channel-failure callback.
func (g *GroupSession) OnNotice(fn func(error)) {
	g.channel.OnNotice(fn)
}

// Close leaves the chat room and closes the transport. The caches die with
// the session value.
func (g *GroupSession) Close(ctx context.Context) {
	g.channel.Close(ctx)
	g.log.Debug().Str("group_id", g.group.ID).Msg("group session closed")
}
