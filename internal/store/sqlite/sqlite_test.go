package sqlite

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tradecircle/tradecircle/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateGroupMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGroup(ctx, "Tech Traders", "Tech stocks", "alex")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if g.Admin != "alex" || g.CreatedBy != "alex" {
		t.Errorf("expected alex as admin and creator, got admin=%q created_by=%q", g.Admin, g.CreatedBy)
	}
	if len(g.Members) != 1 || g.Members[0] != "alex" {
		t.Errorf("expected creator as sole member, got %v", g.Members)
	}

	ok, err := s.IsMember(ctx, g.ID, "alex")
	if err != nil || !ok {
		t.Fatalf("expected alex to be a member, ok=%v err=%v", ok, err)
	}
	ok, err = s.IsMember(ctx, g.ID, "cory")
	if err != nil || ok {
		t.Fatalf("expected cory not to be a member, ok=%v err=%v", ok, err)
	}

	if err := s.AddMember(ctx, g.ID, "cory"); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	// adding twice must be a no-op
	if err := s.AddMember(ctx, g.ID, "cory"); err != nil {
		t.Fatalf("AddMember second time failed: %v", err)
	}

	got, err := s.GetGroupByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGroupByID failed: %v", err)
	}
	if len(got.Members) != 2 {
		t.Errorf("expected 2 members, got %v", got.Members)
	}

	mine, err := s.ListGroupsForUser(ctx, "cory")
	if err != nil {
		t.Fatalf("ListGroupsForUser failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != g.ID {
		t.Errorf("expected cory to see one group, got %v", mine)
	}
}

func TestTradeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGroup(ctx, "Swing", "swing trades", "alex")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	trade := &model.Trade{
		GroupID:  g.ID,
		Symbol:   "AAPL",
		Quantity: model.BucketMedium,
		Price:    decimal.RequireFromString("187.25"),
		Side:     model.SideBuy,
		User:     "alex",
	}
	if err := s.SaveTrade(ctx, trade); err != nil {
		t.Fatalf("SaveTrade failed: %v", err)
	}
	if trade.ID == "" || trade.CreatedAt.IsZero() {
		t.Fatalf("expected ID and CreatedAt to be stamped, got %+v", trade)
	}

	got, err := s.GetTradeByID(ctx, trade.ID)
	if err != nil {
		t.Fatalf("GetTradeByID failed: %v", err)
	}
	if got.Symbol != "AAPL" || got.Quantity != model.BucketMedium || got.Side != model.SideBuy {
		t.Errorf("trade fields mismatch: %+v", got)
	}
	if !got.Price.Equal(trade.Price) {
		t.Errorf("expected price %s, got %s", trade.Price, got.Price)
	}

	list, err := s.ListTradesForGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListTradesForGroup failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one trade, got %d", len(list))
	}

	if err := s.DeleteTrade(ctx, trade.ID); err != nil {
		t.Fatalf("DeleteTrade failed: %v", err)
	}
	if err := s.DeleteTrade(ctx, trade.ID); err == nil {
		t.Fatal("expected error deleting missing trade")
	}
}

func TestJoinRequestLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGroup(ctx, "Options", "weekly options", "alex")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	r, err := s.CreateJoinRequest(ctx, g.ID, "cory")
	if err != nil {
		t.Fatalf("CreateJoinRequest failed: %v", err)
	}
	if r.Status != model.RequestPending {
		t.Errorf("expected pending status, got %s", r.Status)
	}

	pending, err := s.GetPendingRequest(ctx, g.ID, "cory")
	if err != nil {
		t.Fatalf("GetPendingRequest failed: %v", err)
	}
	if pending == nil || pending.ID != r.ID {
		t.Fatalf("expected pending request %s, got %+v", r.ID, pending)
	}

	list, err := s.ListPendingRequests(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListPendingRequests failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one pending request, got %d", len(list))
	}

	if err := s.UpdateRequestStatus(ctx, r.ID, model.RequestApproved); err != nil {
		t.Fatalf("UpdateRequestStatus failed: %v", err)
	}

	// terminal states never transition again
	if err := s.UpdateRequestStatus(ctx, r.ID, model.RequestRejected); err == nil {
		t.Fatal("expected error transitioning a resolved request")
	}

	got, err := s.GetJoinRequest(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetJoinRequest failed: %v", err)
	}
	if got.Status != model.RequestApproved {
		t.Errorf("expected approved, got %s", got.Status)
	}

	pending, err = s.GetPendingRequest(ctx, g.ID, "cory")
	if err != nil {
		t.Fatalf("GetPendingRequest failed: %v", err)
	}
	if pending != nil {
		t.Errorf("expected no pending request after approval, got %+v", pending)
	}
}

func TestMessagesOrderedOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGroup(ctx, "Chat", "chatty group", "alex")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	bodies := []string{"first", "second", "third"}
	for _, b := range bodies {
		msg := &model.ChatMessage{GroupID: g.ID, User: "alex", Body: b}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}

	msgs, err := s.ListMessages(ctx, g.ID, 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, b := range bodies {
		if msgs[i].Body != b {
			t.Errorf("expected %q at index %d, got %q", b, i, msgs[i].Body)
		}
	}

	limited, err := s.ListMessages(ctx, g.ID, 2)
	if err != nil {
		t.Fatalf("ListMessages with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 messages with limit, got %d", len(limited))
	}
}
