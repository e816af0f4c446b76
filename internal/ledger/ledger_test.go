package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tradecircle/tradecircle/internal/api"
	"github.com/tradecircle/tradecircle/internal/log"
	"github.com/tradecircle/tradecircle/internal/model"
)

type fakeTradeService struct {
	createErr error
	deleteErr error
	created   []model.Trade
	deleted   []string
	nextID    int
}

func (f *fakeTradeService) CreateTrade(_ context.Context, candidate model.Trade) (model.Trade, error) {
	if f.createErr != nil {
		return model.Trade{}, f.createErr
	}
	f.nextID++
	confirmed := candidate
	confirmed.ID = string(rune('a' + f.nextID - 1))
	f.created = append(f.created, confirmed)
	return confirmed, nil
}

func (f *fakeTradeService) DeleteTrade(_ context.Context, tradeID, _ string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, tradeID)
	return nil
}

func candidate(symbol string) model.Trade {
	return model.Trade{
		Symbol:   symbol,
		Quantity: model.BucketMedium,
		Price:    decimal.RequireFromString("2.00"),
		Side:     model.SideBuy,
	}
}

func TestAddAppendsConfirmedTrade(t *testing.T) {
	svc := &fakeTradeService{}
	l := New(svc, "g1", "alex", log.Nop())

	confirmed, err := l.Add(context.Background(), candidate("AAPL"))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if confirmed.ID == "" {
		t.Fatal("expected confirmed trade to carry a server identity")
	}
	if confirmed.GroupID != "g1" || confirmed.User != "alex" {
		t.Errorf("expected group and user stamped, got %+v", confirmed)
	}
	if l.Len() != 1 {
		t.Fatalf("expected one cached trade, got %d", l.Len())
	}
	if l.InFlight() {
		t.Error("expected no in-flight markers after confirmation")
	}
}

func TestAddValidationNeverReachesService(t *testing.T) {
	svc := &fakeTradeService{}
	l := New(svc, "g1", "alex", log.Nop())

	tests := []struct {
		name string
		mod  func(*model.Trade)
	}{
		{"empty symbol", func(tr *model.Trade) { tr.Symbol = "" }},
		{"empty quantity", func(tr *model.Trade) { tr.Quantity = "" }},
		{"bad side", func(tr *model.Trade) { tr.Side = "hold" }},
		{"negative price", func(tr *model.Trade) { tr.Price = decimal.RequireFromString("-1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidate("AAPL")
			tt.mod(&c)
			_, err := l.Add(context.Background(), c)
			var verr *api.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	if len(svc.created) != 0 {
		t.Errorf("expected no service calls, got %d", len(svc.created))
	}
	if l.Len() != 0 {
		t.Errorf("expected empty cache, got %d trades", l.Len())
	}
}

func TestAddFailureLeavesCacheUntouched(t *testing.T) {
	svc := &fakeTradeService{}
	l := New(svc, "g1", "alex", log.Nop())

	if _, err := l.Add(context.Background(), candidate("AAPL")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	svc.createErr = errors.New("boom")
	if _, err := l.Add(context.Background(), candidate("TSLA")); err == nil {
		t.Fatal("expected error from failing service")
	}

	if l.Len() != 1 {
		t.Fatalf("expected cache unchanged at 1 trade, got %d", l.Len())
	}
	if l.InFlight() {
		t.Error("expected in-flight marker discarded after failure")
	}
}

func TestRemoveGatesLocally(t *testing.T) {
	svc := &fakeTradeService{}
	l := New(svc, "g1", "alex", log.Nop())
	l.Replace([]model.Trade{
		{ID: "t1", User: "alex", Symbol: "AAPL", Quantity: model.BucketSmall, Side: model.SideBuy},
		{ID: "t2", User: "cory", Symbol: "TSLA", Quantity: model.BucketSmall, Side: model.SideSell},
	})

	var verr *api.ValidationError
	if err := l.Remove(context.Background(), "ghost"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for unknown trade, got %v", err)
	}
	if err := l.Remove(context.Background(), "t2"); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}
	if len(svc.deleted) != 0 {
		t.Fatalf("expected no service calls from gated removals, got %v", svc.deleted)
	}

	if err := l.Remove(context.Background(), "t1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("expected one trade left, got %d", l.Len())
	}
	if l.Trades()[0].ID != "t2" {
		t.Errorf("expected t2 to survive, got %+v", l.Trades())
	}
}

func TestRemoveFailureKeepsTrade(t *testing.T) {
	svc := &fakeTradeService{deleteErr: errors.New("server says no")}
	l := New(svc, "g1", "alex", log.Nop())
	l.Replace([]model.Trade{{ID: "t1", User: "alex"}})

	if err := l.Remove(context.Background(), "t1"); err == nil {
		t.Fatal("expected error from failing service")
	}
	if l.Len() != 1 {
		t.Fatalf("expected trade retained after failure, got %d trades", l.Len())
	}
}

func TestNetPositionMidpointAggregation(t *testing.T) {
	l := New(&fakeTradeService{}, "g1", "alex", log.Nop())
	l.Replace([]model.Trade{
		// buy 10-100 @ 2.00 -> +110
		{Quantity: model.BucketMedium, Price: decimal.RequireFromString("2.00"), Side: model.SideBuy},
		// sell 1-10 @ 10.00 -> -55
		{Quantity: model.BucketSmall, Price: decimal.RequireFromString("10.00"), Side: model.SideSell},
	})

	got := l.NetPosition()
	want := decimal.RequireFromString("55")
	if !got.Equal(want) {
		t.Fatalf("expected net position %s, got %s", want, got)
	}
}

func TestReplaceDiscardsPendingMarkers(t *testing.T) {
	svc := &fakeTradeService{}
	l := New(svc, "g1", "alex", log.Nop())

	l.Replace([]model.Trade{{ID: "t1"}, {ID: "t2"}})
	if l.Len() != 2 {
		t.Fatalf("expected two trades, got %d", l.Len())
	}

	l.Replace(nil)
	if l.Len() != 0 {
		t.Fatalf("expected empty cache after replace, got %d", l.Len())
	}
	if l.InFlight() {
		t.Error("expected no in-flight markers after replace")
	}
}
