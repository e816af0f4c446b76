package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradecircle/tradecircle/internal/log"
	"github.com/tradecircle/tradecircle/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, log.Nop())
}

func TestLoginInstallsNothingOnFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
	}))

	_, err := c.Login(context.Background(), "alex", "wrong")
	var authErr *AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	if authErr.Message != "invalid credentials" {
		t.Errorf("expected server message verbatim, got %q", authErr.Message)
	}
}

func TestAuthorizationErrorCarriesServerMessage(t *testing.T) {
	const serverMsg = "Only the group admin can approve requests"
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": serverMsg})
	}))

	err := c.ApproveRequest(context.Background(), "g1", "r1", "cory")
	var authErr *AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	if authErr.Message != serverMsg {
		t.Errorf("expected %q verbatim, got %q", serverMsg, authErr.Message)
	}
}

func TestServerErrorBecomesFetchError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
	}))

	_, err := c.ListGroups(context.Background(), "alex")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestTransportFailureBecomesFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // refuse all connections

	c := New(srv.URL, time.Second, log.Nop())
	_, err := c.ListGroups(context.Background(), "alex")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestCreateTradeReturnsCanonicalTrade(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/trades" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var in model.Trade
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Fatalf("decode candidate: %v", err)
		}
		in.ID = "t-42"
		in.CreatedAt = time.Now()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]model.Trade{"trade": in})
	}))

	confirmed, err := c.CreateTrade(context.Background(), model.Trade{
		GroupID:  "g1",
		Symbol:   "AAPL",
		Quantity: model.BucketMedium,
		Price:    decimal.RequireFromString("187.25"),
		Side:     model.SideBuy,
		User:     "alex",
	})
	if err != nil {
		t.Fatalf("CreateTrade failed: %v", err)
	}
	if confirmed.ID != "t-42" {
		t.Errorf("expected canonical identity t-42, got %q", confirmed.ID)
	}
	if confirmed.CreatedAt.IsZero() {
		t.Error("expected canonical timestamp")
	}
}

func TestFetchGroupDetailShape(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups/g1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"group": model.Group{ID: "g1", Name: "Tech", Members: []string{"alex"}, Admin: "alex"},
			"trades": []model.Trade{
				{ID: "t1", GroupID: "g1", Symbol: "AAPL", Quantity: model.BucketSmall, Side: model.SideBuy},
			},
			"pending_requests": []model.JoinRequest{
				{ID: "r1", GroupID: "g1", User: "cory", Status: model.RequestPending},
			},
			"is_admin": true,
		})
	}))

	detail, err := c.FetchGroupDetail(context.Background(), "g1", "alex")
	if err != nil {
		t.Fatalf("FetchGroupDetail failed: %v", err)
	}
	if detail.Group.ID != "g1" || !detail.IsAdmin {
		t.Errorf("unexpected detail: %+v", detail)
	}
	if len(detail.Trades) != 1 || len(detail.PendingRequests) != 1 {
		t.Errorf("expected one trade and one pending request, got %+v", detail)
	}
}

func TestChatMessageWireFormat(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["message"] != "hello" || body["user"] != "alex" {
			t.Errorf("unexpected body: %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]model.ChatMessage{
			"message": {ID: "m1", GroupID: "g1", User: "alex", Body: "hello", CreatedAt: time.Now()},
		})
	}))

	msg, err := c.PostChatMessage(context.Background(), "g1", "alex", "hello")
	if err != nil {
		t.Fatalf("PostChatMessage failed: %v", err)
	}
	if msg.ID != "m1" || msg.Body != "hello" {
		t.Errorf("unexpected message: %+v", msg)
	}
}
