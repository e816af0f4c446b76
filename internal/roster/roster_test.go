package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tradecircle/tradecircle/internal/log"
	"github.com/tradecircle/tradecircle/internal/model"
)

type fakeRequestService struct {
	joinErr    error
	resolveErr error
	approved   []string
	rejected   []string
}

func (f *fakeRequestService) RequestJoin(_ context.Context, groupID, user string) (model.JoinRequest, error) {
	if f.joinErr != nil {
		return model.JoinRequest{}, f.joinErr
	}
	return model.JoinRequest{
		ID:          "r1",
		GroupID:     groupID,
		User:        user,
		Status:      model.RequestPending,
		RequestedAt: time.Now(),
	}, nil
}

func (f *fakeRequestService) ApproveRequest(_ context.Context, _, requestID, _ string) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	f.approved = append(f.approved, requestID)
	return nil
}

func (f *fakeRequestService) RejectRequest(_ context.Context, _, requestID, _ string) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	f.rejected = append(f.rejected, requestID)
	return nil
}

func pendingSet() []model.JoinRequest {
	return []model.JoinRequest{
		{ID: "r1", GroupID: "g1", User: "cory", Status: model.RequestPending},
		{ID: "r2", GroupID: "g1", User: "dana", Status: model.RequestPending},
	}
}

func TestApproveRemovesFromPending(t *testing.T) {
	svc := &fakeRequestService{}
	w := New(svc, "g1", "alex", log.Nop())
	w.Replace(pendingSet(), true)

	if err := w.Approve(context.Background(), "r1"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if len(svc.approved) != 1 || svc.approved[0] != "r1" {
		t.Errorf("expected r1 approved on the service, got %v", svc.approved)
	}

	pending := w.Pending()
	if len(pending) != 1 || pending[0].ID != "r2" {
		t.Errorf("expected only r2 pending, got %v", pending)
	}
}

func TestRejectRemovesFromPending(t *testing.T) {
	svc := &fakeRequestService{}
	w := New(svc, "g1", "alex", log.Nop())
	w.Replace(pendingSet(), true)

	if err := w.Reject(context.Background(), "r2"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if len(svc.rejected) != 1 || svc.rejected[0] != "r2" {
		t.Errorf("expected r2 rejected on the service, got %v", svc.rejected)
	}
	if len(w.Pending()) != 1 {
		t.Errorf("expected one request left, got %v", w.Pending())
	}
}

func TestResolveGatesNonAdmin(t *testing.T) {
	svc := &fakeRequestService{}
	w := New(svc, "g1", "cory", log.Nop())
	w.Replace(pendingSet(), false)

	if err := w.Approve(context.Background(), "r1"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if len(svc.approved) != 0 {
		t.Errorf("expected no service call, got %v", svc.approved)
	}
}

func TestResolveGatesUnknownRequest(t *testing.T) {
	svc := &fakeRequestService{}
	w := New(svc, "g1", "alex", log.Nop())
	w.Replace(pendingSet(), true)

	if err := w.Reject(context.Background(), "ghost"); !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("expected ErrUnknownRequest, got %v", err)
	}
	if len(svc.rejected) != 0 {
		t.Errorf("expected no service call, got %v", svc.rejected)
	}
}

func TestResolveFailureKeepsPending(t *testing.T) {
	svc := &fakeRequestService{resolveErr: errors.New("server says no")}
	w := New(svc, "g1", "alex", log.Nop())
	w.Replace(pendingSet(), true)

	if err := w.Approve(context.Background(), "r1"); err == nil {
		t.Fatal("expected error from failing service")
	}
	if len(w.Pending()) != 2 {
		t.Errorf("expected pending set unchanged, got %v", w.Pending())
	}
}

func TestRequestToJoin(t *testing.T) {
	svc := &fakeRequestService{}

	req, err := RequestToJoin(context.Background(), svc, "g1", "cory")
	if err != nil {
		t.Fatalf("RequestToJoin failed: %v", err)
	}
	if req.Status != model.RequestPending || req.GroupID != "g1" || req.User != "cory" {
		t.Errorf("unexpected request: %+v", req)
	}

	svc.joinErr = errors.New("You have already requested to join this group")
	if _, err := RequestToJoin(context.Background(), svc, "g1", "cory"); err == nil {
		t.Fatal("expected duplicate request error to surface")
	}
}
