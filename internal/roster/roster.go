package roster

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tradecircle/tradecircle/internal/model"
)

// Gate errors raised before any network call. Server-side failures come back
// as api errors with the service's wording intact.
var (
	ErrNotAdmin       = errors.New("only the group admin can resolve join requests")
	ErrUnknownRequest = errors.New("join request is not in the pending set")
)

// RequestService is the slice of the collaborator API the workflow depends
// on. Satisfied by *api.Client.
type RequestService interface {
	RequestJoin(ctx context.Context, groupID, user string) (model.JoinRequest, error)
	ApproveRequest(ctx context.Context, groupID, requestID, adminUser string) error
	RejectRequest(ctx context.Context, groupID, requestID, adminUser string) error
}

// Workflow drives the join-request approval state machine for the active
// group: pending -> approved or pending -> rejected, both terminal. Resolved
// requests leave the pending sequence; the server owns their history.
type Workflow struct {
	svc     RequestService
	groupID string
	user    string
	log     *zerolog.Logger

	mu      sync.Mutex
	isAdmin bool
	pending []model.JoinRequest
}

// New builds an empty workflow for one group, acting as user.
func New(svc RequestService, groupID, user string, logger *zerolog.Logger) *Workflow {
	return &Workflow{svc: svc, groupID: groupID, user: user, log: logger}
}

// Replace installs the pending sequence and admin flag from a group detail
// snapshot.
func (w *Workflow) Replace(pending []model.JoinRequest, isAdmin bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append([]model.JoinRequest(nil), pending...)
	w.isAdmin = isAdmin
}

// IsAdmin reports whether the acting user administers the active group.
func (w *Workflow) IsAdmin() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isAdmin
}

// Pending returns a snapshot of the pending requests in fetch order.
func (w *Workflow) Pending() []model.JoinRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.JoinRequest, len(w.pending))
	copy(out, w.pending)
	return out
}

// Approve resolves a pending request to its approved terminal state and drops
// it from the pending sequence. On failure the sequence is unchanged and the
// server's message is surfaced verbatim.
func (w *Workflow) Approve(ctx context.Context, requestID string) error {
	return w.resolve(ctx, requestID, w.svc.ApproveRequest)
}

// Reject resolves a pending request to its rejected terminal state and drops
// it from the pending sequence. On failure the sequence is unchanged.
func (w *Workflow) Reject(ctx context.Context, requestID string) error {
	return w.resolve(ctx, requestID, w.svc.RejectRequest)
}

func (w *Workflow) resolve(ctx context.Context, requestID string, call func(context.Context, string, string, string) error) error {
	w.mu.Lock()
	if !w.isAdmin {
		w.mu.Unlock()
		return ErrNotAdmin
	}
	if !w.holds(requestID) {
		// Never attempt a transition on a request we do not hold.
		w.mu.Unlock()
		return ErrUnknownRequest
	}
	w.mu.Unlock()

	if err := call(ctx, w.groupID, requestID, w.user); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.pending {
		if w.pending[i].ID == requestID {
			w.pending = append(w.pending[:i], w.pending[i+1:]...)
			break
		}
	}
	w.log.Debug().Str("request_id", requestID).Msg("join request resolved")
	return nil
}

// holds reports whether requestID is in the pending sequence. Caller locks.
func (w *Workflow) holds(requestID string) bool {
	for _, r := range w.pending {
		if r.ID == requestID {
			return true
		}
	}
	return false
}

// RequestToJoin submits a join petition for a group found through search.
// The service enforces the one-pending-request-per-user rule; a rejection
// comes back as an error and success is never inferred from silence.
func RequestToJoin(ctx context.Context, svc RequestService, groupID, user string) (model.JoinRequest, error) {
	return svc.RequestJoin(ctx, groupID, user)
}
