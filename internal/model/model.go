package model

import "time"

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Sign returns +1 for buys and -1 for sells. Unknown sides contribute nothing.
func (s Side) Sign() int64 {
	switch s {
	case SideBuy:
		return 1
	case SideSell:
		return -1
	default:
		return 0
	}
}

// Valid reports whether the side is one of the known directions.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Group is a named collection of users sharing a trade ledger and a chat room.
// The creator is always a member and holds admin rights.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Members     []string  `json:"members"`
	Admin       string    `json:"admin"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasMember reports whether user belongs to the group.
func (g Group) HasMember(user string) bool {
	for _, m := range g.Members {
		if m == user {
			return true
		}
	}
	return false
}

// GroupListing is a group as seen in search results, carrying the caller's
// membership and pending-request flags.
type GroupListing struct {
	Group
	IsMember          bool `json:"is_member"`
	HasPendingRequest bool `json:"has_pending_request"`
}

// RequestStatus is the lifecycle state of a join request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// JoinRequest is a user's petition to become a group member. Pending requests
// resolve to exactly one terminal status and are never re-opened.
type JoinRequest struct {
	ID          string        `json:"id"`
	GroupID     string        `json:"group_id"`
	User        string        `json:"user"`
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requested_at"`
}

// ChatMessage is a single chat entry. Messages are append-only and keep the
// order in which their confirming event arrived.
type ChatMessage struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id,omitempty"`
	User      string    `json:"user"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}
