package store

import (
	"context"
	"time"

	"github.com/tradecircle/tradecircle/internal/model"
)

// User represents a registered user.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// GroupStore handles group and membership persistence.
type GroupStore interface {
	// CreateGroup creates a group with the creator as sole member and admin.
	CreateGroup(ctx context.Context, name, description, creator string) (*model.Group, error)

	// GetGroupByID retrieves a group by ID, members included.
	GetGroupByID(ctx context.Context, id string) (*model.Group, error)

	// ListGroupsForUser lists the groups the user is a member of.
	ListGroupsForUser(ctx context.Context, user string) ([]model.Group, error)

	// ListAllGroups lists every group, members included.
	ListAllGroups(ctx context.Context) ([]model.Group, error)

	// AddMember adds a user to a group's membership.
	AddMember(ctx context.Context, groupID, user string) error

	// IsMember checks whether user belongs to the group.
	IsMember(ctx context.Context, groupID, user string) (bool, error)
}

// TradeStore handles trade persistence.
type TradeStore interface {
	// SaveTrade persists a trade and stamps its ID and creation time.
	SaveTrade(ctx context.Context, trade *model.Trade) error

	// GetTradeByID retrieves a trade by ID.
	GetTradeByID(ctx context.Context, id string) (*model.Trade, error)

	// ListTradesForGroup lists a group's trades oldest first.
	ListTradesForGroup(ctx context.Context, groupID string) ([]model.Trade, error)

	// ListTradesForUser lists all trades by a user across groups.
	ListTradesForUser(ctx context.Context, user string) ([]model.Trade, error)

	// DeleteTrade removes a trade.
	DeleteTrade(ctx context.Context, id string) error
}

// JoinRequestStore handles join-request persistence.
type JoinRequestStore interface {
	// CreateJoinRequest records a pending join request.
	CreateJoinRequest(ctx context.Context, groupID, user string) (*model.JoinRequest, error)

	// GetJoinRequest retrieves a request by ID.
	GetJoinRequest(ctx context.Context, id string) (*model.JoinRequest, error)

	// GetPendingRequest retrieves the user's pending request for a group, if any.
	GetPendingRequest(ctx context.Context, groupID, user string) (*model.JoinRequest, error)

	// ListPendingRequests lists a group's pending requests oldest first.
	ListPendingRequests(ctx context.Context, groupID string) ([]model.JoinRequest, error)

	// UpdateRequestStatus moves a request to a terminal status.
	UpdateRequestStatus(ctx context.Context, id string, status model.RequestStatus) error
}

// MessageStore handles chat message persistence.
type MessageStore interface {
	// SaveMessage persists a message and stamps its ID and creation time.
	SaveMessage(ctx context.Context, msg *model.ChatMessage) error

	// ListMessages lists a group's messages oldest first.
	ListMessages(ctx context.Context, groupID string, limit int) ([]model.ChatMessage, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	GroupStore
	TradeStore
	JoinRequestStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
