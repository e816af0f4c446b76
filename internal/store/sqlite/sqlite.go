package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/tradecircle/tradecircle/internal/model"
	"github.com/tradecircle/tradecircle/internal/store"
	"github.com/tradecircle/tradecircle/internal/utils"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS groups (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL,
	admin       TEXT NOT NULL,
	created_by  TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id  TEXT NOT NULL REFERENCES groups(id),
	username  TEXT NOT NULL,
	joined_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (group_id, username)
);

CREATE TABLE IF NOT EXISTS trades (
	id         TEXT PRIMARY KEY,
	group_id   TEXT NOT NULL REFERENCES groups(id),
	symbol     TEXT NOT NULL,
	quantity   TEXT NOT NULL,
	price      TEXT NOT NULL,
	side       TEXT NOT NULL,
	username   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS join_requests (
	id           TEXT PRIMARY KEY,
	group_id     TEXT NOT NULL REFERENCES groups(id),
	username     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	requested_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         TEXT PRIMARY KEY,
	group_id   TEXT NOT NULL REFERENCES groups(id),
	username   TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_group ON trades(group_id, created_at);
CREATE INDEX IF NOT EXISTS idx_requests_group ON join_requests(group_id, status);
CREATE INDEX IF NOT EXISTS idx_messages_group ON chat_messages(group_id, created_at);
`

// New creates a SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (id, username, password_hash)
		VALUES (?, ?, ?)
	`
	id := utils.NewID()
	if _, err := s.db.ExecContext(ctx, query, id, username, passwordHash); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByUsername(ctx, username)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== GroupStore implementation ====

// CreateGroup creates a group with the creator as sole member and admin.
func (s *SQLiteStore) CreateGroup(ctx context.Context, name, description, creator string) (*model.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	id := utils.NewID()
	now := time.Now().UTC()

	query := `
		INSERT INTO groups (id, name, description, admin, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, id, name, description, creator, creator, now); err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}

	memberQuery := `
		INSERT INTO group_members (group_id, username)
		VALUES (?, ?)
	`
	if _, err := tx.ExecContext(ctx, memberQuery, id, creator); err != nil {
		return nil, fmt.Errorf("add creator to members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetGroupByID(ctx, id)
}

// GetGroupByID retrieves a group by ID, members included.
func (s *SQLiteStore) GetGroupByID(ctx context.Context, id string) (*model.Group, error) {
	query := `
		SELECT id, name, description, admin, created_by, created_at
		FROM groups
		WHERE id = ?
	`
	var g model.Group
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID,
		&g.Name,
		&g.Description,
		&g.Admin,
		&g.CreatedBy,
		&g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group not found: %w", err)
		}
		return nil, fmt.Errorf("query group: %w", err)
	}

	members, err := s.listMembers(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	g.Members = members

	return &g, nil
}

// ListGroupsForUser lists the groups the user is a member of.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, user string) ([]model.Group, error) {
	query := `
		SELECT g.id, g.name, g.description, g.admin, g.created_by, g.created_at
		FROM groups g
		JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.username = ?
		ORDER BY g.created_at ASC
	`
	return s.queryGroups(ctx, query, user)
}

// ListAllGroups lists every group, members included.
func (s *SQLiteStore) ListAllGroups(ctx context.Context) ([]model.Group, error) {
	query := `
		SELECT id, name, description, admin, created_by, created_at
		FROM groups
		ORDER BY created_at ASC
	`
	return s.queryGroups(ctx, query)
}

func (s *SQLiteStore) queryGroups(ctx context.Context, query string, args ...any) ([]model.Group, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Admin, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		members, err := s.listMembers(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].Members = members
	}

	return groups, nil
}

// AddMember adds a user to a group's membership.
func (s *SQLiteStore) AddMember(ctx context.Context, groupID, user string) error {
	query := `
		INSERT OR IGNORE INTO group_members (group_id, username)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, groupID, user); err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}
	return nil
}

// IsMember checks whether user belongs to the group.
func (s *SQLiteStore) IsMember(ctx context.Context, groupID, user string) (bool, error) {
	query := `
		SELECT 1 FROM group_members
		WHERE group_id = ? AND username = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, groupID, user).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query membership: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) listMembers(ctx context.Context, groupID string) ([]string, error) {
	query := `
		SELECT username FROM group_members
		WHERE group_id = ?
		ORDER BY joined_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, username)
	}

	return members, rows.Err()
}

// ==== TradeStore implementation ====

// SaveTrade persists a trade and stamps its ID and creation time.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *model.Trade) error {
	if trade.ID == "" {
		trade.ID = utils.NewID()
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO trades (id, group_id, symbol, quantity, price, side, username, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		trade.ID,
		trade.GroupID,
		trade.Symbol,
		string(trade.Quantity),
		trade.Price.String(),
		string(trade.Side),
		trade.User,
		trade.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetTradeByID retrieves a trade by ID.
func (s *SQLiteStore) GetTradeByID(ctx context.Context, id string) (*model.Trade, error) {
	query := `
		SELECT id, group_id, symbol, quantity, price, side, username, created_at
		FROM trades
		WHERE id = ?
	`
	trade, err := scanTrade(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trade not found: %w", err)
		}
		return nil, fmt.Errorf("query trade: %w", err)
	}
	return trade, nil
}

// ListTradesForGroup lists a group's trades oldest first.
func (s *SQLiteStore) ListTradesForGroup(ctx context.Context, groupID string) ([]model.Trade, error) {
	query := `
		SELECT id, group_id, symbol, quantity, price, side, username, created_at
		FROM trades
		WHERE group_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return s.queryTrades(ctx, query, groupID)
}

// ListTradesForUser lists all trades by a user across groups.
func (s *SQLiteStore) ListTradesForUser(ctx context.Context, user string) ([]model.Trade, error) {
	query := `
		SELECT id, group_id, symbol, quantity, price, side, username, created_at
		FROM trades
		WHERE username = ?
		ORDER BY created_at ASC, id ASC
	`
	return s.queryTrades(ctx, query, user)
}

func (s *SQLiteStore) queryTrades(ctx context.Context, query string, args ...any) ([]model.Trade, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, *trade)
	}

	return trades, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*model.Trade, error) {
	var t model.Trade
	var quantity, price, side string
	if err := row.Scan(&t.ID, &t.GroupID, &t.Symbol, &quantity, &price, &side, &t.User, &t.CreatedAt); err != nil {
		return nil, err
	}

	t.Quantity = model.QuantityBucket(quantity)
	t.Side = model.Side(side)

	dec, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	t.Price = dec

	return &t, nil
}

// DeleteTrade removes a trade.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, id string) error {
	query := `DELETE FROM trades WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("trade not found")
	}
	return nil
}

// ==== JoinRequestStore implementation ====

// CreateJoinRequest records a pending join request.
func (s *SQLiteStore) CreateJoinRequest(ctx context.Context, groupID, user string) (*model.JoinRequest, error) {
	id := utils.NewID()
	now := time.Now().UTC()

	query := `
		INSERT INTO join_requests (id, group_id, username, status, requested_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, groupID, user, string(model.RequestPending), now); err != nil {
		return nil, fmt.Errorf("insert join request: %w", err)
	}

	return s.GetJoinRequest(ctx, id)
}

// GetJoinRequest retrieves a request by ID.
func (s *SQLiteStore) GetJoinRequest(ctx context.Context, id string) (*model.JoinRequest, error) {
	query := `
		SELECT id, group_id, username, status, requested_at
		FROM join_requests
		WHERE id = ?
	`
	var r model.JoinRequest
	var status string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.GroupID, &r.User, &status, &r.RequestedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("join request not found: %w", err)
		}
		return nil, fmt.Errorf("query join request: %w", err)
	}
	r.Status = model.RequestStatus(status)
	return &r, nil
}

// GetPendingRequest retrieves the user's pending request for a group, if any.
func (s *SQLiteStore) GetPendingRequest(ctx context.Context, groupID, user string) (*model.JoinRequest, error) {
	query := `
		SELECT id, group_id, username, status, requested_at
		FROM join_requests
		WHERE group_id = ? AND username = ? AND status = 'pending'
	`
	var r model.JoinRequest
	var status string
	err := s.db.QueryRowContext(ctx, query, groupID, user).Scan(&r.ID, &r.GroupID, &r.User, &status, &r.RequestedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query pending request: %w", err)
	}
	r.Status = model.RequestStatus(status)
	return &r, nil
}

// ListPendingRequests lists a group's pending requests oldest first.
func (s *SQLiteStore) ListPendingRequests(ctx context.Context, groupID string) ([]model.JoinRequest, error) {
	query := `
		SELECT id, group_id, username, status, requested_at
		FROM join_requests
		WHERE group_id = ? AND status = 'pending'
		ORDER BY requested_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query pending requests: %w", err)
	}
	defer rows.Close()

	var requests []model.JoinRequest
	for rows.Next() {
		var r model.JoinRequest
		var status string
		if err := rows.Scan(&r.ID, &r.GroupID, &r.User, &status, &r.RequestedAt); err != nil {
			return nil, fmt.Errorf("scan join request: %w", err)
		}
		r.Status = model.RequestStatus(status)
		requests = append(requests, r)
	}

	return requests, rows.Err()
}

// UpdateRequestStatus moves a request to a terminal status. Only pending
// requests transition; resolved ones stay resolved.
func (s *SQLiteStore) UpdateRequestStatus(ctx context.Context, id string, status model.RequestStatus) error {
	query := `
		UPDATE join_requests
		SET status = ?
		WHERE id = ? AND status = 'pending'
	`
	result, err := s.db.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("join request not pending")
	}
	return nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message and stamps its ID and creation time.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = utils.NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO chat_messages (id, group_id, username, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, msg.ID, msg.GroupID, msg.User, msg.Body, msg.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages lists a group's messages oldest first. A limit of 0 means no
// limit.
func (s *SQLiteStore) ListMessages(ctx context.Context, groupID string, limit int) ([]model.ChatMessage, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, group_id, username, body, created_at
		FROM chat_messages
		WHERE group_id = ?
		ORDER BY created_at ASC, id ASC
	`)
	args := []any{groupID}
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.GroupID, &m.User, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
