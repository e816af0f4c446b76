package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/tradecircle/tradecircle/internal/model"
)

// Client talks to the Group/Trade/Chat Service over its request/response API.
// All methods return a FetchError on transport or server failure and an
// AuthorizationError when the server rejects an admin-only or author-only
// action; callers keep their caches untouched in either case.
type Client struct {
	http *resty.Client
	log  *zerolog.Logger
}

// New builds a client for the service at baseURL (e.g. "http://localhost:5001/api").
func New(baseURL string, timeout time.Duration, logger *zerolog.Logger) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: rc, log: logger}
}

// SetToken installs the bearer token returned by Login on all later calls.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

type errorBody struct {
	Error string `json:"error"`
}

// check converts a resty response into the client error taxonomy.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &FetchError{Op: op, Err: err}
	}
	if resp.IsSuccess() {
		return nil
	}

	msg := strings.TrimSpace(serverMessage(resp))
	if msg == "" {
		msg = resp.Status()
	}
	if resp.StatusCode() == http.StatusForbidden || resp.StatusCode() == http.StatusUnauthorized {
		return &AuthorizationError{Message: msg}
	}
	return &FetchError{Op: op, Err: errors.New(msg)}
}

func serverMessage(resp *resty.Response) string {
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		return body.Error
	}
	return ""
}

func (c *Client) req(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&errorBody{})
}

// Login validates credentials against the service and returns a session token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	resp, err := c.req(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		Post("/login")
	if err := check("login", resp, err); err != nil {
		return "", err
	}
	return out.Token, nil
}

// ListGroups returns the groups the user belongs to.
func (c *Client) ListGroups(ctx context.Context, user string) ([]model.Group, error) {
	var out struct {
		Groups []model.Group `json:"groups"`
	}
	resp, err := c.req(ctx).
		SetQueryParam("user", user).
		SetResult(&out).
		Get("/groups")
	if err := check("list groups", resp, err); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

// CreateGroup creates a group owned and administered by user.
func (c *Client) CreateGroup(ctx context.Context, name, description, user string) (model.Group, error) {
	var out struct {
		Group model.Group `json:"group"`
	}
	resp, err := c.req(ctx).
		SetBody(map[string]string{
			"name":        name,
			"description": description,
			"created_by":  user,
		}).
		SetResult(&out).
		Post("/groups")
	if err := check("create group", resp, err); err != nil {
		return model.Group{}, err
	}
	return out.Group, nil
}

// GroupDetail is the authoritative per-group snapshot: the ledger, the
// pending join requests visible to the caller, and the caller's admin flag.
type GroupDetail struct {
	Group           model.Group         `json:"group"`
	Trades          []model.Trade       `json:"trades"`
	PendingRequests []model.JoinRequest `json:"pending_requests"`
	IsAdmin         bool                `json:"is_admin"`
}

// FetchGroupDetail loads one group's detail relative to user.
func (c *Client) FetchGroupDetail(ctx context.Context, groupID, user string) (*GroupDetail, error) {
	var out GroupDetail
	resp, err := c.req(ctx).
		SetQueryParam("user", user).
		SetResult(&out).
		Get(fmt.Sprintf("/groups/%s", groupID))
	if err := check("fetch group detail", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchGroups lists every group with membership and pending-request flags
// relative to user.
func (c *Client) SearchGroups(ctx context.Context, user string) ([]model.GroupListing, error) {
	var out struct {
		Groups []model.GroupListing `json:"groups"`
	}
	resp, err := c.req(ctx).
		SetQueryParam("user", user).
		SetResult(&out).
		Get("/groups/search")
	if err := check("search groups", resp, err); err != nil {
		return nil, err
	}
	return out.Groups, nil
}

// CreateTrade submits a trade candidate and returns the canonical trade the
// server recorded. The server owns identity and timestamp.
func (c *Client) CreateTrade(ctx context.Context, candidate model.Trade) (model.Trade, error) {
	var out struct {
		Trade model.Trade `json:"trade"`
	}
	resp, err := c.req(ctx).
		SetBody(candidate).
		SetResult(&out).
		Post("/trades")
	if err := check("create trade", resp, err); err != nil {
		return model.Trade{}, err
	}
	return out.Trade, nil
}

// DeleteTrade deletes a trade by identity, attributed to user. The server
// enforces that only the author may delete.
func (c *Client) DeleteTrade(ctx context.Context, tradeID, user string) error {
	resp, err := c.req(ctx).
		SetQueryParam("user", user).
		Delete(fmt.Sprintf("/trades/%s", tradeID))
	return check("delete trade", resp, err)
}

// RequestJoin submits a join request for the group on behalf of user. The
// server rejects duplicates and requests from existing members; success must
// never be inferred from anything but a confirmed response.
func (c *Client) RequestJoin(ctx context.Context, groupID, user string) (model.JoinRequest, error) {
	var out struct {
		Request model.JoinRequest `json:"request"`
	}
	resp, err := c.req(ctx).
		SetBody(map[string]string{"user": user}).
		SetResult(&out).
		Post(fmt.Sprintf("/groups/%s/join", groupID))
	if err := check("request to join", resp, err); err != nil {
		return model.JoinRequest{}, err
	}
	return out.Request, nil
}

// ApproveRequest approves a pending join request, attributed to adminUser.
func (c *Client) ApproveRequest(ctx context.Context, groupID, requestID, adminUser string) error {
	resp, err := c.req(ctx).
		SetBody(map[string]string{"admin_user": adminUser}).
		Post(fmt.Sprintf("/groups/%s/join/%s/approve", groupID, requestID))
	return check("approve join request", resp, err)
}

// RejectRequest rejects a pending join request, attributed to adminUser.
func (c *Client) RejectRequest(ctx context.Context, groupID, requestID, adminUser string) error {
	resp, err := c.req(ctx).
		SetBody(map[string]string{"admin_user": adminUser}).
		Post(fmt.Sprintf("/groups/%s/join/%s/reject", groupID, requestID))
	return check("reject join request", resp, err)
}

// ChatHistory fetches the chat backlog for a group.
func (c *Client) ChatHistory(ctx context.Context, groupID, user string) ([]model.ChatMessage, error) {
	var out struct {
		Messages []model.ChatMessage `json:"messages"`
	}
	resp, err := c.req(ctx).
		SetQueryParam("user", user).
		SetResult(&out).
		Get(fmt.Sprintf("/groups/%s/chat", groupID))
	if err := check("fetch chat history", resp, err); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// PostChatMessage persists a chat message over the request/response fallback
// path and returns the canonical stored message.
func (c *Client) PostChatMessage(ctx context.Context, groupID, user, body string) (model.ChatMessage, error) {
	var out struct {
		Message model.ChatMessage `json:"message"`
	}
	resp, err := c.req(ctx).
		SetBody(map[string]string{"user": user, "message": body}).
		SetResult(&out).
		Post(fmt.Sprintf("/groups/%s/chat", groupID))
	if err := check("post chat message", resp, err); err != nil {
		return model.ChatMessage{}, err
	}
	return out.Message, nil
}
