package session

import (
	"context"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tradecircle/tradecircle/internal/api"
	"github.com/tradecircle/tradecircle/internal/chat"
	"github.com/tradecircle/tradecircle/internal/ledger"
	"github.com/tradecircle/tradecircle/internal/model"
	"github.com/tradecircle/tradecircle/internal/roster"
)

// Service is the full collaborator surface a session consumes. Satisfied by
// *api.Client.
type Service interface {
	ListGroups(ctx context.Context, user string) ([]model.Group, error)
	CreateGroup(ctx context.Context, name, description, user string) (model.Group, error)
	FetchGroupDetail(ctx context.Context, groupID, user string) (*api.GroupDetail, error)
	SearchGroups(ctx context.Context, user string) ([]model.GroupListing, error)

	ledger.TradeService
	roster.RequestService
	chat.Fallback
}

// Channel is the real-time chat surface a group session owns. Satisfied by
// *chat.Manager.
type Channel interface {
	Open(ctx context.Context) error
	Close(ctx context.Context)
	Send(ctx context.Context, body string) error
	Messages() []model.ChatMessage
	State() chat.State
	OnMessage(fn func(model.ChatMessage))
	OnNotice(fn func(error))
}

// Session is the logged-in user's application state. It replaces any ambient
// login flag: it exists from a successful login until Logout, and owns at
// most one live group session at a time.
type Session struct {
	user  string
	svc   Service
	wsURL string
	log   *zerolog.Logger

	// newChannel builds the chat channel for a group; swapped in tests.
	newChannel func(groupID string) Channel

	mu         sync.Mutex
	active     *GroupSession
	lastSearch []model.GroupListing
}

// Login authenticates against the service and returns a live session. The
// bearer token is installed on the client for all subsequent calls.
func Login(ctx context.Context, client *api.Client, wsURL, username, password string, logger *zerolog.Logger) (*Session, error) {
	token, err := client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	// The stream endpoint authenticates through the query string; browsers and
	// websocket dials cannot set an Authorization header.
	streamURL := wsURL
	if u, err := url.Parse(wsURL); err == nil {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
		streamURL = u.String()
	}

	s := &Session{
		user:  username,
		svc:   client,
		wsURL: streamURL,
		log:   logger,
	}
	s.newChannel = func(groupID string) Channel {
		return chat.NewManager(streamURL, username, groupID, client, logger)
	}
	logger.Info().Str("user", username).Msg("logged in")
	return s, nil
}

// User returns the acting user's identity.
func (s *Session) User() string {
	return s.user
}

// Groups lists the groups the user belongs to.
func (s *Session) Groups(ctx context.Context) ([]model.Group, error) {
	return s.svc.ListGroups(ctx, s.user)
}

// CreateGroup creates a group with the user as creator, member and admin.
func (s *Session) CreateGroup(ctx context.Context, name, description string) (model.Group, error) {
	if name == "" || description == "" {
		return model.Group{}, api.NewValidationError("please fill in all fields")
	}
	return s.svc.CreateGroup(ctx, name, description, s.user)
}

// Search lists all groups with membership and pending-request flags and
// retains the result as the current search view.
func (s *Session) Search(ctx context.Context) ([]model.GroupListing, error) {
	listings, err := s.svc.SearchGroups(ctx, s.user)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lastSearch = listings
	s.mu.Unlock()
	return listings, nil
}

// RequestToJoin petitions to join a group from the search view. On success
// the listing is flagged request-pending; group membership itself changes
// only when an admin approves.
func (s *Session) RequestToJoin(ctx context.Context, groupID string) error {
	if _, err := roster.RequestToJoin(ctx, s.svc, groupID, s.user); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lastSearch {
		if s.lastSearch[i].ID == groupID {
			s.lastSearch[i].HasPendingRequest = true
		}
	}
	return nil
}

// SearchView returns the retained search listings, including any pending
// flags set since the fetch.
func (s *Session) SearchView() []model.GroupListing {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.GroupListing, len(s.lastSearch))
	copy(out, s.lastSearch)
	return out
}

// Open selects a group: the previous group session, if any, is torn down,
// and a fresh one is created, loaded and connected. Exactly one group
// session is live at a time.
func (s *Session) Open(ctx context.Context, group model.Group) (*GroupSession, error) {
	s.Close(ctx)

	gs := &GroupSession{
		group:   group,
		user:    s.user,
		svc:     s.svc,
		ledger:  ledger.New(s.svc, group.ID, s.user, s.log),
		roster:  roster.New(s.svc, group.ID, s.user, s.log),
		channel: s.newChannel(group.ID),
		log:     s.log,
	}

	if err := gs.Load(ctx); err != nil {
		return nil, err
	}
	if err := gs.channel.Open(ctx); err != nil {
		// The session is still usable: sends degrade to the fallback path.
		s.log.Warn().Err(err).Str("group_id", group.ID).Msg("chat channel unavailable, using fallback")
	}

	s.mu.Lock()
	s.active = gs
	s.mu.Unlock()
	return gs, nil
}

// Active returns the live group session, or nil when viewing the group list.
func (s *Session) Active() *GroupSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close tears down the active group session: leave-room notification, closed
// transport, discarded caches. In-flight calls are not cancelled; their late
// completions have no session to land in and are dropped.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	gs := s.active
	s.active = nil
	s.mu.Unlock()

	if gs != nil {
		gs.Close(ctx)
	}
}

// Logout destroys the session. The session value must not be used afterwards.
func (s *Session) Logout(ctx context.Context) {
	s.Close(ctx)
	s.log.Info().Str("user", s.user).Msg("logged out")
}
