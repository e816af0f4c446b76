package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/tradecircle/tradecircle/internal/api"
	"github.com/tradecircle/tradecircle/internal/model"
	"github.com/tradecircle/tradecircle/internal/proto"
)

// State is the connection lifecycle of the chat channel for the active group.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	JoinedRoom
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case JoinedRoom:
		return "joined"
	default:
		return "disconnected"
	}
}

// ChannelError reports a transport-level failure of the real-time channel.
type ChannelError struct {
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("chat channel: %v", e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// Fallback is the request/response path used for the history backlog and for
// sends while the stream is not joined. Satisfied by *api.Client.
type Fallback interface {
	ChatHistory(ctx context.Context, groupID, user string) ([]model.ChatMessage, error)
	PostChatMessage(ctx context.Context, groupID, user, body string) (model.ChatMessage, error)
}

// Manager owns the real-time chat connection for exactly one group. It drives
// the Disconnected -> Connecting -> Connected -> JoinedRoom state machine,
// merges inbound messages in arrival order, and degrades to the fallback path
// when the stream is unavailable. A manager is not reusable after Close; the
// session controller creates a fresh one per group.
type Manager struct {
	url      string
	user     string
	groupID  string
	fallback Fallback
	log      *zerolog.Logger

	mu        sync.Mutex
	onMessage func(model.ChatMessage)
	onNotice  func(error)
	state     State
	conn      *websocket.Conn
	messages  []model.ChatMessage
	seen      map[string]struct{}
	closed    bool
	cancel    context.CancelFunc
}

// NewManager builds a channel manager for one group. Open must be called
// before messages flow.
func NewManager(url, user, groupID string, fallback Fallback, logger *zerolog.Logger) *Manager {
	return &Manager{
		url:      url,
		user:     user,
		groupID:  groupID,
		fallback: fallback,
		log:      logger,
		seen:     make(map[string]struct{}),
	}
}

// OnMessage registers a callback invoked for every message appended to the
// sequence, stream or fallback path alike. Safe to call while the channel is
// open; messages appended before registration are not replayed, fetch them
// through Messages.
func (m *Manager) OnMessage(fn func(model.ChatMessage)) {
	m.mu.Lock()
	m.onMessage = fn
	m.mu.Unlock()
}

// OnNotice registers a callback for surfaced channel failures. Safe to call
// while the channel is open.
func (m *Manager) OnNotice(fn func(error)) {
	m.mu.Lock()
	m.onNotice = fn
	m.mu.Unlock()
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Messages returns a snapshot of the message sequence in arrival order.
func (m *Manager) Messages() []model.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ChatMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Open dials the stream and emits the join-room handshake. It returns once
// the transport is connected; JoinedRoom is reached asynchronously when the
// server acknowledges the handshake, which also triggers the backlog fetch.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return &ChannelError{Err: errors.New("channel already closed")}
	}
	m.state = Connecting
	m.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, m.url, nil)
	if err != nil {
		m.mu.Lock()
		m.state = Disconnected
		m.mu.Unlock()
		return &ChannelError{Err: fmt.Errorf("dial: %w", err)}
	}

	pumpCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.conn = conn
	m.cancel = cancel
	m.state = Connected
	m.mu.Unlock()

	join, err := proto.NewInbound(proto.InboundTypeJoin, proto.JoinData{
		User:    m.user,
		GroupID: m.groupID,
	})
	if err != nil {
		m.teardown(conn, cancel)
		return &ChannelError{Err: err}
	}
	if err := wsjson.Write(ctx, conn, join); err != nil {
		m.teardown(conn, cancel)
		return &ChannelError{Err: fmt.Errorf("join handshake: %w", err)}
	}

	go m.readLoop(pumpCtx, conn)
	return nil
}

// Send delivers a chat message. While JoinedRoom the body goes out over the
// stream fire-and-forget; the canonical copy comes back through the inbound
// event so every member sees one ordering. In any other state the fallback
// call persists the message and its confirmed result is appended directly.
func (m *Manager) Send(ctx context.Context, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return api.NewValidationError("message cannot be empty")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return &ChannelError{Err: errors.New("channel already closed")}
	}
	state := m.state
	conn := m.conn
	m.mu.Unlock()

	if state == JoinedRoom && conn != nil {
		send, err := proto.NewInbound(proto.InboundTypeSend, proto.SendData{
			User:    m.user,
			GroupID: m.groupID,
			Body:    body,
		})
		if err != nil {
			return &ChannelError{Err: err}
		}
		if err := wsjson.Write(ctx, conn, send); err != nil {
			m.transportLost(err)
			return &ChannelError{Err: fmt.Errorf("stream send: %w", err)}
		}
		return nil
	}

	msg, err := m.fallback.PostChatMessage(ctx, m.groupID, m.user, body)
	if err != nil {
		return err
	}
	m.append(msg)
	return nil
}

// Close tears the channel down: a best-effort leave-room notification, then
// the transport is closed regardless of state. Events arriving afterwards
// are dropped.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	conn := m.conn
	cancel := m.cancel
	m.conn = nil
	m.state = Disconnected
	m.mu.Unlock()

	if conn != nil {
		if leave, err := proto.NewInbound(proto.InboundTypeLeave, proto.LeaveData{
			User:    m.user,
			GroupID: m.groupID,
		}); err == nil {
			writeCtx, done := context.WithTimeout(ctx, time.Second)
			_ = wsjson.Write(writeCtx, conn, leave)
			done()
		}
		_ = conn.Close(websocket.StatusNormalClosure, "leaving")
	}
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var event proto.Outbound
		if err := wsjson.Read(ctx, conn, &event); err != nil {
			m.transportLost(err)
			return
		}
		m.handle(ctx, event)
	}
}

func (m *Manager) handle(ctx context.Context, event proto.Outbound) {
	if event.Type == proto.OutboundTypeError {
		msg := "channel error"
		if event.Error != nil {
			msg = event.Error.Msg
		}
		m.log.Warn().Str("group_id", m.groupID).Str("error", msg).Msg("channel error event")
		m.notify(&ChannelError{Err: errors.New(msg)})
		return
	}

	switch event.Event {
	case proto.EventConnected:
		m.log.Debug().Str("group_id", m.groupID).Msg("chat server greeting received")

	case proto.EventJoined:
		var joined proto.JoinedData
		if err := unmarshalEvent(event, &joined); err != nil {
			m.log.Warn().Err(err).Msg("malformed joined event")
			return
		}
		if joined.GroupID != m.groupID {
			return
		}
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		m.state = JoinedRoom
		m.mu.Unlock()
		m.log.Info().Str("group_id", m.groupID).Str("group_name", joined.GroupName).Msg("joined group chat")
		// The stream only carries messages from this moment on; the backlog
		// comes over the fallback path.
		m.fetchBacklog(ctx)

	case proto.EventMessage:
		var delivered proto.MessageData
		if err := unmarshalEvent(event, &delivered); err != nil {
			m.log.Warn().Err(err).Msg("malformed message event")
			return
		}
		// Only the active group's room is served; anything else is discarded.
		if delivered.GroupID != m.groupID {
			return
		}
		m.append(delivered.Message)
	}
}

func (m *Manager) fetchBacklog(ctx context.Context) {
	history, err := m.fallback.ChatHistory(ctx, m.groupID, m.user)
	if err != nil {
		m.notify(err)
		return
	}
	for _, msg := range history {
		m.append(msg)
	}
}

// append adds a message to the sequence in arrival order, dropping it when
// the channel is closed or the identity was already delivered through the
// other path.
func (m *Manager) append(msg model.ChatMessage) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if msg.ID != "" {
		if _, dup := m.seen[msg.ID]; dup {
			m.mu.Unlock()
			return
		}
		m.seen[msg.ID] = struct{}{}
	}
	m.messages = append(m.messages, msg)
	fn := m.onMessage
	m.mu.Unlock()

	if fn != nil {
		fn(msg)
	}
}

func (m *Manager) transportLost(err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.state = Disconnected
	m.conn = nil
	m.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		return
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return
	}
	m.log.Warn().Err(err).Str("group_id", m.groupID).Msg("chat transport lost")
	m.notify(&ChannelError{Err: err})
}

func (m *Manager) teardown(conn *websocket.Conn, cancel context.CancelFunc) {
	m.mu.Lock()
	m.state = Disconnected
	m.conn = nil
	m.mu.Unlock()
	_ = conn.Close(websocket.StatusInternalError, "handshake failed")
	cancel()
}

func (m *Manager) notify(err error) {
	m.mu.Lock()
	fn := m.onNotice
	m.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func unmarshalEvent(event proto.Outbound, v any) error {
	if len(event.Data) == 0 {
		return errors.New("empty event payload")
	}
	return json.Unmarshal(event.Data, v)
}
