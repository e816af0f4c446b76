package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradecircle/tradecircle/internal/model"
	"github.com/tradecircle/tradecircle/internal/utils"
)

// Storage is the persistence surface the hub needs: membership checks on
// join and send, message persistence before broadcast. A nil Storage skips
// both, which is enough for in-memory tests.
type Storage interface {
	GetGroupByID(ctx context.Context, id string) (*model.Group, error)
	IsMember(ctx context.Context, groupID, user string) (bool, error)
	SaveMessage(ctx context.Context, msg *model.ChatMessage) error
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub coordinates chat rooms. All state is owned by the Run goroutine;
// clients talk to it exclusively through channels.
type Hub struct {
	storage Storage
	log     *zerolog.Logger

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	publishes  chan model.ChatMessage

	rooms map[string]*Room
}

// NewHub creates a new chat hub instance.
func NewHub(storage Storage, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		storage:    storage,
		log:        logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan clientCommand, 64),
		publishes:  make(chan model.ChatMessage, 64),
		rooms:      make(map[string]*Room),
	}
}

// RegisterClient attaches a client to the hub and starts pumping its commands.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient detaches a client, removing it from every room it joined.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// Publish broadcasts an already-persisted message to the group's room, if
// anyone is in it. Used by the request/response chat path so stream clients
// still see those messages.
func (h *Hub) Publish(msg model.ChatMessage) {
	select {
	case h.publishes <- msg:
	default:
		// Drop under backpressure; clients recover via history fetch.
	}
}

// Run owns the hub state until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			go h.pump(ctx, c)
			h.log.Debug().Str("client_id", c.ID).Str("user", c.Name).Msg("client registered")
		case c := <-h.unregister:
			h.detach(c)
		case cc := <-h.commands:
			h.dispatch(ctx, cc.client, cc.cmd)
		case msg := <-h.publishes:
			if room, exists := h.rooms[msg.GroupID]; exists {
				room.Broadcast(&Event{Kind: EventMessage, GroupID: msg.GroupID, Message: msg})
			}
		}
	}
}

// pump forwards one client's commands into the hub loop. It exits when the
// hub shuts down, the client's command channel is closed, or the client is
// unregistered.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoinGroup:
		h.handleJoin(ctx, c, cmd)
	case CommandLeaveGroup:
		h.handleLeave(c, cmd)
	case CommandSendMessage:
		h.handleSend(ctx, c, cmd)
	default:
		h.sendError(c, coreError(ErrCodeBadRequest, "unknown command"))
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, cmd *Command) {
	if cmd.GroupID == "" {
		h.sendError(c, coreError(ErrCodeBadRequest, "group id is required"))
		return
	}
	if _, joined := c.Groups[cmd.GroupID]; joined {
		h.sendError(c, coreError(ErrCodeAlreadyJoined, "already in this group chat"))
		return
	}

	groupName := cmd.GroupID
	if h.storage != nil {
		group, err := h.storage.GetGroupByID(ctx, cmd.GroupID)
		if err != nil {
			h.sendError(c, coreError(ErrCodeGroupNotFound, "group not found"))
			return
		}
		ok, err := h.storage.IsMember(ctx, cmd.GroupID, c.Name)
		if err != nil || !ok {
			h.sendError(c, coreError(ErrCodeNotAMember, "you are not a member of this group"))
			return
		}
		groupName = group.Name
	}

	room, exists := h.rooms[cmd.GroupID]
	if !exists {
		room = NewRoom(cmd.GroupID)
		h.rooms[cmd.GroupID] = room
	}
	room.AddClient(c)
	c.Groups[cmd.GroupID] = struct{}{}

	// Join confirmation goes to the requester only.
	select {
	case c.Events <- &Event{Kind: EventJoined, GroupID: cmd.GroupID, GroupName: groupName}:
	default:
	}
	h.log.Debug().Str("user", c.Name).Str("group_id", cmd.GroupID).Msg("joined group chat")
}

func (h *Hub) handleLeave(c *Client, cmd *Command) {
	room, exists := h.rooms[cmd.GroupID]
	if !exists {
		h.sendError(c, coreError(ErrCodeGroupNotFound, "group chat not found"))
		return
	}
	if _, joined := c.Groups[cmd.GroupID]; !joined {
		h.sendError(c, coreError(ErrCodeNotInChat, "not in this group chat"))
		return
	}

	room.RemoveClient(c)
	delete(c.Groups, cmd.GroupID)
	if room.Empty() {
		delete(h.rooms, cmd.GroupID)
	}
	h.log.Debug().Str("user", c.Name).Str("group_id", cmd.GroupID).Msg("left group chat")
}

func (h *Hub) handleSend(ctx context.Context, c *Client, cmd *Command) {
	if cmd.Body == "" {
		h.sendError(c, coreError(ErrCodeBadRequest, "message body is required"))
		return
	}
	if _, joined := c.Groups[cmd.GroupID]; !joined {
		h.sendError(c, coreError(ErrCodeNotInChat, "not in this group chat"))
		return
	}

	msg := model.ChatMessage{
		GroupID: cmd.GroupID,
		User:    c.Name,
		Body:    cmd.Body,
	}
	if h.storage != nil {
		if err := h.storage.SaveMessage(ctx, &msg); err != nil {
			h.log.Error().Err(err).Str("group_id", cmd.GroupID).Msg("failed to persist message")
			h.sendError(c, coreError(ErrCodeBadRequest, "failed to save message"))
			return
		}
	} else {
		msg.ID = utils.NewID()
		msg.CreatedAt = time.Now().UTC()
	}

	if room, exists := h.rooms[cmd.GroupID]; exists {
		room.Broadcast(&Event{Kind: EventMessage, GroupID: cmd.GroupID, Message: msg})
	}
}

func (h *Hub) detach(c *Client) {
	for groupID := range c.Groups {
		if room, exists := h.rooms[groupID]; exists {
			room.RemoveClient(c)
			if room.Empty() {
				delete(h.rooms, groupID)
			}
		}
	}
	c.Groups = make(map[string]struct{})
	c.stop()
	h.log.Debug().Str("client_id", c.ID).Msg("client unregistered")
}

func (h *Hub) sendError(c *Client, cerr *CoreError) {
	select {
	case c.Events <- &Event{Kind: EventError, Error: cerr}:
	default:
	}
}
