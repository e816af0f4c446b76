package proto

import (
	"encoding/json"
	"fmt"

	"github.com/tradecircle/tradecircle/internal/model"
)

// Inbound is the envelope for commands travelling client -> server.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin  = "join_group_chat"
	InboundTypeLeave = "leave_group_chat"
	InboundTypeSend  = "send_message"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventConnected = "connected"
	EventJoined    = "joined_group_chat"
	EventMessage   = "new_message"
)

// JoinData requests membership of a group's chat room.
type JoinData struct {
	User    string `json:"user"`
	GroupID string `json:"group_id"`
}

// LeaveData announces departure from a group's chat room. Best effort; the
// server never acknowledges it.
type LeaveData struct {
	User    string `json:"user"`
	GroupID string `json:"group_id"`
}

// SendData is a chat message on its way to the room.
type SendData struct {
	User    string `json:"user"`
	GroupID string `json:"group_id"`
	Body    string `json:"message"`
}

// Outbound is the envelope for events travelling server -> client.
type Outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// ConnectedData greets a freshly opened connection.
type ConnectedData struct {
	Message string `json:"message"`
}

// JoinedData acknowledges a join handshake with the room's group metadata.
type JoinedData struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
}

// MessageData delivers one chat message to every member of the room.
type MessageData struct {
	GroupID string            `json:"group_id"`
	Message model.ChatMessage `json:"message"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// NewInbound wraps a command payload in an Inbound envelope.
func NewInbound(kind string, data any) (Inbound, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Inbound{}, fmt.Errorf("marshal %s: %w", kind, err)
	}
	return Inbound{Type: kind, Data: raw}, nil
}

// NewEvent wraps an event payload in an Outbound envelope.
func NewEvent(event string, data any) (Outbound, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Outbound{}, fmt.Errorf("marshal %s: %w", event, err)
	}
	return Outbound{Type: OutboundTypeEvent, Event: event, Data: raw}, nil
}

// NewError wraps a protocol error in an Outbound envelope.
func NewError(code, msg string) Outbound {
	return Outbound{Type: OutboundTypeError, Error: &Error{Code: code, Msg: msg}}
}
