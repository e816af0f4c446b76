package core

import "github.com/tradecircle/tradecircle/internal/model"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventJoined confirms to a client that it joined a group's chat room.
	EventJoined EventKind = iota
	// EventMessage notifies room participants about a chat message.
	EventMessage
	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind      EventKind
	GroupID   string
	GroupName string
	Message   model.ChatMessage
	Error     *CoreError
}
