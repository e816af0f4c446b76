package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinGroup subscribes the client to a group's chat room.
	CommandJoinGroup CommandKind = iota
	// CommandLeaveGroup unsubscribes the client from a group's chat room.
	CommandLeaveGroup
	// CommandSendMessage delivers a chat message to room participants.
	CommandSendMessage
)

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	GroupID string
	Body    string
}
