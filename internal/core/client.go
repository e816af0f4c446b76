package core

import "sync"

// Client is a chat participant as seen by the core layer.
type Client struct {
	ID       string
	Name     string
	Commands chan *Command
	Events   chan *Event
	Groups   map[string]struct{}

	done     chan struct{}
	stopOnce sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id, name string) *Client {
	if name == "" {
		name = id
	}
	return &Client{
		ID:       id,
		Name:     name,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 8),
		Groups:   make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// stop releases the pump goroutine serving this client. Idempotent.
func (c *Client) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}
