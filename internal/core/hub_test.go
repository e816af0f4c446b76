package core

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"
)

func TestHubJoinBroadcastAndLeave(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub := NewHub(nil, nil) // no storage needed for this test
	go hub.Run(ctx)

	alex := NewClient("a", "alex")
	cory := NewClient("c", "cory")

	hub.RegisterClient(alex)
	hub.RegisterClient(cory)

	alex.Commands <- &Command{Kind: CommandJoinGroup, GroupID: "g1"}
	cory.Commands <- &Command{Kind: CommandJoinGroup, GroupID: "g1"}

	joinEv := mustEvent(t, cory.Events, EventJoined)
	if joinEv.GroupID != "g1" {
		t.Fatalf("unexpected join event: %+v", joinEv)
	}

	alex.Commands <- &Command{
		Kind:    CommandSendMessage,
		GroupID: "g1",
		Body:    "hi",
	}

	msgEv := mustEvent(t, cory.Events, EventMessage)
	if msgEv.Message.Body != "hi" || msgEv.Message.GroupID != "g1" || msgEv.Message.User != "alex" {
		t.Fatalf("unexpected message event: %+v", msgEv)
	}
	if msgEv.Message.ID == "" || msgEv.Message.CreatedAt.IsZero() {
		t.Fatalf("expected stamped message, got %+v", msgEv.Message)
	}

	// Leaving stops delivery for the departed client only.
	alex.Commands <- &Command{Kind: CommandLeaveGroup, GroupID: "g1"}

	cory.Commands <- &Command{
		Kind:    CommandSendMessage,
		GroupID: "g1",
		Body:    "still here",
	}
	stillEv := mustEvent(t, cory.Events, EventMessage)
	if stillEv.Message.Body != "still here" {
		t.Fatalf("unexpected message event: %+v", stillEv)
	}
}

func TestHubDoubleJoinProducesError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	alex := NewClient("a", "alex")
	hub.RegisterClient(alex)

	alex.Commands <- &Command{Kind: CommandJoinGroup, GroupID: "g1"}
	alex.Commands <- &Command{Kind: CommandJoinGroup, GroupID: "g1"}

	ev := mustEvent(t, alex.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeAlreadyJoined {
		t.Fatalf("expected already_joined error, got %+v", ev)
	}
}

func TestHubSendWithoutJoinProducesError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	alex := NewClient("a", "alex")
	hub.RegisterClient(alex)

	alex.Commands <- &Command{
		Kind:    CommandSendMessage,
		GroupID: "g1",
		Body:    "hi",
	}

	ev := mustEvent(t, alex.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotInChat {
		t.Fatalf("expected not_in_chat error, got %+v", ev)
	}
}

func TestHubLeaveUnknownGroupError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	alex := NewClient("a", "alex")
	hub.RegisterClient(alex)

	alex.Commands <- &Command{Kind: CommandLeaveGroup, GroupID: "ghost"}

	ev := mustEvent(t, alex.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeGroupNotFound {
		t.Fatalf("expected group_not_found error, got %+v", ev)
	}
}

func TestHubUnregisterRemovesFromRooms(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	alex := NewClient("a", "alex")
	cory := NewClient("c", "cory")
	hub.RegisterClient(alex)
	hub.RegisterClient(cory)

	alex.Commands <- &Command{Kind: CommandJoinGroup, GroupID: "g1"}
	cory.Commands <- &Command{Kind: CommandJoinGroup, GroupID: "g1"}
	mustEvent(t, alex.Events, EventJoined)
	mustEvent(t, cory.Events, EventJoined)

	hub.UnregisterClient(alex)

	cory.Commands <- &Command{Kind: CommandSendMessage, GroupID: "g1", Body: "bye"}
	mustEvent(t, cory.Events, EventMessage)

	select {
	case ev := <-alex.Events:
		if ev.Kind == EventMessage {
			t.Fatalf("unregistered client received message: %+v", ev)
		}
	default:
	}
}

func TestHubUnregisterStopsPump(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	before := runtime.NumGoroutine()
	for i := 0; i < 100; i++ {
		c := NewClient(fmt.Sprintf("c%d", i), "user")
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandJoinGroup, GroupID: "g1"}
		mustEvent(t, c.Events, EventJoined)
		hub.UnregisterClient(c)
	}

	// Pumps exit asynchronously; give them a moment before counting.
	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before+2 {
		if time.Now().After(deadline) {
			t.Fatalf("pump goroutines leaked: before=%d after=%d", before, runtime.NumGoroutine())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
