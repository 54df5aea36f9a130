package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBroadcaster(t *testing.T, r *Registry) *Broadcaster {
	t.Helper()

	b := NewBroadcaster(r, 16)
	go b.Run()
	t.Cleanup(b.Stop)
	return b
}

func TestBroadcaster_PreservesOrder(t *testing.T) {
	r := NewRegistry()
	b := startBroadcaster(t, r)

	c := newFakeConn("c1", "u1")
	r.Join(c, "room")

	ctx := context.Background()
	for i := range 100 {
		require.NoError(t, b.Publish(ctx, Notification{Room: "room", Event: "n", Data: i}))
	}
	flush(t, b)

	events := c.events(t)
	require.Len(t, events, 100)
	for i, env := range events {
		var got int
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, i, got)
	}
}

func TestBroadcaster_ReadsMembershipAtDelivery(t *testing.T) {
	r := NewRegistry()
	b := NewBroadcaster(r, 16)

	early := newFakeConn("early", "u1")
	late := newFakeConn("late", "u2")
	r.Join(early, "room")

	require.NoError(t, b.Publish(context.Background(), Notification{Room: "room", Event: "hello"}))

	// Membership changes after Publish but before the loop runs are honoured.
	r.Leave(early, "room")
	r.Join(late, "room")

	go b.Run()
	t.Cleanup(b.Stop)
	flush(t, b)

	assert.Empty(t, early.events(t))
	assert.Equal(t, []string{"hello"}, late.eventNames(t))
}

func TestBroadcaster_SkipsFullConnections(t *testing.T) {
	r := NewRegistry()
	b := startBroadcaster(t, r)

	slow := newFakeConn("slow", "u1")
	fast := newFakeConn("fast", "u2")
	slow.setFull(true)
	r.Join(slow, "room")
	r.Join(fast, "room")

	require.NoError(t, b.Publish(context.Background(),
		Notification{Room: "room", Event: "one"},
		Notification{Room: "room", Event: "two"},
	))
	flush(t, b)

	assert.Empty(t, slow.events(t))
	assert.Equal(t, []string{"one", "two"}, fast.eventNames(t))
}

func TestBroadcaster_Except(t *testing.T) {
	r := NewRegistry()
	b := startBroadcaster(t, r)

	inChat := newFakeConn("c1", "u1")
	elsewhere := newFakeConn("c2", "u1")
	r.Join(inChat, "u1")
	r.Join(inChat, "dm:u1:u2")
	r.Join(elsewhere, "u1")

	require.NoError(t, b.Publish(context.Background(),
		Notification{Room: "u1", Event: EventGetNewChat, Except: "dm:u1:u2"},
	))
	flush(t, b)

	assert.Empty(t, inChat.events(t))
	assert.Equal(t, []string{EventGetNewChat}, elsewhere.eventNames(t))
}

func TestBroadcaster_DirectConnAndEviction(t *testing.T) {
	r := NewRegistry()
	b := startBroadcaster(t, r)

	a := newFakeConn("a", "ua")
	c := newFakeConn("c", "uc")
	r.Join(a, "g1")
	r.Join(c, "g1")

	require.NoError(t, b.Publish(context.Background(),
		Notification{Room: "g1", Event: "before"},
		evictNotification("g1", "ua"),
		Notification{Room: "g1", Event: "after"},
		Notification{Conn: a, Event: "direct"},
		evictNotification("g1", ""),
		Notification{Room: "g1", Event: "gone"},
	))
	flush(t, b)

	assert.Equal(t, []string{"before", "direct"}, a.eventNames(t))
	assert.Equal(t, []string{"before", "after"}, c.eventNames(t))
	assert.Empty(t, r.MembersOf("g1"))
}

func TestBroadcaster_PublishAfterStop(t *testing.T) {
	b := NewBroadcaster(NewRegistry(), 1)
	go b.Run()
	b.Stop()
	b.Stop()

	err := b.Publish(context.Background(), Notification{Room: "room", Event: "late"})
	assert.ErrorIs(t, err, ErrBroadcasterStopped)
}

func TestBroadcaster_PublishHonoursContext(t *testing.T) {
	b := NewBroadcaster(NewRegistry(), 1)

	require.NoError(t, b.Publish(context.Background(), Notification{Room: "room"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, Notification{Room: "room"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBroadcaster_EncodesEnvelope(t *testing.T) {
	r := NewRegistry()
	b := startBroadcaster(t, r)

	c := newFakeConn("c", "u")
	r.Join(c, "room")

	require.NoError(t, b.Publish(context.Background(), Notification{
		Room:  "room",
		Event: EventMessageError,
		Data:  ErrorPayload{Code: 1003, Message: "bad"},
	}))
	flush(t, b)

	c.mu.Lock()
	frame := string(c.frames[0])
	c.mu.Unlock()

	assert.JSONEq(t, fmt.Sprintf(`{"event":%q,"data":{"code":1003,"message":"bad"}}`, EventMessageError), frame)
}
