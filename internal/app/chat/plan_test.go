package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat/internal/app/group"
	"livechat/internal/app/message"
	"livechat/internal/app/user"
)

type target struct {
	room  string
	event string
}

func targets(ns []Notification) []target {
	out := make([]target, 0, len(ns))
	for _, n := range ns {
		event := n.Event
		if n.kind == kindEvict {
			event = "evict:" + n.evictUser
		}
		out = append(out, target{room: n.Room, event: event})
	}
	return out
}

func TestPlanDirectSend(t *testing.T) {
	alice := user.Summary{ID: "alice", Username: "Alice"}
	bob := user.Summary{ID: "bob", Username: "Bob"}
	now := time.Now()

	msgs := []message.Message{
		{ID: "m1", Sender: "alice", Receiver: "bob", Content: "look", CreatedAt: now.Add(-time.Millisecond)},
		{ID: "m2", Sender: "alice", Receiver: "bob", Images: []message.Image{{URL: "u"}}, CreatedAt: now},
	}

	ns := planDirectSend(msgs, alice, bob)
	room := ConversationRoom("alice", "bob")

	assert.Equal(t, []target{
		{room, EventReceiveMessage},
		{room, EventReceiveMessage},
		{"bob", EventGetNewChat},
		{"alice", EventGetNewChat},
	}, targets(ns))

	toBob := ns[2].Data.(ChatPreview)
	assert.Equal(t, "m2", toBob.LatestMessage.ID)
	assert.Equal(t, alice, toBob.User)
	assert.Equal(t, room, ns[2].Except)

	toAlice := ns[3].Data.(ChatPreview)
	assert.Equal(t, bob, toAlice.User)
	assert.Equal(t, room, ns[3].Except)

	assert.Nil(t, planDirectSend(nil, alice, bob))
}

func TestPlanGroupSend(t *testing.T) {
	g := group.Group{ID: "g1", Members: []string{"a", "b"}}
	msgs := []message.Message{{ID: "m1", Sender: "a", Receiver: "g1"}}

	ns := planGroupSend(g, msgs, user.Summary{ID: "a"})

	assert.Equal(t, []target{
		{"g1", EventReceiveGroupMessage},
		{GroupListRoom("g1"), EventGetNewGroupChat},
	}, targets(ns))

	summary := ns[1].Data.(group.Summary)
	require.NotNil(t, summary.LatestMessage)
	assert.Equal(t, "m1", summary.LatestMessage.ID)
}

func TestPlanDirectDelete(t *testing.T) {
	alice := user.Summary{ID: "alice"}
	bob := user.Summary{ID: "bob"}
	deleted := message.Message{ID: "m2", Sender: "alice", Receiver: "bob"}
	latest := &message.Message{ID: "m1"}

	ns := planDirectDelete(deleted, latest, alice, bob)

	assert.Equal(t, []target{
		{ConversationRoom("alice", "bob"), EventMessageDeleted},
		{"alice", EventMessageDeletedChatList},
		{"bob", EventMessageDeletedChatList},
	}, targets(ns))

	assert.Equal(t, &bob, ns[1].Data.(MessageDeleted).User)
	assert.Equal(t, &alice, ns[2].Data.(MessageDeleted).User)
	assert.Equal(t, latest, ns[2].Data.(MessageDeleted).LatestMessage)
}

func TestPlanGroupCreate(t *testing.T) {
	g := group.Group{ID: "g1", Members: []string{"a", "b", "c"}}

	assert.Equal(t, []target{
		{"a", EventGroupChatAdded},
		{"b", EventGroupChatAdded},
		{"c", EventGroupChatAdded},
	}, targets(planGroupCreate(g)))
}

func TestPlanGroupEdit_MembershipDiff(t *testing.T) {
	before := group.Group{ID: "g1", Name: "old", Members: []string{"A", "B", "C"}}
	after := group.Group{ID: "g1", Name: "new", Members: []string{"A", "C", "D"}}
	latest := &message.Message{ID: "m9"}

	ns := planGroupEdit(before, after, latest)

	assert.Equal(t, []target{
		{"g1", "evict:B"},
		{GroupListRoom("g1"), "evict:B"},
		{"g1", EventReceiveEditGroupChat},
		{GroupListRoom("g1"), EventReceiveEditGroupChatList},
		{"B", EventGroupChatRemoved},
		{"D", EventGroupChatAdded},
	}, targets(ns))

	added := ns[5].Data.(group.Summary)
	assert.Equal(t, "new", added.Name)
	assert.Equal(t, latest, added.LatestMessage)
}

func TestPlanGroupDelete(t *testing.T) {
	g := group.Group{ID: "g1", Members: []string{"a", "b"}}

	assert.Equal(t, []target{
		{"g1", EventReceiveDeleteGroupChat},
		{"a", EventGroupChatDeleted},
		{"b", EventGroupChatDeleted},
		{"g1", "evict:"},
		{GroupListRoom("g1"), "evict:"},
	}, targets(planGroupDelete(g)))
}
