package chat

import (
	"livechat/internal/app/group"
	"livechat/internal/app/message"
	"livechat/internal/app/user"
)

// The plan functions turn durable outcomes into notifications. They perform no I/O and are
// only called once every write they describe has been confirmed.

func planDirectSend(msgs []message.Message, sender, receiver user.Summary) []Notification {
	if len(msgs) == 0 {
		return nil
	}

	room := ConversationRoom(sender.ID, receiver.ID)
	latest := msgs[len(msgs)-1]

	out := make([]Notification, 0, len(msgs)+2)
	for _, m := range msgs {
		out = append(out, Notification{Room: room, Event: EventReceiveMessage, Data: m})
	}

	out = append(out,
		Notification{
			Room:   PersonalRoom(receiver.ID),
			Event:  EventGetNewChat,
			Data:   ChatPreview{LatestMessage: &latest, User: sender},
			Except: room,
		},
		Notification{
			Room:   PersonalRoom(sender.ID),
			Event:  EventGetNewChat,
			Data:   ChatPreview{LatestMessage: &latest, User: receiver},
			Except: room,
		},
	)
	return out
}

func planGroupSend(g group.Group, msgs []message.Message, sender user.Summary) []Notification {
	if len(msgs) == 0 {
		return nil
	}

	latest := msgs[len(msgs)-1]

	out := make([]Notification, 0, len(msgs)+1)
	for _, m := range msgs {
		out = append(out, Notification{
			Room:  GroupRoom(g.ID),
			Event: EventReceiveGroupMessage,
			Data:  GroupMessage{Message: m, User: sender},
		})
	}

	out = append(out, Notification{
		Room:  GroupListRoom(g.ID),
		Event: EventGetNewGroupChat,
		Data:  group.Summary{Group: g, LatestMessage: &latest},
	})
	return out
}

func planDirectDelete(deleted message.Message, latest *message.Message, sender, receiver user.Summary) []Notification {
	return []Notification{
		{
			Room:  ConversationRoom(sender.ID, receiver.ID),
			Event: EventMessageDeleted,
			Data:  MessageDeleted{Message: deleted, LatestMessage: latest},
		},
		{
			Room:  PersonalRoom(sender.ID),
			Event: EventMessageDeletedChatList,
			Data:  MessageDeleted{Message: deleted, LatestMessage: latest, User: &receiver},
		},
		{
			Room:  PersonalRoom(receiver.ID),
			Event: EventMessageDeletedChatList,
			Data:  MessageDeleted{Message: deleted, LatestMessage: latest, User: &sender},
		},
	}
}

func planGroupMessageDelete(g group.Group, deleted message.Message, latest *message.Message) []Notification {
	return []Notification{
		{
			Room:  GroupRoom(g.ID),
			Event: EventGroupMessageDeleted,
			Data:  MessageDeleted{Message: deleted, LatestMessage: latest},
		},
		{
			Room:  GroupListRoom(g.ID),
			Event: EventGroupMessageDeletedGroupChatList,
			Data:  MessageDeleted{Message: deleted, LatestMessage: latest, Group: &g},
		},
	}
}

func planGroupCreate(g group.Group) []Notification {
	out := make([]Notification, 0, len(g.Members))
	for _, member := range g.Members {
		out = append(out, Notification{
			Room:  PersonalRoom(member),
			Event: EventGroupChatAdded,
			Data:  group.Summary{Group: g},
		})
	}
	return out
}

func planGroupEdit(before, after group.Group, latest *message.Message) []Notification {
	removed, added := group.Diff(before.Members, after.Members)

	out := make([]Notification, 0, 2+3*len(removed)+len(added))

	for _, id := range removed {
		out = append(out,
			evictNotification(GroupRoom(after.ID), id),
			evictNotification(GroupListRoom(after.ID), id),
		)
	}

	out = append(out,
		Notification{Room: GroupRoom(after.ID), Event: EventReceiveEditGroupChat, Data: after},
		Notification{Room: GroupListRoom(after.ID), Event: EventReceiveEditGroupChatList, Data: after},
	)

	for _, id := range removed {
		out = append(out, Notification{
			Room:  PersonalRoom(id),
			Event: EventGroupChatRemoved,
			Data:  GroupRef{Group: after},
		})
	}

	for _, id := range added {
		out = append(out, Notification{
			Room:  PersonalRoom(id),
			Event: EventGroupChatAdded,
			Data:  group.Summary{Group: after, LatestMessage: latest},
		})
	}

	return out
}

func planGroupDelete(g group.Group) []Notification {
	out := make([]Notification, 0, len(g.Members)+3)

	out = append(out, Notification{
		Room:  GroupRoom(g.ID),
		Event: EventReceiveDeleteGroupChat,
		Data:  GroupRef{Group: g},
	})

	for _, member := range g.Members {
		out = append(out, Notification{
			Room:  PersonalRoom(member),
			Event: EventGroupChatDeleted,
			Data:  GroupRef{Group: g},
		})
	}

	return append(out,
		evictNotification(GroupRoom(g.ID), ""),
		evictNotification(GroupListRoom(g.ID), ""),
	)
}

func planError(c Conn, event string, payload ErrorPayload) []Notification {
	return []Notification{{Conn: c, Event: errorEventFor(event), Data: payload}}
}
