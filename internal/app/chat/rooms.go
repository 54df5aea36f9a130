package chat

import "strings"

const (
	conversationPrefix = "dm:"
	groupListPrefix    = "group-list:"
)

// PersonalRoom is the room every connection of userID joins on connect.
func PersonalRoom(userID string) string {
	return userID
}

// ConversationRoom names the direct conversation of a and b. The name does not depend on
// argument order.
func ConversationRoom(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return conversationPrefix + a + ":" + b
}

// ParseConversationRoom returns the two parties of a conversation room.
func ParseConversationRoom(room string) (a, b string, ok bool) {
	rest, found := strings.CutPrefix(room, conversationPrefix)
	if !found {
		return "", "", false
	}

	a, b, found = strings.Cut(rest, ":")
	if !found || a == "" || b == "" || b < a {
		return "", "", false
	}
	return a, b, true
}

// GroupRoom is the room of a group conversation.
func GroupRoom(groupID string) string {
	return groupID
}

// GroupListRoom is the room through which chat-list previews of a group are pushed.
func GroupListRoom(groupID string) string {
	return groupListPrefix + groupID
}

// ParseGroupListRoom returns the group id of a chat-list room.
func ParseGroupListRoom(room string) (string, bool) {
	id, found := strings.CutPrefix(room, groupListPrefix)
	return id, found && id != ""
}
