/*
Package chat contains the realtime core: the connection registry, the event router, the
broadcaster and the presence sweeper, plus the websocket client that feeds them.

This file defines the wire envelope and the payloads of every inbound and outbound event.
*/
package chat

import (
	"bytes"
	"encoding/json"
	"errors"

	"livechat/internal/app/group"
	"livechat/internal/app/message"
	"livechat/internal/app/user"
)

// Inbound events.
const (
	EventJoinRoom           = "join-room"
	EventLeaveRoom          = "leave-room"
	EventSendMessage        = "send-message"
	EventSendGroupMessage   = "send-group-message"
	EventDeleteMessage      = "delete-message"
	EventDeleteGroupMessage = "delete-group-message"
	EventCreateGroupChat    = "create-group-chat"
	EventEditGroupChat      = "edit-group-chat"
	EventDeleteGroupChat    = "delete-group-chat"
)

// Outbound events.
const (
	EventReceiveMessage                   = "receive-message"
	EventReceiveGroupMessage              = "receive-group-message"
	EventGetNewChat                       = "get-new-chat"
	EventGetNewGroupChat                  = "get-new-group-chat"
	EventMessageDeleted                   = "message-deleted"
	EventMessageDeletedChatList           = "message-deleted-chat-list"
	EventGroupMessageDeleted              = "group-message-deleted"
	EventGroupMessageDeletedGroupChatList = "group-message-deleted-group-chat-list"
	EventGroupChatAdded                   = "group-chat-added"
	EventGroupChatRemoved                 = "group-chat-removed"
	EventGroupChatDeleted                 = "group-chat-deleted"
	EventReceiveEditGroupChat             = "receive-edit-group-chat"
	EventReceiveEditGroupChatList         = "receive-edit-group-chat-list"
	EventReceiveDeleteGroupChat           = "receive-delete-group-chat"
	EventMessageError                     = "message-error"
	EventGroupMessageError                = "group-message-error"
)

// groupEvents report their failures as group-message-error.
var groupEvents = map[string]struct{}{
	EventSendGroupMessage:   {},
	EventDeleteGroupMessage: {},
	EventCreateGroupChat:    {},
	EventEditGroupChat:      {},
	EventDeleteGroupChat:    {},
}

// errorEventFor returns the error event used to report a failed inbound event.
func errorEventFor(event string) string {
	if _, ok := groupEvents[event]; ok {
		return EventGroupMessageError
	}
	return EventMessageError
}

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// --- Inbound payloads ---

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type sendMessagePayload struct {
	Text               string          `json:"text"`
	SenderID           string          `json:"senderId"`
	ReceiverID         string          `json:"receiverId"`
	RoomID             string          `json:"roomId"`
	Images             []message.Image `json:"images"`
	SendingIndicatorID string          `json:"sendingIndicatorId"`
}

type sendGroupMessagePayload struct {
	Text               string          `json:"text"`
	SenderID           string          `json:"senderId"`
	GroupID            string          `json:"groupId"`
	Images             []message.Image `json:"images"`
	SendingIndicatorID string          `json:"sendingIndicatorId"`
}

type entityRef struct {
	ID string `json:"id"`
}

// deleteMessagePayload serves both delete events. The client's view of the latest message
// is accepted but ignored: the server recomputes it.
type deleteMessagePayload struct {
	Message       entityRef       `json:"message"`
	LatestMessage json.RawMessage `json:"latestMessage,omitempty"`
}

// memberList accepts members either as plain ids or as objects carrying an id.
type memberList []string

func (m *memberList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		var id string
		if err := json.Unmarshal(item, &id); err == nil {
			ids = append(ids, id)
			continue
		}

		var ref entityRef
		if err := json.Unmarshal(item, &ref); err != nil {
			return err
		}
		if ref.ID == "" {
			return errors.New("member without id")
		}
		ids = append(ids, ref.ID)
	}

	*m = ids
	return nil
}

type groupInput struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Users memberList `json:"users"`
	Image string     `json:"image"`
}

type createGroupPayload struct {
	Group groupInput `json:"group"`
}

// editGroupPayload carries the client's idea of the previous group in OldGroup; the stored
// group is authoritative.
type editGroupPayload struct {
	NewGroup groupInput      `json:"newGroup"`
	OldGroup json.RawMessage `json:"oldGroup,omitempty"`
}

type deleteGroupPayload struct {
	Group entityRef `json:"group"`
}

// --- Outbound payloads ---

// ChatPreview updates one entry of a direct chat list.
type ChatPreview struct {
	LatestMessage *message.Message `json:"latestMessage"`
	User          user.Summary     `json:"user"`
}

// GroupMessage is a group message together with its author.
type GroupMessage struct {
	Message message.Message `json:"message"`
	User    user.Summary    `json:"user"`
}

// MessageDeleted reports a removed message and, for chat lists, what is newest now.
type MessageDeleted struct {
	Message       message.Message  `json:"message"`
	LatestMessage *message.Message `json:"latestMessage"`
	User          *user.Summary    `json:"user,omitempty"`
	Group         *group.Group     `json:"group,omitempty"`
}

// GroupRef wraps a group for membership and lifecycle events.
type GroupRef struct {
	Group group.Group `json:"group"`
}

// ErrorPayload is the body of message-error and group-message-error.
type ErrorPayload struct {
	Code               int    `json:"code"`
	Message            string `json:"message"`
	Event              string `json:"event,omitempty"`
	SendingIndicatorID string `json:"sendingIndicatorId,omitempty"`
}
