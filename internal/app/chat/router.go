package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"livechat/internal/app/db"
	"livechat/internal/app/group"
	"livechat/internal/app/message"
	"livechat/internal/app/storage"
	"livechat/internal/app/user"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/logx"
)

const eventTimeout = 10 * time.Second

// errForbidden marks authorization failures. They are logged and never reported to anyone.
var errForbidden = errors.New("forbidden")

// Gateway is the durable storage the router works against.
type Gateway interface {
	FindUser(ctx context.Context, id string) (user.User, error)
	FindUserByName(ctx context.Context, username string) (user.User, error)

	CreateMessage(ctx context.Context, m message.Message) (message.Message, error)
	FindMessage(ctx context.Context, id string) (message.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ListMessagesBetween(ctx context.Context, a, b string) ([]message.Message, error)
	ListMessagesForGroup(ctx context.Context, groupID string) ([]message.Message, error)
	LatestMessageBetween(ctx context.Context, a, b string) (*message.Message, error)
	LatestMessageForGroup(ctx context.Context, groupID string) (*message.Message, error)

	CreateGroup(ctx context.Context, g group.Group) (group.Group, error)
	UpdateGroup(ctx context.Context, g group.Group) (group.Group, error)
	FindGroup(ctx context.Context, id string) (group.Group, error)
	DeleteGroup(ctx context.Context, id string) (group.Group, []message.Message, error)
}

// PresenceStore persists the online flag and last-seen time of users.
type PresenceStore interface {
	UpdateUserPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error
	ReassertOffline(ctx context.Context, cutoff time.Time) (int64, error)
}

// AssetReleaser deletes stored images by URL or key and tells which URLs were issued to
// which user.
type AssetReleaser interface {
	Release(ctx context.Context, ref string) error
	Owns(ref, folder, owner string) bool
}

// Publisher accepts notifications for delivery.
type Publisher interface {
	Publish(ctx context.Context, notifications ...Notification) error
}

type handlerFunc func(ctx context.Context, c Conn, data json.RawMessage) ([]Notification, error)

// Router validates inbound events, applies their durable effects and publishes the
// resulting notifications. It keeps no per-connection state.
type Router struct {
	gateway   Gateway
	presence  PresenceStore
	assets    AssetReleaser
	registry  *Registry
	publisher Publisher

	handlers map[string]handlerFunc
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRouter wires a Router.
func NewRouter(gateway Gateway, presence PresenceStore, assets AssetReleaser, registry *Registry, publisher Publisher) *Router {
	r := &Router{
		gateway:   gateway,
		presence:  presence,
		assets:    assets,
		registry:  registry,
		publisher: publisher,
		now:       time.Now,
		logger:    logx.Component("Router"),
	}

	r.handlers = map[string]handlerFunc{
		EventJoinRoom:           r.handleJoinRoom,
		EventLeaveRoom:          r.handleLeaveRoom,
		EventSendMessage:        r.handleSendMessage,
		EventSendGroupMessage:   r.handleSendGroupMessage,
		EventDeleteMessage:      r.handleDeleteMessage,
		EventDeleteGroupMessage: r.handleDeleteGroupMessage,
		EventCreateGroupChat:    r.handleCreateGroupChat,
		EventEditGroupChat:      r.handleEditGroupChat,
		EventDeleteGroupChat:    r.handleDeleteGroupChat,
	}

	return r
}

// Handle processes one raw frame received on c. It never panics on malformed input.
func (r *Router) Handle(ctx context.Context, c Conn, frame []byte) {
	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	logger := r.logger.With().Str("conn_id", c.ID()).Str("user_id", c.UserID()).Logger()

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil || env.Event == "" {
		logger.Warn().Err(err).Msg("Client sent invalid frame")
		r.publish(ctx, logger, planError(c, "", errorPayload(errs.NewError(errs.ErrInvalidJSONFormat), "")))
		return
	}

	logger = logger.With().Str("event", env.Event).Logger()

	if err := r.presence.UpdateUserPresence(ctx, c.UserID(), true, r.now()); err != nil {
		logger.Error().Err(err).Msg("Failed to touch presence")
	}

	handler, ok := r.handlers[env.Event]
	if !ok {
		logger.Warn().Msg("Client sent unsupported event")
		r.publish(ctx, logger, planError(c, env.Event, errorPayload(errs.NewError(errs.ErrUnknownEvent, env.Event), env.Event)))
		return
	}

	notifications, err := handler(ctx, c, env.Data)
	if err != nil {
		r.fail(ctx, logger, c, env, err)
		return
	}

	r.publish(ctx, logger, notifications)
}

func (r *Router) publish(ctx context.Context, logger zerolog.Logger, notifications []Notification) {
	if len(notifications) == 0 {
		return
	}
	if err := r.publisher.Publish(ctx, notifications...); err != nil {
		logger.Warn().Err(err).Int("pending", len(notifications)).Msg("Failed to publish notifications")
	}
}

// fail reports err to the sender according to its class.
func (r *Router) fail(ctx context.Context, logger zerolog.Logger, c Conn, env Envelope, err error) {
	var customErr *errs.CustomError

	switch {
	case errors.Is(err, errForbidden):
		logger.Warn().Err(err).Msg("Event rejected: not authorized")
		return
	case errors.As(err, &customErr):
		logger.Debug().Int("code", customErr.Code).Msg("Event rejected")
	default:
		logger.Error().Err(err).Msg("Event failed")
		customErr = errs.NewError(errs.ErrPersistenceFailed)
	}

	payload := errorPayload(customErr, env.Event)
	payload.SendingIndicatorID = sendingIndicatorOf(env.Data)

	r.publish(ctx, logger, planError(c, env.Event, payload))
}

func errorPayload(e *errs.CustomError, event string) ErrorPayload {
	return ErrorPayload{Code: e.Code, Message: e.Message, Event: event}
}

// sendingIndicatorOf lets the client correlate an error with its pending send.
func sendingIndicatorOf(data json.RawMessage) string {
	var indicator struct {
		SendingIndicatorID string `json:"sendingIndicatorId"`
	}
	_ = json.Unmarshal(data, &indicator)
	return indicator.SendingIndicatorID
}

func decode(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}
	return nil
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errForbidden}, args...)...)
}

// --- Rooms ---

func (r *Router) handleJoinRoom(ctx context.Context, c Conn, data json.RawMessage) ([]Notification, error) {
	var p roomPayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}
	if p.RoomID == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	if err := r.authorizeJoin(ctx, c.UserID(), p.RoomID); err != nil {
		return nil, err
	}

	r.registry.Join(c, p.RoomID)
	return nil, nil
}

// authorizeJoin allows a user into their personal room, conversations they take part in,
// and the rooms of groups they belong to.
func (r *Router) authorizeJoin(ctx context.Context, userID, room string) error {
	if room == PersonalRoom(userID) {
		return nil
	}

	if a, b, ok := ParseConversationRoom(room); ok {
		if a == userID || b == userID {
			return nil
		}
		return forbidden("user %s is not a party of %s", userID, room)
	}

	groupID := room
	if id, ok := ParseGroupListRoom(room); ok {
		groupID = id
	}

	g, err := r.gateway.FindGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return forbidden("room %s does not exist", room)
		}
		return err
	}
	if !g.HasMember(userID) {
		return forbidden("user %s is not a member of group %s", userID, g.ID)
	}
	return nil
}

func (r *Router) handleLeaveRoom(_ context.Context, c Conn, data json.RawMessage) ([]Notification, error) {
	var p roomPayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}
	if p.RoomID == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	r.registry.Leave(c, p.RoomID)
	return nil, nil
}

// --- Direct messages ---

func (r *Router) handleSendMessage(ctx context.Context, c Conn, data json.RawMessage) ([]Notification, error) {
	var p sendMessagePayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}

	senderID := c.UserID()
	if p.SenderID != "" && p.SenderID != senderID {
		return nil, forbidden("sender %s does not match session user %s", p.SenderID, senderID)
	}
	if p.ReceiverID == "" || p.ReceiverID == senderID {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	draft := message.Draft{Text: p.Text, Images: p.Images}
	if err := message.ValidateDraft(draft); err != nil {
		return nil, err
	}
	if err := r.checkImages(draft.Images, senderID); err != nil {
		return nil, err
	}

	receiver, err := r.gateway.FindUser(ctx, p.ReceiverID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, errs.NewError(errs.ErrReceiverNotFound)
		}
		return nil, err
	}

	sender, err := r.gateway.FindUser(ctx, senderID)
	if err != nil {
		return nil, err
	}

	stored, err := r.persist(ctx, message.Split(senderID, receiver.ID, draft, r.now(), p.SendingIndicatorID))
	if err != nil {
		return nil, err
	}

	return planDirectSend(stored, sender.Summary(), receiver.Summary()), nil
}

// checkImages accepts only images the server stored for owner. Deleting the message later
// releases them, so a foreign URL must never get this far.
func (r *Router) checkImages(images []message.Image, owner string) error {
	for _, img := range images {
		if !r.assets.Owns(img.URL, storage.FolderMessages, owner) {
			return errs.NewError(errs.ErrAttachmentInvalid)
		}
	}
	return nil
}

// checkGroupImage accepts an empty image or one the server stored for owner.
func (r *Router) checkGroupImage(image, owner string) error {
	if image != "" && !r.assets.Owns(image, storage.FolderGroups, owner) {
		return errs.NewError(errs.ErrAttachmentInvalid)
	}
	return nil
}

// persist stores msgs in order. A duplicate sending indicator aborts the whole send.
func (r *Router) persist(ctx context.Context, msgs []message.Message) ([]message.Message, error) {
	stored := make([]message.Message, 0, len(msgs))

	for _, m := range msgs {
		created, err := r.gateway.CreateMessage(ctx, m)
		if err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return nil, errs.NewError(errs.ErrDuplicateMessage)
			}
			return nil, err
		}
		stored = append(stored, created)
	}

	return stored, nil
}

func (r *Router) handleDeleteMessage(ctx context.Context, c Conn, data json.RawMessage) ([]Notification, error) {
	var p deleteMessagePayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}
	if p.Message.ID == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	msg, err := r.findMessage(ctx, p.Message.ID)
	if err != nil {
		return nil, err
	}
	if msg.Sender != c.UserID() {
		return nil, forbidden("user %s cannot delete message %s", c.UserID(), msg.ID)
	}

	receiver, err := r.gateway.FindUser(ctx, msg.Receiver)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Group messages are deleted through delete-group-message.
			return nil, errs.NewError(errs.ErrMessageNotFound)
		}
		return nil, err
	}

	sender, err := r.gateway.FindUser(ctx, msg.Sender)
	if err != nil {
		return nil, err
	}

	if err := r.gateway.DeleteMessage(ctx, msg.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, errs.NewError(errs.ErrMessageNotFound)
		}
		return nil, err
	}

	r.release(ctx, msg.ImageURLs()...)

	// The delete is committed; peers are told even if the new preview cannot be loaded.
	latest, err := r.gateway.LatestMessageBetween(ctx, sender.ID, receiver.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to load latest message")
		latest = nil
	}

	return planDirectDelete(msg, latest, sender.Summary(), receiver.Summary()), nil
}

func (r *Router) findMessage(ctx context.Context, id string) (message.Message, error) {
	msg, err := r.gateway.FindMessage(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return message.Message{}, errs.NewError(errs.ErrMessageNotFound)
		}
		return message.Message{}, err
	}
	return msg, nil
}

// release deletes assets after the records referencing them are gone. Failures only leak
// storage, so they are logged and skipped.
func (r *Router) release(ctx context.Context, refs ...string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := r.assets.Release(ctx, ref); err != nil {
			r.logger.Error().Err(err).Str("asset", ref).Msg("Failed to release asset")
		}
	}
}

// --- Group messages ---

func (r *Router) findGroup(ctx context.Context, id string) (group.Group, error) {
	if id == "" {
		return group.Group{}, errs.NewError(errs.ErrInvalidParams)
	}

	g, err := r.gateway.FindGroup(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return group.Group{}, errs.NewError(errs.ErrGroupNotFound)
		}
		return group.Group{}, err
	}
	return g, nil
}

func (r *Router) handleSendGroupMessage(ctx context.Context, c Conn, data json.RawMessage) ([]Notification, error) {
	var p sendGroupMessagePayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}

	senderID := c.UserID()
	if p.SenderID != "" && p.SenderID != senderID {
		return nil, forbidden("sender %s does not match session user %s", p.SenderID, senderID)
	}

	draft := message.Draft{Text: p.Text, Images: p.Images}
	if err := message.ValidateDraft(draft); err != nil {
		return nil, err
	}
	if err := r.checkImages(draft.Images, senderID); err != nil {
		return nil, err
	}

	g, err := r.findGroup(ctx, p.GroupID)
	if err != nil {
		return nil, err
	}
	if !g.HasMember(senderID) {
		return nil, forbidden("user %s is not a member of group %s", senderID, g.ID)
	}

	sender, err := r.gateway.FindUser(ctx, senderID)
	if err != nil {
		return nil, err
	}

	stored, err := r.persist(ctx, message.Split(senderID, g.ID, draft, r.now(), p.SendingIndicatorID))
	if err != nil {
		return nil, err
	}

	return planGroupSend(g, stored, sender.Summary()), nil
}

func (r *Router) handleDeleteGroupMessage(ctx context.Context, c Conn, data json.RawMessage) ([]Notification, error) {
	var p deleteMessagePayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}
	if p.Message.ID == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	msg, err := r.findMessage(ctx, p.Message.ID)
	if err != nil {
		return nil, err
	}

	g, err := r.gateway.FindGroup(ctx, msg.Receiver)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, errs.NewError(errs.ErrMessageNotFound)
		}
		return nil, err
	}

	if userID := c.UserID(); msg.Sender != userID && g.Creator != userID {
		return nil, forbidden("user %s cannot delete message %s of group %s", userID, msg.ID, g.ID)
	}

	if err := r.gateway.DeleteMessage(ctx, msg.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, errs.NewError(errs.ErrMessageNotFound)
		}
		return nil, err
	}

	r.release(ctx, msg.ImageURLs()...)

	latest, err := r.gateway.LatestMessageForGroup(ctx, g.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("group_id", g.ID).Msg("Failed to load latest group message")
		latest = nil
	}

	return planGroupMessageDelete(g, msg, latest), nil
}

// --- Group lifecycle ---

// ensureUsersExist rejects member lists that reference unknown accounts.
func (r *Router) ensureUsersExist(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := r.gateway.FindUser(ctx, id); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return errs.NewError(errs.ErrUserNotFound)
			}
			return err
		}
	}
	return nil
}

func (r *Router) handleCreateGroupChat(ctx context.Context, c Conn, data json.RawMessage) ([]Notification, error) {
	var p createGroupPayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}

	name, customErr := group.NormalizeName(p.Group.Name)
	if customErr != nil {
		return nil, customErr
	}

	creator := c.UserID()
	members, customErr := group.NormalizeMembers(creator, p.Group.Users)
	if customErr != nil {
		return nil, customErr
	}

	if err := r.checkGroupImage(p.Group.Image, creator); err != nil {
		return nil, err
	}

	others := make([]string, 0, len(members)-1)
	for _, id := range members {
		if id != creator {
			others = append(others, id)
		}
	}
	if err := r.ensureUsersExist(ctx, others); err != nil {
		return nil, err
	}

	created, err := r.gateway.CreateGroup(ctx, group.Group{
		Name:    name,
		Creator: creator,
		Members: members,
		Image:   p.Group.Image,
	})
	if err != nil {
		return nil, err
	}

	return planGroupCreate(created), nil
}

func (r *Router) handleEditGroupChat(ctx context.Context, c Conn, data json.RawMessage) ([]Notification, error) {
	var p editGroupPayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}

	before, err := r.findGroup(ctx, p.NewGroup.ID)
	if err != nil {
		return nil, err
	}
	if !before.HasMember(c.UserID()) {
		return nil, forbidden("user %s is not a member of group %s", c.UserID(), before.ID)
	}

	name, customErr := group.NormalizeName(p.NewGroup.Name)
	if customErr != nil {
		return nil, customErr
	}

	members, customErr := group.NormalizeMembers(before.Creator, p.NewGroup.Users)
	if customErr != nil {
		return nil, customErr
	}

	if p.NewGroup.Image != before.Image {
		if err := r.checkGroupImage(p.NewGroup.Image, c.UserID()); err != nil {
			return nil, err
		}
	}

	_, added := group.Diff(before.Members, members)
	if err := r.ensureUsersExist(ctx, added); err != nil {
		return nil, err
	}

	after, err := r.gateway.UpdateGroup(ctx, group.Group{
		ID:        before.ID,
		Name:      name,
		Creator:   before.Creator,
		Members:   members,
		Image:     p.NewGroup.Image,
		CreatedAt: before.CreatedAt,
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, errs.NewError(errs.ErrGroupNotFound)
		}
		return nil, err
	}

	if before.Image != after.Image {
		r.release(ctx, before.Image)
	}

	var latest *message.Message
	if len(added) > 0 {
		if latest, err = r.gateway.LatestMessageForGroup(ctx, after.ID); err != nil {
			r.logger.Error().Err(err).Str("group_id", after.ID).Msg("Failed to load latest group message")
		}
	}

	return planGroupEdit(before, after, latest), nil
}

func (r *Router) handleDeleteGroupChat(ctx context.Context, c Conn, data json.RawMessage) ([]Notification, error) {
	var p deleteGroupPayload
	if err := decode(data, &p); err != nil {
		return nil, err
	}

	g, err := r.findGroup(ctx, p.Group.ID)
	if err != nil {
		return nil, err
	}
	if g.Creator != c.UserID() {
		return nil, forbidden("user %s is not the creator of group %s", c.UserID(), g.ID)
	}

	removed, msgs, err := r.gateway.DeleteGroup(ctx, g.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, errs.NewError(errs.ErrGroupNotFound)
		}
		return nil, err
	}

	for _, m := range msgs {
		r.release(ctx, m.ImageURLs()...)
	}
	r.release(ctx, removed.Image)

	return planGroupDelete(removed), nil
}
