package handler

import (
	"context"
	"time"

	"livechat/internal/app/chat"
	"livechat/internal/app/group"
	"livechat/internal/app/message"
	"livechat/internal/app/storage"
	"livechat/internal/app/user"
	"livechat/internal/configs"
	"livechat/internal/pkg/pow"
)

// Repository is the subset of the store the HTTP handlers use.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, username, passwordHash string) (user.User, error)
	FindUser(ctx context.Context, id string) (user.User, error)
	FindUserByName(ctx context.Context, username string) (user.User, error)
	UpdateAvatar(ctx context.Context, id, avatar string) (string, error)
	UpdateUserPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error

	ListMessagesBetween(ctx context.Context, a, b string) ([]message.Message, error)
	ListMessagesForGroup(ctx context.Context, groupID string) ([]message.Message, error)
	FindGroup(ctx context.Context, id string) (group.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]group.Summary, error)
}

// AssetStore uploads and releases images.
type AssetStore interface {
	Upload(ctx context.Context, data []byte, folder string) (storage.Asset, error)
	UploadAvatar(ctx context.Context, data []byte, folder string) (storage.Asset, error)
	Release(ctx context.Context, ref string) error
}

type AppDeps struct {
	Hub     *chat.Hub
	Config  *configs.AppConfig
	Store   Repository
	Storage AssetStore
	Pow     *pow.Manager
}
