package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"livechat/internal/pkg/logx"
)

// HubConfig tunes the realtime core.
type HubConfig struct {
	QueueSize        int
	SweepInterval    time.Duration
	OfflineThreshold time.Duration
}

// Hub owns the lifecycle of the registry, broadcaster, router and presence sweeper, and is
// the single entry point the connection layer talks to.
type Hub struct {
	registry    *Registry
	broadcaster *Broadcaster
	router      *Router
	sweeper     *Sweeper
	presence    PresenceStore
	userLocks   userLocks

	cancel context.CancelFunc
	wg     sync.WaitGroup

	now    func() time.Time
	logger zerolog.Logger
}

// NewHub constructs the realtime core. Nothing runs until Start.
func NewHub(cfg HubConfig, gateway Gateway, presence PresenceStore, assets AssetReleaser) *Hub {
	registry := NewRegistry()
	broadcaster := NewBroadcaster(registry, cfg.QueueSize)

	return &Hub{
		registry:    registry,
		broadcaster: broadcaster,
		router:      NewRouter(gateway, presence, assets, registry, broadcaster),
		sweeper:     NewSweeper(presence, cfg.SweepInterval, cfg.OfflineThreshold),
		presence:    presence,
		userLocks:   userLocks{locks: make(map[string]*userLock)},
		now:         time.Now,
		logger:      logx.Component("Hub"),
	}
}

// Start launches the broadcast loop and the presence sweeper.
func (h *Hub) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)

	h.wg.Add(2)

	go func() {
		defer h.wg.Done()
		h.broadcaster.Run()
	}()

	go func() {
		defer h.wg.Done()
		h.sweeper.Run(ctx)
	}()

	h.logger.Info().Msg("Hub started.")
}

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connect registers c, joins it to its personal room and marks its user online.
func (h *Hub) Connect(ctx context.Context, c Conn) {
	unlock := h.userLocks.lock(c.UserID())
	defer unlock()

	h.registry.Join(c, PersonalRoom(c.UserID()))

	if err := h.presence.UpdateUserPresence(ctx, c.UserID(), true, h.now()); err != nil {
		h.logger.Error().Err(err).Str("user_id", c.UserID()).Msg("Failed to mark user online")
	}

	h.logger.Info().
		Str("conn_id", c.ID()).
		Str("user_id", c.UserID()).
		Int("connections", h.registry.Len()).
		Msg("Connection registered.")
}

// Dispatch routes one inbound frame from c.
func (h *Hub) Dispatch(ctx context.Context, c Conn, frame []byte) {
	h.router.Handle(ctx, c, frame)
}

// Disconnect removes c from every room. When it was the user's last connection the user is
// marked offline right away instead of waiting for the sweeper.
//
// Connect and Disconnect of the same user are serialized, so the last presence write always
// matches the registry: an offline write cannot land after a newer connection went online.
func (h *Hub) Disconnect(ctx context.Context, c Conn) {
	unlock := h.userLocks.lock(c.UserID())
	defer unlock()

	if !h.registry.Disconnect(c) {
		h.logger.Debug().Str("conn_id", c.ID()).Msg("Connection removed; user still has live connections.")
		return
	}

	if err := h.presence.UpdateUserPresence(ctx, c.UserID(), false, h.now()); err != nil {
		h.logger.Error().Err(err).Str("user_id", c.UserID()).Msg("Failed to mark user offline")
	}

	h.logger.Info().Str("conn_id", c.ID()).Str("user_id", c.UserID()).Msg("Last connection of user closed.")
}

// Shutdown stops the background loops and closes every live connection.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down Hub...")

	if h.cancel != nil {
		h.cancel()
		h.broadcaster.Stop()
		h.wg.Wait()
	}

	for _, c := range h.registry.All() {
		c.Close()
	}

	h.logger.Info().Msg("Hub shutdown complete.")
}

// userLocks hands out one mutex per user id. Entries are dropped once nobody holds or waits
// for them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (l *userLocks) lock(userID string) (unlock func()) {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()

	return func() {
		ul.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
