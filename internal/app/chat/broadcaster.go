package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"livechat/internal/pkg/logx"
)

const defaultQueueSize = 1024

// ErrBroadcasterStopped is returned by Publish once the broadcaster has been stopped.
var ErrBroadcasterStopped = errors.New("broadcaster stopped")

type notificationKind int

const (
	kindDeliver notificationKind = iota
	kindEvict
)

// Notification is one unit of fan-out work. It targets either a single connection (Conn) or
// every connection in Room at the moment it is delivered.
type Notification struct {
	Room  string
	Conn  Conn
	Event string
	Data  any

	// Except skips connections that are members of this room at delivery time.
	Except string

	kind      notificationKind
	evictUser string
}

// evictNotification removes the connections of userID (all connections when userID is
// empty) from room, in order with the deliveries queued before it.
func evictNotification(room, userID string) Notification {
	return Notification{Room: room, kind: kindEvict, evictUser: userID}
}

// Broadcaster serializes every outbound notification through one queue drained by one
// goroutine, so emission order is the order of Publish calls.
type Broadcaster struct {
	registry *Registry
	queue    chan Notification

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger zerolog.Logger
}

// NewBroadcaster creates a Broadcaster over registry. A non-positive queueSize selects the default.
func NewBroadcaster(registry *Registry, queueSize int) *Broadcaster {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	return &Broadcaster{
		registry: registry,
		queue:    make(chan Notification, queueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logx.Component("Broadcaster"),
	}
}

// Run drains the queue until Stop is called. It must be started exactly once.
func (b *Broadcaster) Run() {
	defer close(b.done)

	b.logger.Info().Msg("Broadcast loop started.")

	for {
		select {
		case <-b.stop:
			b.logger.Info().Int("dropped", len(b.queue)).Msg("Broadcast loop stopped.")
			return
		case n := <-b.queue:
			b.deliver(n)
		}
	}
}

// Publish enqueues notifications in order. It blocks while the queue is full, until ctx is
// done or the broadcaster stops.
func (b *Broadcaster) Publish(ctx context.Context, notifications ...Notification) error {
	for _, n := range notifications {
		select {
		case <-b.stop:
			return ErrBroadcasterStopped
		default:
		}

		select {
		case b.queue <- n:
		case <-ctx.Done():
			return ctx.Err()
		case <-b.stop:
			return ErrBroadcasterStopped
		}
	}
	return nil
}

// Stop terminates the run loop and waits for it to exit. Undelivered notifications are dropped.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
}

func (b *Broadcaster) deliver(n Notification) {
	if n.kind == kindEvict {
		if n.evictUser == "" {
			b.registry.Dissolve(n.Room)
		} else {
			b.registry.EvictUser(n.Room, n.evictUser)
		}
		return
	}

	var targets []Conn
	if n.Conn != nil {
		targets = []Conn{n.Conn}
	} else {
		targets = b.registry.MembersOf(n.Room)
	}
	if len(targets) == 0 {
		return
	}

	frame, err := json.Marshal(outboundEnvelope{Event: n.Event, Data: n.Data})
	if err != nil {
		b.logger.Error().Err(err).Str("event", n.Event).Msg("Failed to encode notification")
		return
	}

	for _, c := range targets {
		if n.Except != "" && b.registry.IsMember(c, n.Except) {
			continue
		}

		if !c.Enqueue(frame) {
			b.logger.Warn().
				Str("event", n.Event).
				Str("room", n.Room).
				Str("conn_id", c.ID()).
				Msg("Connection send buffer full or closed, notification skipped")
		}
	}
}
