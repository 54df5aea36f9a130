package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat/internal/app/user"
)

func TestSweeper_Sweep(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.setUserState(user.User{ID: "stale", LastSeen: now.Add(-10 * time.Minute)})
	store.setUserState(user.User{ID: "recent", LastSeen: now.Add(-30 * time.Second)})
	store.setUserState(user.User{ID: "online", Online: true, LastSeen: now.Add(-time.Hour)})

	s := NewSweeper(store, time.Minute, 2*time.Minute)
	s.now = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.True(t, store.userState("online").Online, "online users are never touched")
	assert.Equal(t, now.Add(-time.Hour), store.userState("online").LastSeen)

	// A second pass finds the same stale user and leaves it in the same state.
	before := store.userState("stale")
	n, err = s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, before, store.userState("stale"))
}

func TestNewSweeper_Defaults(t *testing.T) {
	s := NewSweeper(newFakeStore(), 0, -time.Second)

	assert.Equal(t, DefaultSweepInterval, s.interval)
	assert.Equal(t, DefaultOfflineThreshold, s.threshold)
}

type countingPresence struct {
	PresenceStore
	sweeps atomic.Int32
	err    error
}

func (c *countingPresence) ReassertOffline(context.Context, time.Time) (int64, error) {
	c.sweeps.Add(1)
	return 0, c.err
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	store := &countingPresence{err: errors.New("db down")}
	s := NewSweeper(store, 5*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.sweeps.Load() >= 2 }, time.Second, time.Millisecond,
		"sweep errors do not stop the loop")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
