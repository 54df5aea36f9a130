package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"livechat/internal/app/db"
	"livechat/internal/app/group"
	"livechat/internal/app/message"
	"livechat/internal/app/storage"
	"livechat/internal/app/user"
)

// --- Conn ---

type fakeConn struct {
	id     string
	userID string

	mu     sync.Mutex
	frames [][]byte
	full   bool
	closed bool
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{id: id, userID: userID}
}

func (c *fakeConn) ID() string     { return c.id }
func (c *fakeConn) UserID() string { return c.userID }

func (c *fakeConn) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.full || c.closed {
		return false
	}
	c.frames = append(c.frames, frame)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) setFull(full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = full
}

// events decodes every frame received so far.
func (c *fakeConn) events(t *testing.T) []Envelope {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env)
	}
	return out
}

func (c *fakeConn) eventNames(t *testing.T) []string {
	t.Helper()

	var names []string
	for _, env := range c.events(t) {
		names = append(names, env.Event)
	}
	return names
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// flush waits until every notification published before the call has been delivered.
func flush(t *testing.T, b *Broadcaster) {
	t.Helper()

	barrier := newFakeConn("barrier", "barrier")
	require.NoError(t, b.Publish(context.Background(), Notification{Conn: barrier, Event: "flush"}))
	require.Eventually(t, func() bool {
		return len(barrier.events(t)) == 1
	}, time.Second, time.Millisecond)
}

// --- Gateway + PresenceStore ---

type fakeStore struct {
	mu sync.Mutex

	users    map[string]user.User
	messages []message.Message
	groups   map[string]group.Group
	seq      int

	failCreateMessage error
	failLatest        error
	presenceCalls     []presenceCall
}

type presenceCall struct {
	userID string
	online bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[string]user.User),
		groups: make(map[string]group.Group),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeStore) addUser(id string) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := user.User{ID: id, Username: "name-" + id, LastSeen: time.Unix(0, 0)}
	s.users[id] = u
	return u
}

func (s *fakeStore) addGroup(g group.Group) group.Group {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = s.nextID("group")
	}
	s.groups[g.ID] = g
	return g
}

func (s *fakeStore) addMessage(m message.Message) message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = s.nextID("msg")
	if m.Images == nil {
		m.Images = []message.Image{}
	}
	s.messages = append(s.messages, m)
	return m
}

func (s *fakeStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *fakeStore) FindUser(_ context.Context, id string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, db.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) FindUserByName(_ context.Context, username string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, db.ErrNotFound
}

func (s *fakeStore) CreateMessage(_ context.Context, m message.Message) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreateMessage != nil {
		return message.Message{}, s.failCreateMessage
	}

	if m.SendingIndicatorID != "" {
		for _, existing := range s.messages {
			if existing.SendingIndicatorID == m.SendingIndicatorID {
				return message.Message{}, db.ErrDuplicate
			}
		}
	}

	m.ID = s.nextID("msg")
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *fakeStore) FindMessage(_ context.Context, id string) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return message.Message{}, db.ErrNotFound
}

func (s *fakeStore) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.messages {
		if m.ID == id {
			s.messages = slices.Delete(s.messages, i, i+1)
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *fakeStore) filter(keep func(message.Message) bool) []message.Message {
	out := []message.Message{}
	for _, m := range s.messages {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func between(a, b string) func(message.Message) bool {
	return func(m message.Message) bool {
		return (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a)
	}
}

func toGroup(id string) func(message.Message) bool {
	return func(m message.Message) bool { return m.Receiver == id }
}

func last(msgs []message.Message) *message.Message {
	if len(msgs) == 0 {
		return nil
	}
	m := msgs[len(msgs)-1]
	return &m
}

func (s *fakeStore) ListMessagesBetween(_ context.Context, a, b string) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(between(a, b)), nil
}

func (s *fakeStore) ListMessagesForGroup(_ context.Context, groupID string) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(toGroup(groupID)), nil
}

func (s *fakeStore) LatestMessageBetween(_ context.Context, a, b string) (*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLatest != nil {
		return nil, s.failLatest
	}
	return last(s.filter(between(a, b))), nil
}

func (s *fakeStore) LatestMessageForGroup(_ context.Context, groupID string) (*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLatest != nil {
		return nil, s.failLatest
	}
	return last(s.filter(toGroup(groupID))), nil
}

func (s *fakeStore) CreateGroup(_ context.Context, g group.Group) (group.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g.ID = s.nextID("group")
	s.groups[g.ID] = g
	return g, nil
}

func (s *fakeStore) UpdateGroup(_ context.Context, g group.Group) (group.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[g.ID]; !ok {
		return group.Group{}, db.ErrNotFound
	}
	s.groups[g.ID] = g
	return g, nil
}

func (s *fakeStore) FindGroup(_ context.Context, id string) (group.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return group.Group{}, db.ErrNotFound
	}
	return g, nil
}

func (s *fakeStore) DeleteGroup(_ context.Context, id string) (group.Group, []message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return group.Group{}, nil, db.ErrNotFound
	}

	removed := s.filter(toGroup(id))
	s.messages = slices.DeleteFunc(s.messages, toGroup(id))
	delete(s.groups, id)

	return g, removed, nil
}

func (s *fakeStore) UpdateUserPresence(_ context.Context, id string, online bool, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.presenceCalls = append(s.presenceCalls, presenceCall{userID: id, online: online})

	u, ok := s.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.Online = online
	if lastSeen.After(u.LastSeen) {
		u.LastSeen = lastSeen
	}
	s.users[id] = u
	return nil
}

func (s *fakeStore) ReassertOffline(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, u := range s.users {
		if !u.Online && u.LastSeen.Before(cutoff) {
			u.Online = false
			s.users[id] = u
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) userState(id string) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *fakeStore) setUserState(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *fakeStore) lastPresence(id string) (presenceCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.presenceCalls) - 1; i >= 0; i-- {
		if s.presenceCalls[i].userID == id {
			return s.presenceCalls[i], true
		}
	}
	return presenceCall{}, false
}

// --- AssetReleaser ---

const testPublicURL = "https://cdn.test"

// ownership applies the real URL ownership rules without touching object storage.
var ownership = storage.NewServiceWithStore(nil, testPublicURL)

type fakeAssets struct {
	mu       sync.Mutex
	released []string
}

func (a *fakeAssets) Owns(ref, folder, owner string) bool {
	return ownership.Owns(ref, folder, owner)
}

func (a *fakeAssets) Release(_ context.Context, ref string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released = append(a.released, ref)
	return nil
}

func (a *fakeAssets) list() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.released)
}
