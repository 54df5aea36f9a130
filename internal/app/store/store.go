/*
Package store is the PostgreSQL implementation of the persistence gateway and the presence
store used by the realtime core and the HTTP handlers.

Ids are UUID columns; they cross this boundary as strings. A malformed id behaves like a
missing record (db.ErrNotFound).
*/
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"livechat/internal/app/db"
	"livechat/internal/app/group"
	"livechat/internal/app/message"
	"livechat/internal/app/user"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

const userColumns = `id::text, username, password_hash, online, last_seen, avatar`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Online, &u.LastSeen, &u.Avatar)
	return u, err
}

// CreateUser inserts a new account. A taken username yields db.ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING `+userColumns,
		username, passwordHash,
	))
	if err != nil {
		return user.User{}, fmt.Errorf("create user %q: %w", username, db.Translate(err))
	}
	return u, nil
}

// FindUser loads a user by id.
func (s *Store) FindUser(ctx context.Context, id string) (user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1::uuid`, id,
	))
	if err != nil {
		return user.User{}, fmt.Errorf("find user %s: %w", id, db.Translate(err))
	}
	return u, nil
}

// FindUserByName loads a user by username.
func (s *Store) FindUserByName(ctx context.Context, username string) (user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username,
	))
	if err != nil {
		return user.User{}, fmt.Errorf("find user %q: %w", username, db.Translate(err))
	}
	return u, nil
}

// UpdateAvatar sets the avatar URL of a user and returns the previous one.
func (s *Store) UpdateAvatar(ctx context.Context, id, avatar string) (string, error) {
	var previous string

	err := s.withTx(ctx, func(q querier) error {
		if err := q.QueryRow(ctx,
			`SELECT avatar FROM users WHERE id = $1::uuid FOR UPDATE`, id,
		).Scan(&previous); err != nil {
			return db.Translate(err)
		}

		_, err := q.Exec(ctx, `UPDATE users SET avatar = $2 WHERE id = $1::uuid`, id, avatar)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("update avatar of %s: %w", id, err)
	}
	return previous, nil
}

// UpdateUserPresence records the presence of a user. last_seen never moves backwards.
func (s *Store) UpdateUserPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET online = $2, last_seen = GREATEST(last_seen, $3) WHERE id = $1::uuid`,
		id, online, lastSeen,
	)
	if err != nil {
		return fmt.Errorf("update presence of %s: %w", id, db.Translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update presence of %s: %w", id, db.ErrNotFound)
	}
	return nil
}

// ReassertOffline marks offline every user that is already offline and was last seen before
// cutoff. Users flagged online are left alone. It returns the number of rows touched.
func (s *Store) ReassertOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET online = FALSE WHERE online = FALSE AND last_seen < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("reassert offline users: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

const messageColumns = `id::text, sender::text, receiver::text, content, images, created_at, COALESCE(sending_indicator_id, '')`

func scanMessage(row pgx.Row) (message.Message, error) {
	var m message.Message
	err := row.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Content, &m.Images, &m.CreatedAt, &m.SendingIndicatorID)
	if m.Images == nil {
		m.Images = []message.Image{}
	}
	return m, err
}

func collectMessages(rows pgx.Rows) ([]message.Message, error) {
	defer rows.Close()

	msgs := []message.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateMessage stores m and returns it with its generated id. A repeated sending indicator
// yields db.ErrDuplicate.
func (s *Store) CreateMessage(ctx context.Context, m message.Message) (message.Message, error) {
	images := m.Images
	if images == nil {
		images = []message.Image{}
	}

	created, err := scanMessage(s.pool.QueryRow(ctx,
		`INSERT INTO messages (sender, receiver, content, images, created_at, sending_indicator_id)
		 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)
		 RETURNING `+messageColumns,
		m.Sender, m.Receiver, m.Content, images, m.CreatedAt, nullable(m.SendingIndicatorID),
	))
	if err != nil {
		return message.Message{}, fmt.Errorf("create message: %w", db.Translate(err))
	}
	return created, nil
}

// FindMessage loads a message by id.
func (s *Store) FindMessage(ctx context.Context, id string) (message.Message, error) {
	m, err := scanMessage(s.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1::uuid`, id,
	))
	if err != nil {
		return message.Message{}, fmt.Errorf("find message %s: %w", id, db.Translate(err))
	}
	return m, nil
}

// DeleteMessage removes a message.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("delete message %s: %w", id, db.Translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete message %s: %w", id, db.ErrNotFound)
	}
	return nil
}

const betweenCondition = `((sender = $1::uuid AND receiver = $2::uuid) OR (sender = $2::uuid AND receiver = $1::uuid))`

// ListMessagesBetween returns the direct conversation of a and b, oldest first.
func (s *Store) ListMessagesBetween(ctx context.Context, a, b string) ([]message.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE `+betweenCondition+` ORDER BY created_at, id`, a, b,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages between %s and %s: %w", a, b, db.Translate(err))
	}

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, fmt.Errorf("list messages between %s and %s: %w", a, b, db.Translate(err))
	}
	return msgs, nil
}

// ListMessagesForGroup returns the messages of a group, oldest first.
func (s *Store) ListMessagesForGroup(ctx context.Context, groupID string) ([]message.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE receiver = $1::uuid ORDER BY created_at, id`, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages of group %s: %w", groupID, db.Translate(err))
	}

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, fmt.Errorf("list messages of group %s: %w", groupID, db.Translate(err))
	}
	return msgs, nil
}

func latest(ctx context.Context, q querier, sql string, args ...any) (*message.Message, error) {
	m, err := scanMessage(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, db.Translate(err)
	}
	return &m, nil
}

// LatestMessageBetween returns the newest message between a and b, or nil when there is none.
func (s *Store) LatestMessageBetween(ctx context.Context, a, b string) (*message.Message, error) {
	m, err := latest(ctx, s.pool,
		`SELECT `+messageColumns+` FROM messages WHERE `+betweenCondition+` ORDER BY created_at DESC, id DESC LIMIT 1`, a, b,
	)
	if err != nil {
		return nil, fmt.Errorf("latest message between %s and %s: %w", a, b, err)
	}
	return m, nil
}

// LatestMessageForGroup returns the newest message of a group, or nil when there is none.
func (s *Store) LatestMessageForGroup(ctx context.Context, groupID string) (*message.Message, error) {
	m, err := latest(ctx, s.pool,
		`SELECT `+messageColumns+` FROM messages WHERE receiver = $1::uuid ORDER BY created_at DESC, id DESC LIMIT 1`, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("latest message of group %s: %w", groupID, err)
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Groups
// ---------------------------------------------------------------------------

const groupColumns = `id::text, name, creator::text, members::text[], image, created_at`

func scanGroup(row pgx.Row) (group.Group, error) {
	var g group.Group
	err := row.Scan(&g.ID, &g.Name, &g.Creator, &g.Members, &g.Image, &g.CreatedAt)
	return g, err
}

// CreateGroup stores g and returns it with its generated id.
func (s *Store) CreateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	created, err := scanGroup(s.pool.QueryRow(ctx,
		`INSERT INTO groups (name, creator, members, image)
		 VALUES ($1, $2::uuid, $3::text[]::uuid[], $4)
		 RETURNING `+groupColumns,
		g.Name, g.Creator, g.Members, g.Image,
	))
	if err != nil {
		return group.Group{}, fmt.Errorf("create group %q: %w", g.Name, db.Translate(err))
	}
	return created, nil
}

// UpdateGroup overwrites the name, members and image of g.
func (s *Store) UpdateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	updated, err := scanGroup(s.pool.QueryRow(ctx,
		`UPDATE groups SET name = $2, members = $3::text[]::uuid[], image = $4
		 WHERE id = $1::uuid
		 RETURNING `+groupColumns,
		g.ID, g.Name, g.Members, g.Image,
	))
	if err != nil {
		return group.Group{}, fmt.Errorf("update group %s: %w", g.ID, db.Translate(err))
	}
	return updated, nil
}

// FindGroup loads a group by id.
func (s *Store) FindGroup(ctx context.Context, id string) (group.Group, error) {
	g, err := scanGroup(s.pool.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = $1::uuid`, id,
	))
	if err != nil {
		return group.Group{}, fmt.Errorf("find group %s: %w", id, db.Translate(err))
	}
	return g, nil
}

// DeleteGroup removes a group together with all of its messages in one transaction and
// returns what was removed, so the caller can release the referenced assets.
func (s *Store) DeleteGroup(ctx context.Context, id string) (group.Group, []message.Message, error) {
	var (
		removed group.Group
		msgs    []message.Message
	)

	err := s.withTx(ctx, func(q querier) error {
		g, err := scanGroup(q.QueryRow(ctx,
			`SELECT `+groupColumns+` FROM groups WHERE id = $1::uuid FOR UPDATE`, id,
		))
		if err != nil {
			return db.Translate(err)
		}

		rows, err := q.Query(ctx,
			`DELETE FROM messages WHERE receiver = $1::uuid RETURNING `+messageColumns, id,
		)
		if err != nil {
			return err
		}
		if msgs, err = collectMessages(rows); err != nil {
			return err
		}

		if _, err := q.Exec(ctx, `DELETE FROM groups WHERE id = $1::uuid`, id); err != nil {
			return err
		}

		removed = g
		return nil
	})
	if err != nil {
		return group.Group{}, nil, fmt.Errorf("delete group %s: %w", id, err)
	}
	return removed, msgs, nil
}

// ListGroupsForUser returns the groups userID belongs to with their latest message, most
// recently active first.
func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]group.Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.id::text, g.name, g.creator::text, g.members::text[], g.image, g.created_at,
		       m.id::text, m.sender::text, m.content, m.images, m.created_at
		FROM groups g
		LEFT JOIN LATERAL (
			SELECT id, sender, content, images, created_at
			FROM messages
			WHERE receiver = g.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON TRUE
		WHERE $1::uuid = ANY (g.members)
		ORDER BY COALESCE(m.created_at, g.created_at) DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups of %s: %w", userID, db.Translate(err))
	}
	defer rows.Close()

	summaries := []group.Summary{}
	for rows.Next() {
		var (
			sum       group.Summary
			msgID     *string
			sender    *string
			content   *string
			images    []message.Image
			createdAt *time.Time
		)

		if err := rows.Scan(
			&sum.ID, &sum.Name, &sum.Creator, &sum.Members, &sum.Image, &sum.CreatedAt,
			&msgID, &sender, &content, &images, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan group of %s: %w", userID, err)
		}

		if msgID != nil {
			if images == nil {
				images = []message.Image{}
			}
			sum.LatestMessage = &message.Message{
				ID:        *msgID,
				Sender:    *sender,
				Receiver:  sum.ID,
				Content:   *content,
				Images:    images,
				CreatedAt: *createdAt,
			}
		}

		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups of %s: %w", userID, err)
	}
	return summaries, nil
}
