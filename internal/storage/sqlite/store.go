// Package sqlite implements the relay's durable store: user and room
// lookups, participant presence rows, and chat messages.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/huddlehq/relay/internal/core"
	"github.com/huddlehq/relay/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL,
	email      TEXT,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	capacity   INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
	user_id   TEXT NOT NULL,
	room_id   TEXT NOT NULL,
	status    TEXT NOT NULL,
	joined_at INTEGER NOT NULL,
	left_at   INTEGER,
	PRIMARY KEY (user_id, room_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	room_id    TEXT NOT NULL,
	sender_id  TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages (room_id, created_at);
`

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements core.Store over a single SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens the store and applies the schema. WAL keeps the relay's
// short writes from blocking reads.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UserByID resolves a stored user; misses map to core.ErrUserNotFound.
func (s *Store) UserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username FROM users WHERE id = ?`, string(id),
	).Scan(&u.ID, &u.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// RoomByID resolves room metadata; misses map to core.ErrRoomNotFound.
func (s *Store) RoomByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var r domain.Room
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, capacity FROM rooms WHERE id = ?`, string(id),
	).Scan(&r.ID, &r.Name, &r.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	return &r, nil
}

// ParticipantUpsert writes the (user, room) presence row. Re-activating an
// existing row refreshes joined_at and clears left_at; the whole statement
// is one atomic upsert.
func (s *Store) ParticipantUpsert(ctx context.Context, userID domain.UserID, roomID domain.RoomID, status domain.PresenceStatus) error {
	now := toMillis(time.Now())
	_, err := s.db.ExecContext(ctx, `
INSERT INTO participants (user_id, room_id, status, joined_at, left_at)
VALUES (?, ?, ?, ?, NULL)
ON CONFLICT (user_id, room_id) DO UPDATE SET
	status    = excluded.status,
	joined_at = excluded.joined_at,
	left_at   = NULL`,
		string(userID), string(roomID), string(status), now)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

// ParticipantStatusUpdate stamps the terminal status and left_at on the
// active row. Updating an absent row is not an error; the leave path is
// idempotent end to end.
func (s *Store) ParticipantStatusUpdate(ctx context.Context, userID domain.UserID, roomID domain.RoomID, status domain.PresenceStatus, leftAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE participants SET status = ?, left_at = ?
WHERE user_id = ? AND room_id = ?`,
		string(status), toMillis(leftAt), string(userID), string(roomID))
	if err != nil {
		return fmt.Errorf("update participant status: %w", err)
	}
	return nil
}

// ParticipantStatus reads back the presence row for a (user, room) pair.
func (s *Store) ParticipantStatus(ctx context.Context, userID domain.UserID, roomID domain.RoomID) (domain.PresenceStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM participants WHERE user_id = ? AND room_id = ?`,
		string(userID), string(roomID),
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sql.ErrNoRows
	}
	if err != nil {
		return "", fmt.Errorf("select participant: %w", err)
	}
	return domain.PresenceStatus(status), nil
}

// MessageCreate persists a chat message and returns the canonical record
// with the server-assigned id and timestamp.
func (s *Store) MessageCreate(ctx context.Context, content string, senderID domain.UserID, roomID domain.RoomID) (*domain.ChatMessage, error) {
	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO messages (id, room_id, sender_id, content, created_at)
VALUES (?, ?, ?, ?, ?)`,
		msg.ID, string(msg.RoomID), string(msg.SenderID), msg.Content, toMillis(msg.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// PutUser inserts or refreshes a user record. The account service owns
// user CRUD; the relay exposes this write for seeding and tests.
func (s *Store) PutUser(ctx context.Context, user domain.User) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, username, email, created_at)
VALUES (?, ?, NULL, ?)
ON CONFLICT (id) DO UPDATE SET username = excluded.username`,
		string(user.ID), user.Username, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// PutRoom inserts or refreshes a room record, same caveat as PutUser.
func (s *Store) PutRoom(ctx context.Context, room domain.Room) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO rooms (id, name, capacity, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, capacity = excluded.capacity`,
		string(room.ID), room.Name, room.Capacity, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("put room: %w", err)
	}
	return nil
}

// MessagesByRoom returns the most recent messages for a room, oldest
// first, capped at limit.
func (s *Store) MessagesByRoom(ctx context.Context, roomID domain.RoomID, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, room_id, sender_id, content, created_at
FROM (
	SELECT id, room_id, sender_id, content, created_at
	FROM messages WHERE room_id = ?
	ORDER BY created_at DESC LIMIT ?
) ORDER BY created_at ASC`,
		string(roomID), limit)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var created int64
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = fromMillis(created)
		out = append(out, m)
	}
	return out, rows.Err()
}
