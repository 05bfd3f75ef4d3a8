package core

import (
	"context"
	"errors"
	"time"

	"github.com/huddlehq/relay/internal/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrRoomNotFound = errors.New("room not found")
)

// UserSource resolves stored user records. Backed by the same store the
// account service writes; the relay only reads it.
type UserSource interface {
	UserByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

// RoomSource resolves room metadata. Misses return ErrRoomNotFound.
type RoomSource interface {
	RoomByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
}

// PresenceStore owns the persisted participant rows. Upserts are atomic
// per (user, room); the relay persists before committing in-memory state.
type PresenceStore interface {
	ParticipantUpsert(ctx context.Context, userID domain.UserID, roomID domain.RoomID, status domain.PresenceStatus) error
	ParticipantStatusUpdate(ctx context.Context, userID domain.UserID, roomID domain.RoomID, status domain.PresenceStatus, leftAt time.Time) error
}

// MessageStore persists chat messages and stamps them with id and timestamp.
type MessageStore interface {
	MessageCreate(ctx context.Context, content string, senderID domain.UserID, roomID domain.RoomID) (*domain.ChatMessage, error)
}

// Store is the full durable-store surface the relay consumes.
type Store interface {
	UserSource
	RoomSource
	PresenceStore
	MessageStore
}

// CredentialVerifier turns a bearer credential into an authenticated user.
// Any failure refuses the connection before registration.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (*domain.User, error)
}
