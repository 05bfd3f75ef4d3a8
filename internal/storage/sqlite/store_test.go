package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/huddlehq/relay/internal/core"
	"github.com/huddlehq/relay/internal/domain"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestUserRoundTripAndMiss(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutUser(ctx, domain.User{ID: "u1", Username: "alice"}); err != nil {
		t.Fatalf("put user: %v", err)
	}
	got, err := store.UserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Username != "alice" {
		t.Fatalf("unexpected username %q", got.Username)
	}

	if _, err := store.UserByID(ctx, "ghost"); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRoomRoundTripAndMiss(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutRoom(ctx, domain.Room{ID: "r1", Name: "standup", Capacity: 8}); err != nil {
		t.Fatalf("put room: %v", err)
	}
	got, err := store.RoomByID(ctx, "r1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.Name != "standup" || got.Capacity != 8 {
		t.Fatalf("unexpected room %+v", got)
	}

	if _, err := store.RoomByID(ctx, "ghost"); !errors.Is(err, core.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestParticipantLifecycle(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.ParticipantUpsert(ctx, "u1", "r1", domain.PresenceActive); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	st, err := store.ParticipantStatus(ctx, "u1", "r1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st != domain.PresenceActive {
		t.Fatalf("expected ACTIVE, got %q", st)
	}

	// Upserting an existing row is idempotent, not an error.
	if err := store.ParticipantUpsert(ctx, "u1", "r1", domain.PresenceActive); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	left := time.Now().UTC()
	if err := store.ParticipantStatusUpdate(ctx, "u1", "r1", domain.PresenceDisconnected, left); err != nil {
		t.Fatalf("status update: %v", err)
	}
	st, err = store.ParticipantStatus(ctx, "u1", "r1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st != domain.PresenceDisconnected {
		t.Fatalf("expected DISCONNECTED, got %q", st)
	}

	// Rejoin reactivates the same row.
	if err := store.ParticipantUpsert(ctx, "u1", "r1", domain.PresenceActive); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	st, _ = store.ParticipantStatus(ctx, "u1", "r1")
	if st != domain.PresenceActive {
		t.Fatalf("expected ACTIVE after rejoin, got %q", st)
	}
}

func TestParticipantStatusUpdateOnAbsentRow(t *testing.T) {
	store := openTempStore(t)

	// The leave path is idempotent end to end; a missing row is fine.
	if err := store.ParticipantStatusUpdate(context.Background(), "u1", "r1", domain.PresenceInactive, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMessageCreateStampsIDAndTimestamp(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Millisecond)
	msg, err := store.MessageCreate(ctx, "hi there", "u1", "r1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected a server-assigned id")
	}
	if msg.CreatedAt.Before(before) {
		t.Fatalf("timestamp %v predates call time", msg.CreatedAt)
	}

	msgs, err := store.MessagesByRoom(ctx, "r1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != msg.ID || msgs[0].Content != "hi there" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestMessagesByRoomOrderAndLimit(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		if _, err := store.MessageCreate(ctx, content, "u1", "r1"); err != nil {
			t.Fatalf("create: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	msgs, err := store.MessagesByRoom(ctx, "r1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "two" || msgs[1].Content != "three" {
		t.Fatalf("expected the latest messages oldest-first, got %+v", msgs)
	}
}
