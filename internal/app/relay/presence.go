package relay

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huddlehq/relay/internal/app"
	"github.com/huddlehq/relay/internal/core"
	"github.com/huddlehq/relay/internal/domain"
	"github.com/huddlehq/relay/internal/wire"
)

// Join moves the connection into roomID: room lookup, participant row to
// ACTIVE, then the in-memory membership commit. The store write always
// precedes the in-memory change so a store failure leaves no divergence.
func (co *Coordinator) Join(c *app.Connection, roomID domain.RoomID) {
	ctx, cancel := co.storeCtx()
	defer cancel()

	room, err := co.Store.RoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, core.ErrRoomNotFound) {
			co.sendError(c, "room not found")
			return
		}
		log.Error().Err(err).Str("module", "app.relay").Str("room", string(roomID)).Msg("room lookup")
		co.sendError(c, "error joining room")
		return
	}

	// A connection holds at most one room; switching rooms is an implicit
	// deliberate leave of the previous one. The old membership entry must
	// go even if its status write fails, or the one-room invariant breaks.
	if prev, ok := c.Room(); ok && prev != roomID {
		co.leave(c, prev, domain.PresenceInactive, true)
	}

	if err := co.Store.ParticipantUpsert(ctx, c.User.ID, roomID, domain.PresenceActive); err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("user", string(c.User.ID)).Str("room", string(roomID)).Msg("participant upsert")
		co.sendError(c, "error joining room")
		return
	}

	added := co.Rooms.Add(roomID, c.User.ID)
	c.SetRoom(roomID)
	log.Info().Str("module", "app.relay").Str("user", string(c.User.ID)).Str("room", string(roomID)).Str("room_name", room.Name).Msg("joined room")

	co.send(c, wire.TypeRoomJoined, wire.RoomJoined{
		RoomID: string(roomID),
		Users:  co.membersSnapshot(roomID, c.User.ID),
	})

	// A re-join of the occupied room replays the snapshot but must not
	// announce the member twice.
	if added {
		frame, err := wire.Event(wire.TypeRoomUpdate, wire.RoomUpdate{
			Action:   wire.ActionJoined,
			UserID:   c.User.ID,
			Username: c.User.Username,
		})
		if err != nil {
			log.Error().Err(err).Str("module", "app.relay").Msg("marshal room-update")
			return
		}
		co.broadcast(roomID, frame, c.User.ID)
	}

	// A new session for this identity may have registered while the commit
	// was in flight. Its eviction cleanup saw no room on this entry and the
	// superseded entry's detach skips the leave sequence, so the membership
	// just committed would outlive the connection. Undo it here.
	if cur, ok := co.Registry.Get(c.User.ID); !ok || cur != c {
		co.leave(c, roomID, domain.PresenceDisconnected, true)
	}
}

// Leave handles an explicit leave-room command. Leaving a room the
// connection does not occupy is a no-op.
func (co *Coordinator) Leave(c *app.Connection, roomID domain.RoomID) {
	if cur, ok := c.Room(); !ok || cur != roomID {
		return
	}
	co.leave(c, roomID, domain.PresenceInactive, false)
}

// leave is the shared leave sequence: persist the terminal status, drop
// the membership entry, clear the room reference, notify the remainder.
// The member-left broadcast is gated on the membership removal, which is
// atomic, so a leave racing a disconnect nets exactly one event.
//
// force is set on transport-drop cleanup: the in-memory state must go
// even when the store write fails, because the connection no longer
// exists to retry.
func (co *Coordinator) leave(c *app.Connection, roomID domain.RoomID, status domain.PresenceStatus, force bool) {
	ctx, cancel := co.storeCtx()
	defer cancel()

	if err := co.Store.ParticipantStatusUpdate(ctx, c.User.ID, roomID, status, time.Now().UTC()); err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("user", string(c.User.ID)).Str("room", string(roomID)).Msg("participant status update")
		if !force {
			co.sendError(c, "error leaving room")
			return
		}
	}

	removed := co.Rooms.Remove(roomID, c.User.ID)
	c.ClearRoom(roomID)
	if !removed {
		return
	}
	log.Info().Str("module", "app.relay").Str("user", string(c.User.ID)).Str("room", string(roomID)).Str("status", string(status)).Msg("left room")

	frame, err := wire.Event(wire.TypeRoomUpdate, wire.RoomUpdate{
		Action:   wire.ActionLeft,
		UserID:   c.User.ID,
		Username: c.User.Username,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal room-update")
		return
	}
	co.broadcast(roomID, frame, c.User.ID)
}

// UpdateMedia merges the provided flags into the connection's media state
// and announces the merged state to the other room members. Nothing is
// persisted.
func (co *Coordinator) UpdateMedia(c *app.Connection, update domain.MediaStateUpdate) {
	roomID, ok := c.Room()
	if !ok {
		return
	}
	merged := c.MergeMedia(update)

	frame, err := wire.Event(wire.TypeRoomUpdate, wire.RoomUpdate{
		Action:     wire.ActionMediaChanged,
		UserID:     c.User.ID,
		Username:   c.User.Username,
		MediaState: &merged,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal room-update")
		return
	}
	co.broadcast(roomID, frame, c.User.ID)
}
