// Package relay drives the live-session state transitions and the fan-out
// semantics of the three message classes: presence, chat, negotiation.
package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huddlehq/relay/internal/app"
	"github.com/huddlehq/relay/internal/core"
	"github.com/huddlehq/relay/internal/domain"
	"github.com/huddlehq/relay/internal/wire"
)

const defaultStoreTimeout = 5 * time.Second

// Coordinator owns the in-memory session state and synchronizes it with
// the durable store. One instance serves the whole process.
type Coordinator struct {
	Registry *app.Registry
	Rooms    *app.RoomIndex
	Store    core.Store

	// StoreTimeout bounds every persistence call so no handler can hang
	// on an unavailable store.
	StoreTimeout time.Duration
}

func NewCoordinator(reg *app.Registry, rooms *app.RoomIndex, store core.Store, storeTimeout time.Duration) *Coordinator {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &Coordinator{
		Registry:     reg,
		Rooms:        rooms,
		Store:        store,
		StoreTimeout: storeTimeout,
	}
}

func (co *Coordinator) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), co.StoreTimeout)
}

// broadcast fans a frame out to the room's current members. exclude is the
// originator for presence/media events and empty for chat.
func (co *Coordinator) broadcast(roomID domain.RoomID, frame core.Frame, exclude domain.UserID) {
	for _, id := range co.Rooms.Members(roomID) {
		if id == exclude {
			continue
		}
		conn, ok := co.Registry.Get(id)
		if !ok {
			continue
		}
		if err := conn.Conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.relay").Str("user", string(id)).Str("room", string(roomID)).Msg("dropped outbound frame")
		}
	}
}

func (co *Coordinator) send(c *app.Connection, kind string, payload any) {
	frame, err := wire.Event(kind, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("kind", kind).Msg("marshal event")
		return
	}
	if err := c.Conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("user", string(c.User.ID)).Msg("dropped reply frame")
	}
}

func (co *Coordinator) sendError(c *app.Connection, msg string) {
	co.send(c, wire.TypeError, wire.ErrorEvent{Message: msg})
}

// membersSnapshot lists the room's members with their media state,
// excluding the given user.
func (co *Coordinator) membersSnapshot(roomID domain.RoomID, exclude domain.UserID) []wire.MemberInfo {
	members := co.Rooms.Members(roomID)
	out := make([]wire.MemberInfo, 0, len(members))
	for _, id := range members {
		if id == exclude {
			continue
		}
		conn, ok := co.Registry.Get(id)
		if !ok {
			continue
		}
		out = append(out, wire.MemberInfo{
			ID:         conn.User.ID,
			Username:   conn.User.Username,
			MediaState: conn.Media(),
		})
	}
	return out
}
