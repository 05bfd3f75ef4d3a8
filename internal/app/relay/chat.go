package relay

import (
	"github.com/rs/zerolog/log"

	"github.com/huddlehq/relay/internal/app"
	"github.com/huddlehq/relay/internal/wire"
)

// SendChat persists the message and then fans the canonical, server-stamped
// copy out to every member of the sender's room, sender included. A
// connection outside any room is silently ignored. Persistence runs off the
// read pump; the broadcast resumes once the store write completes, and a
// failed write aborts the fan-out entirely.
func (co *Coordinator) SendChat(c *app.Connection, content string) {
	roomID, ok := c.Room()
	if !ok {
		log.Debug().Str("module", "app.relay").Str("user", string(c.User.ID)).Msg("chat without a room, ignored")
		return
	}

	go func() {
		ctx, cancel := co.storeCtx()
		defer cancel()

		msg, err := co.Store.MessageCreate(ctx, content, c.User.ID, roomID)
		if err != nil {
			log.Error().Err(err).Str("module", "app.relay").Str("user", string(c.User.ID)).Str("room", string(roomID)).Msg("message create")
			return
		}

		frame, err := wire.Event(wire.TypeChatMessage, wire.ChatBroadcast{
			ID:      msg.ID,
			Content: msg.Content,
			Sender: wire.SenderRef{
				ID:       c.User.ID,
				Username: c.User.Username,
			},
			RoomID:    msg.RoomID,
			Timestamp: msg.CreatedAt.UnixMilli(),
		})
		if err != nil {
			log.Error().Err(err).Str("module", "app.relay").Msg("marshal chat broadcast")
			return
		}
		// No exclusion: the sender receives the canonical echo too.
		co.broadcast(roomID, frame, "")
	}()
}
