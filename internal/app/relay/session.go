package relay

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/huddlehq/relay/internal/app"
	"github.com/huddlehq/relay/internal/core"
	"github.com/huddlehq/relay/internal/domain"
	"github.com/huddlehq/relay/internal/wire"
)

// Attach registers an authenticated connection and greets it. One live
// session per identity: a previous connection for the same user is kicked
// from its room, closed with a policy code, and replaced.
func (co *Coordinator) Attach(user domain.User, conn core.SignalConnection) *app.Connection {
	entry := app.NewConnection(user, conn)
	prev := co.Registry.Register(entry)
	if prev != nil {
		if roomID, ok := prev.Room(); ok {
			co.leave(prev, roomID, domain.PresenceDisconnected, true)
		}
		prev.Conn.Close(websocket.ClosePolicyViolation, "session superseded")
		log.Info().Str("module", "app.relay").Str("user", string(user.ID)).Msg("superseded previous session")
	}
	co.send(entry, wire.TypeConnectionEstablished, wire.ConnectionEstablished{
		UserID:   user.ID,
		Username: user.Username,
	})
	return entry
}

// Detach is the unconditional transport-closure cleanup. Safe to call for
// a connection that never joined a room, and safe to call concurrently
// with an explicit leave for the same connection.
func (co *Coordinator) Detach(c *app.Connection) {
	if !co.Registry.Unregister(c) {
		// Superseded: the successor owns this identity's state now.
		return
	}
	if roomID, ok := c.Room(); ok {
		co.leave(c, roomID, domain.PresenceDisconnected, true)
	}
}
