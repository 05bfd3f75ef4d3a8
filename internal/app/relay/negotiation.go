package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/huddlehq/relay/internal/app"
	"github.com/huddlehq/relay/internal/domain"
	"github.com/huddlehq/relay/internal/wire"
)

// RelaySignal forwards an opaque peer-negotiation payload to the target's
// live connection, annotated with the sender as origin. The payload is
// never inspected or validated; the two negotiating ends own its schema.
// An offline target means a silent drop, no nack to the sender.
func (co *Coordinator) RelaySignal(c *app.Connection, kind string, target domain.UserID, payload json.RawMessage) {
	tc, ok := co.Registry.Get(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("kind", kind).Str("target", string(target)).Msg("signal target offline, dropped")
		return
	}

	frame, err := wire.SignalForward(kind, c.User.ID, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("kind", kind).Msg("marshal signal forward")
		return
	}
	if err := tc.Conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("target", string(target)).Msg("dropped signal frame")
	}
}
