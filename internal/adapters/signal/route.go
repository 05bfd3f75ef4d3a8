package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/huddlehq/relay/internal/app"
	"github.com/huddlehq/relay/internal/wire"
)

// route is the single dispatch point over the closed message-kind set.
// Unknown kinds are dropped without an error reply; malformed payloads of
// known kinds are rejected here so handlers only see typed values.
func (ctl *Controller) route(entry *app.Connection, data []byte) {
	env, err := wire.Decode(data)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("user", string(entry.User.ID)).Msg("bad envelope, dropped")
		return
	}

	switch env.Type {
	case wire.TypeJoinRoom:
		roomID, err := env.Room()
		if err != nil {
			ctl.sendError(entry, "bad payload")
			return
		}
		ctl.Coordinator.Join(entry, roomID)

	case wire.TypeLeaveRoom:
		roomID, err := env.Room()
		if err != nil {
			ctl.sendError(entry, "bad payload")
			return
		}
		ctl.Coordinator.Leave(entry, roomID)

	case wire.TypeOffer, wire.TypeAnswer, wire.TypeICECandidate:
		target, err := env.SignalTarget()
		if err != nil {
			// Negotiation has no negative acknowledgments at all.
			log.Debug().Str("module", "signal").Str("kind", env.Type).Msg("signal without target, dropped")
			return
		}
		ctl.Coordinator.RelaySignal(entry, env.Type, target, env.Payload)

	case wire.TypeChatMessage:
		content, err := env.ChatContent()
		if err != nil {
			ctl.sendError(entry, "bad payload")
			return
		}
		if ctl.ChatLimiter != nil && !ctl.ChatLimiter.Allow(entry.User.ID) {
			log.Debug().Str("module", "signal").Str("user", string(entry.User.ID)).Msg("chat rate limited, dropped")
			return
		}
		ctl.Coordinator.SendChat(entry, content)

	case wire.TypeMediaState:
		update, err := env.MediaUpdate()
		if err != nil {
			ctl.sendError(entry, "bad payload")
			return
		}
		ctl.Coordinator.UpdateMedia(entry, update)

	default:
		log.Debug().Str("module", "signal").Str("type", env.Type).Msg("unknown message kind, dropped")
	}
}

func (ctl *Controller) sendError(entry *app.Connection, msg string) {
	frame, err := wire.Event(wire.TypeError, wire.ErrorEvent{Message: msg})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal error event")
		return
	}
	if err := entry.Conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("user", string(entry.User.ID)).Msg("dropped error frame")
	}
}
