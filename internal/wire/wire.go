// Package wire defines the websocket envelope and the closed set of
// message kinds the relay speaks. Payloads are decoded here, at the
// boundary, so handlers only ever see typed values. Negotiation payloads
// are the one exception: they stay raw bytes end to end.
package wire

import (
	"encoding/json"
	"errors"

	"github.com/huddlehq/relay/internal/core"
	"github.com/huddlehq/relay/internal/domain"
)

// Inbound message kinds.
const (
	TypeJoinRoom     = "join-room"
	TypeLeaveRoom    = "leave-room"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeChatMessage  = "chat-message"
	TypeMediaState   = "media-state-changed"
)

// Outbound-only message kinds.
const (
	TypeConnectionEstablished = "connection-established"
	TypeRoomJoined            = "room-joined"
	TypeRoomUpdate            = "room-update"
	TypeError                 = "error"
)

// Room-update actions.
const (
	ActionJoined       = "joined"
	ActionLeft         = "left"
	ActionMediaChanged = "media-changed"
)

var (
	ErrMissingRoomID  = errors.New("missing roomId")
	ErrMissingContent = errors.New("missing content")
	ErrMissingTarget  = errors.New("missing targetUserId")
)

// Envelope is the wire frame shared by both directions:
// { type, payload, roomId?, targetUserId? }.
type Envelope struct {
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	RoomID       string          `json:"roomId,omitempty"`
	TargetUserID string          `json:"targetUserId,omitempty"`
}

func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Room resolves the room reference for join/leave kinds. Clients may put
// it at the envelope top level or inside the payload.
func (e *Envelope) Room() (domain.RoomID, error) {
	if e.RoomID != "" {
		return domain.RoomID(e.RoomID), nil
	}
	var p struct {
		RoomID string `json:"roomId"`
	}
	if len(e.Payload) > 0 {
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "", err
		}
	}
	if p.RoomID == "" {
		return "", ErrMissingRoomID
	}
	return domain.RoomID(p.RoomID), nil
}

// ChatContent decodes a chat-message payload.
func (e *Envelope) ChatContent() (string, error) {
	var p struct {
		Content string `json:"content"`
	}
	if len(e.Payload) > 0 {
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return "", err
		}
	}
	if p.Content == "" {
		return "", ErrMissingContent
	}
	return p.Content, nil
}

// MediaUpdate decodes a media-state-changed payload. Absent flags stay nil.
func (e *Envelope) MediaUpdate() (domain.MediaStateUpdate, error) {
	var u domain.MediaStateUpdate
	if len(e.Payload) == 0 {
		return u, nil
	}
	err := json.Unmarshal(e.Payload, &u)
	return u, err
}

// SignalTarget resolves the negotiation target without interpreting the
// rest of the payload. A malformed payload is not an error here: the
// payload is opaque, only the target matters for routing.
func (e *Envelope) SignalTarget() (domain.UserID, error) {
	if e.TargetUserID != "" {
		return domain.UserID(e.TargetUserID), nil
	}
	var p struct {
		TargetUserID string `json:"targetUserId"`
	}
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &p)
	}
	if p.TargetUserID == "" {
		return "", ErrMissingTarget
	}
	return domain.UserID(p.TargetUserID), nil
}

// MemberInfo is the read-only member view sent in snapshots and updates.
type MemberInfo struct {
	ID         domain.UserID     `json:"id"`
	Username   string            `json:"username"`
	MediaState domain.MediaState `json:"mediaState"`
}

// RoomJoined answers a successful join with the other current members.
type RoomJoined struct {
	RoomID string       `json:"roomId"`
	Users  []MemberInfo `json:"users"`
}

// RoomUpdate notifies remaining members about membership or media changes.
type RoomUpdate struct {
	Action     string             `json:"action"`
	UserID     domain.UserID      `json:"userId"`
	Username   string             `json:"username"`
	MediaState *domain.MediaState `json:"mediaState,omitempty"`
}

// ChatBroadcast is the canonical server-stamped chat echo.
type ChatBroadcast struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Sender    SenderRef     `json:"sender"`
	RoomID    domain.RoomID `json:"roomId"`
	Timestamp int64         `json:"timestamp"`
}

type SenderRef struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}

// ConnectionEstablished greets a freshly registered connection.
type ConnectionEstablished struct {
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username"`
}

// ErrorEvent is the out-of-band failure reply on a still-open connection.
type ErrorEvent struct {
	Message string `json:"message"`
}

// Event marshals an outbound envelope with a typed payload.
func Event(kind string, payload any) (core.Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: kind, Payload: raw})
}

// signalForward carries a relayed negotiation message. The payload bytes
// pass through untouched; only the origin annotation is added.
type signalForward struct {
	Type       string          `json:"type"`
	FromUserID domain.UserID   `json:"fromUserId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// SignalForward marshals a relayed offer/answer/ice-candidate frame.
func SignalForward(kind string, from domain.UserID, payload json.RawMessage) (core.Frame, error) {
	return json.Marshal(signalForward{Type: kind, FromUserID: from, Payload: payload})
}
