package domain

// PresenceStatus is the persisted per-(user, room) participation state.
// Transitions: NONE -> ACTIVE -> {INACTIVE | DISCONNECTED} -> ACTIVE.
type PresenceStatus string

const (
	// PresenceActive marks a user currently joined to the room.
	PresenceActive PresenceStatus = "ACTIVE"
	// PresenceInactive marks a deliberate leave-room.
	PresenceInactive PresenceStatus = "INACTIVE"
	// PresenceDisconnected marks a transport drop without an explicit leave.
	PresenceDisconnected PresenceStatus = "DISCONNECTED"
)
