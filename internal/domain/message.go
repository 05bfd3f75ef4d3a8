package domain

import "time"

// ChatMessage is the canonical, persisted form of a chat message.
// ID and CreatedAt are assigned by the store; clients never supply them.
type ChatMessage struct {
	ID        string
	RoomID    RoomID
	SenderID  UserID
	Content   string
	CreatedAt time.Time
}
