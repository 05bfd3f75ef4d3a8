package domain

type RoomID string

// Room is the metadata of a meeting room as the external CRUD service
// defines it. Capacity is informational here; the relay never enforces it.
type Room struct {
	ID       RoomID
	Name     string
	Capacity int
}
