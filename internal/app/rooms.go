package app

import (
	"sync"

	"github.com/huddlehq/relay/internal/domain"
)

// RoomIndex maps a room to the set of user ids currently present. Sets are
// created lazily on first join and dropped when the last member leaves.
// Every mutation happens under one lock acquisition, so two racing joins
// to an unpopulated room cannot both create its set.
type RoomIndex struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]map[domain.UserID]struct{}
}

func NewRoomIndex() *RoomIndex {
	return &RoomIndex{rooms: make(map[domain.RoomID]map[domain.UserID]struct{})}
}

// Add inserts the user and reports whether the set changed.
func (x *RoomIndex) Add(roomID domain.RoomID, userID domain.UserID) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	set, ok := x.rooms[roomID]
	if !ok {
		set = make(map[domain.UserID]struct{})
		x.rooms[roomID] = set
	}
	if _, dup := set[userID]; dup {
		return false
	}
	set[userID] = struct{}{}
	return true
}

// Remove deletes the user and drops the set once empty. Reports whether
// the user was actually a member.
func (x *RoomIndex) Remove(roomID domain.RoomID, userID domain.UserID) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	set, ok := x.rooms[roomID]
	if !ok {
		return false
	}
	if _, member := set[userID]; !member {
		return false
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(x.rooms, roomID)
	}
	return true
}

// Members snapshots the current membership of a room.
func (x *RoomIndex) Members(roomID domain.RoomID) []domain.UserID {
	x.mu.RLock()
	defer x.mu.RUnlock()
	set := x.rooms[roomID]
	out := make([]domain.UserID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func (x *RoomIndex) Contains(roomID domain.RoomID, userID domain.UserID) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.rooms[roomID][userID]
	return ok
}

// RoomCount reports how many rooms currently hold members.
func (x *RoomIndex) RoomCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.rooms)
}
