package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/huddlehq/relay/internal/core"
	"github.com/huddlehq/relay/internal/domain"
)

// Connection is one authenticated live session. The registry owns the map;
// the entry owns its own mutable state (current room, media flags).
type Connection struct {
	User domain.User
	Conn core.SignalConnection

	mu    sync.Mutex
	room  domain.RoomID
	media domain.MediaState
}

func NewConnection(user domain.User, conn core.SignalConnection) *Connection {
	return &Connection{User: user, Conn: conn}
}

// Room returns the current room reference, if any.
func (c *Connection) Room() (domain.RoomID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.room != ""
}

func (c *Connection) SetRoom(id domain.RoomID) {
	c.mu.Lock()
	c.room = id
	c.mu.Unlock()
}

// ClearRoom clears the reference only if it still equals expected and
// reports whether this call did the clearing. An explicit leave racing a
// disconnect cleanup resolves to exactly one winner here.
func (c *Connection) ClearRoom(expected domain.RoomID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room != expected || c.room == "" {
		return false
	}
	c.room = ""
	return true
}

func (c *Connection) Media() domain.MediaState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.media
}

// MergeMedia applies a partial update and returns the merged state.
func (c *Connection) MergeMedia(u domain.MediaStateUpdate) domain.MediaState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.media = u.Apply(c.media)
	return c.media
}

// Registry tracks live connections keyed by user identity. One session per
// identity: installing a new connection hands the previous one back to the
// caller for eviction.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.UserID]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.UserID]*Connection)}
}

// Register installs entry and returns the superseded connection, if any.
func (r *Registry) Register(entry *Connection) (prev *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev = r.conns[entry.User.ID]
	r.conns[entry.User.ID] = entry
	log.Info().Str("module", "app.registry").Str("user", string(entry.User.ID)).Bool("superseded", prev != nil).Msg("registered connection")
	return prev
}

// Unregister removes the entry, but only while it is still the live one
// for that identity. A superseded connection closing late must not evict
// its successor.
func (r *Registry) Unregister(entry *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.conns[entry.User.ID]
	if !ok || cur != entry {
		return false
	}
	delete(r.conns, entry.User.ID)
	log.Info().Str("module", "app.registry").Str("user", string(entry.User.ID)).Msg("unregistered connection")
	return true
}

func (r *Registry) Get(id domain.UserID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
