package signal

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/huddlehq/relay/internal/core"
)

var errConnClosed = errors.New("connection closed")

// wsConn wraps a websocket with a buffered outbound queue. TrySend never
// blocks: a full queue means the frame is dropped and the caller decides
// what to log.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWSConn(ws *websocket.Conn, buffer int) *wsConn {
	if buffer <= 0 {
		buffer = 32
	}
	return &wsConn{
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// Close sends a close frame with the given code and tears the transport
// down. Idempotent; late callers are no-ops.
func (c *wsConn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if code != 0 {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	_ = c.conn.Close()
}
