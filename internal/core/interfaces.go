package core

import "errors"

// Frame is a raw outbound wire payload, already marshaled.
type Frame []byte

// ErrBackpressure reports a full send buffer on a live connection.
// The frame is dropped; the sender's handler is never blocked.
var ErrBackpressure = errors.New("backpressure")

// SignalConnection abstracts the duplex messaging transport of one client.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	// Close terminates the transport with a close code and reason.
	Close(code int, reason string)
}
