package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Frame is one encoded protocol message.
type Frame []byte

// SignalConnection abstracts the realtime transport of one member.
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: it queues or fails with ErrBackpressure / ErrClosed.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
