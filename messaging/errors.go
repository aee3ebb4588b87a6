package messaging

import "errors"

// Outgoing errors.
var (
	// ErrTooManyNotAcked means the resend queue is full. The connection is
	// still usable once acknowledgements drain the queue.
	ErrTooManyNotAcked = errors.New("too many not acked messages")
	// ErrCounterExhausted means the 30-bit counter reached its maximum. The
	// connection cannot originate messages any more and must be replaced.
	ErrCounterExhausted = errors.New("sequence counter exhausted")
	// ErrPacketTooLarge means a message cannot fit a packet on its own.
	ErrPacketTooLarge = errors.New("message does not fit a packet")
	// ErrConnectionClosed is returned after Close.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrReservedType is returned for typed messages using an item type
	// byte reserved by the framing.
	ErrReservedType = errors.New("reserved message type")
)

// Incoming errors. They are used for logging and statistics only and never
// returned from HandleIncomingPacket.
var (
	// ErrFraming marks any malformed plaintext frame.
	ErrFraming = errors.New("framing error")
	// ErrAuthentication marks a packet whose tag does not match.
	ErrAuthentication = errors.New("authentication failed")
	// ErrReplay marks a duplicate or too-old packet counter.
	ErrReplay = errors.New("replayed packet")
)
