package interfaces

import (
	"fmt"
	"time"
)

// ServiceCause identifies why a connection asked to be serviced.
type ServiceCause int

const (
	// CauseImmediate asks for a service packet as soon as possible, used when
	// a new reliable message must be acknowledged right away.
	CauseImmediate ServiceCause = iota
	// CauseAcks fires when queued acknowledgements have waited long enough.
	CauseAcks
	// CauseResend fires when not-yet-acked messages may be due for resend.
	CauseResend
)

// String returns a human-readable name for the cause.
func (c ServiceCause) String() string {
	switch c {
	case CauseImmediate:
		return "immediate"
	case CauseAcks:
		return "acks"
	case CauseResend:
		return "resend"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// IServiceScheduler receives delayed service requests from a connection.
//
// After roughly delay has elapsed the scheduler must call the connection's
// PrepareForSendingService(cause) on the connection's owning goroutine and
// transmit any packet it returns. Requests for the same cause may be
// coalesced; firing when nothing is queued is harmless.
type IServiceScheduler interface {
	RequestService(delay time.Duration, cause ServiceCause)
}

// IPacketSender hands finished encrypted packets to the unreliable network.
type IPacketSender interface {
	SendPacket(packet []byte) error
}

// SchedulerFunc adapts a plain function to IServiceScheduler.
type SchedulerFunc func(delay time.Duration, cause ServiceCause)

// RequestService calls f(delay, cause).
func (f SchedulerFunc) RequestService(delay time.Duration, cause ServiceCause) {
	f(delay, cause)
}

// SenderFunc adapts a plain function to IPacketSender.
type SenderFunc func(packet []byte) error

// SendPacket calls f(packet).
func (f SenderFunc) SendPacket(packet []byte) error {
	return f(packet)
}
