package messaging

import (
	"fmt"
	"time"

	"github.com/opd-ai/callwire/limits"
	"github.com/sirupsen/logrus"
)

// ChannelKind selects packet size and timing tuning for a connection.
type ChannelKind int

const (
	// Transport carries media-path control over the call's own UDP path.
	Transport ChannelKind = iota
	// Signaling carries call setup and state over a relayed channel.
	Signaling
)

// String returns a human-readable name for the channel kind.
func (k ChannelKind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Signaling:
		return "signaling"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// PacketLimit returns the largest encrypted packet a connection of this kind produces.
func PacketLimit(kind ChannelKind) int {
	if kind == Signaling {
		return limits.MaxSignalingPacket
	}
	return limits.MaxTransportPacket
}

// Timing holds the retransmission and acknowledgement delays.
type Timing struct {
	// MinResendDelay is how long a sent message waits before it is due again.
	MinResendDelay time.Duration
	// MaxResendDelay is the resend timer period while messages are unacked.
	MaxResendDelay time.Duration
	// MaxAckDelay bounds how long a queued ack may wait for a piggyback ride.
	MaxAckDelay time.Duration
}

// DefaultTiming returns the delays used for kind.
func DefaultTiming(kind ChannelKind) Timing {
	if kind == Signaling {
		return Timing{
			MinResendDelay: 3000 * time.Millisecond,
			MaxResendDelay: 5000 * time.Millisecond,
			MaxAckDelay:    5000 * time.Millisecond,
		}
	}
	return Timing{
		MinResendDelay: 300 * time.Millisecond,
		MaxResendDelay: 1000 * time.Millisecond,
		MaxAckDelay:    1000 * time.Millisecond,
	}
}

// Options tunes an EncryptedConnection. Zero fields fall back to defaults.
type Options struct {
	Timing       Timing
	TimeProvider TimeProvider
	Logger       *logrus.Logger
	// Codec decodes typed items. Without a codec only raw, empty and ack
	// items are understood and any typed item fails the packet.
	Codec MessageCodec
}

func (o Options) withDefaults(kind ChannelKind) Options {
	if o.Timing == (Timing{}) {
		o.Timing = DefaultTiming(kind)
	}
	if o.TimeProvider == nil {
		o.TimeProvider = DefaultTimeProvider{}
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}
