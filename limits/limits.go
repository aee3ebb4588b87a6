// Package limits provides centralized packet size limits for callwire.
// This ensures consistent validation across the framing, connection and transport layers.
package limits

import (
	"errors"
	"fmt"
)

const (
	// TagSize is the message key prepended to every encrypted packet.
	TagSize = 16

	// SeqSize is the length of a big-endian sequence value.
	SeqSize = 4

	// ItemHeaderSize is a sequence value followed by the item type byte.
	ItemHeaderSize = SeqSize + 1

	// AckItemSize is the serialized size of a piggybacked acknowledgement.
	AckItemSize = ItemHeaderSize

	// MaxTransportPacket bounds transport-channel packets: a 1500 byte MTU
	// minus 48 bytes of relay and tunnel overhead.
	MaxTransportPacket = 1500 - 48

	// MaxSignalingPacket bounds signaling-channel packets.
	MaxSignalingPacket = 16 * 1024

	// MinIncomingPacket is a tag plus the smallest possible item.
	MinIncomingPacket = TagSize + ItemHeaderSize

	// MaxIncomingPacket is the largest datagram accepted for decryption.
	MaxIncomingPacket = 128 * 1024

	// SharedSecretSize is the length of the call secret.
	SharedSecretSize = 256

	// MaxNotAckedMessages caps the sender-side resend queue.
	MaxNotAckedMessages = 64 * 1024

	// ReplayWindowSize is the number of recent counters kept for duplicate detection.
	ReplayWindowSize = 64
)

var (
	// ErrMessageEmpty indicates an empty message was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size
	ErrMessageTooLarge = errors.New("message too large")

	// ErrPacketTooShort indicates an incoming packet cannot hold a tag and one item
	ErrPacketTooShort = errors.New("packet too short")
)

// ValidateMessageSize validates a message against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateMessageSize(message []byte, maxSize int) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	if len(message) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, len(message), maxSize)
	}
	return nil
}

// ValidateIncomingPacket checks a raw datagram against MinIncomingPacket and
// MaxIncomingPacket before any decryption work is done.
func ValidateIncomingPacket(packet []byte) error {
	if len(packet) < MinIncomingPacket {
		return fmt.Errorf("%w: size %d below minimum %d", ErrPacketTooShort, len(packet), MinIncomingPacket)
	}
	return ValidateMessageSize(packet, MaxIncomingPacket)
}

// Fits reports whether extra more plaintext bytes can follow bufferLen bytes
// in a packet bounded by limit, accounting for the tag added at encryption.
func Fits(limit, bufferLen, extra int) bool {
	return extra < limit && TagSize+bufferLen+extra <= limit
}
