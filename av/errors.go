package av

import "errors"

// Sentinel errors for av package operations.
// These errors enable reliable error classification using errors.Is().

// Serialization errors.
var (
	// ErrNilPacket indicates a nil packet was passed for serialization.
	ErrNilPacket = errors.New("packet is nil")

	// ErrPayloadTooLarge indicates a payload does not fit its length prefix.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Decoding errors.
var (
	// ErrPacketTooShort indicates fewer bytes than the packet layout needs.
	ErrPacketTooShort = errors.New("packet too short")

	// ErrUnknownMessageType indicates a type byte with no av message.
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrInvalidControl indicates an out-of-range enum value.
	ErrInvalidControl = errors.New("invalid control value")
)
