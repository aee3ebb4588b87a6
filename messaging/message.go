package messaging

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Reserved item type bytes.
const (
	// TypeEmpty is the service marker that opens a packet carrying only
	// acknowledgements and resends.
	TypeEmpty uint8 = 0xFF
	// TypeAck acknowledges the sequence value written just before it.
	TypeAck uint8 = 0xFE
	// TypeRaw carries an opaque length-prefixed payload.
	TypeRaw uint8 = 0x7F
)

// Message is an application message carried as one item.
//
// Implementations belong to the call-orchestration layer; the connection only
// needs the type byte, the reliability class and the serialized body. When
// single is true the item is the only one in its packet and may extend to
// the end of the buffer.
type Message interface {
	MessageType() uint8
	RequiresAck() bool
	Marshal(single bool) ([]byte, error)
}

// MessageCodec decodes typed items. Decode must consume exactly the bytes of
// one message from r; when single is true the message owns the rest of r.
type MessageCodec interface {
	Decode(msgType uint8, r *bytes.Reader, single bool) (Message, error)
}

// RawMessage is the built-in opaque message (type 0x7F).
type RawMessage struct {
	Data     []byte
	Reliable bool
}

// MessageType implements Message.
func (m *RawMessage) MessageType() uint8 { return TypeRaw }

// RequiresAck implements Message.
func (m *RawMessage) RequiresAck() bool { return m.Reliable }

// Marshal implements Message. The length prefix is always written.
func (m *RawMessage) Marshal(bool) ([]byte, error) {
	out := make([]byte, 4, 4+len(m.Data))
	binary.BigEndian.PutUint32(out, uint32(len(m.Data)))
	return append(out, m.Data...), nil
}

func decodeRaw(r *bytes.Reader, requiresAck bool) (*RawMessage, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("raw length: %w", err)
	}
	if int64(length) > int64(r.Len()) {
		return nil, fmt.Errorf("raw length %d exceeds remaining %d bytes", length, r.Len())
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("raw payload: %w", err)
	}
	return &RawMessage{Data: data, Reliable: requiresAck}, nil
}

func isReservedType(t uint8) bool {
	return t == TypeEmpty || t == TypeAck || t == TypeRaw
}
