package messaging

import (
	"bytes"
	"fmt"

	"github.com/opd-ai/callwire/limits"
)

// ItemKind tags the variants of a frame item.
type ItemKind int

const (
	// ItemEmpty is the service marker opening a packet with no primary message.
	ItemEmpty ItemKind = iota
	// ItemAck acknowledges Item.Seq.
	ItemAck
	// ItemRaw carries a *RawMessage.
	ItemRaw
	// ItemTyped carries a codec-defined Message.
	ItemTyped
)

// String returns a short name for the item kind.
func (k ItemKind) String() string {
	switch k {
	case ItemEmpty:
		return "empty"
	case ItemAck:
		return "ack"
	case ItemRaw:
		return "raw"
	case ItemTyped:
		return "typed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Item is one entry of a plaintext frame.
//
// For ItemAck, Seq is the acknowledged sequence value. For all other kinds it
// is the item's own sequence value.
type Item struct {
	Seq     Seq
	Kind    ItemKind
	Message Message
}

// Frame is a fully parsed plaintext packet. Items[0].Seq equals Seq.
type Frame struct {
	Seq   Seq
	Items []Item
}

// SerializeEmpty returns the five byte service header seq || 0xFF.
func SerializeEmpty(seq Seq) []byte {
	out := make([]byte, 0, limits.ItemHeaderSize)
	out = appendSeq(out, seq)
	return append(out, TypeEmpty)
}

// SerializeRaw returns seq || 0x7F || len(4) || data.
func SerializeRaw(data []byte, seq Seq, single bool) []byte {
	out, _ := SerializeMessage(&RawMessage{Data: data}, seq, single)
	return out
}

// SerializeMessage returns seq || type || body for msg.
func SerializeMessage(msg Message, seq Seq, single bool) ([]byte, error) {
	msgType := msg.MessageType()
	if _, raw := msg.(*RawMessage); isReservedType(msgType) && !(raw && msgType == TypeRaw) {
		return nil, fmt.Errorf("%w: 0x%02x", ErrReservedType, msgType)
	}

	body, err := msg.Marshal(single)
	if err != nil {
		return nil, fmt.Errorf("marshal message type %d: %w", msgType, err)
	}

	out := make([]byte, 0, limits.ItemHeaderSize+len(body))
	out = appendSeq(out, seq)
	out = append(out, msgType)
	return append(out, body...), nil
}

func appendAck(buf []byte, seq Seq) []byte {
	buf = appendSeq(buf, seq)
	return append(buf, TypeAck)
}

func framingError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFraming, fmt.Sprintf(format, args...))
}

// ParseFrame decodes a decrypted plaintext into its items.
//
// The whole buffer is validated before anything is returned; any violation
// fails the entire frame. codec may be nil when only raw messages are used.
func ParseFrame(plaintext []byte, codec MessageCodec) (*Frame, error) {
	if len(plaintext) < limits.ItemHeaderSize {
		return nil, framingError("frame of %d bytes is shorter than one item", len(plaintext))
	}

	r := bytes.NewReader(plaintext)
	frame := &Frame{}
	for first := true; ; first = false {
		if r.Len() < limits.ItemHeaderSize {
			return nil, framingError("%d trailing bytes after item", r.Len())
		}

		var header [limits.ItemHeaderSize]byte
		_, _ = r.Read(header[:])
		seq := readSeq(header[:limits.SeqSize])
		itemType := header[limits.SeqSize]
		if first {
			frame.Seq = seq
		} else if seq.SingleMessagePacket() {
			return nil, framingError("single message flag on non-first item %s", seq)
		}
		single := seq.SingleMessagePacket()

		item, err := parseItem(r, seq, itemType, first, single, codec)
		if err != nil {
			return nil, err
		}
		frame.Items = append(frame.Items, item)

		if single && r.Len() != 0 {
			return nil, framingError("single message packet has %d extra bytes", r.Len())
		}
		if r.Len() == 0 {
			return frame, nil
		}
	}
}

func parseItem(r *bytes.Reader, seq Seq, itemType uint8, first, single bool, codec MessageCodec) (Item, error) {
	switch itemType {
	case TypeEmpty:
		if !first {
			return Item{}, framingError("empty item at non-first position")
		}
		return Item{Seq: seq, Kind: ItemEmpty}, nil
	case TypeAck:
		if first {
			return Item{}, framingError("ack item at first position")
		}
		return Item{Seq: seq, Kind: ItemAck}, nil
	case TypeRaw:
		raw, err := decodeRaw(r, seq.RequiresAck())
		if err != nil {
			return Item{}, framingError("%v", err)
		}
		return Item{Seq: seq, Kind: ItemRaw, Message: raw}, nil
	default:
		if codec == nil {
			return Item{}, framingError("no codec for message type %d", itemType)
		}
		msg, err := codec.Decode(itemType, r, single)
		if err != nil {
			return Item{}, framingError("decode message type %d: %v", itemType, err)
		}
		if msg == nil {
			return Item{}, framingError("unknown message type %d", itemType)
		}
		return Item{Seq: seq, Kind: ItemTyped, Message: msg}, nil
	}
}
