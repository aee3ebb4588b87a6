package messaging

import (
	"encoding/binary"
	"fmt"
)

// Seq is the 32-bit sequence value written in front of every item.
//
// Bit 31 marks a single-message packet, bit 30 marks an item that requires
// an acknowledgement, and bits 0-29 carry the per-connection counter.
type Seq uint32

const (
	// SingleMessagePacketBit marks a packet holding exactly one item that
	// extends to the end of the buffer.
	SingleMessagePacketBit Seq = 1 << 31

	// RequiresAckBit marks an item the receiver must acknowledge.
	RequiresAckBit Seq = 1 << 30

	// MaxCounter is the last counter a connection may allocate.
	MaxCounter uint32 = 1<<30 - 1
)

// MakeSeq combines a counter with the flag bits.
func MakeSeq(counter uint32, requiresAck, single bool) Seq {
	seq := Seq(counter & MaxCounter)
	if requiresAck {
		seq |= RequiresAckBit
	}
	if single {
		seq |= SingleMessagePacketBit
	}
	return seq
}

// Counter returns the 30-bit message counter.
func (s Seq) Counter() uint32 {
	return uint32(s) & MaxCounter
}

// RequiresAck reports whether bit 30 is set.
func (s Seq) RequiresAck() bool {
	return s&RequiresAckBit != 0
}

// SingleMessagePacket reports whether bit 31 is set.
func (s Seq) SingleMessagePacket() bool {
	return s&SingleMessagePacketBit != 0
}

func (s Seq) String() string {
	flags := ""
	if s.SingleMessagePacket() {
		flags += "s"
	}
	if s.RequiresAck() {
		flags += "a"
	}
	if flags == "" {
		return fmt.Sprintf("#%d", s.Counter())
	}
	return fmt.Sprintf("#%d[%s]", s.Counter(), flags)
}

func readSeq(b []byte) Seq {
	return Seq(binary.BigEndian.Uint32(b))
}

func appendSeq(buf []byte, seq Seq) []byte {
	return binary.BigEndian.AppendUint32(buf, uint32(seq))
}

func putSeq(b []byte, seq Seq) {
	binary.BigEndian.PutUint32(b, uint32(seq))
}
