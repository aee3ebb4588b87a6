// Package messaging implements encrypted, partially reliable datagram
// messaging between two call participants.
//
// # Overview
//
// An [EncryptedConnection] turns application messages into sealed packets
// and incoming packets back into messages. Each packet is
//
//	tag(16) || AES-256-CTR(seq(4) || item*)
//
// where every item after the first carries its own seq. Item types are the
// service marker 0xFF, the ack 0xFE, raw length-prefixed data 0x7F, and any
// other byte for messages understood by a [MessageCodec].
//
// # Reliability
//
// Messages whose RequiresAck is true stay in a resend queue until the peer
// acknowledges their seq. Acks ride in later packets, and the queue is
// resent oldest-first whenever the connection is serviced. Unreliable
// messages are sent once and filtered through a 64-entry [ReplayWindow].
//
// The connection never blocks and has no goroutines of its own. It asks
// for service through an [interfaces.IServiceScheduler]:
//
//	conn := messaging.NewEncryptedConnection(messaging.Transport, key, scheduler, messaging.Options{})
//
//	pkt, err := conn.PrepareForSending(msg)
//	if err != nil { ... }
//	send(pkt.Bytes)
//
//	// later, when the scheduler fires for cause:
//	if pkt, _ := conn.PrepareForSendingService(cause); pkt != nil {
//		send(pkt.Bytes)
//	}
//
//	// incoming datagrams:
//	if dp := conn.HandleIncomingPacket(datagram); dp != nil {
//		deliver(dp.Main, dp.Additional)
//	}
//
// # Errors
//
// [ErrTooManyNotAcked] is backpressure and clears as acks arrive.
// [ErrCounterExhausted] ends the connection. Incoming packets that fail size,
// authentication, framing or replay checks are dropped silently apart from
// logging and [Stats].
//
// # Concurrency
//
// A connection must be driven from a single goroutine. The transport package
// provides a session that does this over UDP.
package messaging
