// Package limits provides centralized packet size constants and validation
// helpers for callwire.
//
// # Packet Size Hierarchy
//
//   - MaxTransportPacket (1452 bytes): transport-channel packets, sized to fit
//     a 1500 byte path MTU after relay and tunnel overhead.
//   - MaxSignalingPacket (16384 bytes): signaling-channel packets.
//   - MinIncomingPacket (21 bytes): a 16 byte tag plus one 5 byte item.
//   - MaxIncomingPacket (128 KiB): the largest datagram that is decrypted at all.
//
// Every outgoing packet is checked with Fits, which accounts for the tag
// prepended at encryption time:
//
//	if !limits.Fits(limits.MaxTransportPacket, len(buf), len(item)) {
//	    // leave the item for a later packet
//	}
//
// Incoming datagrams are checked with ValidateIncomingPacket before any
// cryptographic work is spent on them.
package limits
