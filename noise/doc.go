// Package noise runs Noise Protocol Framework handshakes that produce the
// shared call secret for a callwire connection.
//
// Both patterns use the flynn/noise library with Curve25519, ChaCha20-Poly1305
// and SHA256.
//
//	Pattern │ When to Use                                │ Security Properties
//	────────┼────────────────────────────────────────────┼────────────────────────────────────────
//	IK      │ Initiator knows responder's public key    │ Mutual auth, forward secrecy, KCI resist
//	XX      │ Neither party knows the other's key       │ Mutual auth, forward secrecy
//
// # From handshake to connection
//
// Once a handshake completes, KeyMaterial expands the Noise handshake hash
// with HKDF-SHA256 into the 256-byte secret used by the packet cipher. The
// initiator becomes the outgoing side, so the two peers end up with
// complementary send and receive keys:
//
//	hs, _ := noise.NewXXHandshake(staticPriv, noise.Initiator)
//	msg1, _, _ := hs.WriteMessage(nil, nil)
//	// send msg1, receive msg2
//	_, _, _ = hs.ReadMessage(msg2)
//	msg3, done, _ := hs.WriteMessage(nil, nil)
//	// send msg3; done == true
//
//	key, err := hs.KeyMaterial()
//	conn := messaging.NewEncryptedConnection(messaging.Signaling, key, scheduler, opts)
//
// The IK pattern finishes in one round trip: the responder completes after
// WriteMessage(nil, msg1) and the initiator after ReadMessage(msg2).
//
// The transport package drives either pattern over a UDP socket.
package noise
