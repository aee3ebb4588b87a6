// Package transport runs encrypted call connections over UDP.
//
// A Session owns one messaging.EncryptedConnection and the socket it uses.
// Sends, incoming datagrams and timer fires are all funnelled into the
// goroutine running Session.Run, so the connection never sees concurrent
// calls:
//
//	conn, _ := transport.ListenUDP(":0")
//	s, _ := transport.NewSession(conn, transport.SessionConfig{
//	    Kind:      messaging.Signaling,
//	    Key:       key,
//	    Peer:      peer,
//	    Options:   messaging.Options{Codec: av.Codec{}},
//	    OnMessage: func(m messaging.DecryptedMessage) { ... },
//	})
//	go s.Run(ctx)
//	err := s.Send(ctx, &av.CallControlPacket{...})
//
// RunHandshake derives the key material with a Noise handshake over the
// same socket before the session starts. Handshake messages are repeated
// until the peer answers; the last one is handed to the session, which
// repeats it if the peer is still waiting for it.
package transport
