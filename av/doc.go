// Package av defines the call-signaling messages carried by callwire
// connections.
//
// Every message type implements messaging.Message and is decoded by
// [Codec], which plugs into messaging.Options:
//
//	conn := messaging.NewEncryptedConnection(messaging.Signaling, key, scheduler,
//		messaging.Options{Codec: av.Codec{}})
//
//	pkt, err := conn.PrepareForSending(&av.CallRequestPacket{
//		CallID:       1,
//		AudioBitRate: 48000,
//		Timestamp:    time.Now(),
//	})
//
// Call setup, control and state messages require an acknowledgement and are
// resent until the peer confirms them. [AudioDataPacket] is sent once; when
// it travels alone its length prefix is dropped to save two bytes per frame.
//
// Fixed-size messages use big-endian fields with timestamps as Unix
// nanoseconds. Variable-size messages carry an explicit length prefix.
package av
