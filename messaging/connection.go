package messaging

import (
	"errors"

	"github.com/opd-ai/callwire/crypto"
	"github.com/opd-ai/callwire/interfaces"
	"github.com/opd-ai/callwire/limits"
	"github.com/sirupsen/logrus"
)

// EncryptedPacket is a sealed datagram ready for the network.
type EncryptedPacket struct {
	// Counter is the counter of the packet's leading item.
	Counter uint32
	Bytes   []byte
}

// DecryptedMessage is one application message taken from a packet.
type DecryptedMessage struct {
	Message Message
	Counter uint32
}

// DecryptedPacket holds the messages delivered from one incoming packet.
type DecryptedPacket struct {
	Main       DecryptedMessage
	Additional []DecryptedMessage
}

// EncryptedConnection seals outgoing messages and opens incoming packets for
// one call leg and channel kind.
//
// It is not safe for concurrent use. All calls, including those made in
// response to RequestService, must come from a single goroutine.
type EncryptedConnection struct {
	kind   ChannelKind
	key    *crypto.KeyMaterial
	cipher *crypto.PacketCipher
	codec  MessageCodec
	log    *logrus.Entry

	engine *reliabilityEngine
	stats  Stats
	closed bool
}

// NewEncryptedConnection creates a connection. key is owned by the connection
// from now on and wiped by Close.
func NewEncryptedConnection(kind ChannelKind, key *crypto.KeyMaterial, scheduler interfaces.IServiceScheduler, opts Options) *EncryptedConnection {
	opts = opts.withDefaults(kind)

	role := "incoming"
	if key.IsOutgoing() {
		role = "outgoing"
	}
	log := opts.Logger.WithFields(logrus.Fields{
		"channel": kind.String(),
		"role":    role,
	})

	c := &EncryptedConnection{
		kind:   kind,
		key:    key,
		cipher: crypto.NewPacketCipher(key),
		codec:  opts.Codec,
		log:    log,
	}
	c.engine = newReliabilityEngine(PacketLimit(kind), opts.Timing, opts.TimeProvider, scheduler, log, &c.stats)
	return c
}

// Kind returns the channel kind fixed at construction.
func (c *EncryptedConnection) Kind() ChannelKind {
	return c.kind
}

// PrepareForSending seals msg, together with any acks and resends that fit.
//
// ErrTooManyNotAcked is transient; ErrCounterExhausted is fatal and the
// connection must be replaced. A nil packet with a nil error means msg was
// queued but nothing could be sent right now.
func (c *EncryptedConnection) PrepareForSending(msg Message) (*EncryptedPacket, error) {
	if c.closed {
		return nil, ErrConnectionClosed
	}

	plaintext, err := c.engine.prepareForSending(msg)
	if err != nil {
		c.stats.SendsRefused++
		c.logSendError("PrepareForSending", err)
		return nil, err
	}
	if plaintext == nil {
		return nil, nil
	}
	return c.encryptPrepared(plaintext), nil
}

// PrepareForSendingRaw seals an opaque payload as a raw message.
func (c *EncryptedConnection) PrepareForSendingRaw(data []byte, requiresAck bool) (*EncryptedPacket, error) {
	return c.PrepareForSending(&RawMessage{Data: data, Reliable: requiresAck})
}

// PrepareForSendingService builds a packet of pending acks and resends in
// response to a RequestService call. It returns nil, nil when nothing is due.
func (c *EncryptedConnection) PrepareForSendingService(cause interfaces.ServiceCause) (*EncryptedPacket, error) {
	if c.closed {
		return nil, nil
	}

	plaintext, err := c.engine.prepareService(cause)
	if err != nil {
		c.logSendError("PrepareForSendingService", err)
		return nil, err
	}
	if plaintext == nil {
		return nil, nil
	}
	return c.encryptPrepared(plaintext), nil
}

func (c *EncryptedConnection) logSendError(function string, err error) {
	entry := c.log.WithFields(logrus.Fields{
		"function": function,
		"error":    err.Error(),
	})
	if errors.Is(err, ErrCounterExhausted) {
		entry.Error("Cannot send, connection must be replaced")
		return
	}
	entry.Warn("Message not sent")
}

func (c *EncryptedConnection) encryptPrepared(plaintext []byte) *EncryptedPacket {
	x := crypto.SendOffset(c.key.IsOutgoing(), c.kind == Signaling)
	tag := c.cipher.ComputeTag(x, plaintext)
	aesKey, iv := c.cipher.DeriveKeyIV(x, tag)
	ciphertext := c.cipher.EncryptCTR(aesKey, iv, plaintext)
	crypto.ZeroBytes(aesKey[:])

	out := make([]byte, 0, crypto.TagSize+len(ciphertext))
	out = append(out, tag[:]...)
	out = append(out, ciphertext...)

	seq := readSeq(plaintext)
	c.stats.PacketsSent++
	c.log.WithFields(logrus.Fields{
		"seq":  seq.String(),
		"size": len(out),
	}).Debug("Packet sealed")

	return &EncryptedPacket{Counter: seq.Counter(), Bytes: out}
}

// HandleIncomingPacket authenticates and decodes one datagram.
//
// It returns nil when the packet is rejected or carries nothing to deliver.
// Acks and duplicate detection are applied either way. Rejection reasons
// are logged and counted in Stats but never reported to the caller.
func (c *EncryptedConnection) HandleIncomingPacket(data []byte) *DecryptedPacket {
	if c.closed {
		return nil
	}

	if err := limits.ValidateIncomingPacket(data); err != nil {
		c.stats.DroppedBadSize++
		c.log.WithField("error", err.Error()).Warn("Dropping packet with bad size")
		return nil
	}

	plaintext, ok := c.open(data)
	if !ok {
		c.stats.DroppedBadTag++
		c.log.WithFields(crypto.SecureFieldHash(data[:crypto.TagSize], "tag")).Warn("Dropping packet, authentication failed")
		return nil
	}

	frame, err := ParseFrame(plaintext, c.codec)
	if err != nil {
		c.stats.DroppedBadFrame++
		c.log.WithField("error", err.Error()).Warn("Dropping malformed packet")
		return nil
	}

	if !c.engine.window.Accept(frame.Seq.Counter()) {
		c.stats.DroppedReplayed++
		c.log.WithField("seq", frame.Seq.String()).Debug("Dropping already handled packet")
		return nil
	}
	c.stats.PacketsReceived++

	delivered := c.engine.handleFrame(frame)
	if len(delivered) == 0 {
		return nil
	}
	return &DecryptedPacket{Main: delivered[0], Additional: delivered[1:]}
}

func (c *EncryptedConnection) open(data []byte) ([]byte, bool) {
	var tag [crypto.TagSize]byte
	copy(tag[:], data[:crypto.TagSize])

	x := crypto.ReceiveOffset(c.key.IsOutgoing(), c.kind == Signaling)
	aesKey, iv := c.cipher.DeriveKeyIV(x, tag)
	plaintext := c.cipher.DecryptCTR(aesKey, iv, data[crypto.TagSize:])
	crypto.ZeroBytes(aesKey[:])

	check := c.cipher.ComputeTag(x, plaintext)
	if !crypto.TagEqual(check[:], tag[:]) {
		return nil, false
	}
	return plaintext, true
}

// Stats returns a snapshot of the connection counters.
func (c *EncryptedConnection) Stats() Stats {
	return c.stats
}

// NotAckedCount returns the number of reliable messages awaiting an ack.
func (c *EncryptedConnection) NotAckedCount() int {
	return len(c.engine.notYetAcked)
}

// PendingAckCount returns the number of acks waiting to be sent.
func (c *EncryptedConnection) PendingAckCount() int {
	return len(c.engine.acksToSend)
}

// Close wipes the key and drops all queued state. Later sends fail with
// ErrConnectionClosed and incoming packets are ignored.
func (c *EncryptedConnection) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.engine.reset()
	c.key.Wipe()
	c.log.Debug("Connection closed")
}
