package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/opd-ai/callwire/crypto"
	"github.com/opd-ai/callwire/interfaces"
	"github.com/opd-ai/callwire/messaging"
	"github.com/sirupsen/logrus"
)

var (
	// ErrSessionClosed is returned by Send after the session stopped.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoPeer indicates a session was configured without a peer address.
	ErrNoPeer = errors.New("peer address required")
	// ErrNoKey indicates a session was configured without key material.
	ErrNoKey = errors.New("key material required")
)

// maxFinalResends caps how often a lost final handshake message is repeated.
const maxFinalResends = 8

// MessageHandler receives messages delivered by a session. It runs on the
// session goroutine and must not call Send or SendRaw synchronously.
type MessageHandler func(msg messaging.DecryptedMessage)

// SessionConfig describes one call leg over UDP.
type SessionConfig struct {
	Kind messaging.ChannelKind
	// Key is owned by the session and wiped when it stops.
	Key  *crypto.KeyMaterial
	Peer net.Addr
	// Options are passed to the underlying connection.
	Options   messaging.Options
	OnMessage MessageHandler
	// HandshakeFinal is the last handshake message this side wrote. It is
	// repeated when unauthenticated datagrams arrive before the first
	// authenticated one, covering loss of that message.
	HandshakeFinal []byte
}

type sendRequest struct {
	msg   messaging.Message
	reply chan error
}

// Session owns one EncryptedConnection and the socket it talks over. All
// connection state is touched only by the goroutine running Run.
type Session struct {
	conn      net.PacketConn
	peer      net.Addr
	ec        *messaging.EncryptedConnection
	onMessage MessageHandler
	log       *logrus.Entry

	requests  chan sendRequest
	datagrams chan datagram
	timers    chan interfaces.ServiceCause
	done      chan struct{}
	closeOnce sync.Once

	final        []byte
	finalResends int

	mu    sync.Mutex
	stats messaging.Stats
}

// NewSession creates a session over conn. The session takes ownership of
// conn and closes it when Run returns.
func NewSession(conn net.PacketConn, config SessionConfig) (*Session, error) {
	if config.Peer == nil {
		return nil, ErrNoPeer
	}
	if config.Key == nil {
		return nil, ErrNoKey
	}

	logger := config.Options.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Session{
		conn:      conn,
		peer:      config.Peer,
		onMessage: config.OnMessage,
		log: logger.WithFields(logrus.Fields{
			"peer":    config.Peer.String(),
			"channel": config.Kind.String(),
		}),
		requests:  make(chan sendRequest),
		datagrams: make(chan datagram, 64),
		timers:    make(chan interfaces.ServiceCause, 16),
		done:      make(chan struct{}),
		final:     append([]byte(nil), config.HandshakeFinal...),
	}
	s.ec = messaging.NewEncryptedConnection(config.Kind, config.Key, s, config.Options)
	return s, nil
}

// RequestService arms a timer that posts cause to the session loop.
func (s *Session) RequestService(delay time.Duration, cause interfaces.ServiceCause) {
	time.AfterFunc(delay, func() {
		select {
		case s.timers <- cause:
		case <-s.done:
		}
	})
}

// Send seals msg and writes it to the peer. It blocks until the session has
// processed the request.
func (s *Session) Send(ctx context.Context, msg messaging.Message) error {
	req := sendRequest{msg: msg, reply: make(chan error, 1)}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSessionClosed
	}
}

// SendRaw sends an opaque payload as a raw message.
func (s *Session) SendRaw(ctx context.Context, data []byte, reliable bool) error {
	return s.Send(ctx, &messaging.RawMessage{Data: data, Reliable: reliable})
}

// Run drives the session until ctx ends, Close is called or the connection
// fails. It returns nil after Close, ctx.Err() on cancellation and
// messaging.ErrCounterExhausted when the counter space is used up.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.shutdown()

	readErr := make(chan error, 1)
	go func() {
		readErr <- readLoop(ctx, s.conn, s.datagrams)
	}()

	s.log.WithField("function", "Run").Info("Session started")

	for {
		var err error
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case err = <-readErr:
			select {
			case <-s.done:
				return nil
			default:
			}
			if err == nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		case req := <-s.requests:
			err = s.handleSend(req)
		case cause := <-s.timers:
			err = s.handleService(cause)
		case d := <-s.datagrams:
			s.handleDatagram(d)
		}
		s.snapshot()

		if errors.Is(err, messaging.ErrCounterExhausted) {
			s.log.WithField("function", "Run").Error("Counter exhausted, terminating session")
			return err
		}
	}
}

// Close stops the session. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// Stats returns the connection statistics as of the last processed event.
func (s *Session) Stats() messaging.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// LocalAddr returns the socket's local address.
func (s *Session) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *Session) handleSend(req sendRequest) error {
	pkt, err := s.ec.PrepareForSending(req.msg)
	if err == nil && pkt != nil {
		err = s.write(pkt.Bytes)
	}
	req.reply <- err
	return err
}

func (s *Session) handleService(cause interfaces.ServiceCause) error {
	pkt, err := s.ec.PrepareForSendingService(cause)
	if err != nil || pkt == nil {
		return err
	}
	if err := s.write(pkt.Bytes); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "handleService",
			"cause":    cause.String(),
			"error":    err.Error(),
		}).Warn("Failed to write service packet")
	}
	return nil
}

func (s *Session) handleDatagram(d datagram) {
	if !sameAddr(d.addr, s.peer) {
		s.log.WithFields(logrus.Fields{
			"function": "handleDatagram",
			"from":     d.addr.String(),
		}).Debug("Ignoring datagram from unexpected address")
		return
	}

	before := s.ec.Stats()
	dp := s.ec.HandleIncomingPacket(d.data)
	after := s.ec.Stats()

	if after.DroppedBadTag > before.DroppedBadTag && after.PacketsReceived == 0 {
		s.resendFinal()
	}
	if dp == nil || s.onMessage == nil {
		return
	}

	s.onMessage(dp.Main)
	for _, m := range dp.Additional {
		s.onMessage(m)
	}
}

// resendFinal repeats the last handshake message while the peer still seems
// to be waiting for it.
func (s *Session) resendFinal() {
	if len(s.final) == 0 || s.finalResends >= maxFinalResends {
		return
	}
	s.finalResends++
	if err := s.write(s.final); err != nil {
		return
	}
	s.log.WithFields(logrus.Fields{
		"function": "resendFinal",
		"attempt":  s.finalResends,
	}).Debug("Repeated final handshake message")
}

func (s *Session) write(packet []byte) error {
	_, err := s.conn.WriteTo(packet, s.peer)
	return err
}

func (s *Session) snapshot() {
	stats := s.ec.Stats()
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}

func (s *Session) shutdown() {
	s.snapshot()
	s.ec.Close()
	_ = s.Close()
	s.log.WithField("function", "shutdown").Info("Session stopped")
}
