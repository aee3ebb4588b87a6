package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/opd-ai/callwire/crypto"
	"github.com/opd-ai/callwire/noise"
	"github.com/sirupsen/logrus"
)

const (
	// HandshakeTimeout is the default bound for a handshake without a
	// context deadline.
	HandshakeTimeout = 30 * time.Second
	// HandshakeRetransmitInterval is how long a side waits for the peer's
	// next message before repeating its own.
	HandshakeRetransmitInterval = 500 * time.Millisecond
)

// ErrHandshakeTimeout indicates the peer did not complete the handshake in time.
var ErrHandshakeTimeout = errors.New("handshake timed out")

// HandshakeResult carries what a session needs after a completed handshake.
type HandshakeResult struct {
	Key  *crypto.KeyMaterial
	Peer net.Addr
	// Final is the last message this side wrote if the handshake completed
	// on a write, nil otherwise. See SessionConfig.HandshakeFinal.
	Final []byte
}

// handshakeDriver exchanges handshake datagrams with one peer over conn.
type handshakeDriver struct {
	conn     net.PacketConn
	peer     net.Addr
	last     []byte
	received []byte
	buffer   []byte
	log      *logrus.Entry
}

// RunHandshake drives hs to completion over conn. The initiator must know
// peer; a responder may pass nil and learns the peer from the first
// datagram. Unanswered messages are repeated every
// HandshakeRetransmitInterval.
func RunHandshake(ctx context.Context, conn net.PacketConn, peer net.Addr, hs noise.Handshake) (*HandshakeResult, error) {
	initiator := hs.Role() == noise.Initiator
	if initiator && peer == nil {
		return nil, ErrNoPeer
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, HandshakeTimeout)
		defer cancel()
	}

	d := &handshakeDriver{
		conn:   conn,
		peer:   peer,
		buffer: make([]byte, 4096),
		log: logrus.WithFields(logrus.Fields{
			"function": "RunHandshake",
			"role":     hs.Role().String(),
		}),
	}
	defer conn.SetReadDeadline(time.Time{})

	completedOnWrite := false
	if initiator {
		if err := d.write(hs, nil); err != nil {
			return nil, err
		}
	}

	for !hs.IsComplete() {
		in, err := d.next(ctx)
		if err != nil {
			return nil, err
		}

		if ik, ok := hs.(*noise.IKHandshake); ok && !initiator {
			// The IK responder reads and answers in one step.
			if err := d.write(ik, in); err != nil {
				return nil, err
			}
			completedOnWrite = true
			continue
		}

		if _, _, err := hs.ReadMessage(in); err != nil {
			return nil, fmt.Errorf("read handshake message: %w", err)
		}
		if !hs.IsComplete() {
			if err := d.write(hs, nil); err != nil {
				return nil, err
			}
			completedOnWrite = hs.IsComplete()
		}
	}

	key, err := hs.KeyMaterial()
	if err != nil {
		return nil, err
	}
	d.log.WithField("peer", d.peer.String()).Info("Handshake complete")

	result := &HandshakeResult{Key: key, Peer: d.peer}
	if completedOnWrite {
		result.Final = d.last
	}
	return result, nil
}

// write produces the next message and sends it to the peer.
func (d *handshakeDriver) write(hs noise.Handshake, received []byte) error {
	msg, _, err := hs.WriteMessage(nil, received)
	if err != nil {
		return fmt.Errorf("write handshake message: %w", err)
	}
	d.last = msg
	return d.send(msg)
}

func (d *handshakeDriver) send(msg []byte) error {
	if _, err := d.conn.WriteTo(msg, d.peer); err != nil {
		return fmt.Errorf("send handshake message: %w", err)
	}
	return nil
}

// next waits for a new message from the peer, repeating the last sent
// message on each quiet interval and when the peer repeats itself.
func (d *handshakeDriver) next(ctx context.Context) ([]byte, error) {
	for {
		if ctx.Err() != nil {
			return nil, ErrHandshakeTimeout
		}

		deadline := time.Now().Add(HandshakeRetransmitInterval)
		if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
			deadline = ctxDeadline
		}
		_ = d.conn.SetReadDeadline(deadline)

		n, addr, err := d.conn.ReadFrom(d.buffer)
		if err != nil {
			if !isTimeout(err) {
				return nil, fmt.Errorf("receive handshake message: %w", err)
			}
			if d.last != nil {
				d.log.Debug("No reply, repeating handshake message")
				if err := d.send(d.last); err != nil {
					return nil, err
				}
			}
			continue
		}

		if d.peer == nil {
			d.peer = addr
		} else if !sameAddr(addr, d.peer) {
			continue
		}

		msg := append([]byte(nil), d.buffer[:n]...)
		if d.received != nil && bytes.Equal(msg, d.received) {
			// The peer missed our reply.
			if d.last != nil {
				if err := d.send(d.last); err != nil {
					return nil, err
				}
			}
			continue
		}
		d.received = msg
		return msg, nil
	}
}
