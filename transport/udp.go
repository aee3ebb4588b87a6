package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/opd-ai/callwire/limits"
	"github.com/sirupsen/logrus"
)

// readPollInterval bounds how long a blocked read ignores cancellation.
const readPollInterval = 100 * time.Millisecond

// datagram is one packet read from the socket together with its source.
type datagram struct {
	data []byte
	addr net.Addr
}

// ListenUDP opens a UDP socket for a session or handshake.
func ListenUDP(listenAddr string) (net.PacketConn, error) {
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "ListenUDP",
			"address":  listenAddr,
			"error":    err.Error(),
		}).Error("Failed to open UDP socket")
		return nil, err
	}
	return conn, nil
}

// ResolvePeer resolves a host:port string to a UDP address.
func ResolvePeer(address string) (net.Addr, error) {
	return net.ResolveUDPAddr("udp", address)
}

// readLoop forwards datagrams from conn to out until ctx ends or the socket
// fails. The returned error is nil on cancellation.
func readLoop(ctx context.Context, conn net.PacketConn, out chan<- datagram) error {
	// One byte of slack lets oversized datagrams reach the size check.
	buffer := make([]byte, limits.MaxIncomingPacket+1)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		data, addr, err := readPacketData(conn, buffer)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case out <- datagram{data: data, addr: addr}:
		case <-ctx.Done():
			return nil
		}
	}
}

// readPacketData reads one datagram with a short deadline and returns a copy
// of its bytes.
func readPacketData(conn net.PacketConn, buffer []byte) ([]byte, net.Addr, error) {
	_ = conn.SetReadDeadline(time.Now().Add(readPollInterval))

	n, addr, err := conn.ReadFrom(buffer)
	if err != nil {
		return nil, nil, err
	}

	data := make([]byte, n)
	copy(data, buffer[:n])
	return data, addr, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// sameAddr reports whether two UDP addresses name the same endpoint.
func sameAddr(a, b net.Addr) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Network() == b.Network() && a.String() == b.String()
}
