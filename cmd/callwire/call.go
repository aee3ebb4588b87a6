package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/opd-ai/callwire/av"
	"github.com/opd-ai/callwire/crypto"
	"github.com/opd-ai/callwire/messaging"
	"github.com/opd-ai/callwire/noise"
	"github.com/opd-ai/callwire/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newCallCommand(name string, initiator bool, configFile *string) *cobra.Command {
	short := "Wait for a peer and exchange messages"
	if initiator {
		short = "Connect to a peer and exchange messages"
	}

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Long: short + `.

Lines read from stdin are sent as reliable unstructured data. Messages
received from the peer are printed to stdout.

With --handshake none both sides need the same --secret and each other's
address. With --handshake xx or ik the call secret is derived from a Noise
handshake using --static-key; dial is the initiator and the outgoing side.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(*configFile)
			if err != nil {
				return err
			}
			if err := bindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if err := cfg.Validate(initiator); err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCall(ctx, cfg, initiator, logger, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.String("listen", ":0", "local UDP address")
	f.String("peer", "", "peer UDP address")
	f.String("kind", "signaling", "channel kind (transport or signaling)")
	f.String("secret", "", "hex encoded 256-byte call secret")
	f.String("handshake", "none", "key exchange (none, xx or ik)")
	f.String("static-key", "", "hex encoded Curve25519 private key for the handshake")
	f.String("peer-key", "", "hex encoded peer public key (ik only)")
	return cmd
}

// runCall sets up the key, runs the session and pumps stdin into it.
func runCall(ctx context.Context, cfg *Config, initiator bool, logger *logrus.Logger, in io.Reader, out io.Writer) error {
	kind, err := cfg.ChannelKind()
	if err != nil {
		return err
	}

	conn, err := transport.ListenUDP(cfg.Listen)
	if err != nil {
		return err
	}
	logger.WithField("address", conn.LocalAddr().String()).Info("Listening")

	key, peer, final, err := establishKey(ctx, cfg, initiator, conn)
	if err != nil {
		conn.Close()
		return err
	}

	session, err := transport.NewSession(conn, transport.SessionConfig{
		Kind:           kind,
		Key:            key,
		Peer:           peer,
		Options:        messaging.Options{Logger: logger, Codec: av.Codec{}},
		OnMessage:      func(m messaging.DecryptedMessage) { fmt.Fprintln(out, formatMessage(m)) },
		HandshakeFinal: final,
	})
	if err != nil {
		key.Wipe()
		conn.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go pumpLines(ctx, session, in, logger)

	err = session.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// establishKey returns the key material and peer, from the configured
// secret or from a handshake over conn.
func establishKey(ctx context.Context, cfg *Config, initiator bool, conn net.PacketConn) (*crypto.KeyMaterial, net.Addr, []byte, error) {
	var peer net.Addr
	if cfg.Peer != "" {
		addr, err := transport.ResolvePeer(cfg.Peer)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("resolve peer: %w", err)
		}
		peer = addr
	}

	if cfg.Handshake == handshakeNone {
		secret, err := decodeHexKey("secret", cfg.Secret, crypto.SharedSecretSize)
		if err != nil {
			return nil, nil, nil, err
		}
		defer crypto.ZeroBytes(secret)
		key, err := crypto.NewKeyMaterial(secret, initiator)
		return key, peer, nil, err
	}

	hs, err := newHandshake(cfg, initiator)
	if err != nil {
		return nil, nil, nil, err
	}
	result, err := transport.RunHandshake(ctx, conn, peer, hs)
	if err != nil {
		return nil, nil, nil, err
	}
	return result.Key, result.Peer, result.Final, nil
}

func newHandshake(cfg *Config, initiator bool) (noise.Handshake, error) {
	static, err := decodeHexKey("static key", cfg.StaticKey, 32)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(static)

	role := noise.Responder
	if initiator {
		role = noise.Initiator
	}

	if cfg.Handshake == handshakeXX {
		xx, err := noise.NewXXHandshake(static, role)
		if err != nil {
			return nil, err
		}
		return xx, nil
	}

	var peerKey []byte
	if initiator {
		peerKey, err = decodeHexKey("peer key", cfg.PeerKey, 32)
		if err != nil {
			return nil, err
		}
	}
	ik, err := noise.NewIKHandshake(static, peerKey, role)
	if err != nil {
		return nil, err
	}
	return ik, nil
}

// pumpLines sends each input line as reliable unstructured data.
func pumpLines(ctx context.Context, s *transport.Session, in io.Reader, logger *logrus.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		err := s.Send(ctx, &av.UnstructuredDataPacket{Data: line})
		switch {
		case err == nil:
		case errors.Is(err, messaging.ErrTooManyNotAcked), errors.Is(err, messaging.ErrPacketTooLarge):
			logger.WithError(err).Warn("Line not sent")
		default:
			logger.WithError(err).Debug("Input stopped")
			return
		}
	}
}

// formatMessage renders a received message for the terminal.
func formatMessage(m messaging.DecryptedMessage) string {
	switch msg := m.Message.(type) {
	case *av.UnstructuredDataPacket:
		return string(msg.Data)
	case *messaging.RawMessage:
		return fmt.Sprintf("[raw #%d] %x", m.Counter, msg.Data)
	case *av.CallControlPacket:
		return fmt.Sprintf("[call %d] control %s", msg.CallID, msg.ControlType)
	default:
		return fmt.Sprintf("[#%d] %T %+v", m.Counter, msg, msg)
	}
}
