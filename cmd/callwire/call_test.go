package main

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/opd-ai/callwire/crypto"
	"github.com/opd-ai/callwire/noise"
	"github.com/opd-ai/callwire/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstablishKeyFromSecret(t *testing.T) {
	conn, err := transport.ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	cfg := &Config{
		Handshake: handshakeNone,
		Secret:    strings.Repeat("ab", crypto.SharedSecretSize),
		Peer:      "127.0.0.1:40000",
	}

	key, peer, final, err := establishKey(context.Background(), cfg, true, conn)
	require.NoError(t, err)
	assert.True(t, key.IsOutgoing())
	assert.Equal(t, "127.0.0.1:40000", peer.String())
	assert.Nil(t, final)

	key, _, _, err = establishKey(context.Background(), cfg, false, conn)
	require.NoError(t, err)
	assert.False(t, key.IsOutgoing())

	cfg.Secret = "abcd"
	_, _, _, err = establishKey(context.Background(), cfg, true, conn)
	assert.ErrorContains(t, err, "secret must be")
}

func TestNewHandshake(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	peer, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	cfg := &Config{Handshake: handshakeXX, StaticKey: hex.EncodeToString(kp.Private[:])}
	hs, err := newHandshake(cfg, true)
	require.NoError(t, err)
	assert.IsType(t, &noise.XXHandshake{}, hs)
	assert.Equal(t, noise.Initiator, hs.Role())

	cfg.Handshake = handshakeIK
	hs, err = newHandshake(cfg, false)
	require.NoError(t, err)
	assert.IsType(t, &noise.IKHandshake{}, hs)
	assert.Equal(t, noise.Responder, hs.Role())

	_, err = newHandshake(cfg, true)
	assert.Error(t, err, "IK initiator needs the peer key")

	cfg.PeerKey = hex.EncodeToString(peer.Public[:])
	hs, err = newHandshake(cfg, true)
	require.NoError(t, err)
	assert.Equal(t, noise.Initiator, hs.Role())

	cfg.StaticKey = "00"
	_, err = newHandshake(cfg, true)
	assert.Error(t, err)
}
