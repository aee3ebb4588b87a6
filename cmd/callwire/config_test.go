package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opd-ai/callwire/av"
	"github.com/opd-ai/callwire/crypto"
	"github.com/opd-ai/callwire/messaging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	v, err := newViper("")
	require.NoError(t, err)
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ":0", cfg.Listen)
	assert.Equal(t, handshakeNone, cfg.Handshake)

	kind, err := cfg.ChannelKind()
	require.NoError(t, err)
	assert.Equal(t, messaging.Signaling, kind)
}

func TestLoadConfigFromProfileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peer.yaml")

	p, err := generateProfile(bytes.NewReader(bytes.Repeat([]byte{0x42}, crypto.SharedSecretSize)))
	require.NoError(t, err)
	require.NoError(t, writeProfile(path, p))

	t.Setenv("CALLWIRE_KIND", "transport")
	t.Setenv("CALLWIRE_LOG_LEVEL", "debug")

	v, err := newViper(path)
	require.NoError(t, err)
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, p.Secret, cfg.Secret)
	assert.Equal(t, p.StaticKey, cfg.StaticKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	kind, err := cfg.ChannelKind()
	require.NoError(t, err)
	assert.Equal(t, messaging.Transport, kind)
}

func TestNewViperMissingFile(t *testing.T) {
	_, err := newViper(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		initiator bool
		wantErr   bool
	}{
		{"secret with peer", Config{Handshake: handshakeNone, Secret: "00", Peer: "127.0.0.1:1"}, false, false},
		{"missing secret", Config{Handshake: handshakeNone, Peer: "127.0.0.1:1"}, true, true},
		{"missing peer", Config{Handshake: handshakeNone, Secret: "00"}, true, true},
		{"xx responder without peer", Config{Handshake: handshakeXX, StaticKey: "00"}, false, false},
		{"xx initiator without peer", Config{Handshake: handshakeXX, StaticKey: "00"}, true, true},
		{"xx without static", Config{Handshake: handshakeXX, Peer: "127.0.0.1:1"}, true, true},
		{"ik initiator without peer key", Config{Handshake: handshakeIK, StaticKey: "00", Peer: "127.0.0.1:1"}, true, true},
		{"ik responder", Config{Handshake: handshakeIK, StaticKey: "00"}, false, false},
		{"unknown handshake", Config{Handshake: "tls"}, false, true},
		{"unknown kind", Config{Handshake: handshakeNone, Secret: "00", Peer: "x", Kind: "video"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.initiator)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeHexKey(t *testing.T) {
	raw, err := decodeHexKey("key", " "+strings.Repeat("ab", 32)+"\n", 32)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	_, err = decodeHexKey("key", "abcd", 32)
	assert.ErrorContains(t, err, "must be 32 bytes")

	_, err = decodeHexKey("key", "zz", 1)
	assert.ErrorContains(t, err, "not valid hex")
}

func TestGenerateProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")

	p, err := generateProfile(bytes.NewReader(bytes.Repeat([]byte{0x01}, crypto.SharedSecretSize)))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("01", crypto.SharedSecretSize), p.Secret)

	priv, err := hex.DecodeString(p.StaticKey)
	require.NoError(t, err)
	var sk [32]byte
	copy(sk[:], priv)
	kp, err := crypto.FromSecretKey(sk)
	require.NoError(t, err)
	assert.Equal(t, p.PublicKey, hex.EncodeToString(kp.Public[:]))

	require.NoError(t, writeProfile(path, p))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	back, err := readProfile(path)
	require.NoError(t, err)
	assert.Equal(t, p, back)

	_, err = generateProfile(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestKeygenCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"keygen"})
	require.NoError(t, root.Execute())

	secret := strings.TrimSpace(out.String())
	raw, err := hex.DecodeString(secret)
	require.NoError(t, err)
	assert.Len(t, raw, crypto.SharedSecretSize)

	path := filepath.Join(t.TempDir(), "p.yaml")
	out.Reset()
	root = newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"keygen", "--out", path})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), path)

	p, err := readProfile(path)
	require.NoError(t, err)
	assert.Len(t, p.Secret, 2*crypto.SharedSecretSize)
}

func TestNewLogger(t *testing.T) {
	file := filepath.Join(t.TempDir(), "callwire.log")
	logger, err := newLogger(LogConfig{Level: "warn", Format: "json", File: file, MaxSizeMB: 1})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger.Warn("rotated output")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotated output")

	_, err = newLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = newLogger(LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "hello", formatMessage(messaging.DecryptedMessage{
		Message: &av.UnstructuredDataPacket{Data: []byte("hello")},
	}))
	assert.Equal(t, "[raw #7] 0102", formatMessage(messaging.DecryptedMessage{
		Message: &messaging.RawMessage{Data: []byte{1, 2}}, Counter: 7,
	}))
	assert.Contains(t, formatMessage(messaging.DecryptedMessage{
		Message: &av.RemoteBatteryLevelPacket{IsLow: true}, Counter: 3,
	}), "RemoteBatteryLevelPacket")
}
