package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// keyMaterialInfo is the default HKDF info string for call secrets.
const keyMaterialInfo = "CALLWIRE_SHARED_SECRET_V1"

// DeriveSharedSecret computes a shared secret between two parties
// using Elliptic Curve Diffie-Hellman (ECDH) on Curve25519.
func DeriveSharedSecret(peerPublicKey, privateKey [32]byte) ([32]byte, error) {
	logrus.WithFields(logrus.Fields{
		"function":        "DeriveSharedSecret",
		"peer_key_prefix": fmt.Sprintf("%x", peerPublicKey[:8]),
	}).Debug("Computing shared secret using ECDH")

	privateKeyCopy := privateKey
	defer ZeroBytes(privateKeyCopy[:])

	sharedSecret, err := curve25519.X25519(privateKeyCopy[:], peerPublicKey[:])
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DeriveSharedSecret",
			"error":    err.Error(),
		}).Error("X25519 computation failed")
		return [32]byte{}, fmt.Errorf("failed to compute shared secret: %w", err)
	}

	var result [32]byte
	copy(result[:], sharedSecret)
	ZeroBytes(sharedSecret)

	return result, nil
}

// ExpandKeyMaterial stretches input keying material into a full 256-byte call
// secret with HKDF-SHA256. An empty info selects the package default.
func ExpandKeyMaterial(ikm, salt []byte, info string, isOutgoing bool) (*KeyMaterial, error) {
	if len(ikm) == 0 {
		return nil, errors.New("empty input keying material")
	}
	if info == "" {
		info = keyMaterialInfo
	}

	secret := make([]byte, SharedSecretSize)
	defer ZeroBytes(secret)

	reader := hkdf.New(sha256.New, ikm, salt, []byte(info))
	if _, err := io.ReadFull(reader, secret); err != nil {
		return nil, fmt.Errorf("expand key material: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "ExpandKeyMaterial",
		"is_outgoing": isOutgoing,
		"salt_size":   len(salt),
	}).Debug("Expanded call secret")

	return NewKeyMaterial(secret, isOutgoing)
}

// KeyMaterialFromKeyPairs runs X25519 between the two parties and expands the
// result into a call secret. Both sides obtain the same secret.
func KeyMaterialFromKeyPairs(local *KeyPair, peerPublicKey [32]byte, isOutgoing bool) (*KeyMaterial, error) {
	if local == nil {
		return nil, errors.New("nil local key pair")
	}
	shared, err := DeriveSharedSecret(peerPublicKey, local.Private)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(shared[:])

	return ExpandKeyMaterial(shared[:], nil, "", isOutgoing)
}
