package crypto

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// SharedSecretSize is the length of the call secret agreed by the key exchange.
const SharedSecretSize = 256

// ErrInvalidSecretSize is returned when a shared secret is not exactly SharedSecretSize bytes.
var ErrInvalidSecretSize = errors.New("invalid shared secret size")

// KeyMaterial is the shared call secret together with the local role.
//
// Both peers hold the same 256 bytes. The isOutgoing flag tells which half of
// the secret is used for sending, so the two traffic directions never share
// a derived key. KeyMaterial is immutable for the lifetime of a connection.
type KeyMaterial struct {
	secret     [SharedSecretSize]byte
	isOutgoing bool
}

// NewKeyMaterial copies secret into a new KeyMaterial.
func NewKeyMaterial(secret []byte, isOutgoing bool) (*KeyMaterial, error) {
	if len(secret) != SharedSecretSize {
		logrus.WithFields(logrus.Fields{
			"function": "NewKeyMaterial",
			"size":     len(secret),
			"expected": SharedSecretSize,
		}).Error("Rejecting shared secret with wrong size")
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSecretSize, len(secret), SharedSecretSize)
	}

	km := &KeyMaterial{isOutgoing: isOutgoing}
	copy(km.secret[:], secret)
	return km, nil
}

// IsOutgoing reports whether the local side originated the call.
func (km *KeyMaterial) IsOutgoing() bool {
	return km.isOutgoing
}

// Wipe zeroes the secret. The KeyMaterial must not be used afterwards.
func (km *KeyMaterial) Wipe() {
	ZeroBytes(km.secret[:])
}

// slice returns secret[from:from+n].
func (km *KeyMaterial) slice(from, n int) []byte {
	return km.secret[from : from+n]
}

// SendOffset is the key-slice offset used to encrypt outgoing packets.
func SendOffset(isOutgoing, signaling bool) int {
	x := 8
	if isOutgoing {
		x = 0
	}
	if signaling {
		x += 128
	}
	return x
}

// ReceiveOffset is the key-slice offset used to decrypt incoming packets.
// It mirrors the peer's SendOffset.
func ReceiveOffset(isOutgoing, signaling bool) int {
	return SendOffset(!isOutgoing, signaling)
}
