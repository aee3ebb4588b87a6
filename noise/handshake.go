package noise

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/flynn/noise"
	"github.com/opd-ai/callwire/crypto"
	"github.com/sirupsen/logrus"
)

var (
	// ErrHandshakeNotComplete indicates handshake is still in progress
	ErrHandshakeNotComplete = errors.New("handshake not complete")
	// ErrInvalidMessage indicates received message is invalid for current state
	ErrInvalidMessage = errors.New("invalid message for current handshake state")
	// ErrHandshakeComplete indicates handshake is already complete
	ErrHandshakeComplete = errors.New("handshake already complete")
)

// callSecretInfo labels the HKDF expansion of a handshake hash into a call secret.
const callSecretInfo = "CALLWIRE_NOISE_CALL_SECRET_V1"

// HandshakeRole defines whether we're initiating or responding to handshake
type HandshakeRole uint8

const (
	// Initiator starts the handshake and becomes the outgoing side of the call.
	Initiator HandshakeRole = iota
	// Responder answers the handshake and becomes the incoming side.
	Responder
)

func (r HandshakeRole) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// Handshake is the message-driven interface shared by the IK and XX patterns.
type Handshake interface {
	WriteMessage(payload, receivedMessage []byte) ([]byte, bool, error)
	ReadMessage(message []byte) ([]byte, bool, error)
	IsComplete() bool
	Role() HandshakeRole
	KeyMaterial() (*crypto.KeyMaterial, error)
}

func newStaticKey(staticPrivKey []byte) (noise.DHKey, error) {
	if len(staticPrivKey) != 32 {
		return noise.DHKey{}, fmt.Errorf("static private key must be 32 bytes, got %d", len(staticPrivKey))
	}

	var privateKeyArray [32]byte
	copy(privateKeyArray[:], staticPrivKey)
	defer crypto.ZeroBytes(privateKeyArray[:])

	keyPair, err := crypto.FromSecretKey(privateKeyArray)
	if err != nil {
		return noise.DHKey{}, fmt.Errorf("failed to derive keypair: %w", err)
	}

	staticKey := noise.DHKey{
		Private: make([]byte, 32),
		Public:  make([]byte, 32),
	}
	copy(staticKey.Private, keyPair.Private[:])
	copy(staticKey.Public, keyPair.Public[:])
	crypto.ZeroBytes(keyPair.Private[:])
	return staticKey, nil
}

func newHandshakeState(pattern noise.HandshakePattern, role HandshakeRole, staticKey noise.DHKey, peerPubKey []byte) (*noise.HandshakeState, error) {
	config := noise.Config{
		CipherSuite:   noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256),
		Random:        rand.Reader,
		Pattern:       pattern,
		Initiator:     role == Initiator,
		StaticKeypair: staticKey,
	}
	if peerPubKey != nil {
		config.PeerStatic = make([]byte, 32)
		copy(config.PeerStatic, peerPubKey)
	}
	return noise.NewHandshakeState(config)
}

// deriveKeyMaterial expands the handshake hash into the 256-byte call secret.
// Both peers compute the same hash once the handshake completes.
func deriveKeyMaterial(state *noise.HandshakeState, role HandshakeRole, complete bool) (*crypto.KeyMaterial, error) {
	if !complete {
		return nil, ErrHandshakeNotComplete
	}

	binding := state.ChannelBinding()
	km, err := crypto.ExpandKeyMaterial(binding, nil, callSecretInfo, role == Initiator)
	if err != nil {
		return nil, fmt.Errorf("derive call secret: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "KeyMaterial",
		"role":     role.String(),
	}).Debug("Derived call secret from handshake")
	return km, nil
}

// IKHandshake implements the Noise IK pattern.
// IK provides mutual authentication and forward secrecy, suitable for
// scenarios where the initiator knows the responder's static public key.
type IKHandshake struct {
	role       HandshakeRole
	state      *noise.HandshakeState
	sendCipher *noise.CipherState
	recvCipher *noise.CipherState
	complete   bool
}

// NewIKHandshake creates a new IK pattern handshake.
// staticPrivKey is our long-term private key (32 bytes).
// peerPubKey is peer's long-term public key (32 bytes, nil for responder).
func NewIKHandshake(staticPrivKey, peerPubKey []byte, role HandshakeRole) (*IKHandshake, error) {
	if role == Initiator && len(peerPubKey) != 32 {
		return nil, fmt.Errorf("initiator requires peer public key (32 bytes), got %d", len(peerPubKey))
	}

	staticKey, err := newStaticKey(staticPrivKey)
	if err != nil {
		return nil, err
	}

	if role != Initiator {
		peerPubKey = nil
	}
	state, err := newHandshakeState(noise.HandshakeIK, role, staticKey, peerPubKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create handshake state: %w", err)
	}

	return &IKHandshake{role: role, state: state}, nil
}

// WriteMessage processes the next handshake message.
// For initiator: creates the initial handshake message.
// For responder: processes received message and creates response.
// Returns the message to send to peer, completion status, and any error.
func (ik *IKHandshake) WriteMessage(payload, receivedMessage []byte) ([]byte, bool, error) {
	if ik.complete {
		return nil, false, ErrHandshakeComplete
	}

	if ik.role == Initiator {
		// -> e, es, s, ss
		message, _, _, err := ik.state.WriteMessage(nil, payload)
		if err != nil {
			return nil, false, fmt.Errorf("initiator write failed: %w", err)
		}
		return message, false, nil
	}

	if receivedMessage == nil {
		return nil, false, fmt.Errorf("%w: responder requires received message", ErrInvalidMessage)
	}
	if _, _, _, err := ik.state.ReadMessage(nil, receivedMessage); err != nil {
		return nil, false, fmt.Errorf("responder read failed: %w", err)
	}

	// <- e, ee, se
	message, recv, send, err := ik.state.WriteMessage(nil, payload)
	if err != nil {
		return nil, false, fmt.Errorf("responder write failed: %w", err)
	}
	ik.sendCipher, ik.recvCipher = send, recv
	ik.complete = true
	return message, true, nil
}

// ReadMessage processes the responder's reply. Only the initiator reads.
func (ik *IKHandshake) ReadMessage(message []byte) ([]byte, bool, error) {
	if ik.complete {
		return nil, false, ErrHandshakeComplete
	}
	if ik.role != Initiator {
		return nil, false, fmt.Errorf("%w: only initiator can read response messages", ErrInvalidMessage)
	}

	payload, send, recv, err := ik.state.ReadMessage(nil, message)
	if err != nil {
		return nil, false, fmt.Errorf("initiator read response failed: %w", err)
	}
	ik.sendCipher, ik.recvCipher = send, recv
	ik.complete = true
	return payload, true, nil
}

// IsComplete returns true if handshake is finished and cipher states are available.
func (ik *IKHandshake) IsComplete() bool {
	return ik.complete
}

// Role returns the local role.
func (ik *IKHandshake) Role() HandshakeRole {
	return ik.role
}

// GetCipherStates returns the send and receive cipher states after successful handshake.
func (ik *IKHandshake) GetCipherStates() (*noise.CipherState, *noise.CipherState, error) {
	if !ik.complete {
		return nil, nil, ErrHandshakeNotComplete
	}
	return ik.sendCipher, ik.recvCipher, nil
}

// GetRemoteStaticKey returns the peer's static public key after successful handshake.
func (ik *IKHandshake) GetRemoteStaticKey() ([]byte, error) {
	if !ik.complete {
		return nil, ErrHandshakeNotComplete
	}
	return append([]byte(nil), ik.state.PeerStatic()...), nil
}

// KeyMaterial returns the call secret for an EncryptedConnection. The
// initiator is the outgoing side.
func (ik *IKHandshake) KeyMaterial() (*crypto.KeyMaterial, error) {
	return deriveKeyMaterial(ik.state, ik.role, ik.complete)
}

// XXHandshake implements the Noise XX pattern for mutual authentication
// without prior key knowledge.
//
//	-> e
//	<- e, ee, s, es
//	-> s, se
type XXHandshake struct {
	role        HandshakeRole
	state       *noise.HandshakeState
	sendCipher  *noise.CipherState
	recvCipher  *noise.CipherState
	complete    bool
	localPubKey []byte
}

// NewXXHandshake creates a new XX pattern handshake.
func NewXXHandshake(staticPrivKey []byte, role HandshakeRole) (*XXHandshake, error) {
	staticKey, err := newStaticKey(staticPrivKey)
	if err != nil {
		return nil, err
	}

	hs, err := newHandshakeState(noise.HandshakeXX, role, staticKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create XX handshake state: %w", err)
	}

	return &XXHandshake{
		role:        role,
		state:       hs,
		localPubKey: append([]byte(nil), staticKey.Public...),
	}, nil
}

// WriteMessage writes the next XX message. receivedMessage is ignored; use
// ReadMessage for the peer's messages.
func (xx *XXHandshake) WriteMessage(payload, _ []byte) ([]byte, bool, error) {
	if xx.complete {
		return nil, false, ErrHandshakeComplete
	}

	message, cs1, cs2, err := xx.state.WriteMessage(nil, payload)
	if err != nil {
		return nil, false, fmt.Errorf("XX handshake write failed: %w", err)
	}
	return message, xx.finish(cs1, cs2), nil
}

// ReadMessage reads the peer's next XX message.
func (xx *XXHandshake) ReadMessage(message []byte) ([]byte, bool, error) {
	if xx.complete {
		return nil, false, ErrHandshakeComplete
	}

	payload, cs1, cs2, err := xx.state.ReadMessage(nil, message)
	if err != nil {
		return nil, false, fmt.Errorf("XX handshake read failed: %w", err)
	}
	return payload, xx.finish(cs1, cs2), nil
}

// finish records the cipher states once the pattern is exhausted. The first
// state always encrypts initiator-to-responder traffic.
func (xx *XXHandshake) finish(cs1, cs2 *noise.CipherState) bool {
	if cs1 == nil || cs2 == nil {
		return false
	}
	if xx.role == Initiator {
		xx.sendCipher, xx.recvCipher = cs1, cs2
	} else {
		xx.sendCipher, xx.recvCipher = cs2, cs1
	}
	xx.complete = true
	return true
}

// IsComplete returns whether the XX handshake is complete.
func (xx *XXHandshake) IsComplete() bool {
	return xx.complete
}

// Role returns the local role.
func (xx *XXHandshake) Role() HandshakeRole {
	return xx.role
}

// GetCipherStates returns the established cipher states for XX pattern.
func (xx *XXHandshake) GetCipherStates() (*noise.CipherState, *noise.CipherState, error) {
	if !xx.complete {
		return nil, nil, ErrHandshakeNotComplete
	}
	return xx.sendCipher, xx.recvCipher, nil
}

// GetRemoteStaticKey returns the peer's static key after XX handshake completion.
func (xx *XXHandshake) GetRemoteStaticKey() ([]byte, error) {
	if !xx.complete {
		return nil, ErrHandshakeNotComplete
	}
	return append([]byte(nil), xx.state.PeerStatic()...), nil
}

// GetLocalStaticKey returns our static public key for XX pattern.
func (xx *XXHandshake) GetLocalStaticKey() []byte {
	return append([]byte(nil), xx.localPubKey...)
}

// KeyMaterial returns the call secret for an EncryptedConnection. The
// initiator is the outgoing side.
func (xx *XXHandshake) KeyMaterial() (*crypto.KeyMaterial, error) {
	return deriveKeyMaterial(xx.state, xx.role, xx.complete)
}
