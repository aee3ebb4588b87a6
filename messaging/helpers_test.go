package messaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/opd-ai/callwire/crypto"
	"github.com/opd-ai/callwire/interfaces"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// MockTimeProvider is a test double that allows controlling time.
type MockTimeProvider struct {
	currentTime time.Time
}

// Now returns the mock current time.
func (m *MockTimeProvider) Now() time.Time { return m.currentTime }

// Since returns the duration since the given time.
func (m *MockTimeProvider) Since(t time.Time) time.Duration { return m.currentTime.Sub(t) }

// Advance moves the mock time forward by the given duration.
func (m *MockTimeProvider) Advance(d time.Duration) { m.currentTime = m.currentTime.Add(d) }

// NewMockTimeProvider creates a new MockTimeProvider initialized to the given time.
func NewMockTimeProvider(t time.Time) *MockTimeProvider {
	return &MockTimeProvider{currentTime: t}
}

type serviceRequest struct {
	delay time.Duration
	cause interfaces.ServiceCause
}

// recordingScheduler remembers every RequestService call.
type recordingScheduler struct {
	requests []serviceRequest
}

func (s *recordingScheduler) RequestService(delay time.Duration, cause interfaces.ServiceCause) {
	s.requests = append(s.requests, serviceRequest{delay: delay, cause: cause})
}

func (s *recordingScheduler) count(cause interfaces.ServiceCause) int {
	n := 0
	for _, r := range s.requests {
		if r.cause == cause {
			n++
		}
	}
	return n
}

func (s *recordingScheduler) last() serviceRequest {
	if len(s.requests) == 0 {
		return serviceRequest{delay: -1}
	}
	return s.requests[len(s.requests)-1]
}

const (
	testReliableType   uint8 = 1
	testUnreliableType uint8 = 2
	testBrokenType     uint8 = 3
)

// testMessage carries a body with a 2-byte length prefix unless it is alone
// in its packet.
type testMessage struct {
	typ  uint8
	body []byte
}

func (m *testMessage) MessageType() uint8 { return m.typ }

func (m *testMessage) RequiresAck() bool { return m.typ == testReliableType }

func (m *testMessage) Marshal(single bool) ([]byte, error) {
	if single {
		return append([]byte(nil), m.body...), nil
	}
	out := binary.BigEndian.AppendUint16(nil, uint16(len(m.body)))
	return append(out, m.body...), nil
}

type testCodec struct{}

func (testCodec) Decode(msgType uint8, r *bytes.Reader, single bool) (Message, error) {
	switch msgType {
	case testReliableType, testUnreliableType:
	case testBrokenType:
		return nil, errors.New("broken")
	default:
		return nil, nil
	}

	n := r.Len()
	if !single {
		var length uint16
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		n = int(length)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return &testMessage{typ: msgType, body: body}, nil
}

func testSecret() []byte {
	secret := make([]byte, crypto.SharedSecretSize)
	for i := range secret {
		secret[i] = byte(i)
	}
	return secret
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type testPeer struct {
	conn      *EncryptedConnection
	scheduler *recordingScheduler
}

func newTestPeer(t *testing.T, kind ChannelKind, isOutgoing bool, clock TimeProvider) *testPeer {
	t.Helper()
	key, err := crypto.NewKeyMaterial(testSecret(), isOutgoing)
	require.NoError(t, err)

	scheduler := &recordingScheduler{}
	conn := NewEncryptedConnection(kind, key, scheduler, Options{
		TimeProvider: clock,
		Logger:       quietLogger(),
		Codec:        testCodec{},
	})
	return &testPeer{conn: conn, scheduler: scheduler}
}

func newTestEngine(clock TimeProvider) (*reliabilityEngine, *recordingScheduler) {
	scheduler := &recordingScheduler{}
	stats := &Stats{}
	e := newReliabilityEngine(PacketLimit(Transport), DefaultTiming(Transport), clock, scheduler,
		logrus.NewEntry(quietLogger()), stats)
	return e, scheduler
}

var testEpoch = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
