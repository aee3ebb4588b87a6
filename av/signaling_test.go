package av

import (
	"bytes"
	"testing"
	"time"

	"github.com/opd-ai/callwire/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallRequestPacketSerialization(t *testing.T) {
	timestamp := time.Unix(1234567890, 123456789)

	original := &CallRequestPacket{
		CallID:       12345,
		AudioBitRate: 48000,
		VideoBitRate: 500000,
		Timestamp:    timestamp,
	}

	data, err := SerializeCallRequest(original)
	require.NoError(t, err)
	assert.Len(t, data, 20)

	deserialized, err := DeserializeCallRequest(data)
	require.NoError(t, err)
	assert.Equal(t, original.CallID, deserialized.CallID)
	assert.Equal(t, original.AudioBitRate, deserialized.AudioBitRate)
	assert.Equal(t, original.VideoBitRate, deserialized.VideoBitRate)
	assert.True(t, original.Timestamp.Equal(deserialized.Timestamp))
}

func TestCallResponsePacketSerialization(t *testing.T) {
	timestamp := time.Unix(1234567890, 123456789)

	tests := []struct {
		name     string
		accepted bool
	}{
		{"accepted call", true},
		{"rejected call", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := &CallResponsePacket{
				CallID:       54321,
				Accepted:     tt.accepted,
				AudioBitRate: 64000,
				Timestamp:    timestamp,
			}

			data, err := SerializeCallResponse(original)
			require.NoError(t, err)
			assert.Len(t, data, 21)

			deserialized, err := DeserializeCallResponse(data)
			require.NoError(t, err)
			assert.Equal(t, tt.accepted, deserialized.Accepted)
			assert.Equal(t, original.AudioBitRate, deserialized.AudioBitRate)
		})
	}
}

func TestCallControlValidation(t *testing.T) {
	ctrl := &CallControlPacket{CallID: 1, ControlType: CallControlHideVideo, Timestamp: time.Unix(1, 0)}
	data, err := SerializeCallControl(ctrl)
	require.NoError(t, err)
	assert.Len(t, data, 13)

	got, err := DeserializeCallControl(data)
	require.NoError(t, err)
	assert.Equal(t, CallControlHideVideo, got.ControlType)
	assert.Equal(t, "hide_video", got.ControlType.String())

	data[4] = 42
	_, err = DeserializeCallControl(data)
	assert.ErrorIs(t, err, ErrInvalidControl)

	_, err = SerializeCallControl(&CallControlPacket{ControlType: 42})
	assert.ErrorIs(t, err, ErrInvalidControl)
}

func TestNilAndShortPackets(t *testing.T) {
	_, err := SerializeCallRequest(nil)
	assert.ErrorIs(t, err, ErrNilPacket)
	_, err = SerializeCallResponse(nil)
	assert.ErrorIs(t, err, ErrNilPacket)
	_, err = SerializeCallControl(nil)
	assert.ErrorIs(t, err, ErrNilPacket)
	_, err = SerializeBitrateControl(nil)
	assert.ErrorIs(t, err, ErrNilPacket)

	_, err = DeserializeCallRequest(make([]byte, 19))
	assert.ErrorIs(t, err, ErrPacketTooShort)
	_, err = DeserializeCallResponse(make([]byte, 20))
	assert.ErrorIs(t, err, ErrPacketTooShort)
	_, err = DeserializeCallControl(make([]byte, 12))
	assert.ErrorIs(t, err, ErrPacketTooShort)
	_, err = DeserializeBitrateControl(make([]byte, 19))
	assert.ErrorIs(t, err, ErrPacketTooShort)
	_, err = DeserializeRemoteMediaState([]byte{1})
	assert.ErrorIs(t, err, ErrPacketTooShort)
}

func TestReliabilityClasses(t *testing.T) {
	reliable := []messaging.Message{
		&CallRequestPacket{}, &CallResponsePacket{}, &CallControlPacket{}, &BitrateControlPacket{},
		&RemoteMediaStatePacket{}, &RemoteBatteryLevelPacket{}, &RemoteNetworkTypePacket{},
		&UnstructuredDataPacket{},
	}
	seen := map[uint8]bool{}
	for _, msg := range reliable {
		assert.True(t, msg.RequiresAck(), "%T", msg)
		assert.False(t, seen[msg.MessageType()], "duplicate type %d", msg.MessageType())
		seen[msg.MessageType()] = true
	}
	assert.False(t, (&AudioDataPacket{}).RequiresAck())
}

func decodeBody(t *testing.T, msg messaging.Message, single bool) messaging.Message {
	t.Helper()
	body, err := msg.Marshal(single)
	require.NoError(t, err)
	r := bytes.NewReader(body)
	got, err := Codec{}.Decode(msg.MessageType(), r, single)
	require.NoError(t, err)
	assert.Zero(t, r.Len(), "%T left bytes unread", msg)
	return got
}

func TestCodecRoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 5)
	messages := []messaging.Message{
		&CallRequestPacket{CallID: 7, AudioBitRate: 48000, VideoBitRate: 1, Timestamp: ts},
		&CallResponsePacket{CallID: 7, Accepted: true, AudioBitRate: 32000, Timestamp: ts},
		&CallControlPacket{CallID: 7, ControlType: CallControlPause, Timestamp: ts},
		&BitrateControlPacket{CallID: 7, AudioBitRate: 24000, VideoBitRate: 300000, Timestamp: ts},
		&RemoteMediaStatePacket{Audio: AudioStateActive, Video: VideoStateSuspended},
		&RemoteBatteryLevelPacket{IsLow: true},
		&RemoteNetworkTypePacket{IsLowCost: true},
		&UnstructuredDataPacket{Data: []byte("hello peer")},
		&AudioDataPacket{Data: []byte{0xF8, 0xFF, 0xFE}},
	}

	for _, msg := range messages {
		for _, single := range []bool{false, true} {
			got := decodeBody(t, msg, single)
			assert.Equal(t, msg, got, "%T single=%v", msg, single)
		}
	}
}

func TestAudioDataSingleOmitsLength(t *testing.T) {
	frame := &AudioDataPacket{Data: []byte{1, 2, 3}}

	single, err := frame.Marshal(true)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, single)

	shared, err := frame.Marshal(false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 3, 1, 2, 3}, shared)

	_, err = (&AudioDataPacket{Data: make([]byte, 70000)}).Marshal(false)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestCodecErrors(t *testing.T) {
	tests := []struct {
		name    string
		msgType uint8
		body    []byte
		want    error
	}{
		{"unknown type", 0x40, nil, ErrUnknownMessageType},
		{"short call request", TypeCallRequest, make([]byte, 10), ErrPacketTooShort},
		{"bad control", TypeCallControl, []byte{0, 0, 0, 1, 99, 0, 0, 0, 0, 0, 0, 0, 0}, ErrInvalidControl},
		{"bad media state", TypeRemoteMediaState, []byte{9, 0}, ErrInvalidControl},
		{"unstructured overrun", TypeUnstructuredData, []byte{0, 0, 0, 9, 'a'}, ErrPacketTooShort},
		{"unstructured no length", TypeUnstructuredData, []byte{0, 0}, ErrPacketTooShort},
		{"audio overrun", TypeAudioData, []byte{0, 9, 'a'}, ErrPacketTooShort},
		{"empty flag", TypeRemoteBatteryLevel, nil, ErrPacketTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Codec{}.Decode(tt.msgType, bytes.NewReader(tt.body), false)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, msg)
		})
	}
}

func TestCodecReadsOnlyItsBytes(t *testing.T) {
	body, err := (&RemoteBatteryLevelPacket{IsLow: true}).Marshal(false)
	require.NoError(t, err)
	r := bytes.NewReader(append(body, 0xAA, 0xBB))

	_, err = Codec{}.Decode(TypeRemoteBatteryLevel, r, false)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len(), "trailing items are left for the framing layer")
}
