package av

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/opd-ai/callwire/messaging"
	"github.com/sirupsen/logrus"
)

// Codec decodes av messages from frame items. It implements
// messaging.MessageCodec and is stateless.
type Codec struct{}

var _ messaging.MessageCodec = Codec{}

// Decode reads one message of msgType from r.
func (Codec) Decode(msgType uint8, r *bytes.Reader, single bool) (messaging.Message, error) {
	msg, err := decode(msgType, r, single)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Codec.Decode",
			"type":     msgType,
			"error":    err.Error(),
		}).Debug("Failed to decode av message")
		return nil, err
	}
	return msg, nil
}

func decode(msgType uint8, r *bytes.Reader, single bool) (messaging.Message, error) {
	switch msgType {
	case TypeCallRequest:
		return decodeFixed(r, callRequestSize, DeserializeCallRequest)
	case TypeCallResponse:
		return decodeFixed(r, callResponseSize, DeserializeCallResponse)
	case TypeCallControl:
		return decodeFixed(r, callControlSize, DeserializeCallControl)
	case TypeBitrateControl:
		return decodeFixed(r, bitrateControlSize, DeserializeBitrateControl)
	case TypeRemoteMediaState:
		return decodeFixed(r, mediaStateSize, DeserializeRemoteMediaState)
	case TypeRemoteBatteryLevel:
		return decodeFixed(r, flagSize, func(b []byte) (*RemoteBatteryLevelPacket, error) {
			return &RemoteBatteryLevelPacket{IsLow: b[0] != 0}, nil
		})
	case TypeRemoteNetworkType:
		return decodeFixed(r, flagSize, func(b []byte) (*RemoteNetworkTypePacket, error) {
			return &RemoteNetworkTypePacket{IsLowCost: b[0] != 0}, nil
		})
	case TypeUnstructuredData:
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("unstructured data length: %w", ErrPacketTooShort)
		}
		data, err := readExact(r, int64(length))
		if err != nil {
			return nil, fmt.Errorf("unstructured data: %w", err)
		}
		return &UnstructuredDataPacket{Data: data}, nil
	case TypeAudioData:
		length := int64(r.Len())
		if !single {
			var prefix uint16
			if err := binary.Read(r, binary.BigEndian, &prefix); err != nil {
				return nil, fmt.Errorf("audio data length: %w", ErrPacketTooShort)
			}
			length = int64(prefix)
		}
		data, err := readExact(r, length)
		if err != nil {
			return nil, fmt.Errorf("audio data: %w", err)
		}
		return &AudioDataPacket{Data: data}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, msgType)
	}
}

// decodeFixed reads exactly size bytes and hands them to parse.
func decodeFixed[T messaging.Message](r *bytes.Reader, size int, parse func([]byte) (T, error)) (messaging.Message, error) {
	data, err := readExact(r, int64(size))
	if err != nil {
		return nil, err
	}
	msg, err := parse(data)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func readExact(r *bytes.Reader, n int64) ([]byte, error) {
	if n > int64(r.Len()) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrPacketTooShort, n, r.Len())
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPacketTooShort, err)
	}
	return data, nil
}
