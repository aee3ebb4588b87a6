package av

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Signaling messages exchanged between call participants. Each one is a
// messaging.Message: the connection adds the type byte and sequence value,
// these types only lay out the body.
//
// All call-control messages require an acknowledgement. Audio frames do not
// and are simply dropped when lost.

const (
	callRequestSize    = 20
	callResponseSize   = 21
	callControlSize    = 13
	bitrateControlSize = 20
	mediaStateSize     = 2
	flagSize           = 1
)

// CallRequestPacket represents a call initiation request.
//
// Wire format:
//
//	[CALL_ID(4)][AUDIO_BITRATE(4)][VIDEO_BITRATE(4)][TIMESTAMP(8)]
//
// Total size: 20 bytes
type CallRequestPacket struct {
	CallID       uint32    // Unique call identifier
	AudioBitRate uint32    // Requested audio bit rate (0 = disabled)
	VideoBitRate uint32    // Requested video bit rate (0 = disabled)
	Timestamp    time.Time // Call initiation timestamp
}

// CallResponsePacket represents a call answer.
//
// Wire format:
//
//	[CALL_ID(4)][ACCEPTED(1)][AUDIO_BITRATE(4)][VIDEO_BITRATE(4)][TIMESTAMP(8)]
//
// Total size: 21 bytes
type CallResponsePacket struct {
	CallID       uint32    // Call identifier from request
	Accepted     bool      // Whether call was accepted
	AudioBitRate uint32    // Accepted audio bit rate (0 = disabled)
	VideoBitRate uint32    // Accepted video bit rate (0 = disabled)
	Timestamp    time.Time // Response timestamp
}

// CallControlPacket represents call control messages.
//
// Wire format:
//
//	[CALL_ID(4)][CONTROL_TYPE(1)][TIMESTAMP(8)]
//
// Total size: 13 bytes
type CallControlPacket struct {
	CallID      uint32      // Call identifier
	ControlType CallControl // Control action to perform
	Timestamp   time.Time   // Control message timestamp
}

// BitrateControlPacket represents bitrate change requests.
//
// Wire format:
//
//	[CALL_ID(4)][AUDIO_BITRATE(4)][VIDEO_BITRATE(4)][TIMESTAMP(8)]
//
// Total size: 20 bytes
type BitrateControlPacket struct {
	CallID       uint32    // Call identifier
	AudioBitRate uint32    // New audio bit rate (0 = disabled)
	VideoBitRate uint32    // New video bit rate (0 = disabled)
	Timestamp    time.Time // Bitrate change timestamp
}

// RemoteMediaStatePacket announces the sender's outgoing media state.
//
// Wire format:
//
//	[AUDIO_STATE(1)][VIDEO_STATE(1)]
type RemoteMediaStatePacket struct {
	Audio AudioState
	Video VideoState
}

// RemoteBatteryLevelPacket tells the peer whether the sender runs low on battery.
type RemoteBatteryLevelPacket struct {
	IsLow bool
}

// RemoteNetworkTypePacket tells the peer whether the sender is on a
// low-cost (metered) network.
type RemoteNetworkTypePacket struct {
	IsLowCost bool
}

// UnstructuredDataPacket carries application data the call layer does not
// interpret.
//
// Wire format:
//
//	[LENGTH(4)][DATA(LENGTH)]
type UnstructuredDataPacket struct {
	Data []byte
}

// AudioDataPacket carries one encoded audio frame on the unreliable path.
//
// Wire format when sharing a packet:
//
//	[LENGTH(2)][DATA(LENGTH)]
//
// When alone in its packet the length is omitted and the frame runs to the
// end of the packet.
type AudioDataPacket struct {
	Data []byte
}

func (*CallRequestPacket) MessageType() uint8 { return TypeCallRequest }
func (*CallResponsePacket) MessageType() uint8 { return TypeCallResponse }
func (*CallControlPacket) MessageType() uint8 { return TypeCallControl }
func (*BitrateControlPacket) MessageType() uint8 { return TypeBitrateControl }
func (*RemoteMediaStatePacket) MessageType() uint8 { return TypeRemoteMediaState }
func (*RemoteBatteryLevelPacket) MessageType() uint8 { return TypeRemoteBatteryLevel }
func (*RemoteNetworkTypePacket) MessageType() uint8 { return TypeRemoteNetworkType }
func (*UnstructuredDataPacket) MessageType() uint8 { return TypeUnstructuredData }
func (*AudioDataPacket) MessageType() uint8 { return TypeAudioData }

func (*CallRequestPacket) RequiresAck() bool { return true }
func (*CallResponsePacket) RequiresAck() bool { return true }
func (*CallControlPacket) RequiresAck() bool { return true }
func (*BitrateControlPacket) RequiresAck() bool { return true }
func (*RemoteMediaStatePacket) RequiresAck() bool { return true }
func (*RemoteBatteryLevelPacket) RequiresAck() bool { return true }
func (*RemoteNetworkTypePacket) RequiresAck() bool { return true }
func (*UnstructuredDataPacket) RequiresAck() bool { return true }
func (*AudioDataPacket) RequiresAck() bool { return false }

// Marshal implements messaging.Message.
func (p *CallRequestPacket) Marshal(bool) ([]byte, error) { return SerializeCallRequest(p) }

// Marshal implements messaging.Message.
func (p *CallResponsePacket) Marshal(bool) ([]byte, error) { return SerializeCallResponse(p) }

// Marshal implements messaging.Message.
func (p *CallControlPacket) Marshal(bool) ([]byte, error) { return SerializeCallControl(p) }

// Marshal implements messaging.Message.
func (p *BitrateControlPacket) Marshal(bool) ([]byte, error) { return SerializeBitrateControl(p) }

// Marshal implements messaging.Message.
func (p *RemoteMediaStatePacket) Marshal(bool) ([]byte, error) {
	return []byte{byte(p.Audio), byte(p.Video)}, nil
}

// Marshal implements messaging.Message.
func (p *RemoteBatteryLevelPacket) Marshal(bool) ([]byte, error) {
	return []byte{boolByte(p.IsLow)}, nil
}

// Marshal implements messaging.Message.
func (p *RemoteNetworkTypePacket) Marshal(bool) ([]byte, error) {
	return []byte{boolByte(p.IsLowCost)}, nil
}

// Marshal implements messaging.Message.
func (p *UnstructuredDataPacket) Marshal(bool) ([]byte, error) {
	if uint64(len(p.Data)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(p.Data))
	}
	data := make([]byte, 4, 4+len(p.Data))
	binary.BigEndian.PutUint32(data, uint32(len(p.Data)))
	return append(data, p.Data...), nil
}

// Marshal implements messaging.Message.
func (p *AudioDataPacket) Marshal(single bool) ([]byte, error) {
	if single {
		return append([]byte(nil), p.Data...), nil
	}
	if len(p.Data) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d byte audio frame", ErrPayloadTooLarge, len(p.Data))
	}
	data := make([]byte, 2, 2+len(p.Data))
	binary.BigEndian.PutUint16(data, uint16(len(p.Data)))
	return append(data, p.Data...), nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// SerializeCallRequest converts a CallRequestPacket to bytes for transmission.
func SerializeCallRequest(req *CallRequestPacket) ([]byte, error) {
	if req == nil {
		logrus.WithFields(logrus.Fields{
			"function": "SerializeCallRequest",
			"error":    "call request packet is nil",
		}).Error("Invalid call request packet")
		return nil, fmt.Errorf("call request: %w", ErrNilPacket)
	}

	logrus.WithFields(logrus.Fields{
		"function":      "SerializeCallRequest",
		"call_id":       req.CallID,
		"audio_bitrate": req.AudioBitRate,
		"video_bitrate": req.VideoBitRate,
	}).Debug("Serializing call request packet")

	data := make([]byte, callRequestSize)
	binary.BigEndian.PutUint32(data[0:4], req.CallID)
	binary.BigEndian.PutUint32(data[4:8], req.AudioBitRate)
	binary.BigEndian.PutUint32(data[8:12], req.VideoBitRate)
	binary.BigEndian.PutUint64(data[12:20], uint64(req.Timestamp.UnixNano()))

	return data, nil
}

// DeserializeCallRequest converts bytes to a CallRequestPacket.
func DeserializeCallRequest(data []byte) (*CallRequestPacket, error) {
	if len(data) < callRequestSize {
		return nil, fmt.Errorf("call request: %w", ErrPacketTooShort)
	}

	return &CallRequestPacket{
		CallID:       binary.BigEndian.Uint32(data[0:4]),
		AudioBitRate: binary.BigEndian.Uint32(data[4:8]),
		VideoBitRate: binary.BigEndian.Uint32(data[8:12]),
		Timestamp:    time.Unix(0, int64(binary.BigEndian.Uint64(data[12:20]))),
	}, nil
}

// SerializeCallResponse converts a CallResponsePacket to bytes for transmission.
func SerializeCallResponse(resp *CallResponsePacket) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("call response: %w", ErrNilPacket)
	}

	data := make([]byte, callResponseSize)
	binary.BigEndian.PutUint32(data[0:4], resp.CallID)
	data[4] = boolByte(resp.Accepted)
	binary.BigEndian.PutUint32(data[5:9], resp.AudioBitRate)
	binary.BigEndian.PutUint32(data[9:13], resp.VideoBitRate)
	binary.BigEndian.PutUint64(data[13:21], uint64(resp.Timestamp.UnixNano()))

	return data, nil
}

// DeserializeCallResponse converts bytes to a CallResponsePacket.
func DeserializeCallResponse(data []byte) (*CallResponsePacket, error) {
	if len(data) < callResponseSize {
		return nil, fmt.Errorf("call response: %w", ErrPacketTooShort)
	}

	return &CallResponsePacket{
		CallID:       binary.BigEndian.Uint32(data[0:4]),
		Accepted:     data[4] != 0,
		AudioBitRate: binary.BigEndian.Uint32(data[5:9]),
		VideoBitRate: binary.BigEndian.Uint32(data[9:13]),
		Timestamp:    time.Unix(0, int64(binary.BigEndian.Uint64(data[13:21]))),
	}, nil
}

// SerializeCallControl converts a CallControlPacket to bytes for transmission.
func SerializeCallControl(ctrl *CallControlPacket) ([]byte, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("call control: %w", ErrNilPacket)
	}
	if !ctrl.ControlType.Valid() {
		return nil, fmt.Errorf("%w: call control %d", ErrInvalidControl, ctrl.ControlType)
	}

	data := make([]byte, callControlSize)
	binary.BigEndian.PutUint32(data[0:4], ctrl.CallID)
	data[4] = byte(ctrl.ControlType)
	binary.BigEndian.PutUint64(data[5:13], uint64(ctrl.Timestamp.UnixNano()))

	return data, nil
}

// DeserializeCallControl converts bytes to a CallControlPacket.
func DeserializeCallControl(data []byte) (*CallControlPacket, error) {
	if len(data) < callControlSize {
		return nil, fmt.Errorf("call control: %w", ErrPacketTooShort)
	}

	control := CallControl(data[4])
	if !control.Valid() {
		return nil, fmt.Errorf("%w: call control %d", ErrInvalidControl, data[4])
	}

	return &CallControlPacket{
		CallID:      binary.BigEndian.Uint32(data[0:4]),
		ControlType: control,
		Timestamp:   time.Unix(0, int64(binary.BigEndian.Uint64(data[5:13]))),
	}, nil
}

// SerializeBitrateControl converts a BitrateControlPacket to bytes for transmission.
func SerializeBitrateControl(ctrl *BitrateControlPacket) ([]byte, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("bitrate control: %w", ErrNilPacket)
	}

	data := make([]byte, bitrateControlSize)
	binary.BigEndian.PutUint32(data[0:4], ctrl.CallID)
	binary.BigEndian.PutUint32(data[4:8], ctrl.AudioBitRate)
	binary.BigEndian.PutUint32(data[8:12], ctrl.VideoBitRate)
	binary.BigEndian.PutUint64(data[12:20], uint64(ctrl.Timestamp.UnixNano()))

	return data, nil
}

// DeserializeBitrateControl converts bytes to a BitrateControlPacket.
func DeserializeBitrateControl(data []byte) (*BitrateControlPacket, error) {
	if len(data) < bitrateControlSize {
		return nil, fmt.Errorf("bitrate control: %w", ErrPacketTooShort)
	}

	return &BitrateControlPacket{
		CallID:       binary.BigEndian.Uint32(data[0:4]),
		AudioBitRate: binary.BigEndian.Uint32(data[4:8]),
		VideoBitRate: binary.BigEndian.Uint32(data[8:12]),
		Timestamp:    time.Unix(0, int64(binary.BigEndian.Uint64(data[12:20]))),
	}, nil
}

// DeserializeRemoteMediaState converts bytes to a RemoteMediaStatePacket.
func DeserializeRemoteMediaState(data []byte) (*RemoteMediaStatePacket, error) {
	if len(data) < mediaStateSize {
		return nil, fmt.Errorf("remote media state: %w", ErrPacketTooShort)
	}
	audio, video := AudioState(data[0]), VideoState(data[1])
	if audio > AudioStateActive || video > VideoStateActive {
		return nil, fmt.Errorf("%w: media state %d/%d", ErrInvalidControl, data[0], data[1])
	}
	return &RemoteMediaStatePacket{Audio: audio, Video: video}, nil
}
