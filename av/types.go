package av

import "fmt"

// Message type bytes used on the wire. Values 0x7F, 0xFE and 0xFF are
// reserved by the framing.
const (
	TypeCallRequest        uint8 = 1
	TypeCallResponse       uint8 = 2
	TypeCallControl        uint8 = 3
	TypeBitrateControl     uint8 = 4
	TypeRemoteMediaState   uint8 = 5
	TypeRemoteBatteryLevel uint8 = 6
	TypeRemoteNetworkType  uint8 = 7
	TypeUnstructuredData   uint8 = 8
	TypeAudioData          uint8 = 9
)

// CallControl represents call control actions.
type CallControl uint8

const (
	// CallControlResume resumes a paused call
	CallControlResume CallControl = iota
	// CallControlPause pauses an active call
	CallControlPause
	// CallControlCancel cancels/ends the call
	CallControlCancel
	// CallControlMuteAudio mutes outgoing audio
	CallControlMuteAudio
	// CallControlUnmuteAudio unmutes outgoing audio
	CallControlUnmuteAudio
	// CallControlHideVideo hides outgoing video
	CallControlHideVideo
	// CallControlShowVideo shows outgoing video
	CallControlShowVideo
)

var callControlNames = map[CallControl]string{
	CallControlResume:      "resume",
	CallControlPause:       "pause",
	CallControlCancel:      "cancel",
	CallControlMuteAudio:   "mute_audio",
	CallControlUnmuteAudio: "unmute_audio",
	CallControlHideVideo:   "hide_video",
	CallControlShowVideo:   "show_video",
}

func (c CallControl) String() string {
	if name, ok := callControlNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// Valid reports whether c is a known control action.
func (c CallControl) Valid() bool {
	_, ok := callControlNames[c]
	return ok
}

// AudioState is the remote side's outgoing audio state.
type AudioState uint8

const (
	AudioStateMuted AudioState = iota
	AudioStateActive
)

// VideoState is the remote side's outgoing video state.
type VideoState uint8

const (
	VideoStateInactive VideoState = iota
	VideoStateSuspended
	VideoStateActive
)
