package events

// Outbound message kinds accepted by the realtime endpoint.
const (
	TypeSessionUpdate    = "session.update"
	TypeInputAudioAppend = "input_audio_buffer.append"
	TypeInputAudioClear  = "input_audio_buffer.clear"
)

// SessionConfig selects the assistant persona for one conversation.
type SessionConfig struct {
	Voice        string `json:"voice,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	KBID         string `json:"kb_id,omitempty"`
}

// SessionUpdateEvent configures the session right after the socket opens.
type SessionUpdateEvent struct {
	BaseEvent
	Session SessionConfig `json:"session"`
}

// InputAudioAppendEvent forwards one base64-encoded PCM16 capture chunk.
type InputAudioAppendEvent struct {
	BaseEvent
	Audio string `json:"audio"`
}

// InputAudioClearEvent tells the endpoint to discard any partially buffered
// input audio. Sent on every toggle transition so stale audio never bleeds
// into a new turn.
type InputAudioClearEvent struct {
	BaseEvent
}
