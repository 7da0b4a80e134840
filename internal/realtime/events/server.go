package events

// Inbound message kinds produced by the realtime endpoint.
const (
	TypeSpeechStarted                   = "input_audio_buffer.speech_started"
	TypeResponseAudioDelta              = "response.audio.delta"
	TypeResponseAudioTranscriptDelta    = "response.audio_transcript.delta"
	TypeInputAudioTranscriptionComplete = "conversation.item.input_audio_transcription.completed"
	TypeResponseDone                    = "response.done"
	TypeExtensionToolResponse           = "extension.middle_tier_tool_response"
	TypeError                           = "error"
)

// SpeechStartedEvent announces that the user started talking. Anything the
// assistant is still saying gets interrupted.
type SpeechStartedEvent struct {
	BaseEvent
}

// ResponseAudioDeltaEvent carries one base64 PCM16 fragment of the
// assistant's spoken response.
type ResponseAudioDeltaEvent struct {
	BaseEvent
	ItemID string `json:"item_id,omitempty"`
	Delta  string `json:"delta"`
}

// ResponseAudioTranscriptDeltaEvent carries one text fragment of the
// assistant's response transcript.
type ResponseAudioTranscriptDeltaEvent struct {
	BaseEvent
	ItemID string `json:"item_id,omitempty"`
	Delta  string `json:"delta"`
}

// InputAudioTranscriptionCompletedEvent carries the finished transcription of
// one user utterance.
type InputAudioTranscriptionCompletedEvent struct {
	BaseEvent
	Transcript string `json:"transcript"`
}

// Usage reports token consumption for a completed response.
type Usage struct {
	TotalTokens int `json:"total_tokens"`
}

// ResponsePayload is the response body inside a response.done message.
type ResponsePayload struct {
	Usage *Usage `json:"usage,omitempty"`
}

// ResponseDoneEvent closes one assistant turn.
type ResponseDoneEvent struct {
	BaseEvent
	Response ResponsePayload `json:"response"`
}

// ExtensionToolResponseEvent reports a tool the middle tier executed on the
// assistant's behalf.
type ExtensionToolResponseEvent struct {
	BaseEvent
	ToolName string `json:"tool_name"`
}

// ErrorDetail is the nested error object some endpoint versions send.
type ErrorDetail struct {
	Message string `json:"message"`
}

// ErrorEvent reports a server-side failure. Depending on the endpoint
// version the text arrives either at the top level or nested.
type ErrorEvent struct {
	BaseEvent
	Message string       `json:"message,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// Text returns the error message regardless of which shape was sent.
func (e *ErrorEvent) Text() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return e.Message
}
