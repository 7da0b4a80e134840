package realtime

// Event is the discriminated union delivered on Client.Events(). Exactly one
// variant is produced per inbound protocol message, in transport order.
type Event interface {
	isEvent()
}

// Connected fires when the handshake completes and the session reaches Open.
type Connected struct{}

// Disconnected fires when the connection ends, remotely or locally.
type Disconnected struct {
	Err error
}

// SpeechStarted fires when the endpoint detects the user talking. Consumers
// interrupt any assistant audio still playing.
type SpeechStarted struct{}

// AudioDelta carries one base64 PCM16 fragment of assistant speech.
type AudioDelta struct {
	Payload string
}

// TranscriptDelta carries one text fragment of the assistant transcript.
type TranscriptDelta struct {
	Delta string
}

// InputTranscriptionCompleted carries the final transcription of one user
// utterance.
type InputTranscriptionCompleted struct {
	Text string
}

// ResponseDone closes one assistant turn. TotalTokens is zero when the
// endpoint sent no usage info.
type ResponseDone struct {
	TotalTokens int
}

// ToolResponse reports a tool executed by the middle tier.
type ToolResponse struct {
	Name string
}

// ServerError carries an error message from the endpoint.
type ServerError struct {
	Message string
}

func (Connected) isEvent()                   {}
func (Disconnected) isEvent()                {}
func (SpeechStarted) isEvent()               {}
func (AudioDelta) isEvent()                  {}
func (TranscriptDelta) isEvent()             {}
func (InputTranscriptionCompleted) isEvent() {}
func (ResponseDone) isEvent()                {}
func (ToolResponse) isEvent()                {}
func (ServerError) isEvent()                 {}
