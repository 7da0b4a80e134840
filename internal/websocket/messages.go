package websocket

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Messages the browser client sends to the gateway
const (
	MessageTypeSessionStart MessageType = "session_start"
	MessageTypeSessionStop  MessageType = "session_stop"
	MessageTypeAudioChunk   MessageType = "audio_chunk"
	MessageTypeBufferClear  MessageType = "buffer_clear"
	MessageTypePing         MessageType = "ping"
)

// Messages the gateway sends to the browser client
const (
	MessageTypeConnected          MessageType = "connected"
	MessageTypeDisconnected       MessageType = "disconnected"
	MessageTypeSpeechStarted      MessageType = "speech_started"
	MessageTypeAudioDelta         MessageType = "audio_delta"
	MessageTypeTranscriptDelta    MessageType = "transcript_delta"
	MessageTypeInputTranscription MessageType = "input_transcription"
	MessageTypeResponseDone       MessageType = "response_done"
	MessageTypeToolResponse       MessageType = "tool_response"
	MessageTypeError              MessageType = "error"
	MessageTypePong               MessageType = "pong"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// SessionStartMessage opens a realtime conversation for this client
type SessionStartMessage struct {
	BaseMessage
	Voice        string `json:"voice,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	KBID         string `json:"kb_id,omitempty"`
}

// AudioChunkMessage carries one base64 PCM16 microphone chunk
type AudioChunkMessage struct {
	BaseMessage
	AudioData string `json:"audio_data"`
}

// AudioDeltaMessage carries one base64 PCM16 assistant audio chunk
type AudioDeltaMessage struct {
	BaseMessage
	AudioData string `json:"audio_data"`
}

// TranscriptMessage carries transcript text, assistant deltas and completed
// user utterances alike
type TranscriptMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// ResponseDoneMessage reports usage for one completed assistant response
type ResponseDoneMessage struct {
	BaseMessage
	TotalTokens int `json:"total_tokens"`
}

// ToolResponseMessage reports a middle tier tool execution
type ToolResponseMessage struct {
	BaseMessage
	ToolName string `json:"tool_name"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// MessageValidator provides validation for incoming client messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses and validates an incoming client message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeSessionStart:
		var msg SessionStartMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid session start message: %w", err)
		}
		return &msg, nil

	case MessageTypeSessionStop:
		var msg BaseMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid session stop message: %w", err)
		}
		return &msg, nil

	case MessageTypeAudioChunk:
		var msg AudioChunkMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid audio chunk message: %w", err)
		}
		if err := v.validateAudioChunk(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypeBufferClear:
		var msg BaseMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid buffer clear message: %w", err)
		}
		return &msg, nil

	case MessageTypePing:
		var msg BaseMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// validateAudioChunk validates audio chunk message fields
func (v *MessageValidator) validateAudioChunk(msg *AudioChunkMessage) error {
	if msg.AudioData == "" {
		return fmt.Errorf("audio_data is required")
	}
	raw, err := base64.StdEncoding.DecodeString(msg.AudioData)
	if err != nil {
		return fmt.Errorf("audio_data must be base64: %w", err)
	}
	if len(raw)%2 != 0 {
		return fmt.Errorf("audio_data must hold complete 16-bit samples")
	}
	return nil
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeError,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Code:    code,
		Message: message,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage() *BaseMessage {
	return &BaseMessage{
		Type:      MessageTypePong,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
