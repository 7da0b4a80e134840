package websocket

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestValidateMessageSessionStart(t *testing.T) {
	validator := NewMessageValidator()

	raw := []byte(`{"type":"session_start","voice":"alloy","instructions":"Eres Frida"}`)
	parsed, err := validator.ValidateMessage(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	msg, ok := parsed.(*SessionStartMessage)
	if !ok {
		t.Fatalf("expected *SessionStartMessage, got %T", parsed)
	}
	if msg.Voice != "alloy" || msg.Instructions != "Eres Frida" {
		t.Errorf("unexpected fields: %+v", msg)
	}
}

func TestValidateMessageAudioChunk(t *testing.T) {
	validator := NewMessageValidator()
	payload := base64.StdEncoding.EncodeToString([]byte{1, 0, 2, 0})

	raw := []byte(`{"type":"audio_chunk","audio_data":"` + payload + `"}`)
	parsed, err := validator.ValidateMessage(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, ok := parsed.(*AudioChunkMessage); !ok {
		t.Fatalf("expected *AudioChunkMessage, got %T", parsed)
	}
}

func TestValidateMessageAudioChunkErrors(t *testing.T) {
	validator := NewMessageValidator()

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name:    "missing audio data",
			raw:     `{"type":"audio_chunk"}`,
			wantErr: "audio_data is required",
		},
		{
			name:    "not base64",
			raw:     `{"type":"audio_chunk","audio_data":"@@@"}`,
			wantErr: "must be base64",
		},
		{
			name:    "odd byte count",
			raw:     `{"type":"audio_chunk","audio_data":"` + base64.StdEncoding.EncodeToString([]byte{1, 2, 3}) + `"}`,
			wantErr: "complete 16-bit samples",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateMessage([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMessageUnsupportedType(t *testing.T) {
	validator := NewMessageValidator()

	if _, err := validator.ValidateMessage([]byte(`{"type":"nope"}`)); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestValidateMessageInvalidJSON(t *testing.T) {
	validator := NewMessageValidator()

	if _, err := validator.ValidateMessage([]byte(`{nope`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestValidateMessageControlTypes(t *testing.T) {
	validator := NewMessageValidator()

	for _, raw := range []string{
		`{"type":"session_stop"}`,
		`{"type":"buffer_clear"}`,
		`{"type":"ping"}`,
	} {
		parsed, err := validator.ValidateMessage([]byte(raw))
		if err != nil {
			t.Fatalf("validate %s: %v", raw, err)
		}
		if _, ok := parsed.(*BaseMessage); !ok {
			t.Fatalf("expected *BaseMessage for %s, got %T", raw, parsed)
		}
	}
}

func TestCreateErrorMessage(t *testing.T) {
	msg := CreateErrorMessage("invalid_message", "bad payload")
	if msg.Type != MessageTypeError {
		t.Errorf("expected error type, got %s", msg.Type)
	}
	if msg.Code != "invalid_message" || msg.Message != "bad payload" {
		t.Errorf("unexpected fields: %+v", msg)
	}
	if msg.Timestamp == "" {
		t.Error("expected timestamp to be set")
	}
}
