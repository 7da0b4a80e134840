package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/binaryworks/medilink/internal/realtime"
)

type fakeGatewaySession struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	voice     string
	chunks    [][]byte
	clears    int
	events    chan realtime.Event
}

func newFakeGatewaySession() *fakeGatewaySession {
	return &fakeGatewaySession{events: make(chan realtime.Event, 8)}
}

func (f *fakeGatewaySession) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeGatewaySession) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeGatewaySession) StartSession(voice, systemMessage, kbID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voice = voice
}

func (f *fakeGatewaySession) AddUserAudio(chunk []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunk)
}

func (f *fakeGatewaySession) InputAudioBufferClear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
}

func (f *fakeGatewaySession) Events() <-chan realtime.Event { return f.events }

func newTestClient(t *testing.T, session *fakeGatewaySession) *Client {
	t.Helper()
	hub := NewHub(func() AssistantSession { return session }, zap.NewNop())
	return &Client{
		hub:      hub,
		send:     make(chan WriteData, 16),
		id:       "client-1",
		userID:   "user-1",
		logger:   zap.NewNop(),
		lastSeen: time.Now(),
	}
}

func nextMessage(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.send:
		var msg map[string]interface{}
		if err := json.Unmarshal(data.Payload, &msg); err != nil {
			t.Fatalf("unmarshal reply: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message queued for client")
		return nil
	}
}

func TestSessionStartConnectsAndConfigures(t *testing.T) {
	session := newFakeGatewaySession()
	client := newTestClient(t, session)

	client.processMessage([]byte(`{"type":"session_start","voice":"alloy"}`))

	session.mu.Lock()
	defer session.mu.Unlock()
	if !session.connected {
		t.Error("expected session connected")
	}
	if session.voice != "alloy" {
		t.Errorf("expected voice alloy, got %q", session.voice)
	}
}

func TestSessionStartTwiceRejected(t *testing.T) {
	session := newFakeGatewaySession()
	client := newTestClient(t, session)

	client.processMessage([]byte(`{"type":"session_start"}`))
	client.processMessage([]byte(`{"type":"session_start"}`))

	msg := nextMessage(t, client)
	if msg["error_code"] != "session_active" {
		t.Errorf("expected session_active error, got %v", msg)
	}
}

func TestAudioChunkForwardedDecoded(t *testing.T) {
	session := newFakeGatewaySession()
	client := newTestClient(t, session)
	client.processMessage([]byte(`{"type":"session_start"}`))

	payload := base64.StdEncoding.EncodeToString([]byte{1, 0, 2, 0})
	client.processMessage([]byte(`{"type":"audio_chunk","audio_data":"` + payload + `"}`))

	session.mu.Lock()
	defer session.mu.Unlock()
	if len(session.chunks) != 1 {
		t.Fatalf("expected 1 forwarded chunk, got %d", len(session.chunks))
	}
	if got := session.chunks[0]; got[0] != 1 || got[2] != 2 {
		t.Errorf("chunk was not decoded before forwarding: %v", got)
	}
}

func TestAudioChunkWithoutSessionRejected(t *testing.T) {
	session := newFakeGatewaySession()
	client := newTestClient(t, session)

	payload := base64.StdEncoding.EncodeToString([]byte{1, 0})
	client.processMessage([]byte(`{"type":"audio_chunk","audio_data":"` + payload + `"}`))

	msg := nextMessage(t, client)
	if msg["error_code"] != "no_session" {
		t.Errorf("expected no_session error, got %v", msg)
	}
}

func TestSessionStopClosesSession(t *testing.T) {
	session := newFakeGatewaySession()
	client := newTestClient(t, session)
	client.processMessage([]byte(`{"type":"session_start"}`))

	client.processMessage([]byte(`{"type":"session_stop"}`))

	session.mu.Lock()
	defer session.mu.Unlock()
	if !session.closed {
		t.Error("expected session closed")
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	client := newTestClient(t, newFakeGatewaySession())

	client.processMessage([]byte(`{"type":"ping"}`))

	msg := nextMessage(t, client)
	if msg["type"] != string(MessageTypePong) {
		t.Errorf("expected pong, got %v", msg)
	}
}

func TestRelayEventMapping(t *testing.T) {
	tests := []struct {
		name  string
		event realtime.Event
		check func(t *testing.T, msg map[string]interface{})
	}{
		{
			name:  "connected",
			event: realtime.Connected{},
			check: func(t *testing.T, msg map[string]interface{}) {
				if msg["type"] != string(MessageTypeConnected) {
					t.Errorf("got %v", msg)
				}
			},
		},
		{
			name:  "speech started",
			event: realtime.SpeechStarted{},
			check: func(t *testing.T, msg map[string]interface{}) {
				if msg["type"] != string(MessageTypeSpeechStarted) {
					t.Errorf("got %v", msg)
				}
			},
		},
		{
			name:  "audio delta keeps base64 payload",
			event: realtime.AudioDelta{Payload: "AQACAA=="},
			check: func(t *testing.T, msg map[string]interface{}) {
				if msg["type"] != string(MessageTypeAudioDelta) || msg["audio_data"] != "AQACAA==" {
					t.Errorf("got %v", msg)
				}
			},
		},
		{
			name:  "transcript delta",
			event: realtime.TranscriptDelta{Delta: "Hola"},
			check: func(t *testing.T, msg map[string]interface{}) {
				if msg["type"] != string(MessageTypeTranscriptDelta) || msg["text"] != "Hola" {
					t.Errorf("got %v", msg)
				}
			},
		},
		{
			name:  "input transcription",
			event: realtime.InputTranscriptionCompleted{Text: "Quiero ibuprofeno"},
			check: func(t *testing.T, msg map[string]interface{}) {
				if msg["type"] != string(MessageTypeInputTranscription) || msg["text"] != "Quiero ibuprofeno" {
					t.Errorf("got %v", msg)
				}
			},
		},
		{
			name:  "response done carries usage",
			event: realtime.ResponseDone{TotalTokens: 120},
			check: func(t *testing.T, msg map[string]interface{}) {
				if msg["type"] != string(MessageTypeResponseDone) || msg["total_tokens"] != float64(120) {
					t.Errorf("got %v", msg)
				}
			},
		},
		{
			name:  "tool response",
			event: realtime.ToolResponse{Name: "add_to_cart"},
			check: func(t *testing.T, msg map[string]interface{}) {
				if msg["type"] != string(MessageTypeToolResponse) || msg["tool_name"] != "add_to_cart" {
					t.Errorf("got %v", msg)
				}
			},
		},
		{
			name:  "server error",
			event: realtime.ServerError{Message: "boom"},
			check: func(t *testing.T, msg map[string]interface{}) {
				if msg["type"] != string(MessageTypeError) || msg["message"] != "boom" {
					t.Errorf("got %v", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, newFakeGatewaySession())
			client.relay(tt.event)
			tt.check(t, nextMessage(t, client))
		})
	}
}

func TestUnregisterDuringEventFlood(t *testing.T) {
	for i := 0; i < 25; i++ {
		session := newFakeGatewaySession()
		client := newTestClient(t, session)
		go client.hub.Run()

		client.hub.register <- client
		client.processMessage([]byte(`{"type":"session_start"}`))

		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case session.events <- realtime.TranscriptDelta{Delta: "hola"}:
				case <-stop:
					return
				}
			}
		}()

		// make sure the relay is actively queueing replies
		select {
		case <-client.send:
		case <-time.After(time.Second):
			t.Fatal("relay never produced a message")
		}

		client.hub.unregister <- client
		close(stop)
		wg.Wait()

		session.mu.Lock()
		closed := session.closed
		session.mu.Unlock()
		if !closed {
			t.Fatal("expected session closed after unregister")
		}
	}
}

func TestSessionRestartAfterDisconnect(t *testing.T) {
	first := newFakeGatewaySession()
	second := newFakeGatewaySession()
	client := newTestClient(t, first)

	client.processMessage([]byte(`{"type":"session_start"}`))
	first.events <- realtime.Disconnected{}

	deadline := time.After(time.Second)
	for {
		client.mutex.Lock()
		cleared := client.session == nil
		client.mutex.Unlock()
		if cleared {
			break
		}
		select {
		case <-deadline:
			t.Fatal("dead session was never cleared")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	first.mu.Lock()
	if !first.closed {
		t.Error("expected first session closed after disconnect")
	}
	first.mu.Unlock()

	client.hub.sessions = func() AssistantSession { return second }
	client.processMessage([]byte(`{"type":"session_start"}`))

	second.mu.Lock()
	defer second.mu.Unlock()
	if !second.connected {
		t.Error("expected a fresh session after disconnect")
	}
}

func TestRelayLoopForwardsUntilDisconnect(t *testing.T) {
	session := newFakeGatewaySession()
	client := newTestClient(t, session)
	client.processMessage([]byte(`{"type":"session_start"}`))

	session.events <- realtime.TranscriptDelta{Delta: "Hola"}
	session.events <- realtime.Disconnected{}

	deadline := time.After(time.Second)
	var got []string
	for len(got) < 2 {
		select {
		case data := <-client.send:
			var msg BaseMessage
			if err := json.Unmarshal(data.Payload, &msg); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got = append(got, string(msg.Type))
		case <-deadline:
			t.Fatalf("timed out, got %v", got)
		}
	}
	if got[0] != string(MessageTypeTranscriptDelta) || got[1] != string(MessageTypeDisconnected) {
		t.Errorf("unexpected relay order: %v", got)
	}
}
