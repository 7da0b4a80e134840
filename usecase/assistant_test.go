package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/binaryworks/medilink/internal/audio"
	"github.com/binaryworks/medilink/internal/realtime"
)

type fakeCapture struct {
	mu          sync.Mutex
	running     bool
	stops       int
	onChunk     func([]byte)
	startErr    error
	blockStop   chan struct{}
	stopEntered chan struct{}
}

func (f *fakeCapture) Start(onChunk func(pcm []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	f.onChunk = onChunk
	return nil
}

func (f *fakeCapture) Stop() error {
	if f.stopEntered != nil {
		select {
		case f.stopEntered <- struct{}{}:
		default:
		}
	}
	if f.blockStop != nil {
		<-f.blockStop
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.onChunk = nil
	f.stops++
	return nil
}

func (f *fakeCapture) emit(pcm []byte) {
	f.mu.Lock()
	cb := f.onChunk
	f.mu.Unlock()
	if cb != nil {
		cb(pcm)
	}
}

func (f *fakeCapture) isRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

type fakePlayback struct {
	mu         sync.Mutex
	deviceOpen bool
	queued     [][]byte
}

func (f *fakePlayback) Init(sampleRate int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deviceOpen = true
	f.queued = nil
	return nil
}

// Play restarts rendering after a Stop, mirroring the device adapter.
func (f *fakePlayback) Play(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deviceOpen = true
	f.queued = append(f.queued, pcm)
	return nil
}

func (f *fakePlayback) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deviceOpen = false
	f.queued = nil
}

func (f *fakePlayback) queuedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queued)
}

func (f *fakePlayback) isOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deviceOpen
}

// fakeSession mimics the realtime client's drop policy: chunks forwarded
// while not open are discarded.
type fakeSession struct {
	mu        sync.Mutex
	connected bool
	chunks    [][]byte
	clears    int
	started   int
	events    chan realtime.Event
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan realtime.Event)}
}

func (f *fakeSession) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeSession) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeSession) StartSession(voice, systemMessage, kbID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *fakeSession) AddUserAudio(chunk []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return
	}
	f.chunks = append(f.chunks, chunk)
}

func (f *fakeSession) InputAudioBufferClear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
}

func (f *fakeSession) Events() <-chan realtime.Event { return f.events }

func (f *fakeSession) State() realtime.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		return realtime.StateOpen
	}
	return realtime.StateClosed
}

func (f *fakeSession) chunkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks)
}

func newTestAssistant(t *testing.T) (*AssistantService, *fakeCapture, *fakePlayback, *fakeSession) {
	t.Helper()
	capture := &fakeCapture{}
	playback := &fakePlayback{}
	session := newFakeSession()
	svc := NewAssistantService(capture, playback, session, AssistantConfig{}, zap.NewNop())
	return svc, capture, playback, session
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestToggleResourceInvariant(t *testing.T) {
	svc, capture, playback, _ := newTestAssistant(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.Toggle(ctx); err != nil {
			t.Fatalf("toggle on: %v", err)
		}
		if !capture.isRunning() || !playback.isOpen() {
			t.Fatal("expected capture and playback running while active")
		}
		if err := svc.Toggle(ctx); err != nil {
			t.Fatalf("toggle off: %v", err)
		}
		if capture.isRunning() {
			t.Fatal("expected microphone released after even toggle count")
		}
		if playback.isOpen() {
			t.Fatal("expected output device released after even toggle count")
		}
		if svc.Active() {
			t.Fatal("expected inactive after even toggle count")
		}
	}
}

func TestBargeInDiscardsQueuedAudio(t *testing.T) {
	svc, _, playback, session := newTestAssistant(t)
	if err := svc.Toggle(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	payload := audio.EncodeChunk([]byte{1, 0, 2, 0})
	for i := 0; i < 4; i++ {
		session.events <- realtime.AudioDelta{Payload: payload}
	}
	eventually(t, func() bool { return playback.queuedCount() == 4 }, "expected 4 queued chunks")
	eventually(t, func() bool { return svc.State() == AssistantTalking }, "expected talking state")

	session.events <- realtime.SpeechStarted{}

	eventually(t, func() bool { return playback.queuedCount() == 0 }, "expected queue discarded on barge-in")
	eventually(t, func() bool { return svc.State() == AssistantListening }, "expected listening state after barge-in")
}

func TestMalformedAudioDeltaIsDropped(t *testing.T) {
	svc, _, playback, session := newTestAssistant(t)
	if err := svc.Toggle(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	session.events <- realtime.AudioDelta{Payload: "@@not-base64@@"}
	session.events <- realtime.AudioDelta{Payload: audio.EncodeChunk([]byte{1, 0})}

	eventually(t, func() bool { return playback.queuedCount() == 1 }, "expected only the valid delta queued")
}

func TestAudioDeltaResampledToDeviceRate(t *testing.T) {
	capture := &fakeCapture{}
	playback := &fakePlayback{}
	session := newFakeSession()
	svc := NewAssistantService(capture, playback, session, AssistantConfig{SampleRate: 48000}, zap.NewNop())
	if err := svc.Toggle(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	pcm := make([]byte, 960) // 20ms at the 24kHz wire rate
	session.events <- realtime.AudioDelta{Payload: audio.EncodeChunk(pcm)}

	eventually(t, func() bool { return playback.queuedCount() == 1 }, "expected one queued chunk")
	playback.mu.Lock()
	got := len(playback.queued[0])
	playback.mu.Unlock()
	if got < 1920-64 || got > 1920+64 {
		t.Errorf("expected roughly doubled chunk for 48kHz device, got %d bytes", got)
	}
}

func TestTokenQuotaFailSafe(t *testing.T) {
	svc, capture, playback, session := newTestAssistant(t)
	if err := svc.Toggle(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !svc.Active() {
		t.Fatal("expected active session")
	}

	session.events <- realtime.ServerError{Message: "Límite de token alcanzado"}

	eventually(t, func() bool { return !svc.Active() }, "expected forced stop on token error")
	if capture.isRunning() {
		t.Error("expected capture stopped by fail-safe")
	}
	if playback.isOpen() {
		t.Error("expected playback stopped by fail-safe")
	}
	if svc.Warning() == "" {
		t.Error("expected user-visible warning")
	}
}

func TestNonTokenErrorDoesNotStopSession(t *testing.T) {
	svc, _, _, session := newTestAssistant(t)
	if err := svc.Toggle(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	session.events <- realtime.ServerError{Message: "transient upstream error"}

	time.Sleep(50 * time.Millisecond)
	if !svc.Active() {
		t.Error("expected session to survive a non-token error")
	}
}

func TestResponseDoneAccumulatesStats(t *testing.T) {
	svc, _, _, session := newTestAssistant(t)
	if err := svc.Toggle(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	session.events <- realtime.ResponseDone{TotalTokens: 120}
	session.events <- realtime.ResponseDone{TotalTokens: 120}

	eventually(t, func() bool { return svc.Stats().TokensUsed == 240 }, "expected 240 tokens after two responses")
	if got := svc.Stats().Messages; got != 2 {
		t.Errorf("expected 2 messages, got %d", got)
	}
}

func TestTranscriptFlowCoalescesAssistantDeltas(t *testing.T) {
	svc, _, _, session := newTestAssistant(t)
	if err := svc.Toggle(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	session.events <- realtime.InputTranscriptionCompleted{Text: "Quiero paracetamol"}
	session.events <- realtime.TranscriptDelta{Delta: "Hola"}
	session.events <- realtime.TranscriptDelta{Delta: " mundo"}

	eventually(t, func() bool {
		entries := svc.Transcript()
		return len(entries) == 2 && entries[1].Text == "Hola mundo"
	}, "expected one coalesced assistant entry after the user entry")
}

func TestToolResponseAddsStandaloneEntry(t *testing.T) {
	svc, _, _, session := newTestAssistant(t)
	if err := svc.Toggle(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	session.events <- realtime.TranscriptDelta{Delta: "Listo"}
	session.events <- realtime.ToolResponse{Name: "add_to_cart"}

	eventually(t, func() bool {
		entries := svc.Transcript()
		return len(entries) == 2 && entries[1].Text == "[Acción ejecutada: add_to_cart]"
	}, "expected a standalone tool entry")
}

func TestCaptureChunksForwardedToSession(t *testing.T) {
	svc, capture, _, session := newTestAssistant(t)
	if err := svc.Toggle(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	capture.emit([]byte{1, 0, 2, 0})
	capture.emit([]byte{3, 0, 4, 0})

	if got := session.chunkCount(); got != 2 {
		t.Errorf("expected 2 forwarded chunks, got %d", got)
	}
}

func TestChunkBeforeConnectIsNotQueued(t *testing.T) {
	_, _, _, session := newTestAssistant(t)

	// capture may fire before the session reaches Open; such chunks are
	// dropped by the session client, never queued
	session.AddUserAudio([]byte{1, 2})
	if got := session.chunkCount(); got != 0 {
		t.Errorf("expected chunk dropped while session closed, got %d queued", got)
	}
}

func TestReentrantToggleRejected(t *testing.T) {
	svc, capture, _, _ := newTestAssistant(t)
	ctx := context.Background()
	if err := svc.Toggle(ctx); err != nil {
		t.Fatalf("toggle on: %v", err)
	}

	capture.blockStop = make(chan struct{})
	capture.stopEntered = make(chan struct{}, 1)
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Toggle(ctx) }()
	<-capture.stopEntered

	if err := svc.Toggle(ctx); err != ErrToggleInFlight {
		t.Fatalf("expected ErrToggleInFlight while stop is in flight, got %v", err)
	}

	close(capture.blockStop)
	if err := <-errCh; err != nil {
		t.Fatalf("blocked toggle returned error: %v", err)
	}
}

func TestSessionConfigSentOnConnect(t *testing.T) {
	svc, _, _, session := newTestAssistant(t)
	if err := svc.Toggle(context.Background()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	session.events <- realtime.Connected{}

	eventually(t, func() bool {
		session.mu.Lock()
		defer session.mu.Unlock()
		return session.started == 1
	}, "expected session configuration after Connected event")
}
