package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/binaryworks/medilink/domain/entities"
	"github.com/binaryworks/medilink/internal/audio"
	"github.com/binaryworks/medilink/internal/realtime"
)

// DefaultSystemMessage is the assistant persona used when the caller does not
// supply its own instructions.
const DefaultSystemMessage = `Eres un asistente virtual de una farmacia en línea. Ayudas a los clientes a:

1. Buscar y agregar productos al carrito
2. Programar citas médicas
3. Responder preguntas sobre productos y servicios

Sé amigable, profesional y confirma cada acción que realices.
Cuando agregues productos, pregunta si desean algo más.
Cuando programes citas, confirma fecha, hora y tipo de consulta.`

// ErrToggleInFlight is returned when Toggle is called while a previous toggle
// is still tearing down or starting up.
var ErrToggleInFlight = errors.New("assistant: toggle already in progress")

// AudioCapture acquires the microphone and emits PCM16 chunks while running.
// Stop is idempotent and guarantees no further chunk callbacks after it
// returns.
type AudioCapture interface {
	Start(onChunk func(pcm []byte)) error
	Stop() error
}

// AudioPlayback renders decoded PCM chunks in FIFO order. Stop halts output
// immediately and discards everything still queued.
type AudioPlayback interface {
	Init(sampleRate int) error
	Play(pcm []byte) error
	Stop()
}

// RealtimeSession is the connection to the remote voice endpoint.
type RealtimeSession interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	StartSession(voice, systemMessage, kbID string)
	AddUserAudio(chunk []byte)
	InputAudioBufferClear()
	Events() <-chan realtime.Event
	State() realtime.State
}

// AssistantState is the UI-facing activity indicator.
type AssistantState string

const (
	AssistantListening AssistantState = "listening"
	AssistantTalking   AssistantState = "talking"
)

// AssistantConfig selects the persona for new sessions.
type AssistantConfig struct {
	Voice         string
	SystemMessage string
	KBID          string
	SampleRate    int
}

// AssistantService binds capture, playback and the realtime session into the
// toggle-driven conversation lifecycle. One instance owns one microphone
// handle and one output device at a time.
type AssistantService struct {
	capture  AudioCapture
	playback AudioPlayback
	session  RealtimeSession
	cfg      AssistantConfig
	logger   *zap.Logger

	mu         sync.Mutex
	active     bool
	busy       bool
	state      AssistantState
	transcript entities.Transcript
	stats      entities.SessionStats
	startedAt  time.Time
	warning    string

	loopDone chan struct{}
}

// NewAssistantService wires the components and starts consuming session
// events. The service runs until Shutdown.
func NewAssistantService(
	capture AudioCapture,
	playback AudioPlayback,
	session RealtimeSession,
	cfg AssistantConfig,
	logger *zap.Logger,
) *AssistantService {
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.SystemMessage == "" {
		cfg.SystemMessage = DefaultSystemMessage
	}
	if cfg.KBID == "" {
		cfg.KBID = "default"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}

	s := &AssistantService{
		capture:  capture,
		playback: playback,
		session:  session,
		cfg:      cfg,
		logger:   logger,
		state:    AssistantListening,
		loopDone: make(chan struct{}),
	}
	go s.eventLoop()
	return s
}

// Toggle starts the conversation when inactive and stops it when active. A
// toggle that is still in flight rejects re-entrant calls, so a stop sequence
// always completes before the next start begins.
func (s *AssistantService) Toggle(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrToggleInFlight
	}
	s.busy = true
	wasActive := s.active
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	if wasActive {
		s.stop()
		return nil
	}
	return s.start(ctx)
}

func (s *AssistantService) start(ctx context.Context) error {
	// discard anything the endpoint still buffered from a previous turn
	s.session.InputAudioBufferClear()

	if err := s.playback.Init(s.cfg.SampleRate); err != nil {
		return fmt.Errorf("assistant: playback init: %w", err)
	}

	if err := s.session.Connect(ctx); err != nil {
		s.playback.Stop()
		return fmt.Errorf("assistant: %w", err)
	}

	s.mu.Lock()
	s.stats.Reset()
	s.startedAt = time.Now()
	s.warning = ""
	s.mu.Unlock()

	if err := s.capture.Start(s.onChunk); err != nil {
		s.playback.Stop()
		if errors.Is(err, audio.ErrPermissionDenied) {
			return fmt.Errorf("assistant: microphone access refused: %w", err)
		}
		return fmt.Errorf("assistant: capture start: %w", err)
	}

	s.mu.Lock()
	s.active = true
	s.state = AssistantListening
	s.mu.Unlock()

	s.logger.Info("conversation started",
		zap.String("voice", s.cfg.Voice),
		zap.String("kb_id", s.cfg.KBID))
	return nil
}

// stop awaits capture teardown before anything else so no chunk can be
// emitted into a session that is already winding down.
func (s *AssistantService) stop() {
	if err := s.capture.Stop(); err != nil {
		s.logger.Warn("capture stop failed", zap.Error(err))
	}
	s.playback.Stop()
	s.session.InputAudioBufferClear()

	s.mu.Lock()
	s.active = false
	s.state = AssistantListening
	if !s.startedAt.IsZero() {
		s.stats.DurationSeconds = int(time.Since(s.startedAt).Seconds())
	}
	s.mu.Unlock()

	s.logger.Info("conversation stopped")
}

func (s *AssistantService) onChunk(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	if s.cfg.SampleRate != audio.DefaultSampleRate {
		resampled, err := audio.Resample(pcm, s.cfg.SampleRate, audio.DefaultSampleRate)
		if err != nil {
			s.logger.Warn("dropping capture chunk", zap.Error(err))
			return
		}
		pcm = resampled
	}
	s.session.AddUserAudio(pcm)
}

// eventLoop is the single consumer of the session event stream. Events are
// handled one at a time in transport order.
func (s *AssistantService) eventLoop() {
	defer close(s.loopDone)
	for ev := range s.session.Events() {
		s.handleEvent(ev)
	}
}

func (s *AssistantService) handleEvent(ev realtime.Event) {
	switch e := ev.(type) {
	case realtime.Connected:
		s.session.StartSession(s.cfg.Voice, s.cfg.SystemMessage, s.cfg.KBID)

	case realtime.Disconnected:
		// no automatic reconnect; the next toggle starts from scratch
		s.logger.Warn("realtime connection closed", zap.Error(e.Err))

	case realtime.SpeechStarted:
		// barge-in: the user talks over the assistant, everything queued
		// for playback is discarded immediately
		s.playback.Stop()
		s.setState(AssistantListening)

	case realtime.AudioDelta:
		pcm, err := audio.DecodeDelta(e.Payload)
		if err != nil {
			s.logger.Warn("dropping malformed audio delta", zap.Error(err))
			return
		}
		// the wire is always 24 kHz; convert when the device runs at
		// another rate
		if s.cfg.SampleRate != audio.DefaultSampleRate {
			pcm, err = audio.Resample(pcm, audio.DefaultSampleRate, s.cfg.SampleRate)
			if err != nil {
				s.logger.Warn("dropping malformed audio delta", zap.Error(err))
				return
			}
		}
		if err := s.playback.Play(pcm); err != nil {
			s.logger.Warn("playback rejected chunk", zap.Error(err))
			return
		}
		s.setState(AssistantTalking)

	case realtime.TranscriptDelta:
		s.mu.Lock()
		s.transcript.AppendAssistantDelta(e.Delta)
		s.mu.Unlock()

	case realtime.InputTranscriptionCompleted:
		s.mu.Lock()
		s.transcript.AppendUser(e.Text)
		s.mu.Unlock()

	case realtime.ResponseDone:
		s.mu.Lock()
		s.state = AssistantListening
		s.stats.CountMessage()
		s.stats.AddUsage(e.TotalTokens)
		s.mu.Unlock()

	case realtime.ToolResponse:
		s.mu.Lock()
		s.transcript.AppendAssistant(fmt.Sprintf("[Acción ejecutada: %s]", e.Name))
		s.mu.Unlock()

	case realtime.ServerError:
		s.handleServerError(e)
	}
}

func (s *AssistantService) setState(state AssistantState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// handleServerError applies the token-quota fail-safe: a token/quota error
// force-stops the whole session instead of retrying, protecting against
// runaway cost.
func (s *AssistantService) handleServerError(e realtime.ServerError) {
	s.logger.Error("realtime endpoint error", zap.String("message", e.Message))

	if !strings.Contains(strings.ToLower(e.Message), "token") {
		return
	}

	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		return
	}

	if err := s.capture.Stop(); err != nil {
		s.logger.Warn("capture stop failed", zap.Error(err))
	}
	s.playback.Stop()

	s.mu.Lock()
	s.active = false
	s.state = AssistantListening
	s.warning = "Límite de tokens alcanzado. Reinicia la conversación."
	if !s.startedAt.IsZero() {
		s.stats.DurationSeconds = int(time.Since(s.startedAt).Seconds())
	}
	s.mu.Unlock()
}

// Active reports whether a conversation is running.
func (s *AssistantService) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// State returns the listening/talking indicator.
func (s *AssistantService) State() AssistantState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns the conversation entries in order.
func (s *AssistantService) Transcript() []entities.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Entries()
}

// Stats returns a snapshot of the session statistics. While a conversation
// is active the duration counts live.
func (s *AssistantService) Stats() entities.SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	if s.active && !s.startedAt.IsZero() {
		stats.DurationSeconds = int(time.Since(s.startedAt).Seconds())
	}
	return stats
}

// Warning returns the pending user-visible warning, if any.
func (s *AssistantService) Warning() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warning
}

// ResetConversation clears the transcript and statistics.
func (s *AssistantService) ResetConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript.Reset()
	s.stats.Reset()
	s.warning = ""
}

// Shutdown stops any running conversation and closes the session.
func (s *AssistantService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active {
		s.stop()
	}
	return s.session.Close(ctx)
}
