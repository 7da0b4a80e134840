// Package realtime implements the client side of the remote voice-assistant
// protocol: one bidirectional connection, outbound audio append/clear
// messages, and inbound messages dispatched as typed events on an ordered
// stream.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/binaryworks/medilink/internal/audio"
	"github.com/binaryworks/medilink/internal/realtime/events"
)

// State is the connection state of the session client.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

type clientConfig struct {
	url         string
	token       string
	dialTimeout time.Duration
	logger      *zap.Logger
	dial        dialFunc
}

// Option configures a Client.
type Option func(*clientConfig)

// WithURL sets the realtime endpoint URL.
func WithURL(url string) Option {
	return func(c *clientConfig) { c.url = url }
}

// WithToken sets the optional bearer token. Without it the connection attempt
// is anonymous.
func WithToken(token string) Option {
	return func(c *clientConfig) { c.token = token }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// WithDialTimeout bounds the connection handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.dialTimeout = d }
}

// withDialer replaces the transport dialer. Test seam.
func withDialer(d dialFunc) Option {
	return func(c *clientConfig) { c.dial = d }
}

// Client owns a single connection to the realtime endpoint. At most one
// session is open at a time; a second Connect while open reuses the live
// connection.
type Client struct {
	cfg    clientConfig
	logger *zap.Logger

	mu    sync.Mutex
	state State
	tr    transport

	events chan Event
}

// NewClient creates a session client. It does not connect.
func NewClient(opts ...Option) *Client {
	cfg := clientConfig{
		dialTimeout: 10 * time.Second,
		logger:      zap.NewNop(),
		dial:        dialTransport,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{
		cfg:    cfg,
		logger: cfg.logger,
		events: make(chan Event, 256),
	}
}

// Events returns the ordered inbound event stream. One consumer is expected;
// events are dropped with a warning if nobody keeps up.
func (c *Client) Events() <-chan Event {
	return c.events
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect establishes the connection and transitions Closed → Connecting →
// Open. Connecting while already open is a no-op, so toggling reuses the
// live session. There is no automatic reconnect: when the connection drops,
// the next Connect starts a session from scratch.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	tr, err := c.cfg.dial(ctx, transportConfig{
		url:         c.cfg.url,
		token:       c.cfg.token,
		dialTimeout: c.cfg.dialTimeout,
		onText:      c.handleMessage,
		logger:      c.logger,
	})
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		return fmt.Errorf("realtime connect: %w", err)
	}

	c.mu.Lock()
	c.tr = tr
	c.state = StateOpen
	c.mu.Unlock()

	c.emit(Connected{})

	go func() {
		<-tr.Done()
		c.mu.Lock()
		if c.tr == tr {
			c.tr = nil
			c.state = StateClosed
		}
		c.mu.Unlock()
		c.emit(Disconnected{})
	}()

	return nil
}

// Close tears down the connection if one is open.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	tr := c.tr
	c.tr = nil
	c.state = StateClosed
	c.mu.Unlock()

	if tr == nil {
		return nil
	}
	return tr.Close(ctx)
}

// StartSession sends the session configuration. Valid only while Open;
// called in any other state it logs and returns without sending.
func (c *Client) StartSession(voice, systemMessage, kbID string) {
	if !c.isOpen() {
		c.logger.Warn("startSession ignored, session not open",
			zap.String("state", c.State().String()))
		return
	}
	c.send(events.SessionUpdateEvent{
		BaseEvent: events.NewBaseEvent(events.TypeSessionUpdate),
		Session: events.SessionConfig{
			Voice:        voice,
			Instructions: systemMessage,
			KBID:         kbID,
		},
	})
}

// AddUserAudio encodes and forwards one capture chunk. Chunks arriving while
// the session is not Open are dropped: streaming only begins once capture
// starts after connection setup, so anything earlier is stale.
func (c *Client) AddUserAudio(chunk []byte) {
	if !c.isOpen() {
		c.logger.Debug("dropping capture chunk, session not open",
			zap.Int("bytes", len(chunk)))
		return
	}
	c.send(events.InputAudioAppendEvent{
		BaseEvent: events.NewBaseEvent(events.TypeInputAudioAppend),
		Audio:     audio.EncodeChunk(chunk),
	})
}

// InputAudioBufferClear tells the endpoint to discard partially buffered
// input audio. Sent on every toggle transition.
func (c *Client) InputAudioBufferClear() {
	if !c.isOpen() {
		c.logger.Debug("buffer clear ignored, session not open")
		return
	}
	c.send(events.InputAudioClearEvent{
		BaseEvent: events.NewBaseEvent(events.TypeInputAudioClear),
	})
}

func (c *Client) isOpen() bool {
	return c.State() == StateOpen
}

func (c *Client) send(evt any) {
	data, err := json.Marshal(evt)
	if err != nil {
		c.logger.Error("failed to marshal outbound event", zap.Error(err))
		return
	}
	c.mu.Lock()
	tr := c.tr
	c.mu.Unlock()
	if tr == nil {
		return
	}
	tr.WriteText(data)
}

// handleMessage parses one inbound protocol message and emits exactly one
// typed event for the recognized kinds. Unrecognized kinds are ignored for
// forward compatibility; malformed payloads are logged and dropped.
func (c *Client) handleMessage(data []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logger.Warn("unparseable realtime message", zap.Error(err))
		return
	}

	switch envelope.Type {
	case events.TypeSpeechStarted:
		c.emit(SpeechStarted{})

	case events.TypeResponseAudioDelta:
		evt, err := events.Parse[events.ResponseAudioDeltaEvent](data)
		if err != nil {
			c.logger.Warn("malformed audio delta", zap.Error(err))
			return
		}
		c.emit(AudioDelta{Payload: evt.Delta})

	case events.TypeResponseAudioTranscriptDelta:
		evt, err := events.Parse[events.ResponseAudioTranscriptDeltaEvent](data)
		if err != nil {
			c.logger.Warn("malformed transcript delta", zap.Error(err))
			return
		}
		c.emit(TranscriptDelta{Delta: evt.Delta})

	case events.TypeInputAudioTranscriptionComplete:
		evt, err := events.Parse[events.InputAudioTranscriptionCompletedEvent](data)
		if err != nil {
			c.logger.Warn("malformed input transcription", zap.Error(err))
			return
		}
		c.emit(InputTranscriptionCompleted{Text: evt.Transcript})

	case events.TypeResponseDone:
		evt, err := events.Parse[events.ResponseDoneEvent](data)
		if err != nil {
			c.logger.Warn("malformed response done", zap.Error(err))
			return
		}
		done := ResponseDone{}
		if evt.Response.Usage != nil {
			done.TotalTokens = evt.Response.Usage.TotalTokens
		}
		c.emit(done)

	case events.TypeExtensionToolResponse:
		evt, err := events.Parse[events.ExtensionToolResponseEvent](data)
		if err != nil {
			c.logger.Warn("malformed tool response", zap.Error(err))
			return
		}
		c.emit(ToolResponse{Name: evt.ToolName})

	case events.TypeError:
		evt, err := events.Parse[events.ErrorEvent](data)
		if err != nil {
			c.logger.Warn("malformed error event", zap.Error(err))
			return
		}
		c.emit(ServerError{Message: evt.Text()})
	}
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event dropped, consumer not keeping up")
	}
}
