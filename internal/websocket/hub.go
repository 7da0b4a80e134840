package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/binaryworks/medilink/internal/realtime"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// the gateway sits behind authenticated routes; origin policy
		// belongs to the reverse proxy
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// AssistantSession is the slice of the realtime client a gateway client
// drives on behalf of its browser peer.
type AssistantSession interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	StartSession(voice, systemMessage, kbID string)
	AddUserAudio(chunk []byte)
	InputAudioBufferClear()
	Events() <-chan realtime.Event
}

// SessionFactory builds one realtime session per connected browser client.
type SessionFactory func() AssistantSession

// Hub maintains the set of active gateway clients.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	sessions  SessionFactory
	validator *MessageValidator

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(sessions SessionFactory, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sessions:   sessions,
		validator:  NewMessageValidator(),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("clientID", client.id),
				zap.String("userID", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.teardown()
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))
		}
	}
}

// CloseIdle disconnects every client whose last activity is older than
// maxIdle. It returns how many clients were closed.
func (h *Hub) CloseIdle(maxIdle time.Duration) int {
	h.mu.RLock()
	var idle []*Client
	for _, client := range h.clients {
		if time.Since(client.lastActivity()) > maxIdle {
			idle = append(idle, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range idle {
		client.conn.Close()
	}
	return len(idle)
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between one browser connection and its realtime
// session.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	id     string
	userID string

	logger *zap.Logger

	session AssistantSession

	// relayDone tells the relay goroutine to stop; relayExited is closed by
	// the relay itself once it can no longer touch c.send.
	relayDone   chan struct{}
	relayExited chan struct{}

	lastSeen time.Time

	mutex sync.Mutex
}

// HandleWebSocket upgrades an authenticated request and attaches the client
// to the hub.
func HandleWebSocket(hub *Hub, c echo.Context, userID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan WriteData, 256),
		id:       uuid.NewString(),
		userID:   userID,
		logger:   logger,
		lastSeen: time.Now(),
	}

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the session.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
			continue
		}
		c.touch()
		c.processMessage(message)
	}
}

// writePump pumps messages from the session to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage dispatches one validated client message.
func (c *Client) processMessage(message []byte) {
	parsed, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Rejected client message", zap.Error(err))
		c.reply(CreateErrorMessage("invalid_message", err.Error()))
		return
	}

	switch msg := parsed.(type) {
	case *SessionStartMessage:
		c.handleSessionStart(msg)
	case *AudioChunkMessage:
		c.handleAudioChunk(msg)
	case *BaseMessage:
		switch msg.Type {
		case MessageTypeSessionStop:
			c.handleSessionStop()
		case MessageTypeBufferClear:
			c.withSession(func(s AssistantSession) { s.InputAudioBufferClear() })
		case MessageTypePing:
			c.reply(CreatePongMessage())
		}
	}
}

// handleSessionStart opens the realtime session and begins relaying its
// events to the browser.
func (c *Client) handleSessionStart(msg *SessionStartMessage) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.session != nil {
		c.reply(CreateErrorMessage("session_active", "session already started"))
		return
	}

	session := c.hub.sessions()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := session.Connect(ctx); err != nil {
		c.logger.Error("Realtime connect failed",
			zap.String("clientID", c.id),
			zap.Error(err))
		c.reply(CreateErrorMessage("connect_failed", "could not reach the assistant"))
		return
	}

	session.StartSession(msg.Voice, msg.Instructions, msg.KBID)

	c.session = session
	c.relayDone = make(chan struct{})
	c.relayExited = make(chan struct{})
	go c.relayEvents(session, c.relayDone, c.relayExited)

	c.logger.Info("Assistant session started",
		zap.String("clientID", c.id),
		zap.String("userID", c.userID))
}

func (c *Client) handleAudioChunk(msg *AudioChunkMessage) {
	// the validator already proved this decodes
	raw, err := base64.StdEncoding.DecodeString(msg.AudioData)
	if err != nil {
		return
	}
	c.withSession(func(s AssistantSession) { s.AddUserAudio(raw) })
}

func (c *Client) handleSessionStop() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.teardownLocked()
}

// relayEvents serializes session events for the browser until the session
// ends or the client goes away. exited is closed before any cleanup so a
// teardown waiting on it is never blocked by the relay taking c.mutex.
func (c *Client) relayEvents(session AssistantSession, done, exited chan struct{}) {
	ended := false
loop:
	for {
		select {
		case <-done:
			break loop
		case ev, ok := <-session.Events():
			if !ok {
				ended = true
				break loop
			}
			c.relay(ev)
			if _, disconnected := ev.(realtime.Disconnected); disconnected {
				ended = true
				break loop
			}
		}
	}
	close(exited)
	if ended {
		c.sessionEnded(done)
	}
}

// sessionEnded clears a session whose relay stopped on its own, so the next
// session_start on this socket is not rejected as already active.
func (c *Client) sessionEnded(done chan struct{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.session == nil || c.relayDone != done {
		return
	}
	c.closeSessionLocked()
}

func (c *Client) relay(ev realtime.Event) {
	now := time.Now().Format(time.RFC3339)
	switch e := ev.(type) {
	case realtime.Connected:
		c.reply(&BaseMessage{Type: MessageTypeConnected, Timestamp: now})
	case realtime.Disconnected:
		c.reply(&BaseMessage{Type: MessageTypeDisconnected, Timestamp: now})
	case realtime.SpeechStarted:
		c.reply(&BaseMessage{Type: MessageTypeSpeechStarted, Timestamp: now})
	case realtime.AudioDelta:
		c.reply(&AudioDeltaMessage{
			BaseMessage: BaseMessage{Type: MessageTypeAudioDelta, Timestamp: now},
			AudioData:   e.Payload,
		})
	case realtime.TranscriptDelta:
		c.reply(&TranscriptMessage{
			BaseMessage: BaseMessage{Type: MessageTypeTranscriptDelta, Timestamp: now},
			Text:        e.Delta,
		})
	case realtime.InputTranscriptionCompleted:
		c.reply(&TranscriptMessage{
			BaseMessage: BaseMessage{Type: MessageTypeInputTranscription, Timestamp: now},
			Text:        e.Text,
		})
	case realtime.ResponseDone:
		c.reply(&ResponseDoneMessage{
			BaseMessage: BaseMessage{Type: MessageTypeResponseDone, Timestamp: now},
			TotalTokens: e.TotalTokens,
		})
	case realtime.ToolResponse:
		c.reply(&ToolResponseMessage{
			BaseMessage: BaseMessage{Type: MessageTypeToolResponse, Timestamp: now},
			ToolName:    e.Name,
		})
	case realtime.ServerError:
		c.reply(CreateErrorMessage("realtime_error", e.Message))
	}
}

// reply queues one JSON message for the browser, dropping it when the
// client's send buffer is full.
func (c *Client) reply(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Dropping message for slow client", zap.String("clientID", c.id))
	}
}

func (c *Client) withSession(fn func(AssistantSession)) {
	c.mutex.Lock()
	session := c.session
	c.mutex.Unlock()
	if session == nil {
		c.reply(CreateErrorMessage("no_session", "start a session first"))
		return
	}
	fn(session)
}

func (c *Client) touch() {
	c.mutex.Lock()
	c.lastSeen = time.Now()
	c.mutex.Unlock()
}

func (c *Client) lastActivity() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lastSeen
}

// teardown releases the realtime session when the client disconnects.
func (c *Client) teardown() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.teardownLocked()
}

func (c *Client) teardownLocked() {
	if c.session == nil {
		return
	}
	close(c.relayDone)
	// wait until the relay can no longer queue messages; the hub closes
	// c.send right after teardown returns
	<-c.relayExited
	c.closeSessionLocked()
}

func (c *Client) closeSessionLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.session.Close(ctx); err != nil {
		c.logger.Warn("Failed to close realtime session",
			zap.String("clientID", c.id),
			zap.Error(err))
	}
	c.session = nil
	c.relayDone = nil
	c.relayExited = nil
}
