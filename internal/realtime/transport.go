package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

// transport is the minimal surface the client needs from a live connection.
// Split out so tests can substitute an in-memory fake.
type transport interface {
	WriteText(data []byte)
	Close(ctx context.Context) error
	Done() <-chan struct{}
}

type transportConfig struct {
	url         string
	token       string // optional bearer token, anonymous when empty
	dialTimeout time.Duration
	onText      func(data []byte)
	logger      *zap.Logger
}

type dialFunc func(ctx context.Context, cfg transportConfig) (transport, error)

type wsTransport struct {
	out      chan wsutil.Message
	done     chan struct{}
	doneOnce sync.Once
	logger   *zap.Logger
}

func (t *wsTransport) setDone() {
	t.doneOnce.Do(func() { close(t.done) })
}

func (t *wsTransport) Done() <-chan struct{} {
	return t.done
}

func (t *wsTransport) WriteText(data []byte) {
	select {
	case t.out <- wsutil.Message{OpCode: ws.OpText, Payload: data}:
	case <-t.done:
	}
}

func (t *wsTransport) Close(ctx context.Context) error {
	select {
	case t.out <- wsutil.Message{
		OpCode:  ws.OpClose,
		Payload: ws.NewCloseFrameBody(ws.StatusNormalClosure, "closing"),
	}:
	case <-t.done:
		return nil
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close failed: %w", ctx.Err())
	}
}

// dialTransport opens the WebSocket to the realtime endpoint and starts the
// read and write pumps. Inbound text frames are handed to cfg.onText from a
// single goroutine, preserving transport order.
func dialTransport(ctx context.Context, cfg transportConfig) (transport, error) {
	headers := http.Header{}
	if cfg.token != "" {
		headers.Set("Authorization", "Bearer "+cfg.token)
	}

	dialTimeout := cfg.dialTimeout
	if dialTimeout == 0 {
		dialTimeout = 10 * time.Second
	}
	hsCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	d := ws.Dialer{
		Timeout: dialTimeout,
		Header:  ws.HandshakeHeaderHTTP(headers),
	}
	conn, buf, _, err := d.Dial(hsCtx, cfg.url)
	if err != nil {
		return nil, err
	}
	if buf != nil {
		defer ws.PutReader(buf)
	}

	t := &wsTransport{
		out:    make(chan wsutil.Message, 256),
		done:   make(chan struct{}),
		logger: cfg.logger,
	}

	// read pump: handles control frames inline and dispatches text frames
	go func() {
		defer func() {
			t.setDone()
			conn.Close()
		}()
		for {
			messages, err := wsutil.ReadServerMessage(conn, nil)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					t.logger.Warn("realtime read failed", zap.Error(err))
				}
				return
			}
			for _, msg := range messages {
				if msg.OpCode.IsControl() {
					if err := wsutil.HandleServerControlMessage(conn, msg); err != nil {
						t.logger.Warn("control frame handling failed", zap.Error(err))
					}
					if msg.OpCode == ws.OpClose {
						return
					}
					continue
				}
				if msg.OpCode == ws.OpText && cfg.onText != nil {
					cfg.onText(msg.Payload)
				}
			}
		}
	}()

	// write pump
	go func() {
		for {
			select {
			case <-t.done:
				return
			case msg := <-t.out:
				if err := wsutil.WriteClientMessage(conn, msg.OpCode, msg.Payload); err != nil {
					t.logger.Warn("realtime write failed", zap.Error(err))
					t.setDone()
					return
				}
			}
		}
	}()

	return t, nil
}
