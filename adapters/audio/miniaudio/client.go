// Package miniaudio binds the microphone and speaker to the assistant
// through the miniaudio library. One Client owns the shared audio context;
// the capture and playback devices hang off it.
package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext

	Capture  *Capture
	Playback *Playback
}

// NewClient acquires the audio context. sampleRate selects the device rate
// for both directions; zero means the service default.
func NewClient(sampleRate int, logger *zap.Logger) (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("miniaudio", zap.String("message", message)) },
	)
	if err != nil {
		return nil, fmt.Errorf("miniaudio context init: %w", err)
	}

	return &Client{
		audioContext: audioCtx,
		Capture:      &Capture{audioContext: audioCtx, sampleRate: sampleRate},
		Playback:     &Playback{audioContext: audioCtx},
	}, nil
}

func (c *Client) Close() {
	_ = c.Capture.Stop()
	c.Playback.uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}
