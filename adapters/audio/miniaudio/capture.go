package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/binaryworks/medilink/internal/audio"
)

// Capture reads mono PCM16 from the default microphone. The device is
// acquired on Start and fully released on Stop, so no microphone handle
// survives an inactive conversation.
type Capture struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	sampleRate   int
	onChunk      func(pcm []byte)

	mu sync.Mutex
}

func (c *Capture) Start(onChunk func(pcm []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		return nil
	}

	format := malgo.FormatS16
	channels := 1
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	rate := c.sampleRate
	if rate == 0 {
		rate = audio.DefaultSampleRate
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(rate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	c.onChunk = onChunk

	device, err := malgo.InitDevice(c.audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if n == 0 || len(pInput) < n {
				return
			}
			c.mu.Lock()
			cb := c.onChunk
			c.mu.Unlock()
			if cb != nil {
				// the callback buffer is reused by the device thread
				chunk := make([]byte, n)
				copy(chunk, pInput[:n])
				cb(chunk)
			}
		},
	})
	if err != nil {
		c.onChunk = nil
		return fmt.Errorf("capture device init: %w", audio.ErrPermissionDenied)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		c.onChunk = nil
		return fmt.Errorf("capture device start: %w", audio.ErrPermissionDenied)
	}

	c.device = device
	return nil
}

// Stop halts capture and releases the device. No chunk callback fires after
// Stop returns.
func (c *Capture) Stop() error {
	c.mu.Lock()
	device := c.device
	c.device = nil
	c.onChunk = nil
	c.mu.Unlock()

	if device == nil {
		return nil
	}

	if err := device.Stop(); err != nil {
		device.Uninit()
		return fmt.Errorf("capture device stop: %w", err)
	}
	device.Uninit()
	return nil
}
