package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/binaryworks/medilink/internal/audio"
)

// Playback renders queued PCM16 chunks in FIFO order through the default
// output device. Stop discards the queue and releases the device; Play
// re-acquires it on demand, which is what lets the assistant resume talking
// after a barge-in.
type Playback struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	queue        *audio.Queue
	sampleRate   int

	mu sync.Mutex
}

// Init prepares the output device at the given sample rate. Calling it again
// tears down the previous device first.
func (p *Playback) Init(sampleRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.uninitLocked()
	p.sampleRate = sampleRate
	p.queue = audio.NewDefaultQueue()
	return p.initLocked()
}

func (p *Playback) initLocked() error {
	format := malgo.FormatS16
	channels := 1
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(p.sampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(p.sampleRate / 10) // ~100ms of audio
	config.Periods = 4

	queue := p.queue
	device, err := malgo.InitDevice(p.audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			need := int(frameCount) * bytesPerFrame
			if need > len(pOutput) {
				need = len(pOutput)
			}
			n := queue.Pop(pOutput[:need])
			// pad with silence when the queue runs dry
			for i := n; i < need; i++ {
				pOutput[i] = 0
			}
		},
	})
	if err != nil {
		return fmt.Errorf("playback device init: %w", audio.ErrPermissionDenied)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("playback device start: %w", audio.ErrPermissionDenied)
	}

	p.device = device
	return nil
}

// Play enqueues one decoded chunk. A chunk that does not fit is dropped;
// whatever is already queued keeps playing.
func (p *Playback) Play(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		if p.sampleRate == 0 {
			return fmt.Errorf("playback not initialized")
		}
		if p.queue == nil {
			p.queue = audio.NewDefaultQueue()
		}
		if err := p.initLocked(); err != nil {
			return err
		}
	}

	return p.queue.Push(pcm)
}

// Stop halts output immediately, discards everything still queued and
// releases the device.
func (p *Playback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uninitLocked()
	if p.queue != nil {
		p.queue.Reset()
	}
}

// Buffered reports how many queued bytes have not been rendered yet.
func (p *Playback) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queue == nil {
		return 0
	}
	return p.queue.Buffered()
}

func (p *Playback) uninit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uninitLocked()
}

func (p *Playback) uninitLocked() {
	if p.device == nil {
		return
	}
	_ = p.device.Stop()
	p.device.Uninit()
	p.device = nil
}
