package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/faiface/beep"
)

// pcmStreamer adapts a mono PCM16 buffer to beep's streamer interface,
// duplicating the channel so beep sees stereo.
type pcmStreamer struct {
	data []int16
	pos  int
}

func (s *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.pos >= len(s.data) {
			return i, i > 0
		}
		v := float64(s.data[s.pos]) / 32768.0
		samples[i][0] = v
		samples[i][1] = v
		s.pos++
	}
	return len(samples), true
}

func (s *pcmStreamer) Err() error { return nil }

// Resample converts mono PCM16 bytes between sample rates. Equal rates pass
// the input through untouched.
func Resample(pcm []byte, fromRate, toRate int) ([]byte, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("audio: invalid resample rates %d -> %d", fromRate, toRate)
	}
	if fromRate == toRate {
		return pcm, nil
	}
	if len(pcm)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: odd byte count %d", ErrDecode, len(pcm))
	}

	streamer := &pcmStreamer{data: BytesToSamples(pcm)}
	resampler := beep.Resample(3, beep.SampleRate(fromRate), beep.SampleRate(toRate), streamer)

	out := new(bytes.Buffer)
	frame := make([][2]float64, 1024)
	for {
		n, ok := resampler.Stream(frame)
		for i := 0; i < n; i++ {
			mono := (frame[i][0] + frame[i][1]) / 2.0
			if err := binary.Write(out, binary.LittleEndian, int16(mono*32767)); err != nil {
				return nil, err
			}
		}
		if !ok {
			break
		}
	}

	return out.Bytes(), nil
}
