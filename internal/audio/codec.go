package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeChunk encodes one captured PCM16 chunk for an
// input_audio_buffer.append message.
func EncodeChunk(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeDelta decodes the base64 payload of a response.audio.delta message
// into raw PCM16 bytes. A payload that is not valid base64, or whose length
// is not a whole number of 16-bit samples, yields ErrDecode.
func DecodeDelta(payload string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(pcm)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: odd byte count %d", ErrDecode, len(pcm))
	}
	return pcm, nil
}

// BytesToSamples converts little-endian PCM16 bytes to samples. The byte
// slice length must be even.
func BytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*BytesPerSample:]))
	}
	return samples
}

// SamplesToBytes converts PCM16 samples back to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*BytesPerSample:], uint16(s))
	}
	return b
}

// ChunkSize returns the byte size of a mono PCM16 chunk covering the given
// duration in milliseconds at the given rate.
func ChunkSize(sampleRate, durationMS int) int {
	return sampleRate * durationMS / 1000 * BytesPerSample
}
