// Package audio holds the device-independent pieces of the voice pipeline:
// the PCM16 wire codec, the playback queue, and sample-rate conversion.
package audio

import "errors"

// DefaultSampleRate is the fixed rate of the realtime voice service. Both
// capture and playback run at this rate unless the device forces another one,
// in which case chunks are resampled at the boundary.
const DefaultSampleRate = 24000

// BytesPerSample is the size of one linear PCM16 sample.
const BytesPerSample = 2

var (
	// ErrPermissionDenied signals that the OS refused access to the
	// microphone or output device.
	ErrPermissionDenied = errors.New("audio: device permission denied")

	// ErrDecode signals a malformed base64/PCM payload. The affected delta
	// is dropped, the session continues.
	ErrDecode = errors.New("audio: malformed audio payload")
)
