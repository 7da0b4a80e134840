package audio

import (
	"errors"

	"github.com/smallnest/ringbuffer"
)

// ErrQueueFull signals that a decoded chunk did not fit in the playback
// queue. The chunk is dropped by the caller; playback of what is already
// queued continues.
var ErrQueueFull = errors.New("audio: playback queue full")

// Queue is the FIFO of decoded PCM bytes awaiting output. Chunks play in
// push order. Reset discards everything still queued, which is how barge-in
// and explicit stop truncate pending assistant audio.
type Queue struct {
	rb *ringbuffer.RingBuffer
}

// NewQueue creates a queue able to hold the given number of PCM bytes.
func NewQueue(capacity int) *Queue {
	return &Queue{rb: ringbuffer.New(capacity)}
}

// NewDefaultQueue sizes the queue for one minute of mono PCM16 at the
// service sample rate, matching the longest response the endpoint streams.
func NewDefaultQueue() *Queue {
	return NewQueue(DefaultSampleRate * BytesPerSample * 60)
}

// Push enqueues one decoded chunk behind everything already queued.
func (q *Queue) Push(pcm []byte) error {
	if _, err := q.rb.TryWrite(pcm); err != nil {
		return ErrQueueFull
	}
	return nil
}

// Pop fills buf with up to len(buf) queued bytes and returns how many were
// written. It never blocks; a drained queue yields zero.
func (q *Queue) Pop(buf []byte) int {
	n, _ := q.rb.Read(buf)
	return n
}

// Buffered returns the number of queued-but-unplayed bytes.
func (q *Queue) Buffered() int {
	return q.rb.Length()
}

// Reset discards all queued bytes immediately.
func (q *Queue) Reset() {
	q.rb.Reset()
}
