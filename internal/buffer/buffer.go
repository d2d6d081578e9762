// Package buffer provides the bounded frame queue between capture and
// processing. The queue favors freshness over completeness: when the
// producer outruns the consumer, the oldest queued frame is evicted so
// latency never grows without bound.
package buffer

import (
	"sync"

	"github.com/bryanchriswhite/stylecam/internal/frame"
	"github.com/bryanchriswhite/stylecam/internal/logger"
)

// DefaultCapacity is used when a caller passes a non-positive capacity.
const DefaultCapacity = 4

// Buffer is a small bounded FIFO of frames with a drop-oldest overflow
// policy. Safe for one producer and one consumer on different
// goroutines.
type Buffer struct {
	mu      sync.Mutex
	frames  []*frame.Frame
	cap     int
	dropped uint64
}

// New creates a buffer holding at most capacity frames.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		frames: make([]*frame.Frame, 0, capacity),
		cap:    capacity,
	}
}

// Push enqueues a frame. If the buffer is full the oldest frame is
// evicted first and the dropped counter is incremented.
func (b *Buffer) Push(f *frame.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) >= b.cap {
		evicted := b.frames[0]
		copy(b.frames, b.frames[1:])
		b.frames = b.frames[:len(b.frames)-1]
		b.dropped++
		logger.WithComponent("buffer").Debug().
			Uint64("seq", evicted.Seq).
			Uint64("dropped_total", b.dropped).
			Msg("Evicted oldest frame")
	}
	b.frames = append(b.frames, f)
}

// Pop dequeues the oldest frame, or returns (nil, false) when empty.
func (b *Buffer) Pop() (*frame.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) == 0 {
		return nil, false
	}
	f := b.frames[0]
	copy(b.frames, b.frames[1:])
	b.frames[len(b.frames)-1] = nil
	b.frames = b.frames[:len(b.frames)-1]
	return f, true
}

// Len returns the number of queued frames.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Capacity returns the fixed capacity.
func (b *Buffer) Capacity() int {
	return b.cap
}

// Dropped returns the total number of frames evicted so far.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
