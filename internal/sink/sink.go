// Package sink publishes processed frames to an output target: an
// MJPEG HTTP stream or a v4l2 loopback virtual camera that other
// applications read as a physical device.
package sink

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/stylecam/internal/frame"
)

var (
	// ErrNotOpen is returned by Publish before a successful Open.
	ErrNotOpen = errors.New("sink not open")

	// ErrUnsupported means the requested sink kind is not available on
	// this platform or build.
	ErrUnsupported = errors.New("sink not supported")
)

// Sink is the virtual camera output. Open negotiates the format once;
// Publish pushes one processed frame. A failed Publish is recoverable
// for a single frame; callers escalate after repeated failures.
type Sink interface {
	Open(width, height, fps int) error
	Publish(f *frame.Frame) error
	Close() error
	Name() string
}

// Sink kinds accepted by New.
const (
	KindMJPEG = "mjpeg"
	KindV4L2  = "v4l2"
)

// New constructs a sink of the given kind. device is only used by the
// v4l2 sink (the loopback device path).
func New(kind, device string) (Sink, error) {
	switch kind {
	case KindMJPEG, "":
		return NewMJPEG(), nil
	case KindV4L2:
		return NewV4L2(device)
	default:
		return nil, fmt.Errorf("%w: unknown sink kind %q", ErrUnsupported, kind)
	}
}
