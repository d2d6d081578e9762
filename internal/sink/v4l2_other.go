//go:build !linux

package sink

import "fmt"

// NewV4L2 is only available on Linux, where v4l2 loopback devices
// exist.
func NewV4L2(device string) (Sink, error) {
	return nil, fmt.Errorf("%w: v4l2 sink requires linux", ErrUnsupported)
}
