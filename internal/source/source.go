// Package source provides frame producers for the pipeline: a real
// camera capture device and a synthetic generator used when no device
// is available.
package source

import (
	"errors"

	"github.com/bryanchriswhite/stylecam/internal/frame"
)

var (
	// ErrNoDevice means no backend/index combination delivered frames.
	// Callers fall back to the synthetic source instead of aborting.
	ErrNoDevice = errors.New("no capture device available")

	// ErrReadFailed marks a transient single-read failure; the caller
	// should retry on the next cycle.
	ErrReadFailed = errors.New("frame read failed")

	// ErrNotOpen is returned when Read is called before a successful Open.
	ErrNotOpen = errors.New("source not open")
)

// Descriptor records what was negotiated when a source opened. It is
// immutable for the lifetime of a pipeline run; resolution changes
// require a stop/start cycle.
type Descriptor struct {
	Device    string `json:"device"`
	Backend   string `json:"backend"`
	Index     int    `json:"index"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	FPS       int    `json:"fps"`
	Synthetic bool   `json:"synthetic"`
}

// Source produces raw frames for the pipeline.
type Source interface {
	// Open acquires the device identified by hint and negotiates the
	// capture format. Returns ErrNoDevice when nothing can deliver
	// frames.
	Open(hint string) (*Descriptor, error)

	// Read produces the next frame. Camera sources may return
	// ErrReadFailed transiently; the synthetic source never fails.
	Read() (*frame.Frame, error)

	// Close releases the device. Idempotent.
	Close() error

	// Name identifies the source kind for logs and status output.
	Name() string
}
