package pipeline

import "time"

// EventKind classifies pipeline notifications.
type EventKind string

const (
	// EventFrameReady fires once per published frame.
	EventFrameReady EventKind = "frame_ready"

	// EventError reports a contained per-frame failure or a fatal
	// pipeline error.
	EventError EventKind = "error"

	// EventInfo reports lifecycle information (startup, fallback,
	// shutdown).
	EventInfo EventKind = "info"
)

// Event is an asynchronous notification to external collaborators.
// Delivery is fire-and-forget: a lagging consumer loses events rather
// than stalling the worker.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message string    `json:"message,omitempty"`
	Seq     uint64    `json:"seq,omitempty"`
	Width   int       `json:"width,omitempty"`
	Height  int       `json:"height,omitempty"`
	Time    time.Time `json:"time"`
}
