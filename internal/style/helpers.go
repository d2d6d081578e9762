package style

import (
	"image"

	"github.com/bryanchriswhite/stylecam/internal/frame"
)

// result converts a processed RGBA image back into a frame carrying
// the source frame's sequence number and capture timestamp.
func result(img *image.RGBA, src *frame.Frame) *frame.Frame {
	out := frame.FromRGBA(img)
	out.Seq = src.Seq
	out.Timestamp = src.Timestamp
	return out
}

// luminance approximates pixel brightness from RGBA bytes.
func luminance(r, g, b uint8) uint8 {
	// Integer Rec. 601 weights.
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b)) / 1000)
}
