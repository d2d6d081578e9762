package frame

import (
	"fmt"
	"image"
	"time"
)

// BytesPerPixel is the size of one pixel in a frame buffer.
// Frames use a fixed 3-channel BGR layout, matching what capture
// devices deliver.
const BytesPerPixel = 3

// Frame is one decoded image buffer with metadata. A frame is owned by
// exactly one pipeline stage at a time and is treated as immutable once
// produced; stages that modify pixels allocate a new frame.
type Frame struct {
	Width     int
	Height    int
	Pix       []byte // BGR, row-major, no padding
	Seq       uint64
	Timestamp time.Time
}

// New allocates a zeroed (black) frame of the given size.
func New(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// FromBytes wraps a BGR pixel buffer in a frame. The buffer is copied
// so the caller may reuse its backing storage.
func FromBytes(width, height int, pix []byte) (*Frame, error) {
	want := width * height * BytesPerPixel
	if len(pix) != want {
		return nil, fmt.Errorf("pixel buffer size mismatch: got %d bytes, want %d for %dx%d", len(pix), want, width, height)
	}
	f := New(width, height)
	copy(f.Pix, pix)
	return f, nil
}

// FromRGBA converts a standard Go RGBA image into a BGR frame.
func FromRGBA(img *image.RGBA) *Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	f := New(w, h)
	for y := 0; y < h; y++ {
		srcRow := img.Pix[(y+bounds.Min.Y-img.Rect.Min.Y)*img.Stride:]
		dstRow := f.Pix[y*w*BytesPerPixel:]
		for x := 0; x < w; x++ {
			si := (x + bounds.Min.X - img.Rect.Min.X) * 4
			di := x * BytesPerPixel
			dstRow[di] = srcRow[si+2]   // B
			dstRow[di+1] = srcRow[si+1] // G
			dstRow[di+2] = srcRow[si]   // R
		}
	}
	return f
}

// ToRGBA converts the frame to a standard Go RGBA image for processing
// and encoding.
func (f *Frame) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		srcRow := f.Pix[y*f.Width*BytesPerPixel:]
		dstRow := img.Pix[y*img.Stride:]
		for x := 0; x < f.Width; x++ {
			si := x * BytesPerPixel
			di := x * 4
			dstRow[di] = srcRow[si+2]   // R
			dstRow[di+1] = srcRow[si+1] // G
			dstRow[di+2] = srcRow[si]   // B
			dstRow[di+3] = 255
		}
	}
	return img
}

// Clone returns a deep copy with the same metadata.
func (f *Frame) Clone() *Frame {
	c := &Frame{
		Width:     f.Width,
		Height:    f.Height,
		Pix:       make([]byte, len(f.Pix)),
		Seq:       f.Seq,
		Timestamp: f.Timestamp,
	}
	copy(c.Pix, f.Pix)
	return c
}

// Bounds returns the frame's pixel rectangle.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// RGB returns an RGB24 copy of the pixel buffer, the layout expected by
// v4l2 loopback devices.
func (f *Frame) RGB() []byte {
	out := make([]byte, len(f.Pix))
	for i := 0; i < len(f.Pix); i += BytesPerPixel {
		out[i] = f.Pix[i+2]
		out[i+1] = f.Pix[i+1]
		out[i+2] = f.Pix[i]
	}
	return out
}
