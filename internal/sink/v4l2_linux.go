//go:build linux

package sink

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/bryanchriswhite/stylecam/internal/frame"
	"github.com/bryanchriswhite/stylecam/internal/logger"
)

// v4l2 ioctl and format constants, from <linux/videodev2.h>.
const (
	vidiocSFmt = 0xc0d05605 // VIDIOC_S_FMT, _IOWR('V', 5, struct v4l2_format)

	bufTypeVideoOutput = 2          // V4L2_BUF_TYPE_VIDEO_OUTPUT
	fieldNone          = 1          // V4L2_FIELD_NONE
	pixFmtRGB24        = 0x33424752 // V4L2_PIX_FMT_RGB24, 'RGB3'
)

// v4l2Format mirrors struct v4l2_format: a u32 type followed by a
// 200-byte union, 8-byte aligned.
type v4l2Format struct {
	typ uint32
	_   uint32
	fmt [200]byte
}

// V4L2 publishes frames to a v4l2 loopback device so that any
// application reading the device sees the styled stream as a regular
// camera. Requires the v4l2loopback module on the host.
type V4L2 struct {
	device string

	mu      sync.Mutex
	file    *os.File
	width   int
	height  int
	imgSize int
	frames  uint64
}

// NewV4L2 creates a sink writing to the given loopback device path
// (e.g. /dev/video10).
func NewV4L2(device string) (*V4L2, error) {
	if device == "" {
		return nil, fmt.Errorf("%w: v4l2 sink requires a device path", ErrUnsupported)
	}
	return &V4L2{device: device}, nil
}

func (v *V4L2) Name() string { return KindV4L2 }

// Open acquires the loopback device and negotiates RGB24 output at the
// given resolution. Negotiation happens exactly once per run.
func (v *V4L2) Open(width, height, fps int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.file != nil {
		return fmt.Errorf("v4l2 sink already open on %s", v.device)
	}

	file, err := os.OpenFile(v.device, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", v.device, err)
	}

	sizeImage := width * height * frame.BytesPerPixel

	var f v4l2Format
	f.typ = bufTypeVideoOutput
	// struct v4l2_pix_format, all u32 fields in declaration order.
	binary.LittleEndian.PutUint32(f.fmt[0:], uint32(width))
	binary.LittleEndian.PutUint32(f.fmt[4:], uint32(height))
	binary.LittleEndian.PutUint32(f.fmt[8:], pixFmtRGB24)
	binary.LittleEndian.PutUint32(f.fmt[12:], fieldNone)
	binary.LittleEndian.PutUint32(f.fmt[16:], uint32(width*frame.BytesPerPixel)) // bytesperline
	binary.LittleEndian.PutUint32(f.fmt[20:], uint32(sizeImage))

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, file.Fd(), vidiocSFmt, uintptr(unsafe.Pointer(&f))); errno != 0 {
		file.Close()
		return fmt.Errorf("VIDIOC_S_FMT on %s failed: %w", v.device, errno)
	}

	v.file = file
	v.width = width
	v.height = height
	v.imgSize = sizeImage
	v.frames = 0

	logger.WithComponent("v4l2").Info().
		Str("device", v.device).
		Int("width", width).
		Int("height", height).
		Int("fps", fps).
		Msg("v4l2 loopback sink opened")
	return nil
}

// Publish writes one RGB24 frame to the device.
func (v *V4L2) Publish(f *frame.Frame) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.file == nil {
		return ErrNotOpen
	}
	if f.Width != v.width || f.Height != v.height {
		return fmt.Errorf("frame size %dx%d does not match negotiated %dx%d",
			f.Width, f.Height, v.width, v.height)
	}

	if _, err := v.file.Write(f.RGB()); err != nil {
		return fmt.Errorf("failed to write frame to %s: %w", v.device, err)
	}
	v.frames++
	return nil
}

// Close releases the device. Idempotent.
func (v *V4L2) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.file == nil {
		return nil
	}
	err := v.file.Close()
	v.file = nil
	logger.WithComponent("v4l2").Info().
		Str("device", v.device).
		Uint64("frames", v.frames).
		Msg("v4l2 loopback sink closed")
	return err
}
