package source

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/bryanchriswhite/stylecam/internal/frame"
	"github.com/bryanchriswhite/stylecam/internal/logger"
)

// trialReadTimeout bounds the per-combination probe read. Opening a
// device that never delivers a frame counts as a failed open.
const trialReadTimeout = 1200 * time.Millisecond

// backendCandidate pairs a capture API with a name for logs.
type backendCandidate struct {
	name string
	api  gocv.VideoCaptureAPI
}

// backendOrder is the ordered list of capture backends to try. The
// auto backend goes first; the platform-specific ones cover drivers
// that misbehave under auto-detection.
var backendOrder = []backendCandidate{
	{"auto", gocv.VideoCaptureAny},
	{"v4l2", gocv.VideoCaptureV4L2},
	{"dshow", gocv.VideoCaptureDshow},
	{"msmf", gocv.VideoCaptureMSMF},
	{"avfoundation", gocv.VideoCaptureAVFoundation},
}

// Camera captures frames from a physical device through gocv. Open
// walks an ordered backend x index grid and keeps the first
// combination that actually delivers a frame.
type Camera struct {
	width  int
	height int
	fps    int

	mu   sync.Mutex
	cap  *gocv.VideoCapture
	mat  gocv.Mat
	desc *Descriptor
	seq  uint64
}

// NewCamera creates a camera source that will request the given
// capture format from the device.
func NewCamera(width, height, fps int) *Camera {
	return &Camera{width: width, height: height, fps: fps}
}

func (c *Camera) Name() string { return "camera" }

// Open tries each backend/index combination until one delivers a real
// frame. All losing combinations are released. Returns ErrNoDevice if
// the whole grid fails.
func (c *Camera) Open(hint string) (*Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap != nil {
		return nil, fmt.Errorf("camera already open on %q", c.desc.Device)
	}

	log := logger.WithComponent("camera")
	indices := candidateIndices(hint)

	for _, backend := range backendOrder {
		for _, idx := range indices {
			cap, err := gocv.OpenVideoCaptureWithAPI(idx, backend.api)
			if err != nil || !cap.IsOpened() {
				if cap != nil {
					cap.Close()
				}
				log.Debug().
					Str("backend", backend.name).
					Int("index", idx).
					Msg("Open failed")
				continue
			}

			// Best-effort property negotiation; drivers are free to
			// ignore any of these.
			cap.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
			cap.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
			cap.Set(gocv.VideoCaptureFPS, float64(c.fps))
			cap.Set(gocv.VideoCaptureBufferSize, 1)

			if !trialRead(cap, trialReadTimeout) {
				log.Debug().
					Str("backend", backend.name).
					Int("index", idx).
					Msg("Opened but no frames delivered, releasing")
				cap.Close()
				continue
			}

			width := int(cap.Get(gocv.VideoCaptureFrameWidth))
			height := int(cap.Get(gocv.VideoCaptureFrameHeight))
			fps := int(cap.Get(gocv.VideoCaptureFPS))
			if width <= 0 || height <= 0 {
				width, height = c.width, c.height
			}
			if fps <= 0 {
				fps = c.fps
			}

			c.cap = cap
			c.mat = gocv.NewMat()
			c.desc = &Descriptor{
				Device:  strconv.Itoa(idx),
				Backend: backend.name,
				Index:   idx,
				Width:   width,
				Height:  height,
				FPS:     fps,
			}

			log.Info().
				Str("backend", backend.name).
				Int("index", idx).
				Int("width", width).
				Int("height", height).
				Int("fps", fps).
				Msg("Camera opened")
			return c.desc, nil
		}
	}

	log.Warn().
		Str("hint", hint).
		Msg("No backend/index combination delivered frames")
	return nil, ErrNoDevice
}

// Read captures one frame. Returns ErrReadFailed on a transient
// capture miss; callers retry next cycle.
func (c *Camera) Read() (*frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil, ErrNotOpen
	}
	if !c.cap.Read(&c.mat) || c.mat.Empty() {
		return nil, ErrReadFailed
	}

	mat := c.mat
	if mat.Channels() == 1 {
		// Some drivers hand back grayscale; normalize to BGR.
		converted := gocv.NewMat()
		gocv.CvtColor(mat, &converted, gocv.ColorGrayToBGR)
		defer converted.Close()
		mat = converted
	}

	f, err := frame.FromBytes(mat.Cols(), mat.Rows(), mat.ToBytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	c.seq++
	f.Seq = c.seq
	f.Timestamp = time.Now()
	return f, nil
}

// Close releases the capture device. Idempotent.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil
	}
	err := c.cap.Close()
	c.mat.Close()
	c.cap = nil
	c.desc = nil
	logger.WithComponent("camera").Info().Msg("Camera closed")
	return err
}

// Descriptor returns the negotiated descriptor, or nil before Open.
func (c *Camera) Descriptor() *Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.desc
}

// trialRead polls the device until it produces a non-empty frame or
// the timeout expires.
func trialRead(cap *gocv.VideoCapture, timeout time.Duration) bool {
	m := gocv.NewMat()
	defer m.Close()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cap.Read(&m) && !m.Empty() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

// candidateIndices derives the device index probe order from the hint:
// the hinted index first, then the first few indices as fallback.
func candidateIndices(hint string) []int {
	indices := []int{}
	seen := map[int]bool{}

	if idx, err := strconv.Atoi(hint); err == nil && idx >= 0 {
		indices = append(indices, idx)
		seen[idx] = true
	}
	for _, idx := range []int{0, 1, 2} {
		if !seen[idx] {
			indices = append(indices, idx)
			seen[idx] = true
		}
	}
	return indices
}
