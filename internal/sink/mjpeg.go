package sink

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/stylecam/internal/frame"
	"github.com/bryanchriswhite/stylecam/internal/logger"
)

// MJPEG streams processed frames as Motion JPEG over HTTP. Streaming
// and conferencing tools that accept a browser tab or an HTTP source
// can consume it directly.
type MJPEG struct {
	mu      sync.RWMutex
	running bool
	width   int
	height  int
	fps     int

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}

	frameMu    sync.RWMutex
	lastJPEG   []byte
	lastUpdate time.Time

	frameCount uint64
	startTime  time.Time
}

// NewMJPEG creates an MJPEG sink. The HTTP handler is mounted
// separately via Handler().
func NewMJPEG() *MJPEG {
	return &MJPEG{
		clients: make(map[chan []byte]struct{}),
	}
}

func (m *MJPEG) Name() string { return KindMJPEG }

// Open records the negotiated format. There is no device to acquire.
func (m *MJPEG) Open(width, height, fps int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("mjpeg sink already open")
	}
	m.width = width
	m.height = height
	m.fps = fps
	m.running = true
	m.startTime = time.Now()
	m.frameCount = 0

	logger.WithComponent("mjpeg").Info().
		Int("width", width).
		Int("height", height).
		Int("fps", fps).
		Msg("MJPEG sink opened")
	return nil
}

// Close shuts down the sink and disconnects all clients.
func (m *MJPEG) Close() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	frames := m.frameCount
	m.mu.Unlock()

	m.clientsMu.Lock()
	for ch := range m.clients {
		close(ch)
	}
	m.clients = make(map[chan []byte]struct{})
	m.clientsMu.Unlock()

	logger.WithComponent("mjpeg").Info().
		Uint64("frames", frames).
		Msg("MJPEG sink closed")
	return nil
}

// Publish encodes the frame once and fans it out to connected clients.
// Slow clients skip frames rather than stalling the pipeline.
func (m *MJPEG) Publish(f *frame.Frame) error {
	if !m.IsRunning() {
		return ErrNotOpen
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, f.ToRGBA(), &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	jpegData := buf.Bytes()

	m.frameMu.Lock()
	m.lastJPEG = jpegData
	m.lastUpdate = time.Now()
	m.frameMu.Unlock()

	m.mu.Lock()
	m.frameCount++
	m.mu.Unlock()

	m.clientsMu.RLock()
	for ch := range m.clients {
		select {
		case ch <- jpegData:
		default:
			// Client is slow, skip this frame
		}
	}
	m.clientsMu.RUnlock()

	return nil
}

// IsRunning returns true if the sink is open.
func (m *MJPEG) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastJPEG returns the most recently published JPEG, for snapshots.
func (m *MJPEG) LastJPEG() []byte {
	m.frameMu.RLock()
	defer m.frameMu.RUnlock()
	return m.lastJPEG
}

// Handler returns the multipart MJPEG stream handler. Mount it at
// /stream or similar.
func (m *MJPEG) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Connection", "close")

		frameChan := make(chan []byte, 2)

		m.clientsMu.Lock()
		m.clients[frameChan] = struct{}{}
		clientCount := len(m.clients)
		m.clientsMu.Unlock()

		logger.WithComponent("mjpeg").Info().
			Int("clients", clientCount).
			Msg("Stream client connected")

		defer func() {
			m.clientsMu.Lock()
			delete(m.clients, frameChan)
			remaining := len(m.clients)
			m.clientsMu.Unlock()
			logger.WithComponent("mjpeg").Info().
				Int("clients", remaining).
				Msg("Stream client disconnected")
		}()

		for jpegData := range frameChan {
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
				return
			}
			if _, err := w.Write(jpegData); err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}
