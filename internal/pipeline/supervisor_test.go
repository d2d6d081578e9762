package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/stylecam/internal/config"
	"github.com/bryanchriswhite/stylecam/internal/frame"
	"github.com/bryanchriswhite/stylecam/internal/sink"
	"github.com/bryanchriswhite/stylecam/internal/source"
	"github.com/bryanchriswhite/stylecam/internal/style"
)

type fakeSource struct {
	mu        sync.Mutex
	width     int
	height    int
	openErr   error
	readErr   error
	blockRead chan struct{}
	seq       uint64
	closed    bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{width: 64, height: 48}
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Open(hint string) (*source.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &source.Descriptor{
		Device:  hint,
		Backend: "fake",
		Width:   s.width,
		Height:  s.height,
		FPS:     30,
	}, nil
}

func (s *fakeSource) Read() (*frame.Frame, error) {
	s.mu.Lock()
	block := s.blockRead
	s.mu.Unlock()
	if block != nil {
		<-block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	s.seq++
	f := frame.New(s.width, s.height)
	f.Seq = s.seq
	f.Timestamp = time.Now()
	return f, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeSink struct {
	mu        sync.Mutex
	failAll   bool
	published []*frame.Frame
	opened    bool
	closed    bool
	width     int
	height    int
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Open(width, height, fps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = true
	s.closed = false
	s.width = width
	s.height = height
	return nil
}

func (s *fakeSink) Publish(f *frame.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errors.New("device gone")
	}
	s.published = append(s.published, f)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

func (s *fakeSink) last() *frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.published) == 0 {
		return nil
	}
	return s.published[len(s.published)-1]
}

func (s *fakeSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func testOptions(src source.Source, snk sink.Sink, extra ...style.Style) Options {
	registry := style.NewRegistry()
	registry.Register(&style.IdentityStyle{})
	for _, s := range extra {
		registry.Register(s)
	}
	return Options{
		Registry: registry,
		Input:    config.InputConfig{Device: "0", Width: 64, Height: 48, FPS: 30},
		Pipeline: config.PipelineConfig{
			BufferSize:          4,
			MaxFPS:              200,
			StopTimeoutMillis:   500,
			ReadFailureLimit:    3,
			PublishFailureLimit: 3,
		},
		Source: src,
		Sink:   snk,
	}
}

func TestSupervisorLifecycle(t *testing.T) {
	src := newFakeSource()
	snk := &fakeSink{}
	sup := NewSupervisor(testOptions(src, snk))

	assert.Equal(t, Stopped, sup.State())

	require.NoError(t, sup.Start("0", style.IdentityConfig()))
	assert.Equal(t, Running, sup.State())

	desc := sup.Descriptor()
	require.NotNil(t, desc)
	assert.Equal(t, 64, desc.Width)
	assert.False(t, desc.Synthetic)
	assert.Equal(t, 64, snk.width)
	assert.Equal(t, 48, snk.height)

	// A second start while running is rejected.
	assert.Error(t, sup.Start("0", style.IdentityConfig()))

	assert.Eventually(t, func() bool { return snk.count() >= 3 }, 2*time.Second, 10*time.Millisecond)

	// Published sequence numbers increase strictly.
	snk.mu.Lock()
	for i := 1; i < len(snk.published); i++ {
		assert.Greater(t, snk.published[i].Seq, snk.published[i-1].Seq)
	}
	snk.mu.Unlock()

	stats := sup.Stats()
	assert.Equal(t, "running", stats.State)
	assert.Greater(t, stats.FramesProcessed, uint64(0))

	sup.Stop()
	assert.Equal(t, Stopped, sup.State())
	assert.True(t, src.isClosed())
	assert.True(t, snk.isClosed())
	assert.Nil(t, sup.Descriptor())

	// Stop is idempotent.
	sup.Stop()
	assert.Equal(t, Stopped, sup.State())
}

func TestSupervisorFallsBackToSynthetic(t *testing.T) {
	src := newFakeSource()
	src.openErr = source.ErrNoDevice
	snk := &fakeSink{}
	sup := NewSupervisor(testOptions(src, snk))

	events, cancel := sup.Subscribe()
	defer cancel()

	require.NoError(t, sup.Start("9", style.IdentityConfig()))
	defer sup.Stop()

	desc := sup.Descriptor()
	require.NotNil(t, desc)
	assert.True(t, desc.Synthetic)

	// Synthetic frames flow to the sink.
	assert.Eventually(t, func() bool { return snk.count() >= 2 }, 2*time.Second, 10*time.Millisecond)

	// Exactly one informational fallback notification was emitted.
	fallbacks := 0
	for {
		select {
		case ev := <-events:
			if ev.Kind == EventInfo && strings.Contains(ev.Message, "synthetic") {
				fallbacks++
			}
			continue
		default:
		}
		break
	}
	assert.Equal(t, 1, fallbacks)
}

func TestSupervisorInvalidInitialStyle(t *testing.T) {
	src := newFakeSource()
	snk := &fakeSink{}
	sup := NewSupervisor(testOptions(src, snk))

	err := sup.Start("0", style.Config{Style: "nope"})
	assert.Error(t, err)
	assert.Equal(t, Failed, sup.State())

	// A failed pipeline can be restarted.
	require.NoError(t, sup.Start("0", style.IdentityConfig()))
	sup.Stop()
}

func TestSupervisorPublishFailureEscalates(t *testing.T) {
	src := newFakeSource()
	snk := &fakeSink{failAll: true}
	sup := NewSupervisor(testOptions(src, snk))

	require.NoError(t, sup.Start("0", style.IdentityConfig()))

	assert.Eventually(t, func() bool { return sup.State() == Failed }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, src.isClosed())
	assert.True(t, snk.isClosed())
	assert.GreaterOrEqual(t, sup.Stats().PublishErrors, uint64(3))
}

func TestSupervisorSwitchesToSyntheticOnReadFailures(t *testing.T) {
	src := newFakeSource()
	src.mu.Lock()
	src.readErr = source.ErrReadFailed
	src.mu.Unlock()
	snk := &fakeSink{}
	sup := NewSupervisor(testOptions(src, snk))

	require.NoError(t, sup.Start("0", style.IdentityConfig()))
	defer sup.Stop()

	assert.Eventually(t, func() bool {
		desc := sup.Descriptor()
		return desc != nil && desc.Synthetic
	}, 3*time.Second, 10*time.Millisecond)
	assert.True(t, src.isClosed())

	// Frames keep flowing from the replacement source.
	before := snk.count()
	assert.Eventually(t, func() bool { return snk.count() > before }, 2*time.Second, 10*time.Millisecond)
}

// wedgedSource mirrors the camera's lock discipline: Read holds the
// source mutex across a blocking device call, so Close contends with a
// stuck Read.
type wedgedSource struct {
	mu      sync.Mutex
	release chan struct{}
}

func (s *wedgedSource) Name() string { return "wedged" }

func (s *wedgedSource) Open(hint string) (*source.Descriptor, error) {
	return &source.Descriptor{
		Device:  hint,
		Backend: "wedged",
		Width:   64,
		Height:  48,
		FPS:     30,
	}, nil
}

func (s *wedgedSource) Read() (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	<-s.release
	return nil, source.ErrReadFailed
}

func (s *wedgedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nil
}

func TestSupervisorStopIsBounded(t *testing.T) {
	src := newFakeSource()
	src.blockRead = make(chan struct{}) // Read never returns
	snk := &fakeSink{}
	sup := NewSupervisor(testOptions(src, snk))

	require.NoError(t, sup.Start("0", style.IdentityConfig()))

	// Give the worker time to park in Read.
	time.Sleep(50 * time.Millisecond)

	start := time.Now()
	sup.Stop()
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*time.Second)
	assert.Equal(t, Stopped, sup.State())
}

func TestSupervisorStopIsBoundedWhenCloseContendsWithRead(t *testing.T) {
	src := &wedgedSource{release: make(chan struct{})}
	t.Cleanup(func() { close(src.release) })
	snk := &fakeSink{}
	sup := NewSupervisor(testOptions(src, snk))

	require.NoError(t, sup.Start("0", style.IdentityConfig()))

	// Give the worker time to park inside Read with the lock held.
	time.Sleep(50 * time.Millisecond)

	stopDone := make(chan struct{})
	go func() {
		sup.Stop()
		close(stopDone)
	}()

	// Stop must come back after abandoning the worker even though the
	// source cannot be closed while the read is wedged.
	select {
	case <-stopDone:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop blocked behind the wedged read")
	}
	assert.Equal(t, Stopped, sup.State())
}

func TestSupervisorKeepsPublishingWhenStyleFails(t *testing.T) {
	broken := &scriptedStyle{
		name: "broken",
		apply: func(_ *frame.Frame, _ style.Params) (*frame.Frame, error) {
			return nil, errors.New("boom")
		},
	}
	src := newFakeSource()
	snk := &fakeSink{}
	sup := NewSupervisor(testOptions(src, snk, broken))

	events, cancel := sup.Subscribe()
	defer cancel()

	require.NoError(t, sup.Start("0", style.Config{Style: "broken"}))
	defer sup.Stop()

	// Every frame fails the transform, yet the loop keeps publishing
	// the input frames and announcing them.
	var ready, failures int
	deadline := time.After(2 * time.Second)
	for ready < 3 || failures < 3 {
		select {
		case ev := <-events:
			switch ev.Kind {
			case EventFrameReady:
				ready++
			case EventError:
				failures++
			}
		case <-deadline:
			t.Fatalf("timed out: %d frame events, %d error events", ready, failures)
		}
	}

	assert.GreaterOrEqual(t, snk.count(), 1)
	assert.Greater(t, sup.Stats().TransformErrors, uint64(0))
	assert.Equal(t, Running, sup.State())
}

func TestSupervisorRapidStyleUpdatesConverge(t *testing.T) {
	const updates = 5
	marks := make([]style.Style, 0, updates)
	for i := 1; i <= updates; i++ {
		level := byte(10 * i)
		marks = append(marks, &scriptedStyle{
			name: fmt.Sprintf("mark%d", i),
			apply: func(f *frame.Frame, _ style.Params) (*frame.Frame, error) {
				out := f.Clone()
				out.Pix[0] = level
				return out, nil
			},
		})
	}
	src := newFakeSource()
	snk := &fakeSink{}
	sup := NewSupervisor(testOptions(src, snk, marks...))

	require.NoError(t, sup.Start("0", style.IdentityConfig()))
	defer sup.Stop()

	for i := 1; i <= updates; i++ {
		require.NoError(t, sup.UpdateStyle(style.Config{Style: fmt.Sprintf("mark%d", i)}))
	}

	// The last update wins and the output converges to it.
	assert.Equal(t, fmt.Sprintf("mark%d", updates), sup.Style().Style)
	assert.Eventually(t, func() bool {
		f := snk.last()
		return f != nil && f.Pix[0] == byte(10*updates)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSupervisorStyleUpdateAppliesMidRun(t *testing.T) {
	mark := &scriptedStyle{
		name: "mark",
		apply: func(f *frame.Frame, _ style.Params) (*frame.Frame, error) {
			out := f.Clone()
			out.Pix[0] = 255
			return out, nil
		},
	}
	src := newFakeSource()
	snk := &fakeSink{}
	sup := NewSupervisor(testOptions(src, snk, mark))

	require.NoError(t, sup.Start("0", style.IdentityConfig()))
	defer sup.Stop()

	assert.Eventually(t, func() bool { return snk.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Error(t, sup.UpdateStyle(style.Config{Style: "nope"}))
	require.NoError(t, sup.UpdateStyle(style.Config{Style: "mark"}))
	assert.Equal(t, "mark", sup.Style().Style)

	assert.Eventually(t, func() bool {
		f := snk.last()
		return f != nil && f.Pix[0] == 255
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSupervisorFrameReadyEvents(t *testing.T) {
	src := newFakeSource()
	snk := &fakeSink{}
	sup := NewSupervisor(testOptions(src, snk))

	events, cancel := sup.Subscribe()
	defer cancel()

	require.NoError(t, sup.Start("0", style.IdentityConfig()))
	defer sup.Stop()

	deadline := time.After(2 * time.Second)
	var ready []Event
	for len(ready) < 2 {
		select {
		case ev := <-events:
			if ev.Kind == EventFrameReady {
				ready = append(ready, ev)
			}
		case <-deadline:
			t.Fatal("timed out waiting for frame events")
		}
	}

	assert.Greater(t, ready[1].Seq, ready[0].Seq)
	assert.Equal(t, 64, ready[0].Width)
	assert.Equal(t, 48, ready[0].Height)
}
