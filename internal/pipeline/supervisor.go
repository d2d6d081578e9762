// Package pipeline orchestrates the capture -> style -> publish loop:
// lifecycle state machine, dedicated worker goroutine, bounded frame
// buffering and notifications to external collaborators.
package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/stylecam/internal/buffer"
	"github.com/bryanchriswhite/stylecam/internal/config"
	"github.com/bryanchriswhite/stylecam/internal/frame"
	"github.com/bryanchriswhite/stylecam/internal/logger"
	"github.com/bryanchriswhite/stylecam/internal/rate"
	"github.com/bryanchriswhite/stylecam/internal/sink"
	"github.com/bryanchriswhite/stylecam/internal/source"
	"github.com/bryanchriswhite/stylecam/internal/style"
)

// State is the pipeline lifecycle state. Mutated only by the
// supervisor.
type State int32

const (
	Stopped State = iota
	Starting
	Running
	Stopping
	Failed
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// FallbackFactory builds the synthetic source used when no capture
// device delivers frames.
type FallbackFactory func(width, height, fps int) source.Source

// Options configures a Supervisor. Source and Sink may be injected for
// testing; when nil the camera source and the configured sink kind are
// used.
type Options struct {
	Registry *style.Registry
	Input    config.InputConfig
	Output   config.OutputConfig
	Pipeline config.PipelineConfig

	Source   source.Source
	Fallback FallbackFactory
	Sink     sink.Sink
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	State           string             `json:"state"`
	FramesProcessed uint64             `json:"frames_processed"`
	FramesDropped   uint64             `json:"frames_dropped"`
	TransformErrors uint64             `json:"transform_errors"`
	ReadErrors      uint64             `json:"read_errors"`
	PublishErrors   uint64             `json:"publish_errors"`
	AvgFPS          float64            `json:"avg_fps"`
	Descriptor      *source.Descriptor `json:"descriptor,omitempty"`
	Style           style.Config       `json:"style"`
}

// Supervisor owns the pipeline lifecycle: it opens the source (falling
// back to synthetic frames when no device exists), opens the sink,
// runs the worker loop and surfaces events to subscribers.
type Supervisor struct {
	opts   Options
	effect *EffectStage
	rate   *rate.Controller

	mu      sync.Mutex
	state   State
	src     source.Source
	snk     sink.Sink
	desc    *source.Descriptor
	buf     *buffer.Buffer
	stopCh  chan struct{}
	done    chan struct{}
	started time.Time

	subMu sync.RWMutex
	subs  map[chan Event]struct{}

	frameSeq        uint64
	framesProcessed atomic.Uint64
	readErrors      atomic.Uint64
	publishErrors   atomic.Uint64
	lastFrame       atomic.Pointer[frame.Frame]

	stopTimeout  time.Duration
	readLimit    int
	publishLimit int
}

// NewSupervisor creates a supervisor. Zero-valued option fields fall
// back to defaults.
func NewSupervisor(opts Options) *Supervisor {
	if opts.Registry == nil {
		opts.Registry = style.DefaultRegistry()
	}
	if opts.Fallback == nil {
		opts.Fallback = func(w, h, fps int) source.Source {
			return source.NewSynthetic(w, h, fps)
		}
	}
	def := config.Defaults()
	if opts.Input.Width <= 0 || opts.Input.Height <= 0 {
		opts.Input = def.Input
	}
	if opts.Pipeline.BufferSize <= 0 {
		opts.Pipeline.BufferSize = def.Pipeline.BufferSize
	}
	if opts.Pipeline.MaxFPS <= 0 {
		opts.Pipeline.MaxFPS = def.Pipeline.MaxFPS
	}
	if opts.Pipeline.StopTimeoutMillis <= 0 {
		opts.Pipeline.StopTimeoutMillis = def.Pipeline.StopTimeoutMillis
	}
	if opts.Pipeline.ReadFailureLimit <= 0 {
		opts.Pipeline.ReadFailureLimit = def.Pipeline.ReadFailureLimit
	}
	if opts.Pipeline.PublishFailureLimit <= 0 {
		opts.Pipeline.PublishFailureLimit = def.Pipeline.PublishFailureLimit
	}

	return &Supervisor{
		opts:         opts,
		effect:       NewEffectStage(opts.Registry),
		rate:         rate.NewController(opts.Pipeline.MaxFPS),
		state:        Stopped,
		subs:         make(map[chan Event]struct{}),
		stopTimeout:  time.Duration(opts.Pipeline.StopTimeoutMillis) * time.Millisecond,
		readLimit:    opts.Pipeline.ReadFailureLimit,
		publishLimit: opts.Pipeline.PublishFailureLimit,
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Descriptor returns the active source descriptor, or nil when the
// pipeline is not running.
func (s *Supervisor) Descriptor() *source.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// Style returns the committed style config.
func (s *Supervisor) Style() style.Config {
	return s.effect.Config()
}

// Registry returns the style registry in use.
func (s *Supervisor) Registry() *style.Registry {
	return s.opts.Registry
}

// Subscribe registers an event listener. The returned cancel func must
// be called to release it. Sends never block: a lagging subscriber
// loses events.
func (s *Supervisor) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Supervisor) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s.subMu.RLock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber lagging, drop
		}
	}
	s.subMu.RUnlock()
}

// Start brings the pipeline from Stopped (or Failed) to Running. On
// any initialization failure the state is Failed, no partially
// initialized resources stay open, and the error is returned.
func (s *Supervisor) Start(deviceHint string, initialStyle style.Config) error {
	s.mu.Lock()
	switch s.state {
	case Stopped, Failed:
	default:
		cur := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot start pipeline while %s", cur)
	}
	s.state = Starting
	s.mu.Unlock()

	log := logger.WithComponent("pipeline")

	if err := s.effect.SetStyle(initialStyle); err != nil {
		s.setState(Failed)
		return fmt.Errorf("invalid initial style: %w", err)
	}

	in := s.opts.Input
	src := s.opts.Source
	if src == nil {
		src = source.NewCamera(in.Width, in.Height, in.FPS)
	}

	desc, err := src.Open(deviceHint)
	if err != nil {
		log.Warn().
			Err(err).
			Str("hint", deviceHint).
			Msg("Capture device unavailable, falling back to synthetic frames")
		src.Close()

		fb := s.opts.Fallback(in.Width, in.Height, in.FPS)
		desc, err = fb.Open(deviceHint)
		if err != nil {
			s.setState(Failed)
			return fmt.Errorf("fallback source failed: %w", err)
		}
		src = fb
		s.emit(Event{
			Kind:    EventInfo,
			Message: fmt.Sprintf("no capture device for hint %q, publishing synthetic frames", deviceHint),
		})
	}

	snk := s.opts.Sink
	if snk == nil {
		snk, err = sink.New(s.opts.Output.Kind, s.opts.Output.Device)
		if err != nil {
			src.Close()
			s.setState(Failed)
			return fmt.Errorf("failed to create sink: %w", err)
		}
	}

	// The sink always negotiates exactly the active source resolution.
	if err := snk.Open(desc.Width, desc.Height, desc.FPS); err != nil {
		src.Close()
		s.setState(Failed)
		return fmt.Errorf("failed to open sink: %w", err)
	}

	s.mu.Lock()
	s.src = src
	s.snk = snk
	s.desc = desc
	s.buf = buffer.New(s.opts.Pipeline.BufferSize)
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.started = time.Now()
	s.frameSeq = 0
	s.framesProcessed.Store(0)
	s.readErrors.Store(0)
	s.publishErrors.Store(0)
	s.rate.SetLive(!desc.Synthetic)
	buf, stopCh, done := s.buf, s.stopCh, s.done
	s.state = Running
	s.mu.Unlock()

	go s.run(src, snk, buf, stopCh, done)

	log.Info().
		Str("source", src.Name()).
		Str("sink", snk.Name()).
		Int("width", desc.Width).
		Int("height", desc.Height).
		Int("fps", desc.FPS).
		Msg("Pipeline running")
	s.emit(Event{Kind: EventInfo, Message: "pipeline running"})
	return nil
}

// Stop shuts the pipeline down. Idempotent. Always returns within the
// configured join timeout plus cleanup time; a worker that does not
// exit in time is abandoned with a warning rather than blocking the
// caller.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.state != Running && s.state != Starting {
		s.mu.Unlock()
		return
	}
	s.state = Stopping
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	log := logger.WithComponent("pipeline")
	close(stopCh)

	joined := true
	select {
	case <-done:
	case <-time.After(s.stopTimeout):
		joined = false
		log.Warn().
			Dur("timeout", s.stopTimeout).
			Msg("Worker did not exit in time, abandoning it")
	}

	s.mu.Lock()
	src, snk := s.src, s.snk
	s.src = nil
	s.snk = nil
	s.desc = nil
	s.buf = nil
	if s.state == Stopping {
		s.state = Stopped
	}
	s.mu.Unlock()

	release := func() {
		if src != nil {
			src.Close()
		}
		if snk != nil {
			snk.Close()
		}
	}
	if joined {
		release()
	} else {
		// An abandoned worker may sit inside a blocking device read
		// holding the source's lock, so Close would contend with it.
		// Releasing from a detached goroutine keeps Stop bounded;
		// closing the device is what usually unblocks the worker.
		go release()
	}

	log.Info().Msg("Pipeline stopped")
	s.emit(Event{Kind: EventInfo, Message: "pipeline stopped"})
}

// UpdateStyle commits a new style config, effective on the next
// processed frame.
func (s *Supervisor) UpdateStyle(cfg style.Config) error {
	if err := s.effect.SetStyle(cfg); err != nil {
		return err
	}
	s.rate.RecordActivity(time.Now())
	return nil
}

// UpdateParameters replaces the current style's parameter map.
func (s *Supervisor) UpdateParameters(params style.Params) {
	s.effect.SetParams(params)
	s.rate.RecordActivity(time.Now())
}

// Snapshot returns a copy of the most recently published frame, or nil
// if none exists yet.
func (s *Supervisor) Snapshot() *frame.Frame {
	f := s.lastFrame.Load()
	if f == nil {
		return nil
	}
	return f.Clone()
}

// Stats returns a snapshot of the pipeline counters.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	state := s.state
	desc := s.desc
	buf := s.buf
	started := s.started
	s.mu.Unlock()

	var dropped uint64
	if buf != nil {
		dropped = buf.Dropped()
	}

	frames := s.framesProcessed.Load()
	var avgFPS float64
	if state == Running && !started.IsZero() {
		if elapsed := time.Since(started).Seconds(); elapsed > 0 {
			avgFPS = float64(frames) / elapsed
		}
	}

	return Stats{
		State:           state.String(),
		FramesProcessed: frames,
		FramesDropped:   dropped,
		TransformErrors: s.effect.TransformErrors(),
		ReadErrors:      s.readErrors.Load(),
		PublishErrors:   s.publishErrors.Load(),
		AvgFPS:          avgFPS,
		Descriptor:      desc,
		Style:           s.effect.Config(),
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// failRun releases the run's resources after a fatal worker error so a
// Failed pipeline never leaks an open device.
func (s *Supervisor) failRun(src source.Source, snk sink.Sink) {
	src.Close()
	snk.Close()

	s.mu.Lock()
	s.src = nil
	s.snk = nil
	// Only a live run may fail; a Stop already in progress (or done)
	// keeps its outcome.
	if s.state == Running {
		s.state = Failed
	}
	s.mu.Unlock()
}

// run is the worker loop: rate gate -> read -> buffer -> style ->
// publish -> notify. Per-frame errors are contained here and never
// cross the command boundary.
func (s *Supervisor) run(src source.Source, snk sink.Sink, buf *buffer.Buffer, stopCh, done chan struct{}) {
	defer close(done)
	log := logger.WithComponent("pipeline")

	consecutiveReads := 0
	consecutivePublishes := 0

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		now := time.Now()
		if !s.rate.ShouldProceed(now) {
			select {
			case <-stopCh:
				return
			case <-time.After(s.rate.Delay(now)):
			}
			continue
		}

		f, err := src.Read()
		if err != nil {
			s.readErrors.Add(1)
			consecutiveReads++
			log.Warn().
				Err(err).
				Int("consecutive", consecutiveReads).
				Msg("Frame read failed")
			if consecutiveReads >= s.readLimit && src.Name() != "synthetic" {
				src = s.swapToSynthetic(src)
				consecutiveReads = 0
			}
			select {
			case <-stopCh:
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}
		consecutiveReads = 0

		// Run-wide sequence numbering survives a mid-run source swap.
		s.frameSeq++
		f.Seq = s.frameSeq

		buf.Push(f)
		queued, ok := buf.Pop()
		if !ok {
			continue
		}

		out, perr := s.effect.Process(queued)
		if perr != nil {
			log.Warn().
				Err(perr).
				Uint64("seq", queued.Seq).
				Msg("Style failed, passing frame through unchanged")
			s.emit(Event{Kind: EventError, Message: perr.Error(), Seq: queued.Seq})
		}

		if err := snk.Publish(out); err != nil {
			s.publishErrors.Add(1)
			consecutivePublishes++
			log.Warn().
				Err(err).
				Int("consecutive", consecutivePublishes).
				Msg("Publish failed, skipping frame")
			s.emit(Event{Kind: EventError, Message: fmt.Sprintf("publish failed: %v", err), Seq: out.Seq})
			if consecutivePublishes >= s.publishLimit {
				log.Error().
					Int("failures", consecutivePublishes).
					Msg("Sink failing persistently, pipeline entering failed state")
				s.emit(Event{Kind: EventError, Message: "sink failing persistently, pipeline stopped"})
				s.failRun(src, snk)
				return
			}
			continue
		}
		consecutivePublishes = 0

		s.framesProcessed.Add(1)
		s.lastFrame.Store(out)
		s.rate.MarkFrame(now)
		s.emit(Event{
			Kind:   EventFrameReady,
			Seq:    out.Seq,
			Width:  out.Width,
			Height: out.Height,
			Time:   out.Timestamp,
		})
	}
}

// swapToSynthetic replaces a persistently failing capture device with
// the synthetic generator at the already-negotiated resolution, so the
// sink keeps receiving frames without a restart.
func (s *Supervisor) swapToSynthetic(old source.Source) source.Source {
	s.mu.Lock()
	desc := s.desc
	s.mu.Unlock()

	fb := s.opts.Fallback(desc.Width, desc.Height, desc.FPS)
	fbDesc, err := fb.Open(desc.Device)
	if err != nil {
		// Keep limping along with the old source rather than dying.
		logger.WithComponent("pipeline").Error().
			Err(err).
			Msg("Fallback source failed to open, keeping failing device")
		return old
	}
	old.Close()

	s.mu.Lock()
	s.src = fb
	s.desc = fbDesc
	s.mu.Unlock()
	s.rate.SetLive(false)

	logger.WithComponent("pipeline").Warn().
		Msg("Capture device failing persistently, switched to synthetic frames")
	s.emit(Event{Kind: EventInfo, Message: "capture device lost, publishing synthetic frames"})
	return fb
}
