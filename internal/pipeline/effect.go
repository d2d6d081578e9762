package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bryanchriswhite/stylecam/internal/frame"
	"github.com/bryanchriswhite/stylecam/internal/logger"
	"github.com/bryanchriswhite/stylecam/internal/style"
)

// EffectStage applies the currently committed style config to frames.
// The config is swapped atomically as a whole unit, so the worker
// never observes a partially updated style; SetStyle is safe to call
// from any goroutine while Process runs on the worker.
type EffectStage struct {
	registry *style.Registry

	// writeMu serializes config writers so every commit derives from
	// the latest committed config; the worker still reads lock-free.
	writeMu sync.Mutex
	cfg     atomic.Pointer[style.Config]

	transformErrors atomic.Uint64
}

// NewEffectStage creates a stage defaulting to the identity style.
func NewEffectStage(registry *style.Registry) *EffectStage {
	e := &EffectStage{registry: registry}
	initial := style.IdentityConfig()
	e.cfg.Store(&initial)
	return e
}

// SetStyle commits a new style config. The next processed frame
// observes it; last writer wins.
func (e *EffectStage) SetStyle(cfg style.Config) error {
	if cfg.Style == "" {
		cfg = style.IdentityConfig()
	}
	if _, ok := e.registry.Get(cfg.Style); !ok {
		return fmt.Errorf("unknown style %q", cfg.Style)
	}
	if cfg.Params == nil {
		cfg.Params = style.Params{}
	}

	e.writeMu.Lock()
	e.cfg.Store(&cfg)
	e.writeMu.Unlock()
	logger.WithComponent("effect").Debug().
		Str("style", cfg.Style).
		Str("variant", cfg.Variant).
		Int("params", len(cfg.Params)).
		Msg("Style committed")
	return nil
}

// SetParams replaces only the parameter map of the current config.
func (e *EffectStage) SetParams(params style.Params) {
	if params == nil {
		params = style.Params{}
	}

	e.writeMu.Lock()
	next := *e.cfg.Load()
	next.Params = params
	e.cfg.Store(&next)
	e.writeMu.Unlock()
}

// Config returns the committed style config.
func (e *EffectStage) Config() style.Config {
	return *e.cfg.Load()
}

// TransformErrors returns the count of contained style failures.
func (e *EffectStage) TransformErrors() uint64 {
	return e.transformErrors.Load()
}

// Process applies the committed style to f. On any failure the input
// frame is returned unchanged: a single bad frame never halts the
// pipeline.
func (e *EffectStage) Process(f *frame.Frame) (*frame.Frame, error) {
	cfg := e.cfg.Load()

	st, ok := e.registry.Get(cfg.Style)
	if !ok {
		// SetStyle validates names, so this only happens if a style is
		// deregistered mid-run.
		e.transformErrors.Add(1)
		return f, fmt.Errorf("style %q not registered", cfg.Style)
	}

	params := cfg.Params
	if cfg.Variant != "" {
		params = params.Clone()
		params["variant"] = cfg.Variant
	}

	out, err := st.Apply(f, params)
	if err != nil {
		e.transformErrors.Add(1)
		return f, fmt.Errorf("style %q failed: %w", cfg.Style, err)
	}
	if out == nil || out.Width != f.Width || out.Height != f.Height {
		e.transformErrors.Add(1)
		return f, fmt.Errorf("style %q returned a mismatched frame", cfg.Style)
	}
	return out, nil
}
