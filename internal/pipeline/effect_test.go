package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/stylecam/internal/frame"
	"github.com/bryanchriswhite/stylecam/internal/style"
)

// scriptedStyle lets tests control transform behavior per call.
type scriptedStyle struct {
	name  string
	apply func(f *frame.Frame, params style.Params) (*frame.Frame, error)
}

func (s *scriptedStyle) Name() string { return s.name }

func (s *scriptedStyle) Apply(f *frame.Frame, params style.Params) (*frame.Frame, error) {
	return s.apply(f, params)
}

func (s *scriptedStyle) ParamSpecs() []style.ParamSpec { return nil }

func testRegistry(t *testing.T, extra ...style.Style) *style.Registry {
	t.Helper()
	r := style.NewRegistry()
	require.NoError(t, r.Register(&style.IdentityStyle{}))
	for _, s := range extra {
		require.NoError(t, r.Register(s))
	}
	return r
}

func TestEffectStageDefaultsToIdentity(t *testing.T) {
	e := NewEffectStage(testRegistry(t))

	assert.Equal(t, style.Identity, e.Config().Style)

	f := frame.New(4, 4)
	out, err := e.Process(f)
	require.NoError(t, err)
	assert.Same(t, f, out)
}

func TestSetStyleRejectsUnknown(t *testing.T) {
	e := NewEffectStage(testRegistry(t))

	err := e.SetStyle(style.Config{Style: "nope"})
	assert.Error(t, err)

	// The committed config is untouched by a rejected update.
	assert.Equal(t, style.Identity, e.Config().Style)
}

func TestSetStyleEmptyNameMeansIdentity(t *testing.T) {
	e := NewEffectStage(testRegistry(t))

	require.NoError(t, e.SetStyle(style.Config{}))
	assert.Equal(t, style.Identity, e.Config().Style)
	assert.NotNil(t, e.Config().Params)
}

func TestProcessPassesVariantAsParam(t *testing.T) {
	var got style.Params
	mark := &scriptedStyle{
		name: "mark",
		apply: func(f *frame.Frame, params style.Params) (*frame.Frame, error) {
			got = params
			return f, nil
		},
	}
	e := NewEffectStage(testRegistry(t, mark))

	require.NoError(t, e.SetStyle(style.Config{
		Style:   "mark",
		Variant: "bold",
		Params:  style.Params{"level": 3},
	}))

	_, err := e.Process(frame.New(4, 4))
	require.NoError(t, err)
	assert.Equal(t, "bold", got.String("variant", ""))
	assert.Equal(t, 3, got.Int("level", 0))

	// The committed params are not polluted by the merge.
	assert.NotContains(t, e.Config().Params, "variant")
}

func TestProcessReturnsInputOnFailure(t *testing.T) {
	broken := &scriptedStyle{
		name: "broken",
		apply: func(f *frame.Frame, _ style.Params) (*frame.Frame, error) {
			return nil, errors.New("boom")
		},
	}
	e := NewEffectStage(testRegistry(t, broken))
	require.NoError(t, e.SetStyle(style.Config{Style: "broken"}))

	f := frame.New(4, 4)
	f.Seq = 5

	out, err := e.Process(f)
	assert.Error(t, err)
	assert.Same(t, f, out)
	assert.EqualValues(t, 1, e.TransformErrors())
}

func TestProcessRejectsMismatchedOutput(t *testing.T) {
	shrink := &scriptedStyle{
		name: "shrink",
		apply: func(f *frame.Frame, _ style.Params) (*frame.Frame, error) {
			return frame.New(f.Width/2, f.Height/2), nil
		},
	}
	e := NewEffectStage(testRegistry(t, shrink))
	require.NoError(t, e.SetStyle(style.Config{Style: "shrink"}))

	f := frame.New(8, 8)
	out, err := e.Process(f)
	assert.Error(t, err)
	assert.Same(t, f, out)
	assert.EqualValues(t, 1, e.TransformErrors())
}

func TestConcurrentWritersNeverBlendConfigs(t *testing.T) {
	mark := &scriptedStyle{
		name: "mark",
		apply: func(f *frame.Frame, _ style.Params) (*frame.Frame, error) {
			return f, nil
		},
	}

	for i := 0; i < 500; i++ {
		e := NewEffectStage(testRegistry(t, mark))

		var wg sync.WaitGroup
		var styleErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			styleErr = e.SetStyle(style.Config{Style: "mark", Params: style.Params{"tag": "style"}})
		}()
		go func() {
			defer wg.Done()
			e.SetParams(style.Params{"tag": "params"})
		}()
		wg.Wait()
		require.NoError(t, styleErr)

		// Whatever the interleaving, the committed config must be one a
		// caller wrote: the style switch is never silently reverted by
		// the concurrent parameter update.
		cfg := e.Config()
		require.Equal(t, "mark", cfg.Style)
		require.Contains(t, []string{"style", "params"}, cfg.Params.String("tag", ""))
	}
}

func TestSetParamsReplacesOnlyParams(t *testing.T) {
	e := NewEffectStage(testRegistry(t))
	require.NoError(t, e.SetStyle(style.Config{Style: style.Identity, Variant: "v", Params: style.Params{"a": 1}}))

	e.SetParams(style.Params{"b": 2})

	cfg := e.Config()
	assert.Equal(t, style.Identity, cfg.Style)
	assert.Equal(t, "v", cfg.Variant)
	assert.NotContains(t, cfg.Params, "a")
	assert.Equal(t, 2, cfg.Params.Int("b", 0))
}
