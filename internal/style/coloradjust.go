package style

import (
	"github.com/anthonynsimon/bild/adjust"

	"github.com/bryanchriswhite/stylecam/internal/frame"
)

// ColorAdjustStyle applies basic color corrections. All defaults are
// no-ops so an empty parameter map leaves the frame unchanged.
type ColorAdjustStyle struct{}

func (s *ColorAdjustStyle) Name() string { return "color-adjust" }

func (s *ColorAdjustStyle) Apply(f *frame.Frame, params Params) (*frame.Frame, error) {
	brightness := params.Float("brightness", 0)
	contrast := params.Float("contrast", 0)
	saturation := params.Float("saturation", 0)
	gamma := params.Float("gamma", 1.0)
	hue := params.Int("hue", 0)

	img := f.ToRGBA()
	out := img
	if brightness != 0 {
		out = adjust.Brightness(out, brightness)
	}
	if contrast != 0 {
		out = adjust.Contrast(out, contrast)
	}
	if saturation != 0 {
		out = adjust.Saturation(out, saturation)
	}
	if gamma != 1.0 && gamma > 0 {
		out = adjust.Gamma(out, gamma)
	}
	if hue != 0 {
		out = adjust.Hue(out, hue)
	}

	if out == img {
		// Nothing changed; keep the original frame.
		return f, nil
	}
	return result(out, f), nil
}

func (s *ColorAdjustStyle) ParamSpecs() []ParamSpec {
	return []ParamSpec{
		{Name: "brightness", Label: "Brightness", Type: ParamFloat, Min: -1, Max: 1, Step: 0.05, Default: 0.0},
		{Name: "contrast", Label: "Contrast", Type: ParamFloat, Min: -1, Max: 1, Step: 0.05, Default: 0.0},
		{Name: "saturation", Label: "Saturation", Type: ParamFloat, Min: -1, Max: 1, Step: 0.05, Default: 0.0},
		{Name: "gamma", Label: "Gamma", Type: ParamFloat, Min: 0.2, Max: 3, Step: 0.1, Default: 1.0},
		{Name: "hue", Label: "Hue Shift", Type: ParamInt, Min: -180, Max: 180, Step: 1, Default: 0},
	}
}
