package style

import (
	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/bryanchriswhite/stylecam/internal/frame"
)

// WatercolorStyle softens the image with edge-preserving smoothing, a
// light blur and a saturation lift.
type WatercolorStyle struct{}

func (s *WatercolorStyle) Name() string { return "watercolor" }

func (s *WatercolorStyle) Apply(f *frame.Frame, params Params) (*frame.Frame, error) {
	smoothing := params.Float("smoothing", 7)
	blurRadius := params.Float("blur_radius", 1.5)
	saturation := params.Float("saturation", 0.2)
	if smoothing < 1 {
		smoothing = 1
	}
	if blurRadius < 0 {
		blurRadius = 0
	}

	img := f.ToRGBA()
	out := effect.Median(img, smoothing)
	if blurRadius > 0 {
		out = blur.Gaussian(out, blurRadius)
	}
	if saturation != 0 {
		out = adjust.Saturation(out, saturation)
	}

	return result(out, f), nil
}

func (s *WatercolorStyle) ParamSpecs() []ParamSpec {
	return []ParamSpec{
		{Name: "smoothing", Label: "Smoothing", Type: ParamFloat, Min: 1, Max: 15, Step: 1, Default: 7.0},
		{Name: "blur_radius", Label: "Blur Radius", Type: ParamFloat, Min: 0, Max: 5, Step: 0.5, Default: 1.5},
		{Name: "saturation", Label: "Saturation Boost", Type: ParamFloat, Min: -1, Max: 1, Step: 0.05, Default: 0.2},
	}
}
