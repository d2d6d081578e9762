package style

import (
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/bryanchriswhite/stylecam/internal/frame"
)

// SketchStyle renders frames as a pencil sketch: dark edge lines on a
// light background.
type SketchStyle struct{}

func (s *SketchStyle) Name() string { return "sketch" }

func (s *SketchStyle) Apply(f *frame.Frame, params Params) (*frame.Frame, error) {
	blurRadius := params.Float("blur_radius", 2)
	if blurRadius < 0 {
		blurRadius = 0
	}

	img := f.ToRGBA()
	gray := effect.Grayscale(img)
	if blurRadius > 0 {
		gray = blur.Gaussian(gray, blurRadius)
	}
	edges := effect.EdgeDetection(gray, 1.0)
	sketch := effect.Invert(edges)

	return result(sketch, f), nil
}

func (s *SketchStyle) ParamSpecs() []ParamSpec {
	return []ParamSpec{
		{Name: "blur_radius", Label: "Blur Radius", Type: ParamFloat, Min: 0, Max: 10, Step: 0.5, Default: 2.0},
	}
}
