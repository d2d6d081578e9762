package style

import (
	"fmt"

	"github.com/anthonynsimon/bild/effect"

	"github.com/bryanchriswhite/stylecam/internal/frame"
)

// EdgeStyle shows only detected edges. The "variant" parameter selects
// the operator: "gradient" (default) or "sobel".
type EdgeStyle struct{}

func (s *EdgeStyle) Name() string { return "edge" }

func (s *EdgeStyle) Apply(f *frame.Frame, params Params) (*frame.Frame, error) {
	img := f.ToRGBA()

	variant := params.String("variant", "gradient")
	switch variant {
	case "gradient":
		radius := params.Float("radius", 1)
		if radius < 1 {
			radius = 1
		}
		return result(effect.EdgeDetection(img, radius), f), nil
	case "sobel":
		return result(effect.Sobel(img), f), nil
	default:
		return nil, fmt.Errorf("unknown edge variant %q", variant)
	}
}

func (s *EdgeStyle) ParamSpecs() []ParamSpec {
	return []ParamSpec{
		{Name: "variant", Label: "Operator", Type: ParamString, Default: "gradient", Choices: []string{"gradient", "sobel"}},
		{Name: "radius", Label: "Radius", Type: ParamFloat, Min: 1, Max: 5, Step: 0.5, Default: 1.0},
	}
}
